package bookings

import (
	"context"
	"time"

	"visitly/pkg/logger"
)

// JobProcessor runs the periodic no-show sweep.
type JobProcessor struct {
	service Service
	config  *JobConfig
	log     *logger.Logger
	done    chan struct{}
}

// JobConfig contains configuration for background jobs
type JobConfig struct {
	SweepInterval time.Duration
}

func DefaultJobConfig() *JobConfig {
	return &JobConfig{
		SweepInterval: 1 * time.Minute,
	}
}

func NewJobProcessor(service Service, config *JobConfig, log *logger.Logger) *JobProcessor {
	if config == nil {
		config = DefaultJobConfig()
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &JobProcessor{
		service: service,
		config:  config,
		log:     log,
		done:    make(chan struct{}),
	}
}

// Start launches the sweep loop and returns immediately.
func (jp *JobProcessor) Start(ctx context.Context) {
	jp.log.Info("starting booking background jobs", "sweep_interval", jp.config.SweepInterval.String())
	go jp.startNoShowSweeper(ctx)
}

func (jp *JobProcessor) Stop() {
	close(jp.done)
	jp.log.Info("booking background jobs stopped")
}

func (jp *JobProcessor) startNoShowSweeper(ctx context.Context) {
	ticker := time.NewTicker(jp.config.SweepInterval)
	defer ticker.Stop()

	// Catch up on anything that elapsed while the server was down
	jp.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			jp.sweep(ctx)
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (jp *JobProcessor) sweep(ctx context.Context) {
	result, err := jp.service.SweepNoShows(ctx)
	if err != nil {
		jp.log.WithError(err).Error("no-show sweep failed")
		return
	}
	if result.NoShows > 0 || result.SlotsCompleted > 0 {
		jp.log.Info("no-show sweep finished",
			"no_shows", result.NoShows,
			"slots_completed", result.SlotsCompleted,
		)
	}
}

// GetJobStatus returns the status of background jobs
func (jp *JobProcessor) GetJobStatus() map[string]interface{} {
	return map[string]interface{}{
		"sweep_interval": jp.config.SweepInterval.String(),
		"status":         "running",
	}
}
