package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// StoredResponse is a replayable HTTP response keyed by an Idempotency-Key.
type StoredResponse struct {
	InFlight bool            `json:"in_flight"`
	Status   int             `json:"status"`
	Body     json.RawMessage `json:"body,omitempty"`
}

var ErrRequestInFlight = errors.New("a request with this idempotency key is still in progress")

// Idempotency replays completed responses and rejects concurrent duplicates.
type Idempotency struct {
	cache       Service
	inFlightTTL time.Duration
	ttl         time.Duration
}

func NewIdempotency(cache Service, inFlightTTL, ttl time.Duration) *Idempotency {
	return &Idempotency{cache: cache, inFlightTTL: inFlightTTL, ttl: ttl}
}

// Begin returns a stored response to replay, or claims the key for a new request.
func (i *Idempotency) Begin(ctx context.Context, key string) (*StoredResponse, error) {
	var stored StoredResponse
	err := i.cache.Get(ctx, key, &stored)
	switch {
	case err == nil && stored.InFlight:
		return nil, ErrRequestInFlight
	case err == nil:
		return &stored, nil
	case !errors.Is(err, ErrCacheMiss):
		return nil, err
	}

	claimed, err := i.cache.SetNX(ctx, key, StoredResponse{InFlight: true}, i.inFlightTTL)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrRequestInFlight
	}
	return nil, nil
}

// Complete stores the final response for replay.
func (i *Idempotency) Complete(ctx context.Context, key string, status int, body interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return i.cache.Set(ctx, key, StoredResponse{Status: status, Body: raw}, i.ttl)
}

// Abandon releases the key so the client may retry.
func (i *Idempotency) Abandon(ctx context.Context, key string) error {
	return i.cache.Delete(ctx, key)
}
