package notifications

import (
	"encoding/json"
	"time"

	"visitly/internal/gateways"

	"github.com/google/uuid"
)

// Channel is a delivery medium the downstream sender may use.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Priority hints how quickly the downstream sender should act.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Envelope is the record written to the notification topic.
type Envelope struct {
	ID        uuid.UUID          `json:"id"`
	Template  gateways.Template  `json:"template"`
	Priority  Priority           `json:"priority"`
	Channels  []Channel          `json:"channels"`
	Recipient gateways.Recipient `json:"recipient"`
	Data      map[string]string  `json:"data,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

func newEnvelope(recipient gateways.Recipient, template gateways.Template, data map[string]string, now time.Time) *Envelope {
	return &Envelope{
		ID:        uuid.New(),
		Template:  template,
		Priority:  priorityFor(template),
		Channels:  channelsFor(recipient),
		Recipient: recipient,
		Data:      data,
		CreatedAt: now,
	}
}

// PartitionKey keeps every notification for one recipient on one partition.
func (e *Envelope) PartitionKey() string {
	if e.Recipient.UserID != "" {
		return e.Recipient.UserID
	}
	return e.Recipient.Email
}

func (e *Envelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func priorityFor(t gateways.Template) Priority {
	switch t {
	case gateways.TemplateFraudAlert, gateways.TemplateSlotCancelled:
		return PriorityHigh
	default:
		return PriorityNormal
	}
}

func channelsFor(r gateways.Recipient) []Channel {
	channels := []Channel{ChannelEmail}
	if r.Phone != "" {
		channels = append(channels, ChannelSMS)
	}
	return channels
}
