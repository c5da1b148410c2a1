// Package mailer dispatches the approved outreach email through an
// authenticated submission relay.
package mailer

import (
	"context"
	"time"

	"github.com/prestige-production/outreach/internal/client"
)

// Receipt is returned after a successful send. TrackingID is empty when
// tracking is disabled.
type Receipt struct {
	TrackingID string    `json:"tracking_id,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}

// Sender sends one outreach email per call. Single attempt, no internal
// retry; retries are the caller's business.
type Sender interface {
	Send(ctx context.Context, c client.Client) (*Receipt, error)
}

// DeliveryError is a send failure with a temporary/permanent hint
type DeliveryError struct {
	Temporary bool
	Message   string
}

func (e *DeliveryError) Error() string {
	return e.Message
}

// TrackingRecorder creates a tracking row before a send. Implemented by the
// tracking store; nil disables tracking.
type TrackingRecorder interface {
	Create(ctx context.Context, name, email string) (string, error)
}
