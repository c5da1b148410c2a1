// Package approval posts decision requests to a human channel and resolves
// each request to exactly one terminal outcome.
package approval

import (
	"context"
	"time"

	"github.com/prestige-production/outreach/internal/client"
	"github.com/prestige-production/outreach/internal/template"
)

// Kind is the terminal result of one approval request
type Kind string

const (
	Approved     Kind = "approved"
	Rejected     Kind = "rejected"
	TimedOut     Kind = "timed_out"
	ChannelError Kind = "channel_error"
)

// Outcome is the result of one approval request. Exactly one Outcome is
// produced per client per campaign run.
type Outcome struct {
	Kind        Kind      `json:"kind"`
	ActorID     string    `json:"actor_id,omitempty"`   // Who approved or rejected
	ActorName   string    `json:"actor_name,omitempty"`
	Message     string    `json:"message,omitempty"`    // Error detail for ChannelError
	RequestedAt time.Time `json:"requested_at"`
	ResolvedAt  time.Time `json:"resolved_at"`
}

// Channel publishes a decision request and blocks until a human decision,
// the timeout, or an internal failure produces an outcome. Implementations
// must never return without an outcome and must never panic across this
// boundary; internal failures surface as ChannelError.
type Channel interface {
	RequestDecision(ctx context.Context, c client.Client, preview *template.RenderResult) Outcome
}

// errorOutcome builds a ChannelError outcome.
func errorOutcome(requestedAt time.Time, msg string) Outcome {
	return Outcome{
		Kind:        ChannelError,
		Message:     msg,
		RequestedAt: requestedAt,
		ResolvedAt:  time.Now(),
	}
}
