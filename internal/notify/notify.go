// Package notify broadcasts best-effort campaign progress to an observer
// channel. Nothing here may affect campaign correctness: every method is
// fire-and-forget and failures are swallowed.
package notify

import (
	"time"

	"github.com/prestige-production/outreach/internal/client"
)

// Severity selects the embed color of a status update
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityGood
	SeverityWarn
	SeverityError
)

// Phase is the per-client lifecycle phase reported to observers
type Phase string

const (
	PhaseProcessing Phase = "processing"
	PhaseApproved   Phase = "approved"
	PhaseRejected   Phase = "rejected"
	PhaseTimeout    Phase = "timeout"
	PhaseError      Phase = "error"
)

// Stats is the aggregate view shipped with the final summary.
type Stats struct {
	Total     int
	Processed int
	Approved  int
	Rejected  int
	Errors    int
	Duration  time.Duration
}

// Sink receives progress updates. Implementations must never block the
// caller on delivery and must never panic.
type Sink interface {
	Status(title, detail string, severity Severity)
	ClientStatus(c client.Client, phase Phase, detail string)
	Summary(stats Stats)
}

// NopSink discards all updates. Used when no monitor channel is configured.
type NopSink struct{}

func (NopSink) Status(title, detail string, severity Severity)           {}
func (NopSink) ClientStatus(c client.Client, phase Phase, detail string) {}
func (NopSink) Summary(stats Stats)                                      {}
