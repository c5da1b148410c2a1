// Package campaign contains the approval fan-out core: one concurrent worker
// per client, a shared aggregator, and the orchestrator that drains them.
package campaign

import (
	"time"

	"github.com/prestige-production/outreach/internal/approval"
	"github.com/prestige-production/outreach/internal/client"
)

// Status is the terminal per-client status tag
type Status string

const (
	StatusApprovedAndSent Status = "approved_and_sent"
	StatusRejected        Status = "rejected"
	StatusTimeout         Status = "timeout"
	StatusError           Status = "error"
	StatusScriptError     Status = "script_error"
)

// SendState records whether an email send was attempted and its result
type SendState string

const (
	SendSent         SendState = "sent"
	SendFailed       SendState = "send_failed"
	SendNotAttempted SendState = "not_attempted"
)

// Result is the final record for one client. Created once when the worker
// finishes and never mutated after it is handed to the aggregator.
type Result struct {
	Client      client.Client    `json:"client"`
	Outcome     approval.Outcome `json:"outcome"`
	Status      Status           `json:"status"`
	Send        SendState        `json:"send"`
	SendError   string           `json:"send_error,omitempty"`
	TrackingID  string           `json:"tracking_id,omitempty"`
	Error       string           `json:"error,omitempty"`
	RequestedAt time.Time        `json:"requested_at"`
	ResolvedAt  time.Time        `json:"resolved_at"`
}

// counted reports which aggregate counter this result belongs to. Rejections
// and timeouts collapse into the same counter; send failures and channel
// errors are errors, not rejections.
func (r *Result) counted() (approved, rejected, failed bool) {
	switch r.Status {
	case StatusApprovedAndSent:
		return true, false, false
	case StatusRejected, StatusTimeout:
		return false, true, false
	default:
		return false, false, true
	}
}
