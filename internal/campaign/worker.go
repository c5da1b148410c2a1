package campaign

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prestige-production/outreach/internal/approval"
	"github.com/prestige-production/outreach/internal/client"
	"github.com/prestige-production/outreach/internal/mailer"
	"github.com/prestige-production/outreach/internal/notify"
	"github.com/prestige-production/outreach/internal/template"
)

// PreviewRenderer renders the email as it would be sent, for the approval
// request. Implemented by the mailer.
type PreviewRenderer interface {
	Preview(c client.Client) (*template.RenderResult, error)
}

// worker handles the full decision-to-send lifecycle for a single client:
// request approval, interpret the outcome, send on approval, report.
type worker struct {
	channel   approval.Channel
	sender    mailer.Sender
	previewer PreviewRenderer
	sink      notify.Sink
	logger    *slog.Logger
}

// process resolves one client to exactly one Result. It never returns nil.
func (w *worker) process(ctx context.Context, c client.Client) *Result {
	w.sink.ClientStatus(c, notify.PhaseProcessing, "Approval request sent")

	var preview *template.RenderResult
	if w.previewer != nil {
		p, err := w.previewer.Preview(c)
		if err != nil {
			// The approval request still goes out; the operator decides
			// without a preview.
			w.logger.Warn("failed to render preview", "client", c.Email, "error", err)
		} else {
			preview = p
		}
	}

	outcome := w.channel.RequestDecision(ctx, c, preview)

	result := &Result{
		Client:      c,
		Outcome:     outcome,
		Send:        SendNotAttempted,
		RequestedAt: outcome.RequestedAt,
		ResolvedAt:  outcome.ResolvedAt,
	}

	switch outcome.Kind {
	case approval.Approved:
		w.send(ctx, c, result)

	case approval.Rejected:
		result.Status = StatusRejected
		w.sink.ClientStatus(c, notify.PhaseRejected, fmt.Sprintf("Rejected by %s — no email sent", outcome.ActorName))
		w.logger.Info("client rejected", "client", c.Email, "actor", outcome.ActorName)

	case approval.TimedOut:
		result.Status = StatusTimeout
		w.sink.ClientStatus(c, notify.PhaseTimeout, "Approval timed out — no email sent")
		w.logger.Info("approval timed out", "client", c.Email)

	case approval.ChannelError:
		result.Status = StatusError
		result.Error = outcome.Message
		w.sink.ClientStatus(c, notify.PhaseError, fmt.Sprintf("Approval channel error: %s", outcome.Message))
		w.logger.Error("approval channel error", "client", c.Email, "error", outcome.Message)
	}

	return result
}

// send attempts the email immediately after approval. A failed send counts
// as an error, never as approved_and_sent.
func (w *worker) send(ctx context.Context, c client.Client, result *Result) {
	receipt, err := w.sender.Send(ctx, c)
	if err != nil {
		result.Status = StatusError
		result.Send = SendFailed
		result.SendError = err.Error()
		result.Error = err.Error()
		w.sink.ClientStatus(c, notify.PhaseError, fmt.Sprintf("Approved but send failed: %v", err))
		w.logger.Error("send failed after approval", "client", c.Email, "error", err)
		return
	}

	result.Status = StatusApprovedAndSent
	result.Send = SendSent
	if receipt != nil {
		result.TrackingID = receipt.TrackingID
	}
	w.sink.ClientStatus(c, notify.PhaseApproved, "Email sent successfully")
	w.logger.Info("email sent after approval", "client", c.Email, "tracking_id", result.TrackingID)
}
