package campaign

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/prestige-production/outreach/internal/approval"
	"github.com/prestige-production/outreach/internal/client"
	"github.com/prestige-production/outreach/internal/mailer"
	"github.com/prestige-production/outreach/internal/metrics"
	"github.com/prestige-production/outreach/internal/notify"
	"github.com/prestige-production/outreach/internal/source"
)

// Orchestrator runs one campaign: fetch the client list, fan out one worker
// per client, drain results as they complete, emit the final report.
type Orchestrator struct {
	name    string
	source  source.Source
	channel approval.Channel
	sender  mailer.Sender
	preview PreviewRenderer
	sink    notify.Sink
	metrics *metrics.Metrics // optional
	logger  *slog.Logger
}

// Options configures an Orchestrator. Source, Channel, Sender and Logger are
// required; Sink defaults to a NopSink.
type Options struct {
	Name    string
	Source  source.Source
	Channel approval.Channel
	Sender  mailer.Sender
	Preview PreviewRenderer
	Sink    notify.Sink
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// New creates an orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Sink == nil {
		opts.Sink = notify.NopSink{}
	}
	if opts.Name == "" {
		opts.Name = "client-outreach"
	}
	return &Orchestrator{
		name:    opts.Name,
		source:  opts.Source,
		channel: opts.Channel,
		sender:  opts.Sender,
		preview: opts.Preview,
		sink:    opts.Sink,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
}

// Run executes the campaign. Only a client-list fetch failure is fatal;
// every other failure is scoped to one client and lands in its Result.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	startTime := time.Now()
	runID := uuid.New().String()

	o.logger.Info("campaign starting", "run_id", runID, "campaign", o.name)
	o.sink.Status("🚀 Campaign Started", "Client outreach campaign is starting up", notify.SeverityGood)
	o.sink.Status("📥 Fetching Data", "Loading the client list", notify.SeverityInfo)

	list, err := o.source.Fetch(ctx)
	if err != nil {
		o.sink.Status("❌ Data Fetch Failed", err.Error(), notify.SeverityError)
		return nil, fmt.Errorf("failed to fetch client list: %w", err)
	}

	o.logger.Info("client list fetched",
		"total_rows", list.Metadata.TotalRows,
		"contactable", list.Metadata.Contactable,
	)
	o.sink.Status("✅ Data Loaded",
		fmt.Sprintf("Found %d contactable clients (of %d rows)", len(list.Clients), list.Metadata.TotalRows),
		notify.SeverityGood)

	if len(list.Clients) == 0 {
		o.logger.Info("no clients to contact")
		o.sink.Status("ℹ️ No Clients", "All clients have already been contacted", notify.SeverityInfo)
		return o.buildReport(runID, newAggregator(0), list.Metadata, startTime), nil
	}

	if o.metrics != nil {
		o.metrics.ClientsTotal.Set(float64(len(list.Clients)))
		o.metrics.ClientsProcessed.Set(0)
	}

	o.sink.Status("🤖 Starting Approvals",
		fmt.Sprintf("Sending %d approval requests — email sent immediately on approval", len(list.Clients)),
		notify.SeverityInfo)

	agg := newAggregator(len(list.Clients))
	w := &worker{
		channel:   o.channel,
		sender:    o.sender,
		previewer: o.preview,
		sink:      o.sink,
		logger:    o.logger,
	}

	// One goroutine per client. Unbounded on purpose: each worker spends
	// nearly all its life blocked on a human decision.
	resultCh := make(chan *Result)
	for _, c := range list.Clients {
		go func(c client.Client) {
			resultCh <- o.runWorker(ctx, w, c)
		}(c)
	}

	o.logger.Info("all approval requests sent", "count", len(list.Clients))

	// Drain in completion order and publish progress as results land.
	for range list.Clients {
		r := <-resultCh
		stats := agg.record(r)

		if o.metrics != nil {
			if r.Outcome.Kind != "" {
				o.metrics.ApprovalsTotal.WithLabelValues(string(r.Outcome.Kind)).Inc()
			}
			o.metrics.ClientsProcessed.Set(float64(stats.Processed))
			switch r.Send {
			case SendSent:
				o.metrics.EmailsSentTotal.Inc()
			case SendFailed:
				o.metrics.EmailsFailedTotal.Inc()
			}
		}

		o.logger.Info("client resolved",
			"client", r.Client.Email,
			"status", r.Status,
			"processed", stats.Processed,
			"total", stats.Total,
		)

		if r.Status == StatusApprovedAndSent {
			o.markContacted(ctx, r.Client)
		}
	}

	report := o.buildReport(runID, agg, list.Metadata, startTime)

	o.logger.Info("campaign completed",
		"run_id", runID,
		"processed", report.Processed,
		"approved", report.Approved,
		"rejected", report.Rejected,
		"errors", report.Errors,
		"duration", time.Duration(report.DurationSeconds*float64(time.Second)),
	)
	o.sink.Summary(notify.Stats{
		Total:     report.TotalClients,
		Processed: report.Processed,
		Approved:  report.Approved,
		Rejected:  report.Rejected,
		Errors:    report.Errors,
		Duration:  time.Duration(report.DurationSeconds * float64(time.Second)),
	})

	return report, nil
}

// runWorker guards one worker against unexpected faults. A panic is
// downgraded to a script_error result so sibling workers and the drain loop
// keep going.
func (o *Orchestrator) runWorker(ctx context.Context, w *worker, c client.Client) (result *Result) {
	requestedAt := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error("worker panicked", "client", c.Email, "panic", rec)
			o.sink.ClientStatus(c, notify.PhaseError, fmt.Sprintf("Unexpected worker fault: %v", rec))
			result = &Result{
				Client:      c,
				Status:      StatusScriptError,
				Send:        SendNotAttempted,
				Error:       fmt.Sprint(rec),
				RequestedAt: requestedAt,
				ResolvedAt:  time.Now(),
			}
		}
	}()
	return w.process(ctx, c)
}

// markContacted writes the contact date back to the sheet. Best effort: a
// writeback failure is logged but does not count against the run.
func (o *Orchestrator) markContacted(ctx context.Context, c client.Client) {
	if err := o.source.MarkContacted(ctx, c.Email, time.Now()); err != nil {
		o.logger.Warn("failed to mark client contacted", "client", c.Email, "error", err)
	}
}

func (o *Orchestrator) buildReport(runID string, agg *aggregator, meta source.Metadata, startTime time.Time) *Report {
	stats, results := agg.snapshot()
	endTime := time.Now()

	outcome := OutcomeCompleted
	switch {
	case stats.Total == 0:
		outcome = OutcomeNoClients
	case stats.Errors > 0:
		outcome = OutcomeCompletedWithErrors
	}

	return &Report{
		RunID:           runID,
		Campaign:        o.name,
		Outcome:         outcome,
		TotalClients:    stats.Total,
		Processed:       stats.Processed,
		Approved:        stats.Approved,
		Rejected:        stats.Rejected,
		Errors:          stats.Errors,
		ClientResults:   results,
		StartTime:       startTime,
		EndTime:         endTime,
		DurationSeconds: endTime.Sub(startTime).Seconds(),
		Metadata:        meta,
	}
}
