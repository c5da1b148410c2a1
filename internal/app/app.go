// Package app wires the campaign components together and owns their
// lifecycle.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/prestige-production/outreach/internal/approval"
	"github.com/prestige-production/outreach/internal/campaign"
	"github.com/prestige-production/outreach/internal/config"
	"github.com/prestige-production/outreach/internal/journal"
	"github.com/prestige-production/outreach/internal/mailer"
	"github.com/prestige-production/outreach/internal/metrics"
	"github.com/prestige-production/outreach/internal/notify"
	"github.com/prestige-production/outreach/internal/source"
	"github.com/prestige-production/outreach/internal/template"
	"github.com/prestige-production/outreach/internal/tracking"
)

// ErrInterrupted is returned when the operator aborts the run.
var ErrInterrupted = errors.New("campaign interrupted")

// App is the main application
type App struct {
	config          *config.Config
	logger          *slog.Logger
	session         *discordgo.Session
	approvalChannel *approval.DiscordChannel
	sink            notify.Sink
	discordSink     *notify.DiscordSink
	trackingStore   *tracking.Store
	trackingServer  *tracking.Server
	journalStore    *journal.Store
	metrics         *metrics.Metrics
	metricsServer   *metrics.Server
	orchestrator    *campaign.Orchestrator
}

// New creates a fully wired application.
func New(cfg *config.Config) (*App, error) {
	logger := setupLogger(cfg.Logging)

	if !cfg.Discord.Enabled {
		return nil, fmt.Errorf("discord must be enabled to run a campaign (no approval channel otherwise)")
	}

	session, err := discordgo.New("Bot " + cfg.Discord.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	a := &App{
		config:  cfg,
		logger:  logger,
		session: session,
		metrics: metrics.New(),
	}

	// Tracking service: store + HTTP endpoints + the recorder the mailer
	// uses to create entries before each send.
	var recorder mailer.TrackingRecorder
	if cfg.Tracking.Enabled {
		store, err := tracking.NewStore(cfg.Tracking.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open tracking store: %w", err)
		}
		a.trackingStore = store
		a.trackingServer = tracking.NewServer(store, cfg.Tracking.ListenAddr, logger.With("component", "tracking"))
		a.trackingServer.SetMetrics(a.metrics)
		recorder = store
	}

	journalStore, err := journal.NewStore(cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run journal: %w", err)
	}
	a.journalStore = journalStore

	// Live monitor sink; optional.
	if cfg.Discord.MonitorChannel != "" {
		a.discordSink = notify.NewDiscordSink(session, cfg.Discord.MonitorChannel, logger.With("component", "monitor"))
		a.sink = a.discordSink
	} else {
		a.sink = notify.NopSink{}
	}

	a.approvalChannel = approval.NewDiscordChannel(
		session,
		cfg.Discord.ApprovalChannel,
		cfg.Approval.Timeout,
		logger.With("component", "approval"),
	)

	tmpl, err := campaignTemplate(cfg.Campaign)
	if err != nil {
		return nil, err
	}
	m := mailer.NewSMTPMailer(
		cfg.SMTP,
		cfg.Campaign,
		tmpl,
		recorder,
		cfg.Tracking.PublicURL,
		logger.With("component", "mailer"),
	)

	src := source.NewCSVSource(cfg.Source.Path, cfg.Source.LastContactedColumn, logger.With("component", "source"))

	a.orchestrator = campaign.New(campaign.Options{
		Name:    cfg.Campaign.Name,
		Source:  src,
		Channel: a.approvalChannel,
		Sender:  m,
		Preview: m,
		Sink:    a.sink,
		Metrics: a.metrics,
		Logger:  logger.With("component", "orchestrator"),
	})

	return a, nil
}

// NewTracking creates an application that only runs the tracking service.
// No Discord session or SMTP configuration is needed.
func NewTracking(cfg *config.Config) (*App, error) {
	logger := setupLogger(cfg.Logging)

	if !cfg.Tracking.Enabled {
		return nil, fmt.Errorf("tracking is disabled in the configuration")
	}

	store, err := tracking.NewStore(cfg.Tracking.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open tracking store: %w", err)
	}

	a := &App{
		config:        cfg,
		logger:        logger,
		metrics:       metrics.New(),
		trackingStore: store,
	}
	a.trackingServer = tracking.NewServer(store, cfg.Tracking.ListenAddr, logger.With("component", "tracking"))
	a.trackingServer.SetMetrics(a.metrics)
	return a, nil
}

// NewHistory creates an application that only reads the run journal.
func NewHistory(cfg *config.Config) (*App, error) {
	logger := setupLogger(cfg.Logging)

	journalStore, err := journal.NewStore(cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run journal: %w", err)
	}

	return &App{
		config:       cfg,
		logger:       logger,
		journalStore: journalStore,
	}, nil
}

// campaignTemplate builds the template for this run: the stock outreach body
// with the operator's configured subject.
func campaignTemplate(campaign config.CampaignConfig) (*template.Template, error) {
	tmpl := template.Default
	if campaign.Subject != "" {
		tmpl.Subject = campaign.Subject
	}
	if err := template.NewEngine().Validate(&tmpl); err != nil {
		return nil, fmt.Errorf("invalid campaign template: %w", err)
	}
	return &tmpl, nil
}

// Logger exposes the configured logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Run executes one campaign run end to end and returns its report. The
// returned error is ErrInterrupted when the operator aborted the run.
func (a *App) Run(ctx context.Context) (*campaign.Report, error) {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if a.trackingServer != nil {
		go func() {
			if err := a.trackingServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.logger.Error("tracking server error", "error", err)
			}
		}()
	}

	if a.config.Metrics.Enabled {
		a.metricsServer = metrics.NewServer(a.metrics, a.config.Metrics.ListenAddr, a.config.Metrics.Path, a.logger.With("component", "metrics"))
		go func() {
			if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.logger.Error("metrics server error", "error", err)
			}
		}()
	}

	if err := a.session.Open(); err != nil {
		a.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to connect to discord: %w", err)
	}

	// Keep the pending-approvals gauge current while workers wait.
	gaugeDone := make(chan struct{})
	go a.trackPending(gaugeDone)

	report, err := a.orchestrator.Run(ctx)
	close(gaugeDone)

	interrupted := ctx.Err() != nil
	if interrupted {
		// Best-effort final notification before terminating.
		a.sink.Status("⏹️ Campaign Stopped", "Operator interrupted the campaign", notify.SeverityWarn)
	}

	if report != nil {
		a.archive(report)
	}

	a.Shutdown(context.Background())

	if err != nil {
		return nil, err
	}
	if interrupted {
		return report, ErrInterrupted
	}
	return report, nil
}

// RunTracking runs only the tracking web service (the `track` command).
func (a *App) RunTracking(ctx context.Context) error {
	if a.trackingServer == nil {
		return fmt.Errorf("tracking is disabled in the configuration")
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		if err := a.trackingServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		a.Shutdown(context.Background())
		return fmt.Errorf("tracking server: %w", err)
	}

	a.Shutdown(context.Background())
	return nil
}

// Journal exposes the run journal (the `history` command).
func (a *App) Journal() *journal.Store {
	return a.journalStore
}

// archive persists the report in the run journal.
func (a *App) archive(report *campaign.Report) {
	var buf bytes.Buffer
	if err := report.WriteJSON(&buf); err != nil {
		a.logger.Error("failed to encode report for journal", "error", err)
		return
	}

	entry := &journal.Entry{
		RunID:     report.RunID,
		Campaign:  report.Campaign,
		StartedAt: report.StartTime,
		Outcome:   report.Outcome,
		Total:     report.TotalClients,
		Processed: report.Processed,
		Approved:  report.Approved,
		Rejected:  report.Rejected,
		Errors:    report.Errors,
		Report:    buf.Bytes(),
	}
	if err := a.journalStore.Save(entry); err != nil {
		a.logger.Error("failed to archive run", "run_id", report.RunID, "error", err)
		return
	}
	a.logger.Info("run archived", "run_id", report.RunID)
}

// trackPending polls the approval channel for its outstanding request count.
func (a *App) trackPending(done <-chan struct{}) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			a.metrics.ApprovalsPending.Set(0)
			return
		case <-ticker.C:
			a.metrics.ApprovalsPending.Set(float64(a.approvalChannel.PendingCount()))
		}
	}
}

// Shutdown releases all resources. Safe to call once at the end of a run.
func (a *App) Shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	// Flush buffered monitor updates before tearing the session down.
	if a.discordSink != nil {
		a.discordSink.Close(shutdownCtx)
	}

	if a.approvalChannel != nil {
		a.approvalChannel.Close()
	}

	if a.session != nil {
		if err := a.session.Close(); err != nil {
			a.logger.Warn("discord session close error", "error", err)
		}
	}

	if a.trackingServer != nil {
		if err := a.trackingServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("tracking server shutdown error", "error", err)
		}
	}
	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("metrics server shutdown error", "error", err)
		}
	}
	if a.trackingStore != nil {
		if err := a.trackingStore.Close(); err != nil {
			a.logger.Warn("tracking store close error", "error", err)
		}
	}
	if a.journalStore != nil {
		if err := a.journalStore.Close(); err != nil {
			a.logger.Warn("journal close error", "error", err)
		}
	}
}

// setupLogger creates a logger based on configuration
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
