package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/prestige-production/outreach/internal/client"
	"github.com/prestige-production/outreach/internal/config"
	"github.com/prestige-production/outreach/internal/template"
)

// SMTPMailer renders the outreach template for a client and submits the
// result through the configured relay.
type SMTPMailer struct {
	cfg      config.SMTPConfig
	campaign config.CampaignConfig
	engine   *template.Engine
	tmpl     *template.Template
	tracker  TrackingRecorder // nil when tracking is disabled
	trackURL string           // public base URL of the tracking service
	logger   *slog.Logger
}

// NewSMTPMailer creates a mailer. tracker may be nil.
func NewSMTPMailer(cfg config.SMTPConfig, campaign config.CampaignConfig, tmpl *template.Template, tracker TrackingRecorder, trackURL string, logger *slog.Logger) *SMTPMailer {
	return &SMTPMailer{
		cfg:      cfg,
		campaign: campaign,
		engine:   template.NewEngine(),
		tmpl:     tmpl,
		tracker:  tracker,
		trackURL: strings.TrimRight(trackURL, "/"),
		logger:   logger,
	}
}

// Preview renders the email as it would be sent, without tracking URLs.
// Used for the approval request.
func (m *SMTPMailer) Preview(c client.Client) (*template.RenderResult, error) {
	return m.engine.Render(m.tmpl, template.BuildData(c))
}

// Send renders and submits one email. A tracking row is created first when
// tracking is enabled so opens and clicks can be attributed.
func (m *SMTPMailer) Send(ctx context.Context, c client.Client) (*Receipt, error) {
	data := template.BuildData(c)

	receipt := &Receipt{}
	if m.tracker != nil {
		id, err := m.tracker.Create(ctx, c.DisplayName(), c.Email)
		if err != nil {
			// Tracking is observability, not correctness: send anyway.
			m.logger.Warn("failed to create tracking entry", "client", c.Email, "error", err)
		} else {
			receipt.TrackingID = id
			data.TrackingPixelURL = m.trackURL + "/track/open/" + id
			data.TrackingClickURL = m.trackURL + "/track/click/" + id + "?url=" + url.QueryEscape(m.campaign.SiteURL)
		}
	}

	rendered, err := m.engine.Render(m.tmpl, data)
	if err != nil {
		return nil, &DeliveryError{Temporary: false, Message: fmt.Sprintf("failed to render email: %v", err)}
	}

	msg, err := buildMessage(m.campaign, c, rendered)
	if err != nil {
		return nil, &DeliveryError{Temporary: false, Message: fmt.Sprintf("failed to build message: %v", err)}
	}

	recipients := append([]string{c.Email}, m.campaign.CC...)
	if err := m.submit(ctx, recipients, msg); err != nil {
		return nil, err
	}

	receipt.SentAt = time.Now()
	m.logger.Info("email sent", "to", c.Email, "cc", m.campaign.CC, "tracking_id", receipt.TrackingID)
	return receipt, nil
}

// submit performs the SMTP transaction. Port 465 uses implicit TLS, any
// other port goes through STARTTLS. A deadline on the connection bounds the
// whole transaction, not just the dial, so a hung relay cannot strand the
// send past the configured timeout.
func (m *SMTPMailer) submit(ctx context.Context, recipients []string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	dialer := &net.Dialer{Timeout: m.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return &DeliveryError{Temporary: true, Message: fmt.Sprintf("connection failed to %s: %v", addr, err)}
	}
	defer conn.Close()

	deadline := time.Now().Add(m.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetDeadline(deadline)

	var client *smtp.Client
	if m.cfg.Port == 465 {
		client = smtp.NewClient(tls.Client(conn, m.tlsConfig()))
	} else {
		client, err = smtp.NewClientStartTLS(conn, m.tlsConfig())
		if err != nil {
			return categorizeError(err)
		}
	}
	defer client.Close()

	auth := sasl.NewPlainClient("", m.cfg.Username, m.cfg.Password)
	if err := client.Auth(auth); err != nil {
		return categorizeError(err)
	}

	if err := client.Mail(m.campaign.FromEmail, nil); err != nil {
		return categorizeError(err)
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt, nil); err != nil {
			return categorizeError(err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return categorizeError(err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return categorizeError(err)
	}
	if err := w.Close(); err != nil {
		return categorizeError(err)
	}

	return client.Quit()
}

func (m *SMTPMailer) tlsConfig() *tls.Config {
	return &tls.Config{
		ServerName: m.cfg.Host,
		MinVersion: tls.VersionTLS12,
	}
}

// categorizeError classifies SMTP failures by status code class.
func categorizeError(err error) *DeliveryError {
	if smtpErr, ok := err.(*smtp.SMTPError); ok {
		return &DeliveryError{
			Temporary: smtpErr.Code >= 400 && smtpErr.Code < 500,
			Message:   fmt.Sprintf("smtp %d: %s", smtpErr.Code, smtpErr.Message),
		}
	}
	return &DeliveryError{Temporary: true, Message: err.Error()}
}

// IsTemporaryError checks if the error is a temporary delivery failure.
func IsTemporaryError(err error) bool {
	if de, ok := err.(*DeliveryError); ok {
		return de.Temporary
	}
	return true
}
