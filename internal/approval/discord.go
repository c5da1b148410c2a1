package approval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/prestige-production/outreach/internal/client"
	"github.com/prestige-production/outreach/internal/template"
)

// Embed colors per terminal state, matching the monitor palette.
const (
	colorPending  = 0x3498db
	colorApproved = 0x2ecc71
	colorRejected = 0xe74c3c
	colorTimeout  = 0x95a5a6
	colorError    = 0xf39c12
)

const (
	actionApprove = "approve"
	actionReject  = "reject"
)

// previewLimit keeps the rendered email preview inside Discord's embed
// description limit.
const previewLimit = 1500

// DiscordChannel publishes approval requests as Discord messages with
// approve/reject buttons and waits for a button interaction scoped to the
// request it issued.
type DiscordChannel struct {
	session     *discordgo.Session
	channelID   string
	timeout     time.Duration
	pending     *pendingRegistry
	logger      *slog.Logger
	detach      func()
}

// NewDiscordChannel creates a channel posting to channelID. The interaction
// handler is registered on the shared session immediately; call Close to
// detach it.
func NewDiscordChannel(session *discordgo.Session, channelID string, timeout time.Duration, logger *slog.Logger) *DiscordChannel {
	c := &DiscordChannel{
		session:   session,
		channelID: channelID,
		timeout:   timeout,
		pending:   newPendingRegistry(),
		logger:    logger,
	}
	c.detach = session.AddHandler(c.onInteraction)
	return c
}

// Close detaches the interaction handler from the session.
func (c *DiscordChannel) Close() {
	if c.detach != nil {
		c.detach()
	}
}

// PendingCount reports how many approval requests are still waiting.
func (c *DiscordChannel) PendingCount() int {
	return c.pending.Len()
}

// RequestDecision posts the approval request and blocks until a human
// decision, the timeout, or cancellation. It always returns an outcome; all
// transport failures map to ChannelError.
func (c *DiscordChannel) RequestDecision(ctx context.Context, cl client.Client, preview *template.RenderResult) Outcome {
	requestedAt := time.Now()
	requestID := uuid.New().String()

	// Register before posting so a decision arriving between the post and
	// the select cannot be lost.
	waitCh := c.pending.Register(requestID)

	msg, err := c.session.ChannelMessageSendComplex(c.channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{c.requestEmbed(cl, preview, requestedAt)},
		Components: decisionButtons(requestID),
	})
	if err != nil {
		c.pending.Cancel(requestID)
		return errorOutcome(requestedAt, fmt.Sprintf("failed to post approval request: %v", err))
	}

	c.logger.Info("approval requested",
		"client", cl.Email,
		"request_id", requestID,
		"message_id", msg.ID,
	)

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case d := <-waitCh:
		outcome := decisionOutcome(d, requestedAt)
		c.markResolved(msg.ID, cl, outcome)
		return outcome

	case <-timer.C:
		c.pending.Cancel(requestID)
		// A decision acknowledged in the same instant the timer fired may
		// already sit in the buffer; honor it instead of calling timeout.
		if d, ok := takeDecision(waitCh); ok {
			outcome := decisionOutcome(d, requestedAt)
			c.markResolved(msg.ID, cl, outcome)
			return outcome
		}
		outcome := Outcome{
			Kind:        TimedOut,
			RequestedAt: requestedAt,
			ResolvedAt:  time.Now(),
		}
		c.markResolved(msg.ID, cl, outcome)
		return outcome

	case <-ctx.Done():
		c.pending.Cancel(requestID)
		outcome := errorOutcome(requestedAt, fmt.Sprintf("approval wait canceled: %v", ctx.Err()))
		c.markResolved(msg.ID, cl, outcome)
		return outcome
	}
}

// decisionOutcome maps a human decision to its terminal outcome.
func decisionOutcome(d decision, requestedAt time.Time) Outcome {
	kind := Rejected
	if d.approved {
		kind = Approved
	}
	return Outcome{
		Kind:        kind,
		ActorID:     d.actorID,
		ActorName:   d.actorName,
		RequestedAt: requestedAt,
		ResolvedAt:  time.Now(),
	}
}

// takeDecision returns a decision already delivered to waitCh, if any.
func takeDecision(waitCh <-chan decision) (decision, bool) {
	select {
	case d := <-waitCh:
		return d, true
	default:
		return decision{}, false
	}
}

// onInteraction handles button presses. Signals from bots, signals that do
// not carry one of our custom IDs, and signals for already-resolved requests
// are discarded.
func (c *DiscordChannel) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}

	user := interactionUser(i)
	if user == nil || user.Bot {
		return
	}

	action, requestID, ok := parseCustomID(i.MessageComponentData().CustomID)
	if !ok {
		return
	}

	d := decision{
		approved:  action == actionApprove,
		actorID:   user.ID,
		actorName: user.Username,
	}
	if !c.pending.Resolve(requestID, d) {
		c.logger.Warn("discarding decision for unknown or resolved request",
			"request_id", requestID,
			"actor", user.Username,
		)
		return
	}

	// Acknowledge so Discord does not show "interaction failed"; the
	// waiter edits the message to its terminal state.
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}); err != nil {
		c.logger.Warn("failed to acknowledge interaction", "request_id", requestID, "error", err)
	}
}

// markResolved edits the posted request in place so the operator sees the
// terminal state. Edit failures are logged, never surfaced.
func (c *DiscordChannel) markResolved(messageID string, cl client.Client, outcome Outcome) {
	embed := &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("Outreach Approval: %s", cl.DisplayName()),
		Timestamp: outcome.ResolvedAt.UTC().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: "Prestige Production - Outreach"},
	}

	switch outcome.Kind {
	case Approved:
		embed.Color = colorApproved
		embed.Description = fmt.Sprintf("✅ Approved by %s — email queued for %s", outcome.ActorName, cl.Email)
	case Rejected:
		embed.Color = colorRejected
		embed.Description = fmt.Sprintf("❌ Rejected by %s — no email sent", outcome.ActorName)
	case TimedOut:
		embed.Color = colorTimeout
		embed.Description = fmt.Sprintf("⏰ Timed out after %s — no email sent", c.timeout)
	case ChannelError:
		embed.Color = colorError
		embed.Description = fmt.Sprintf("⚠️ %s", outcome.Message)
	}

	empty := []discordgo.MessageComponent{}
	_, err := c.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    c.channelID,
		ID:         messageID,
		Embeds:     &[]*discordgo.MessageEmbed{embed},
		Components: &empty,
	})
	if err != nil {
		c.logger.Warn("failed to update approval message", "message_id", messageID, "error", err)
	}
}

func (c *DiscordChannel) requestEmbed(cl client.Client, preview *template.RenderResult, requestedAt time.Time) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Email", Value: cl.Email, Inline: true},
	}
	if cl.Company != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Company", Value: cl.Company, Inline: true})
	}

	description := "No preview available."
	if preview != nil {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Subject", Value: preview.Subject, Inline: false})
		description = truncate(preview.Text, previewLimit)
	}

	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Outreach Approval: %s", cl.DisplayName()),
		Description: description,
		Color:       colorPending,
		Fields:      fields,
		Timestamp:   requestedAt.UTC().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Approve to send immediately - %s window", c.timeout)},
	}
}

func decisionButtons(requestID string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Approve",
					Style:    discordgo.SuccessButton,
					CustomID: actionApprove + ":" + requestID,
				},
				discordgo.Button{
					Label:    "Reject",
					Style:    discordgo.DangerButton,
					CustomID: actionReject + ":" + requestID,
				},
			},
		},
	}
}

func parseCustomID(id string) (action, requestID string, ok bool) {
	action, requestID, found := strings.Cut(id, ":")
	if !found || requestID == "" {
		return "", "", false
	}
	if action != actionApprove && action != actionReject {
		return "", "", false
	}
	return action, requestID, true
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

// truncate cuts s to at most limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
