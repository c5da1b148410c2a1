package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/prestige-production/outreach/internal/client"
)

// Embed colors per severity and per client phase, from the original monitor
// palette.
var severityColors = map[Severity]int{
	SeverityInfo:  0x3498db,
	SeverityGood:  0x2ecc71,
	SeverityWarn:  0xf39c12,
	SeverityError: 0xe74c3c,
}

var phaseColors = map[Phase]int{
	PhaseProcessing: 0x3498db,
	PhaseApproved:   0x2ecc71,
	PhaseRejected:   0xe74c3c,
	PhaseError:      0xf39c12,
	PhaseTimeout:    0x95a5a6,
}

const footerText = "Prestige Production - Live Monitor"

// queueSize bounds the buffered updates; beyond it updates are dropped
// rather than blocking a worker.
const queueSize = 256

// DiscordSink posts status embeds to a monitor channel. Updates submitted
// before the gateway is ready are buffered and flushed in submission order
// once the ready event arrives.
type DiscordSink struct {
	session   *discordgo.Session
	channelID string
	logger    *slog.Logger

	queue     chan *discordgo.MessageEmbed
	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	closeOnce sync.Once
}

// NewDiscordSink creates the sink and starts its dispatch loop. The sink
// waits for the session's Ready event before delivering anything.
func NewDiscordSink(session *discordgo.Session, channelID string, logger *slog.Logger) *DiscordSink {
	s := &DiscordSink{
		session:   session,
		channelID: channelID,
		logger:    logger,
		queue:     make(chan *discordgo.MessageEmbed, queueSize),
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
	}
	session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Ready) {
		s.readyOnce.Do(func() { close(s.ready) })
	})
	go s.dispatch()
	return s
}

// Status sends a general status embed.
func (s *DiscordSink) Status(title, detail string, severity Severity) {
	s.enqueue(&discordgo.MessageEmbed{
		Title:       title,
		Description: detail,
		Color:       severityColors[severity],
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: footerText},
	})
}

// ClientStatus sends a per-client progress embed.
func (s *DiscordSink) ClientStatus(c client.Client, phase Phase, detail string) {
	s.enqueue(&discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s (%s)", c.DisplayName(), c.Email),
		Description: detail,
		Color:       phaseColors[phase],
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Status", Value: string(phase), Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: footerText},
	})
}

// Summary sends the final campaign summary embed.
func (s *DiscordSink) Summary(stats Stats) {
	color := severityColors[SeverityGood]
	if stats.Errors > 0 {
		color = severityColors[SeverityWarn]
	}
	s.enqueue(&discordgo.MessageEmbed{
		Title:       "🎉 Campaign Completed",
		Description: fmt.Sprintf("Finished in %s", stats.Duration.Round(time.Second)),
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Total", Value: fmt.Sprint(stats.Total), Inline: true},
			{Name: "Processed", Value: fmt.Sprint(stats.Processed), Inline: true},
			{Name: "Approved & Sent", Value: fmt.Sprint(stats.Approved), Inline: true},
			{Name: "Rejected", Value: fmt.Sprint(stats.Rejected), Inline: true},
			{Name: "Errors", Value: fmt.Sprint(stats.Errors), Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: footerText},
	})
}

// Close stops the dispatch loop after the buffered updates drain or the
// context expires, whichever comes first.
func (s *DiscordSink) Close(ctx context.Context) {
	s.closeOnce.Do(func() { close(s.queue) })
	select {
	case <-s.done:
	case <-ctx.Done():
	}
}

func (s *DiscordSink) enqueue(embed *discordgo.MessageEmbed) {
	defer func() {
		// A send on the closed queue means an update raced Close; drop it.
		if recover() != nil {
			s.logger.Debug("dropping update submitted after close")
		}
	}()

	select {
	case s.queue <- embed:
	default:
		s.logger.Warn("monitor queue full, dropping update")
	}
}

func (s *DiscordSink) dispatch() {
	defer close(s.done)

	<-s.ready

	for embed := range s.queue {
		if _, err := s.session.ChannelMessageSendEmbed(s.channelID, embed); err != nil {
			s.logger.Warn("failed to deliver monitor update", "error", err)
		}
	}
}
