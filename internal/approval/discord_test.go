package approval

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

func TestParseCustomID(t *testing.T) {
	tests := []struct {
		in        string
		action    string
		requestID string
		ok        bool
	}{
		{"approve:abc-123", "approve", "abc-123", true},
		{"reject:abc-123", "reject", "abc-123", true},
		{"approve:", "", "", false},
		{"approve", "", "", false},
		{"snooze:abc-123", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		action, requestID, ok := parseCustomID(tt.in)
		if action != tt.action || requestID != tt.requestID || ok != tt.ok {
			t.Errorf("parseCustomID(%q) = %q, %q, %v; want %q, %q, %v",
				tt.in, action, requestID, ok, tt.action, tt.requestID, tt.ok)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected unchanged string, got %q", got)
	}
	long := strings.Repeat("a", 20)
	got := truncate(long, 10)
	if !strings.HasPrefix(got, strings.Repeat("a", 10)) || !strings.HasSuffix(got, "…") {
		t.Errorf("expected truncated string with ellipsis, got %q", got)
	}
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	// "é" is two bytes; limits falling inside a rune must back off to the
	// preceding boundary instead of emitting a broken sequence.
	long := strings.Repeat("é", 10)
	for limit := 1; limit < len(long); limit++ {
		got := truncate(long, limit)
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%d) produced invalid UTF-8: %q", limit, got)
		}
		if len(got) > limit+len("…") {
			t.Errorf("truncate(%d) kept %d bytes before the ellipsis", limit, len(got)-len("…"))
		}
	}
}

func TestDecisionOutcome(t *testing.T) {
	requestedAt := time.Now().Add(-time.Minute)

	approved := decisionOutcome(decision{approved: true, actorID: "1", actorName: "alice"}, requestedAt)
	if approved.Kind != Approved || approved.ActorName != "alice" {
		t.Errorf("unexpected outcome: %+v", approved)
	}
	if !approved.RequestedAt.Equal(requestedAt) {
		t.Errorf("requested-at must be preserved, got %v", approved.RequestedAt)
	}

	rejected := decisionOutcome(decision{approved: false, actorName: "bob"}, requestedAt)
	if rejected.Kind != Rejected {
		t.Errorf("unexpected outcome: %+v", rejected)
	}
}

func TestTakeDecision(t *testing.T) {
	reg := newPendingRegistry()
	waitCh := reg.Register("req-1")

	if _, ok := takeDecision(waitCh); ok {
		t.Error("empty buffer must report no decision")
	}

	// A decision delivered just before the timeout fires sits in the
	// buffered slot and must win over the timeout.
	reg.Resolve("req-1", decision{approved: true, actorName: "alice"})
	d, ok := takeDecision(waitCh)
	if !ok {
		t.Fatal("buffered decision must be taken")
	}
	if !d.approved || d.actorName != "alice" {
		t.Errorf("unexpected decision: %+v", d)
	}
}

func TestInteractionUser(t *testing.T) {
	member := &discordgo.User{ID: "m1", Username: "member"}
	direct := &discordgo.User{ID: "u1", Username: "direct"}

	fromGuild := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Member: &discordgo.Member{User: member},
	}}
	if got := interactionUser(fromGuild); got != member {
		t.Errorf("guild interaction must resolve to the member user, got %+v", got)
	}

	fromDM := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		User: direct,
	}}
	if got := interactionUser(fromDM); got != direct {
		t.Errorf("DM interaction must resolve to the direct user, got %+v", got)
	}
}

func TestDecisionButtons(t *testing.T) {
	components := decisionButtons("req-42")
	if len(components) != 1 {
		t.Fatalf("expected one action row, got %d", len(components))
	}
	row, ok := components[0].(discordgo.ActionsRow)
	if !ok {
		t.Fatalf("expected an ActionsRow, got %T", components[0])
	}
	if len(row.Components) != 2 {
		t.Fatalf("expected two buttons, got %d", len(row.Components))
	}

	ids := make(map[string]bool)
	for _, c := range row.Components {
		b, ok := c.(discordgo.Button)
		if !ok {
			t.Fatalf("expected a Button, got %T", c)
		}
		ids[b.CustomID] = true
	}
	if !ids["approve:req-42"] || !ids["reject:req-42"] {
		t.Errorf("buttons must carry the request ID, got %v", ids)
	}
}
