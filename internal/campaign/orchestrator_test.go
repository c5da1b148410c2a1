package campaign

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prestige-production/outreach/internal/approval"
	"github.com/prestige-production/outreach/internal/client"
	"github.com/prestige-production/outreach/internal/mailer"
	"github.com/prestige-production/outreach/internal/notify"
	"github.com/prestige-production/outreach/internal/source"
	"github.com/prestige-production/outreach/internal/template"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockSource returns a fixed client list
type mockSource struct {
	clients  []client.Client
	fetchErr error

	mu        sync.Mutex
	contacted []string
}

func (m *mockSource) Fetch(ctx context.Context) (*source.List, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return &source.List{
		Clients: m.clients,
		Metadata: source.Metadata{
			TotalRows:   len(m.clients),
			Contactable: len(m.clients),
		},
	}, nil
}

func (m *mockSource) MarkContacted(ctx context.Context, email string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacted = append(m.contacted, email)
	return nil
}

// mockChannel resolves each client to a scripted outcome
type mockChannel struct {
	outcomes map[string]approval.Outcome // by client email
	gate     chan struct{}               // optional: all requests block until closed

	mu       sync.Mutex
	requests []string
}

func (m *mockChannel) RequestDecision(ctx context.Context, c client.Client, preview *template.RenderResult) approval.Outcome {
	m.mu.Lock()
	m.requests = append(m.requests, c.Email)
	m.mu.Unlock()

	if m.gate != nil {
		<-m.gate
	}

	if o, ok := m.outcomes[c.Email]; ok {
		return o
	}
	return approval.Outcome{Kind: approval.Approved, ActorName: "tester", RequestedAt: time.Now(), ResolvedAt: time.Now()}
}

func (m *mockChannel) requestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// panicChannel simulates an unexpected worker fault
type panicChannel struct{}

func (panicChannel) RequestDecision(ctx context.Context, c client.Client, preview *template.RenderResult) approval.Outcome {
	panic("boom")
}

// mockSender records sends and can fail for selected clients
type mockSender struct {
	failFor map[string]bool

	mu   sync.Mutex
	sent []string
}

func (m *mockSender) Send(ctx context.Context, c client.Client) (*mailer.Receipt, error) {
	m.mu.Lock()
	m.sent = append(m.sent, c.Email)
	m.mu.Unlock()

	if m.failFor[c.Email] {
		return nil, &mailer.DeliveryError{Temporary: false, Message: "mailbox unavailable"}
	}
	return &mailer.Receipt{TrackingID: "track-" + c.Email, SentAt: time.Now()}, nil
}

func (m *mockSender) sentTo() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

func outcome(kind approval.Kind) approval.Outcome {
	return approval.Outcome{Kind: kind, ActorName: "tester", RequestedAt: time.Now(), ResolvedAt: time.Now()}
}

func newTestOrchestrator(src source.Source, ch approval.Channel, snd mailer.Sender) *Orchestrator {
	return New(Options{
		Name:    "test-campaign",
		Source:  src,
		Channel: ch,
		Sender:  snd,
		Logger:  testLogger(),
	})
}

func TestRunApprovedAndRejected(t *testing.T) {
	src := &mockSource{clients: []client.Client{
		{Name: "A", Email: "a@x.com"},
		{Name: "B", Email: "b@x.com"},
	}}
	ch := &mockChannel{outcomes: map[string]approval.Outcome{
		"a@x.com": outcome(approval.Approved),
		"b@x.com": outcome(approval.Rejected),
	}}
	snd := &mockSender{}

	report, err := newTestOrchestrator(src, ch, snd).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.TotalClients != 2 || report.Processed != 2 {
		t.Errorf("expected total=2 processed=2, got total=%d processed=%d", report.TotalClients, report.Processed)
	}
	if report.Approved != 1 || report.Rejected != 1 || report.Errors != 0 {
		t.Errorf("expected approved=1 rejected=1 errors=0, got %d/%d/%d", report.Approved, report.Rejected, report.Errors)
	}
	if report.Failed() {
		t.Error("run with no errors must not be a failure")
	}
	if report.Outcome != OutcomeCompleted {
		t.Errorf("expected outcome %q, got %q", OutcomeCompleted, report.Outcome)
	}

	sent := snd.sentTo()
	if len(sent) != 1 || sent[0] != "a@x.com" {
		t.Errorf("expected exactly one send to a@x.com, got %v", sent)
	}
}

func TestRunEmptyClientList(t *testing.T) {
	src := &mockSource{}
	report, err := newTestOrchestrator(src, &mockChannel{}, &mockSender{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Processed != 0 || report.Errors != 0 {
		t.Errorf("expected zero work, got processed=%d errors=%d", report.Processed, report.Errors)
	}
	if report.Outcome != OutcomeNoClients {
		t.Errorf("expected outcome %q, got %q", OutcomeNoClients, report.Outcome)
	}
	if report.Failed() {
		t.Error("zero-work run must not be a failure")
	}
}

func TestRunFetchFailureIsFatal(t *testing.T) {
	src := &mockSource{fetchErr: errors.New("sheet unreachable")}
	report, err := newTestOrchestrator(src, &mockChannel{}, &mockSender{}).Run(context.Background())
	if err == nil {
		t.Fatal("expected fetch failure to abort the run")
	}
	if report != nil {
		t.Error("expected no report on fetch failure")
	}
}

func TestChannelErrorScopedToOneClient(t *testing.T) {
	src := &mockSource{clients: []client.Client{
		{Name: "A", Email: "a@x.com"},
		{Name: "B", Email: "b@x.com"},
		{Name: "C", Email: "c@x.com"},
	}}
	ch := &mockChannel{outcomes: map[string]approval.Outcome{
		"a@x.com": outcome(approval.Approved),
		"b@x.com": {Kind: approval.ChannelError, Message: "transport down", RequestedAt: time.Now(), ResolvedAt: time.Now()},
		"c@x.com": outcome(approval.Rejected),
	}}
	snd := &mockSender{}

	report, err := newTestOrchestrator(src, ch, snd).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Processed != 3 {
		t.Errorf("expected processed=3, got %d", report.Processed)
	}
	if report.Approved != 1 || report.Rejected != 1 || report.Errors != 1 {
		t.Errorf("expected 1/1/1, got %d/%d/%d", report.Approved, report.Rejected, report.Errors)
	}
	if !report.Failed() {
		t.Error("run with a channel error must be a failure")
	}

	byEmail := resultsByEmail(report)
	if byEmail["b@x.com"].Status != StatusError {
		t.Errorf("expected b@x.com status error, got %s", byEmail["b@x.com"].Status)
	}
	if byEmail["a@x.com"].Status != StatusApprovedAndSent {
		t.Errorf("sibling must still reach its own terminal state, got %s", byEmail["a@x.com"].Status)
	}
}

func TestSendFailureCountsAsError(t *testing.T) {
	src := &mockSource{clients: []client.Client{{Name: "A", Email: "a@x.com"}}}
	ch := &mockChannel{outcomes: map[string]approval.Outcome{"a@x.com": outcome(approval.Approved)}}
	snd := &mockSender{failFor: map[string]bool{"a@x.com": true}}

	report, err := newTestOrchestrator(src, ch, snd).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Approved != 0 || report.Errors != 1 {
		t.Errorf("send failure must count as error, got approved=%d errors=%d", report.Approved, report.Errors)
	}

	r := report.ClientResults[0]
	if r.Status == StatusApprovedAndSent {
		t.Error("failed send must never yield approved_and_sent")
	}
	if r.Status != StatusError || r.Send != SendFailed {
		t.Errorf("expected status=error send=send_failed, got %s/%s", r.Status, r.Send)
	}
}

func TestRejectedAndTimedOutNeverSend(t *testing.T) {
	src := &mockSource{clients: []client.Client{
		{Name: "A", Email: "a@x.com"},
		{Name: "B", Email: "b@x.com"},
	}}
	ch := &mockChannel{outcomes: map[string]approval.Outcome{
		"a@x.com": outcome(approval.Rejected),
		"b@x.com": outcome(approval.TimedOut),
	}}
	snd := &mockSender{}

	report, err := newTestOrchestrator(src, ch, snd).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := snd.sentTo(); len(got) != 0 {
		t.Errorf("no email may be sent for rejected/timed-out clients, got %v", got)
	}
	if report.Rejected != 2 {
		t.Errorf("rejections and timeouts both count as rejected, got %d", report.Rejected)
	}

	byEmail := resultsByEmail(report)
	if byEmail["a@x.com"].Status != StatusRejected || byEmail["b@x.com"].Status != StatusTimeout {
		t.Errorf("status tags must stay distinct: %s / %s", byEmail["a@x.com"].Status, byEmail["b@x.com"].Status)
	}
}

func TestWorkerPanicDowngradedToError(t *testing.T) {
	src := &mockSource{clients: []client.Client{{Name: "A", Email: "a@x.com"}}}
	snd := &mockSender{}

	report, err := newTestOrchestrator(src, panicChannel{}, snd).Run(context.Background())
	if err != nil {
		t.Fatalf("a worker panic must not crash the run: %v", err)
	}

	if report.Processed != 1 || report.Errors != 1 {
		t.Errorf("expected panic recorded as error, got processed=%d errors=%d", report.Processed, report.Errors)
	}
	if report.ClientResults[0].Status != StatusScriptError {
		t.Errorf("expected script_error, got %s", report.ClientResults[0].Status)
	}
	if !report.Failed() {
		t.Error("run with a worker fault must be a failure")
	}
}

func TestFanOutIsConcurrent(t *testing.T) {
	const n = 16

	var clients []client.Client
	for i := 0; i < n; i++ {
		clients = append(clients, client.Client{
			Name:  fmt.Sprintf("C%d", i),
			Email: fmt.Sprintf("c%d@x.com", i),
		})
	}
	src := &mockSource{clients: clients}

	// All decisions block until every request has been issued. A serial
	// orchestrator would deadlock here.
	gate := make(chan struct{})
	ch := &mockChannel{gate: gate}

	go func() {
		deadline := time.After(5 * time.Second)
		for ch.requestCount() < n {
			select {
			case <-deadline:
				close(gate) // let the test fail on counts instead of hanging
				return
			case <-time.After(5 * time.Millisecond):
			}
		}
		close(gate)
	}()

	report, err := newTestOrchestrator(src, ch, &mockSender{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Processed != n {
		t.Errorf("expected processed=%d, got %d", n, report.Processed)
	}
	if report.Approved+report.Rejected+report.Errors != n {
		t.Errorf("counters must sum to total: %d+%d+%d != %d", report.Approved, report.Rejected, report.Errors, n)
	}
}

func TestOneResultPerClient(t *testing.T) {
	const n = 10

	var clients []client.Client
	for i := 0; i < n; i++ {
		clients = append(clients, client.Client{Email: fmt.Sprintf("c%d@x.com", i)})
	}
	src := &mockSource{clients: clients}

	report, err := newTestOrchestrator(src, &mockChannel{}, &mockSender{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(report.ClientResults) != n {
		t.Fatalf("expected %d results, got %d", n, len(report.ClientResults))
	}
	seen := make(map[string]bool)
	for _, r := range report.ClientResults {
		if seen[r.Client.Email] {
			t.Errorf("duplicate result for %s", r.Client.Email)
		}
		seen[r.Client.Email] = true
	}
}

func TestSuccessfulSendMarksContacted(t *testing.T) {
	src := &mockSource{clients: []client.Client{
		{Name: "A", Email: "a@x.com"},
		{Name: "B", Email: "b@x.com"},
	}}
	ch := &mockChannel{outcomes: map[string]approval.Outcome{
		"a@x.com": outcome(approval.Approved),
		"b@x.com": outcome(approval.Rejected),
	}}

	_, err := newTestOrchestrator(src, ch, &mockSender{}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(src.contacted) != 1 || src.contacted[0] != "a@x.com" {
		t.Errorf("only the sent client may be marked contacted, got %v", src.contacted)
	}
}

func TestSinkReceivesUpdatesAndSummary(t *testing.T) {
	src := &mockSource{clients: []client.Client{{Name: "A", Email: "a@x.com"}}}
	ch := &mockChannel{outcomes: map[string]approval.Outcome{"a@x.com": outcome(approval.Approved)}}
	sink := &recordingSink{}

	o := New(Options{
		Name:    "test-campaign",
		Source:  src,
		Channel: ch,
		Sender:  &mockSender{},
		Sink:    sink,
		Logger:  testLogger(),
	})
	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if sink.summaries() != 1 {
		t.Errorf("expected exactly one summary, got %d", sink.summaries())
	}
	phases := sink.phasesFor("a@x.com")
	if len(phases) < 2 || phases[0] != notify.PhaseProcessing || phases[len(phases)-1] != notify.PhaseApproved {
		t.Errorf("expected processing then approved, got %v", phases)
	}
}

// recordingSink captures notifications for assertions
type recordingSink struct {
	mu      sync.Mutex
	status  []string
	phases  map[string][]notify.Phase
	summary []notify.Stats
}

func (s *recordingSink) Status(title, detail string, severity notify.Severity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = append(s.status, title)
}

func (s *recordingSink) ClientStatus(c client.Client, phase notify.Phase, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phases == nil {
		s.phases = make(map[string][]notify.Phase)
	}
	s.phases[c.Email] = append(s.phases[c.Email], phase)
}

func (s *recordingSink) Summary(stats notify.Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = append(s.summary, stats)
}

func (s *recordingSink) summaries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.summary)
}

func (s *recordingSink) phasesFor(email string) []notify.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Phase(nil), s.phases[email]...)
}

func resultsByEmail(report *Report) map[string]*Result {
	m := make(map[string]*Result)
	for _, r := range report.ClientResults {
		m[r.Client.Email] = r
	}
	return m
}
