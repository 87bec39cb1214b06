package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"offScreenAPI/internal/evidence"
	"offScreenAPI/internal/generation"
	"offScreenAPI/internal/logger"
	"offScreenAPI/internal/notification"
	"offScreenAPI/internal/oracle"
	"offScreenAPI/internal/store"
	"offScreenAPI/internal/types/challenge"
	"offScreenAPI/internal/types/ledger"
	"offScreenAPI/internal/types/participant"
)

var pngEvidence = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type stubOracle struct {
	mu       sync.Mutex
	verdict  challenge.Verdict
	err      error
	requests []oracle.Request
}

func (o *stubOracle) Validate(ctx context.Context, req oracle.Request) (challenge.Verdict, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests = append(o.requests, req)
	return o.verdict, o.err
}

func (o *stubOracle) answer(v challenge.Verdict, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.verdict, o.err = v, err
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notification.Message
}

func (n *recordingNotifier) Notify(ctx context.Context, msg notification.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

func (n *recordingNotifier) kinds() []notification.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notification.Kind, 0, len(n.messages))
	for _, m := range n.messages {
		out = append(out, m.Kind)
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []ledger.Event
}

func (p *recordingPublisher) PublishLedger(ctx context.Context, ev ledger.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type stubGenerator struct {
	templates []challenge.Template
	err       error
	avoid     []string
}

func (g *stubGenerator) Generate(ctx context.Context, t challenge.Type, avoid []string) ([]challenge.Template, error) {
	g.avoid = avoid
	return g.templates, g.err
}

// harness wires every service against the in-memory store with one team of
// two members in Europe/Sofia. The clock starts on Wednesday 2024-01-03 at
// 10:00 local time.
type harness struct {
	st        *store.MemoryStore
	sofia     *time.Location
	clock     *fakeClock
	oracle    *stubOracle
	notifier  *recordingNotifier
	publisher *recordingPublisher

	team  participant.Team
	alice participant.Participant
	bob   participant.Participant

	assign  *AssignmentService
	scoring *ScoringService
	submit  *SubmissionService
	sweeper *ExpirationSweeper
	ledger  *LedgerService
	attempt *AttemptService
}

func newHarness(t *testing.T, gen generation.Generator) *harness {
	t.Helper()
	sofia, err := time.LoadLocation("Europe/Sofia")
	require.NoError(t, err)

	h := &harness{
		st:        store.NewMemoryStore(),
		sofia:     sofia,
		clock:     &fakeClock{t: time.Date(2024, 1, 3, 10, 0, 0, 0, sofia)},
		oracle:    &stubOracle{verdict: challenge.ValidVerdict()},
		notifier:  &recordingNotifier{},
		publisher: &recordingPublisher{},
	}
	h.team = h.st.AddTeam(participant.Team{Name: "night owls", Timezone: "Europe/Sofia"})
	h.alice = h.st.AddParticipant(participant.Participant{Username: "alice", TeamID: &h.team.ID, Timezone: "Europe/Sofia"})
	h.bob = h.st.AddParticipant(participant.Participant{Username: "bob", TeamID: &h.team.ID, Timezone: "Europe/Sofia"})

	ev, err := evidence.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	log := logger.Nop()
	h.assign = NewAssignmentService(h.st, gen, h.notifier, log)
	h.assign.now = h.clock.Now
	h.scoring = NewScoringService(h.st, h.publisher, h.notifier, log)
	h.scoring.now = h.clock.Now
	h.submit = NewSubmissionService(h.st, ev, h.oracle, h.scoring, log)
	h.submit.now = h.clock.Now
	h.sweeper = NewExpirationSweeper(h.st, h.notifier, time.Minute, 2, log)
	h.sweeper.now = h.clock.Now
	h.ledger = NewLedgerService(h.st)
	h.ledger.now = h.clock.Now
	h.attempt = NewAttemptService(h.st)
	return h
}

func (h *harness) seed(t *testing.T, templates ...challenge.Template) []challenge.Template {
	t.Helper()
	inserted, err := h.st.InsertTemplates(context.Background(), templates)
	require.NoError(t, err)
	require.Len(t, inserted, len(templates))
	return inserted
}

func (h *harness) submitAs(p participant.Participant, a *challenge.AttemptView) (*challenge.SubmissionResult, error) {
	return h.submit.SubmitEvidence(context.Background(), Submission{
		AttemptID:     a.ID,
		ParticipantID: p.ID,
		Evidence:      pngEvidence,
		ContentType:   "image/png",
	})
}
