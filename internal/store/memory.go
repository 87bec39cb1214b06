package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"offScreenAPI/internal/apperr"
	"offScreenAPI/internal/types/challenge"
	"offScreenAPI/internal/types/ledger"
	"offScreenAPI/internal/types/participant"
	"offScreenAPI/internal/types/streak"
)

type streakKey struct {
	participantID   uuid.UUID
	weeklyAttemptID uuid.UUID
}

// MemoryStore keeps everything in process behind one mutex. It applies the
// same compare-and-swap rules as PostgresStore and backs the service tests
// and local runs without a database.
type MemoryStore struct {
	mu           sync.Mutex
	teams        map[uuid.UUID]participant.Team
	participants map[uuid.UUID]participant.Participant
	templates    map[uuid.UUID]challenge.Template
	attempts     map[uuid.UUID]challenge.Attempt
	ledgers      map[uuid.UUID]ledger.TeamLedger
	streaks      map[streakKey]streak.Record
	devices      map[string]participant.DeviceToken
	// opened records insertion order of attempts, the tie-break when two
	// weekly attempts share a start.
	opened map[uuid.UUID]uint64
	seq    uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		teams:        make(map[uuid.UUID]participant.Team),
		participants: make(map[uuid.UUID]participant.Participant),
		templates:    make(map[uuid.UUID]challenge.Template),
		attempts:     make(map[uuid.UUID]challenge.Attempt),
		ledgers:      make(map[uuid.UUID]ledger.TeamLedger),
		streaks:      make(map[streakKey]streak.Record),
		devices:      make(map[string]participant.DeviceToken),
		opened:       make(map[uuid.UUID]uint64),
	}
}

func (m *MemoryStore) AddTeam(t participant.Team) participant.Team {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	m.teams[t.ID] = t
	return t
}

func (m *MemoryStore) AddParticipant(p participant.Participant) participant.Participant {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.ClerkID == "" {
		p.ClerkID = "user_" + p.ID.String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	m.participants[p.ID] = p
	return p
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) Participant(ctx context.Context, id uuid.UUID) (*participant.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.participants[id]
	if !ok {
		return nil, apperr.NotFound("participant")
	}
	return &p, nil
}

func (m *MemoryStore) ParticipantByClerkID(ctx context.Context, clerkID string) (*participant.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.participants {
		if p.ClerkID == clerkID {
			return &p, nil
		}
	}
	return nil, apperr.NotFound("participant")
}

func (m *MemoryStore) Team(ctx context.Context, id uuid.UUID) (*participant.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[id]
	if !ok {
		return nil, apperr.NotFound("team")
	}
	return &t, nil
}

func (m *MemoryStore) TeamMembers(ctx context.Context, teamID uuid.UUID) ([]participant.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []participant.Participant
	for _, p := range m.participants {
		if p.TeamID != nil && *p.TeamID == teamID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *MemoryStore) ListTemplates(ctx context.Context, t challenge.Type) ([]challenge.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []challenge.Template
	for _, tpl := range m.templates {
		if tpl.Type == t {
			out = append(out, tpl)
		}
	}
	sortTemplates(out)
	return out, nil
}

func sortTemplates(ts []challenge.Template) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].DifficultyLevel != ts[j].DifficultyLevel {
			return ts[i].DifficultyLevel < ts[j].DifficultyLevel
		}
		return ts[i].CreatedAt.Before(ts[j].CreatedAt)
	})
}

func (m *MemoryStore) EligibleTemplates(ctx context.Context, t challenge.Type, actorID uuid.UUID) ([]challenge.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	done := make(map[uuid.UUID]bool)
	for _, a := range m.attempts {
		if a.ActorID == actorID && a.Status == challenge.StatusValid {
			done[a.ChallengeID] = true
		}
	}
	var out []challenge.Template
	for _, tpl := range m.templates {
		if tpl.Type == t && !done[tpl.ID] {
			out = append(out, tpl)
		}
	}
	sortTemplates(out)
	return out, nil
}

func (m *MemoryStore) InsertTemplates(ctx context.Context, templates []challenge.Template) ([]challenge.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var inserted []challenge.Template
	for _, tpl := range templates {
		if m.hasDescription(tpl.Type, tpl.Description) {
			continue
		}
		if tpl.ID == uuid.Nil {
			tpl.ID = uuid.New()
		}
		if tpl.Source == "" {
			tpl.Source = challenge.SourceCatalog
		}
		if tpl.CreatedAt.IsZero() {
			tpl.CreatedAt = time.Now().UTC()
		}
		m.templates[tpl.ID] = tpl
		inserted = append(inserted, tpl)
	}
	return inserted, nil
}

func (m *MemoryStore) hasDescription(t challenge.Type, desc string) bool {
	for _, tpl := range m.templates {
		if tpl.Type == t && strings.EqualFold(tpl.Description, desc) {
			return true
		}
	}
	return false
}

func (m *MemoryStore) ValidDescriptions(ctx context.Context, actorID uuid.UUID, t challenge.Type) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, a := range m.attempts {
		if a.ActorID != actorID || a.Type != t || a.Status != challenge.StatusValid {
			continue
		}
		d := m.templates[a.ChallengeID].Description
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *MemoryStore) OpenAttempt(ctx context.Context, a *challenge.Attempt) (*challenge.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.attempts {
		if existing.ActorID == a.ActorID && existing.Type == a.Type && existing.Status.IsOpen() {
			return nil, apperr.ErrConflict
		}
	}
	created := *a
	if created.ID == uuid.Nil {
		created.ID = uuid.New()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	created.Status = challenge.StatusOpen
	m.seq++
	m.opened[created.ID] = m.seq
	m.attempts[created.ID] = created
	return &created, nil
}

func (m *MemoryStore) view(a challenge.Attempt) challenge.AttemptView {
	tpl := m.templates[a.ChallengeID]
	return challenge.AttemptView{Attempt: a, Description: tpl.Description, DifficultyLevel: tpl.DifficultyLevel}
}

func (m *MemoryStore) Attempt(ctx context.Context, id uuid.UUID) (*challenge.AttemptView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return nil, apperr.NotFound("attempt")
	}
	v := m.view(a)
	return &v, nil
}

func (m *MemoryStore) filterViews(actorIDs []uuid.UUID, keep func(challenge.Status) bool) []challenge.AttemptView {
	actors := make(map[uuid.UUID]bool, len(actorIDs))
	for _, id := range actorIDs {
		actors[id] = true
	}
	var out []challenge.AttemptView
	for _, a := range m.attempts {
		if actors[a.ActorID] && keep(a.Status) {
			out = append(out, m.view(a))
		}
	}
	return out
}

func (m *MemoryStore) ActiveAttempts(ctx context.Context, actorIDs []uuid.UUID) ([]challenge.AttemptView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.filterViews(actorIDs, challenge.Status.IsOpen)
	sort.Slice(out, func(i, j int) bool { return out[i].EndAt.Before(out[j].EndAt) })
	return out, nil
}

func (m *MemoryStore) AttemptHistory(ctx context.Context, actorIDs []uuid.UUID, limit int) ([]challenge.AttemptView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	out := m.filterViews(actorIDs, challenge.Status.Terminal)
	sort.Slice(out, func(i, j int) bool { return out[i].EndAt.After(out[j].EndAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) RecordEvidence(ctx context.Context, id uuid.UUID, ref string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok || !a.Status.IsOpen() {
		return false, nil
	}
	a.EvidenceRef = &ref
	m.attempts[id] = a
	return true, nil
}

func (m *MemoryStore) MarkInvalid(ctx context.Context, id uuid.UUID, reason string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok || !a.Status.IsOpen() || !now.Before(a.EndAt) {
		return false, nil
	}
	a.Status = challenge.StatusInvalidPending
	a.VerdictReason = &reason
	m.attempts[id] = a
	return true, nil
}

func (m *MemoryStore) CloseValid(ctx context.Context, req CloseRequest) (*CloseResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[req.AttemptID]
	if !ok {
		return nil, apperr.NotFound("attempt")
	}
	if !a.Status.IsOpen() || !a.InWindow(req.Now) {
		return &CloseResult{Attempt: a}, nil
	}

	now := req.Now
	a.Status = challenge.StatusValid
	a.CompletedAt = &now
	a.PointsAwarded = req.Delta
	a.VerdictReason = nil
	result := &CloseResult{Closed: true}

	if a.TeamID != nil {
		l := m.ledgers[*a.TeamID]
		l.TeamID = *a.TeamID
		l.Points += req.Delta
		l.LastVariation = req.Delta
		l.UpdatedAt = now
		m.ledgers[*a.TeamID] = l
		total := l.Points
		result.LedgerTotal = &total
	}

	if a.Type == challenge.TypeDaily && a.TeamID != nil && req.StreakDay >= 0 && req.StreakDay < streak.Days {
		if weekly, ok := m.currentWeekly(*a.TeamID, now); ok {
			key := streakKey{participantID: a.ActorID, weeklyAttemptID: weekly.ID}
			rec := m.streaks[key]
			rec.ParticipantID = a.ActorID
			rec.WeeklyAttemptID = weekly.ID
			rec.Slots = rec.Slots.Normalize(req.StreakDay).Mark(req.StreakDay)
			rec.UpdatedAt = now
			m.streaks[key] = rec
			day := req.StreakDay
			a.StreakIndex = &day
			result.Streak = &rec
		}
	}

	m.attempts[a.ID] = a
	result.Attempt = a
	return result, nil
}

// currentWeekly picks the team's weekly attempt covering now. An open
// attempt wins over a validated one, then the later start, then the most
// recently opened.
func (m *MemoryStore) currentWeekly(teamID uuid.UUID, now time.Time) (challenge.Attempt, bool) {
	var best challenge.Attempt
	found := false
	for _, a := range m.attempts {
		if a.ActorID != teamID || a.Type != challenge.TypeWeekly || a.Status == challenge.StatusExpired || !a.InWindow(now) {
			continue
		}
		if !found || m.newerWeekly(a, best) {
			best, found = a, true
		}
	}
	return best, found
}

func (m *MemoryStore) newerWeekly(a, b challenge.Attempt) bool {
	if a.Status.IsOpen() != b.Status.IsOpen() {
		return a.Status.IsOpen()
	}
	if !a.StartAt.Equal(b.StartAt) {
		return a.StartAt.After(b.StartAt)
	}
	return m.opened[a.ID] > m.opened[b.ID]
}

func (m *MemoryStore) ExpireDue(ctx context.Context, now time.Time, limit int) ([]challenge.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = DefaultSweepBatch
	}
	var due []challenge.Attempt
	for _, a := range m.attempts {
		if a.Status.IsOpen() && !a.EndAt.After(now) {
			due = append(due, a)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].EndAt.Before(due[j].EndAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	for i := range due {
		due[i].Status = challenge.StatusExpired
		m.attempts[due[i].ID] = due[i]
	}
	return due, nil
}

func (m *MemoryStore) Ledger(ctx context.Context, teamID uuid.UUID) (*ledger.TeamLedger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[teamID]
	if !ok {
		return nil, apperr.NotFound("team")
	}
	l, ok := m.ledgers[teamID]
	if !ok {
		l = ledger.TeamLedger{TeamID: teamID, UpdatedAt: t.CreatedAt}
	}
	return &l, nil
}

func (m *MemoryStore) Standings(ctx context.Context, limit int) ([]ledger.Standing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = DefaultStandingsLimit
	}
	out := make([]ledger.Standing, 0, len(m.teams))
	for id, t := range m.teams {
		l := m.ledgers[id]
		out = append(out, ledger.Standing{TeamID: id, TeamName: t.Name, Points: l.Points, LastVariation: l.LastVariation})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].TeamName < out[j].TeamName
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return ledger.Rank(out), nil
}

func (m *MemoryStore) CurrentWeeklyAttempt(ctx context.Context, teamID uuid.UUID, now time.Time) (*challenge.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.currentWeekly(teamID, now)
	if !ok {
		return nil, apperr.NotFound("weekly attempt")
	}
	return &a, nil
}

func (m *MemoryStore) Streaks(ctx context.Context, weeklyAttemptID uuid.UUID) ([]streak.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []streak.Record
	for key, rec := range m.streaks {
		if key.weeklyAttemptID == weeklyAttemptID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *MemoryStore) RegisterDevice(ctx context.Context, token participant.DeviceToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices[token.ParticipantID.String()+"/"+token.Token] = token
	return nil
}

func (m *MemoryStore) DeviceTokens(ctx context.Context, participantIDs []uuid.UUID) ([]participant.DeviceToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(participantIDs))
	for _, id := range participantIDs {
		wanted[id] = true
	}
	var out []participant.DeviceToken
	for _, dt := range m.devices {
		if wanted[dt.ParticipantID] {
			out = append(out, dt)
		}
	}
	return out, nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
