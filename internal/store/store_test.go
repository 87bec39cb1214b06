package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offScreenAPI/internal/apperr"
	"offScreenAPI/internal/types/challenge"
	"offScreenAPI/internal/types/participant"
	"offScreenAPI/internal/types/streak"
)

// fixture is one team with two members and a small catalog.
type fixture struct {
	store  Store
	team   participant.Team
	alice  participant.Participant
	bob    participant.Participant
	daily  []challenge.Template
	weekly []challenge.Template
}

type seeder interface {
	Store
	seedTeam(t *testing.T, team participant.Team) participant.Team
	seedParticipant(t *testing.T, p participant.Participant) participant.Participant
}

func newFixture(t *testing.T, s seeder) *fixture {
	t.Helper()
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	f := &fixture{store: s}
	f.team = s.seedTeam(t, participant.Team{Name: "team-" + suffix, Timezone: "Europe/Sofia"})
	f.alice = s.seedParticipant(t, participant.Participant{Username: "alice-" + suffix, TeamID: &f.team.ID, Timezone: "Europe/Sofia"})
	f.bob = s.seedParticipant(t, participant.Participant{Username: "bob-" + suffix, TeamID: &f.team.ID, Timezone: "Europe/Sofia"})

	var err error
	f.daily, err = s.InsertTemplates(ctx, []challenge.Template{
		{Type: challenge.TypeDaily, DifficultyLevel: 1, Description: "Leave your phone in another room for an hour " + suffix},
		{Type: challenge.TypeDaily, DifficultyLevel: 2, Description: "Read twenty pages of a paper book " + suffix},
	})
	require.NoError(t, err)
	f.weekly, err = s.InsertTemplates(ctx, []challenge.Template{
		{Type: challenge.TypeWeekly, DifficultyLevel: 3, Description: "Host a screen-free dinner " + suffix},
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) dailyAttempt(start time.Time) *challenge.Attempt {
	return &challenge.Attempt{
		ActorID:     f.alice.ID,
		ActorKind:   challenge.ActorParticipant,
		TeamID:      &f.team.ID,
		ChallengeID: f.daily[1].ID,
		Type:        challenge.TypeDaily,
		StartAt:     start,
		EndAt:       start.Add(24 * time.Hour),
	}
}

func (f *fixture) weeklyAttempt(start time.Time) *challenge.Attempt {
	return &challenge.Attempt{
		ActorID:     f.team.ID,
		ActorKind:   challenge.ActorTeam,
		TeamID:      &f.team.ID,
		ChallengeID: f.weekly[0].ID,
		Type:        challenge.TypeWeekly,
		StartAt:     start,
		EndAt:       start.Add(7 * 24 * time.Hour),
	}
}

// monday is a fixed Monday 00:00 UTC used as window start.
var monday = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func runStoreContract(t *testing.T, newSeeder func(t *testing.T) seeder) {
	ctx := context.Background()

	t.Run("insert templates skips duplicate descriptions", func(t *testing.T) {
		f := newFixture(t, newSeeder(t))
		again, err := f.store.InsertTemplates(ctx, []challenge.Template{
			{Type: challenge.TypeDaily, DifficultyLevel: 1, Description: f.daily[0].Description},
		})
		require.NoError(t, err)
		assert.Empty(t, again)

		list, err := f.store.ListTemplates(ctx, challenge.TypeDaily)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(list), 2)
	})

	t.Run("second open attempt of same type conflicts", func(t *testing.T) {
		f := newFixture(t, newSeeder(t))
		_, err := f.store.OpenAttempt(ctx, f.weeklyAttempt(monday))
		require.NoError(t, err)

		_, err = f.store.OpenAttempt(ctx, f.weeklyAttempt(monday))
		assert.ErrorIs(t, err, apperr.ErrConflict)

		// A different type for a different actor is unaffected.
		_, err = f.store.OpenAttempt(ctx, f.dailyAttempt(monday))
		assert.NoError(t, err)
	})

	t.Run("concurrent opens leave exactly one open attempt", func(t *testing.T) {
		f := newFixture(t, newSeeder(t))
		const n = 16
		var wg sync.WaitGroup
		var mu sync.Mutex
		opened, conflicts := 0, 0
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.store.OpenAttempt(ctx, f.dailyAttempt(monday))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					opened++
				case errors.Is(err, apperr.ErrConflict):
					conflicts++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, opened)
		assert.Equal(t, n-1, conflicts)

		active, err := f.store.ActiveAttempts(ctx, []uuid.UUID{f.alice.ID})
		require.NoError(t, err)
		assert.Len(t, active, 1)
	})

	t.Run("concurrent closes apply points once", func(t *testing.T) {
		f := newFixture(t, newSeeder(t))
		a, err := f.store.OpenAttempt(ctx, f.dailyAttempt(monday))
		require.NoError(t, err)

		now := monday.Add(3 * time.Hour)
		const n = 12
		var wg sync.WaitGroup
		var mu sync.Mutex
		closedBy := 0
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := f.store.CloseValid(ctx, CloseRequest{AttemptID: a.ID, Delta: 70, Now: now, StreakDay: -1})
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, challenge.StatusValid, res.Attempt.Status)
				if res.Closed {
					mu.Lock()
					closedBy++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, closedBy)

		l, err := f.store.Ledger(ctx, f.team.ID)
		require.NoError(t, err)
		assert.Equal(t, 70, l.Points)
		assert.Equal(t, 70, l.LastVariation)
	})

	t.Run("close after window end does nothing", func(t *testing.T) {
		f := newFixture(t, newSeeder(t))
		a, err := f.store.OpenAttempt(ctx, f.dailyAttempt(monday))
		require.NoError(t, err)

		res, err := f.store.CloseValid(ctx, CloseRequest{AttemptID: a.ID, Delta: 70, Now: a.EndAt, StreakDay: -1})
		require.NoError(t, err)
		assert.False(t, res.Closed)
		assert.Equal(t, challenge.StatusOpen, res.Attempt.Status)

		l, err := f.store.Ledger(ctx, f.team.ID)
		require.NoError(t, err)
		assert.Zero(t, l.Points)
	})

	t.Run("mark invalid keeps attempt open class", func(t *testing.T) {
		f := newFixture(t, newSeeder(t))
		a, err := f.store.OpenAttempt(ctx, f.dailyAttempt(monday))
		require.NoError(t, err)

		ok, err := f.store.RecordEvidence(ctx, a.ID, "evidence/a.jpg")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = f.store.MarkInvalid(ctx, a.ID, "blurry photo", monday.Add(time.Hour))
		require.NoError(t, err)
		assert.True(t, ok)

		v, err := f.store.Attempt(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, challenge.StatusInvalidPending, v.Status)
		require.NotNil(t, v.VerdictReason)
		assert.Equal(t, "blurry photo", *v.VerdictReason)
		assert.Equal(t, f.daily[1].Description, v.Description)

		_, err = f.store.OpenAttempt(ctx, f.dailyAttempt(monday))
		assert.ErrorIs(t, err, apperr.ErrConflict, "invalid_pending still blocks a new attempt")

		res, err := f.store.CloseValid(ctx, CloseRequest{AttemptID: a.ID, Delta: 70, Now: monday.Add(2 * time.Hour), StreakDay: -1})
		require.NoError(t, err)
		assert.True(t, res.Closed)
		assert.Nil(t, res.Attempt.VerdictReason)
	})

	t.Run("expire due is idempotent and leaves ledger alone", func(t *testing.T) {
		f := newFixture(t, newSeeder(t))
		a, err := f.store.OpenAttempt(ctx, f.dailyAttempt(monday))
		require.NoError(t, err)

		expired, err := f.store.ExpireDue(ctx, a.EndAt.Add(-time.Second), 100)
		require.NoError(t, err)
		assert.Empty(t, filterActor(expired, f.alice.ID))

		expired, err = f.store.ExpireDue(ctx, a.EndAt.Add(time.Second), 100)
		require.NoError(t, err)
		require.Len(t, filterActor(expired, f.alice.ID), 1)

		expired, err = f.store.ExpireDue(ctx, a.EndAt.Add(time.Minute), 100)
		require.NoError(t, err)
		assert.Empty(t, filterActor(expired, f.alice.ID))

		v, err := f.store.Attempt(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, challenge.StatusExpired, v.Status)
		assert.Zero(t, v.PointsAwarded)

		res, err := f.store.CloseValid(ctx, CloseRequest{AttemptID: a.ID, Delta: 70, Now: monday.Add(time.Hour), StreakDay: -1})
		require.NoError(t, err)
		assert.False(t, res.Closed, "expired attempts cannot be validated")

		l, err := f.store.Ledger(ctx, f.team.ID)
		require.NoError(t, err)
		assert.Zero(t, l.Points)

		history, err := f.store.AttemptHistory(ctx, []uuid.UUID{f.alice.ID}, 10)
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})

	t.Run("daily close marks streak on current weekly", func(t *testing.T) {
		f := newFixture(t, newSeeder(t))
		weekly, err := f.store.OpenAttempt(ctx, f.weeklyAttempt(monday))
		require.NoError(t, err)

		wednesday := monday.Add(2 * 24 * time.Hour)
		daily, err := f.store.OpenAttempt(ctx, f.dailyAttempt(wednesday))
		require.NoError(t, err)

		res, err := f.store.CloseValid(ctx, CloseRequest{AttemptID: daily.ID, Delta: 70, Now: wednesday.Add(5 * time.Hour), StreakDay: 2})
		require.NoError(t, err)
		require.True(t, res.Closed)
		require.NotNil(t, res.Streak)
		require.NotNil(t, res.Attempt.StreakIndex)
		assert.Equal(t, 2, *res.Attempt.StreakIndex)

		want := streak.Vector{streak.Missed, streak.Missed, streak.Done}
		if diff := cmp.Diff(want, res.Streak.Slots); diff != "" {
			t.Errorf("streak mismatch (-want +got):\n%s", diff)
		}

		current, err := f.store.CurrentWeeklyAttempt(ctx, f.team.ID, wednesday)
		require.NoError(t, err)
		assert.Equal(t, weekly.ID, current.ID)

		records, err := f.store.Streaks(ctx, weekly.ID)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, f.alice.ID, records[0].ParticipantID)
		assert.Equal(t, "fftuuuu", records[0].Slots.String())
	})

	t.Run("second weekly in the same week starts a fresh streak", func(t *testing.T) {
		f := newFixture(t, newSeeder(t))
		first, err := f.store.OpenAttempt(ctx, f.weeklyAttempt(monday))
		require.NoError(t, err)
		res, err := f.store.CloseValid(ctx, CloseRequest{AttemptID: first.ID, Delta: 400, Now: monday.Add(time.Hour), StreakDay: -1})
		require.NoError(t, err)
		require.True(t, res.Closed)

		second, err := f.store.OpenAttempt(ctx, f.weeklyAttempt(monday))
		require.NoError(t, err)
		require.Equal(t, first.StartAt, second.StartAt)

		tuesday := monday.Add(24 * time.Hour)
		daily, err := f.store.OpenAttempt(ctx, f.dailyAttempt(tuesday))
		require.NoError(t, err)
		res, err = f.store.CloseValid(ctx, CloseRequest{AttemptID: daily.ID, Delta: 70, Now: tuesday.Add(time.Hour), StreakDay: 1})
		require.NoError(t, err)
		require.NotNil(t, res.Streak)
		assert.Equal(t, second.ID, res.Streak.WeeklyAttemptID)
		assert.Equal(t, "ftuuuuu", res.Streak.Slots.String())

		current, err := f.store.CurrentWeeklyAttempt(ctx, f.team.ID, tuesday)
		require.NoError(t, err)
		assert.Equal(t, second.ID, current.ID)

		old, err := f.store.Streaks(ctx, first.ID)
		require.NoError(t, err)
		assert.Empty(t, old)

		// Once both are validated the most recently opened one still wins.
		res, err = f.store.CloseValid(ctx, CloseRequest{AttemptID: second.ID, Delta: 400, Now: tuesday.Add(2 * time.Hour), StreakDay: -1})
		require.NoError(t, err)
		require.True(t, res.Closed)
		current, err = f.store.CurrentWeeklyAttempt(ctx, f.team.ID, tuesday.Add(3*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, second.ID, current.ID)
	})

	t.Run("ledger reads zero for teams without scores", func(t *testing.T) {
		f := newFixture(t, newSeeder(t))
		l, err := f.store.Ledger(ctx, f.team.ID)
		require.NoError(t, err)
		assert.Zero(t, l.Points)

		_, err = f.store.Ledger(ctx, uuid.New())
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("eligible templates exclude completed ones", func(t *testing.T) {
		f := newFixture(t, newSeeder(t))
		a, err := f.store.OpenAttempt(ctx, f.dailyAttempt(monday))
		require.NoError(t, err)
		_, err = f.store.CloseValid(ctx, CloseRequest{AttemptID: a.ID, Delta: 70, Now: monday.Add(time.Hour), StreakDay: -1})
		require.NoError(t, err)

		eligible, err := f.store.EligibleTemplates(ctx, challenge.TypeDaily, f.alice.ID)
		require.NoError(t, err)
		for _, tpl := range eligible {
			assert.NotEqual(t, f.daily[1].ID, tpl.ID)
		}

		done, err := f.store.ValidDescriptions(ctx, f.alice.ID, challenge.TypeDaily)
		require.NoError(t, err)
		assert.Equal(t, []string{f.daily[1].Description}, done)
	})

	t.Run("device tokens upsert", func(t *testing.T) {
		f := newFixture(t, newSeeder(t))
		require.NoError(t, f.store.RegisterDevice(ctx, participant.DeviceToken{ParticipantID: f.alice.ID, Token: "tok-1", Platform: "android"}))
		require.NoError(t, f.store.RegisterDevice(ctx, participant.DeviceToken{ParticipantID: f.alice.ID, Token: "tok-1", Platform: "android"}))

		tokens, err := f.store.DeviceTokens(ctx, []uuid.UUID{f.alice.ID, f.bob.ID})
		require.NoError(t, err)
		assert.Len(t, tokens, 1)
	})
}

func filterActor(attempts []challenge.Attempt, actorID uuid.UUID) []challenge.Attempt {
	var out []challenge.Attempt
	for _, a := range attempts {
		if a.ActorID == actorID {
			out = append(out, a)
		}
	}
	return out
}
