package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offScreenAPI/internal/apperr"
	"offScreenAPI/internal/notification"
	"offScreenAPI/internal/types/challenge"
)

func TestConcurrentClosesApplyPointsOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(t, challenge.Template{Type: challenge.TypeDaily, DifficultyLevel: 2, Description: "Read twenty pages of a paper book"})
	ctx := context.Background()

	view, err := h.assign.OpenDaily(ctx, h.alice.ID)
	require.NoError(t, err)

	const n = 20
	outcomes := make([]*CloseOutcome, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := h.scoring.Close(ctx, view.ID, challenge.ValidVerdict())
			if err != nil {
				t.Errorf("close %d: %v", i, err)
				return
			}
			outcomes[i] = out
		}(i)
	}
	wg.Wait()

	fresh := 0
	for _, out := range outcomes {
		require.NotNil(t, out)
		assert.Equal(t, 70, out.PointsAwarded)
		if !out.AlreadyClosed {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)

	l, err := h.ledger.Read(ctx, h.team.ID)
	require.NoError(t, err)
	assert.Equal(t, 70, l.Points)
	assert.Len(t, h.publisher.events, 1)
}

func TestCloseRejectsInvalidVerdict(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(t, challenge.Template{Type: challenge.TypeDaily, DifficultyLevel: 2, Description: "Read twenty pages of a paper book"})
	view, err := h.assign.OpenDaily(context.Background(), h.alice.ID)
	require.NoError(t, err)

	_, err = h.scoring.Close(context.Background(), view.ID, challenge.InvalidVerdict("blurry"))
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestCloseAfterExpiryIsWindowClosed(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(t, challenge.Template{Type: challenge.TypeDaily, DifficultyLevel: 2, Description: "Read twenty pages of a paper book"})
	ctx := context.Background()
	view, err := h.assign.OpenDaily(ctx, h.alice.ID)
	require.NoError(t, err)

	h.clock.Set(view.EndAt)
	_, err = h.scoring.Close(ctx, view.ID, challenge.ValidVerdict())
	assert.ErrorIs(t, err, apperr.ErrWindowClosed)

	l, err := h.ledger.Read(ctx, h.team.ID)
	require.NoError(t, err)
	assert.Zero(t, l.Points)
}

func TestDailyValidationMarksWeeklyStreak(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(t,
		challenge.Template{Type: challenge.TypeDaily, DifficultyLevel: 1, Description: "Leave your phone in another room"},
		challenge.Template{Type: challenge.TypeWeekly, DifficultyLevel: 1, Description: "Walk to work every day"},
	)
	ctx := context.Background()

	weekly, err := h.assign.OpenWeekly(ctx, h.team.ID)
	require.NoError(t, err)
	daily, err := h.assign.OpenDaily(ctx, h.alice.ID)
	require.NoError(t, err)

	out, err := h.scoring.Close(ctx, daily.ID, challenge.ValidVerdict())
	require.NoError(t, err)
	require.NotNil(t, out.Attempt.StreakIndex)
	assert.Equal(t, 2, *out.Attempt.StreakIndex)

	streaks, err := h.ledger.StreaksForWeekly(ctx, weekly.ID)
	require.NoError(t, err)
	got := map[string]string{}
	for _, m := range streaks.Members {
		got[m.Username] = m.Slots.String()
	}
	want := map[string]string{"alice": "fftuuuu", "bob": "ffuuuuu"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("streaks mismatch (-want +got):\n%s", diff)
	}

	mine, err := h.ledger.MyStreak(ctx, h.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, weekly.ID, mine.WeeklyAttemptID)
}

func TestSecondWeeklyInSameWeekOwnsNewStreaks(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		h := newHarness(t, nil)
		h.seed(t,
			challenge.Template{Type: challenge.TypeDaily, DifficultyLevel: 1, Description: "Leave your phone in another room"},
			challenge.Template{Type: challenge.TypeWeekly, DifficultyLevel: 1, Description: "Walk to work every day"},
			challenge.Template{Type: challenge.TypeWeekly, DifficultyLevel: 2, Description: "No social media until Sunday"},
		)

		first, err := h.assign.OpenWeekly(ctx, h.team.ID)
		require.NoError(t, err)
		_, err = h.scoring.Close(ctx, first.ID, challenge.ValidVerdict())
		require.NoError(t, err)

		second, err := h.assign.OpenWeekly(ctx, h.team.ID)
		require.NoError(t, err)
		require.Equal(t, first.StartAt, second.StartAt)

		daily, err := h.assign.OpenDaily(ctx, h.alice.ID)
		require.NoError(t, err)
		_, err = h.scoring.Close(ctx, daily.ID, challenge.ValidVerdict())
		require.NoError(t, err)

		mine, err := h.ledger.MyStreak(ctx, h.alice.ID)
		require.NoError(t, err)
		require.Equal(t, second.ID, mine.WeeklyAttemptID)

		old, err := h.ledger.StreaksForWeekly(ctx, first.ID)
		require.NoError(t, err)
		for _, m := range old.Members {
			assert.NotContains(t, m.Slots.String(), "t", m.Username)
		}
	}
}

func TestDailyValidationWithoutWeeklyHasNoStreak(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(t, challenge.Template{Type: challenge.TypeDaily, DifficultyLevel: 1, Description: "Leave your phone in another room"})
	ctx := context.Background()

	daily, err := h.assign.OpenDaily(ctx, h.alice.ID)
	require.NoError(t, err)
	out, err := h.scoring.Close(ctx, daily.ID, challenge.ValidVerdict())
	require.NoError(t, err)
	assert.Nil(t, out.Attempt.StreakIndex)

	_, err = h.ledger.MyStreak(ctx, h.alice.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCloseNotifiesTeamForWeekly(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(t, challenge.Template{Type: challenge.TypeWeekly, DifficultyLevel: 3, Description: "Host a screen-free dinner"})
	ctx := context.Background()

	weekly, err := h.assign.OpenWeekly(ctx, h.team.ID)
	require.NoError(t, err)
	out, err := h.scoring.Close(ctx, weekly.ID, challenge.ValidVerdict())
	require.NoError(t, err)
	assert.Equal(t, 400, out.PointsAwarded)
	require.NotNil(t, out.LedgerTotal)
	assert.Equal(t, 400, *out.LedgerTotal)

	assert.Equal(t, []notification.Kind{notification.KindWeeklyOpened, notification.KindAttemptValidated}, h.notifier.kinds())
	assert.ElementsMatch(t, []uuid.UUID{h.alice.ID, h.bob.ID}, h.notifier.messages[1].Recipients)
}
