package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offScreenAPI/internal/apperr"
	"offScreenAPI/internal/types/challenge"
)

func TestDailyLevelTwoAwardsSeventy(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(t, challenge.Template{Type: challenge.TypeDaily, DifficultyLevel: 2, Description: "Read twenty pages of a paper book"})
	ctx := context.Background()

	view, err := h.assign.OpenDaily(ctx, h.alice.ID)
	require.NoError(t, err)

	res, err := h.submitAs(h.alice, view)
	require.NoError(t, err)
	assert.Equal(t, challenge.StatusValid, res.Status)
	assert.Equal(t, 70, res.PointsAwarded)
	assert.False(t, res.AlreadyClosed)

	l, err := h.ledger.Read(ctx, h.team.ID)
	require.NoError(t, err)
	assert.Equal(t, 70, l.Points)
	assert.Equal(t, 70, l.LastVariation)

	stored, err := h.st.Attempt(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, challenge.StatusValid, stored.Status)
	require.NotNil(t, stored.EvidenceRef)
	require.NotNil(t, stored.CompletedAt)

	require.Len(t, h.publisher.events, 1)
	assert.Equal(t, 70, h.publisher.events[0].Delta)
	assert.Equal(t, 70, h.publisher.events[0].Points)
}

func TestResubmitAfterValidIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(t, challenge.Template{Type: challenge.TypeDaily, DifficultyLevel: 3, Description: "Spend the evening without screens"})
	ctx := context.Background()

	view, err := h.assign.OpenDaily(ctx, h.alice.ID)
	require.NoError(t, err)
	_, err = h.submitAs(h.alice, view)
	require.NoError(t, err)

	res, err := h.submitAs(h.alice, view)
	require.NoError(t, err)
	assert.True(t, res.AlreadyClosed)
	assert.Equal(t, 100, res.PointsAwarded)

	l, err := h.ledger.Read(ctx, h.team.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, l.Points)
	assert.Len(t, h.oracle.requests, 1)
}

func TestInvalidVerdictKeepsAttemptOpen(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(t, challenge.Template{Type: challenge.TypeDaily, DifficultyLevel: 1, Description: "Leave your phone in another room"})
	ctx := context.Background()

	view, err := h.assign.OpenDaily(ctx, h.alice.ID)
	require.NoError(t, err)

	h.oracle.answer(challenge.InvalidVerdict("the photo shows a phone"), nil)
	_, err = h.submitAs(h.alice, view)
	var rejected *apperr.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.ErrorIs(t, err, apperr.ErrValidationRejected)
	assert.Equal(t, "the photo shows a phone", rejected.Reason)
	assert.True(t, rejected.WindowEndsAt.Equal(view.EndAt))

	stored, err := h.st.Attempt(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, challenge.StatusInvalidPending, stored.Status)

	h.oracle.answer(challenge.ValidVerdict(), nil)
	res, err := h.submitAs(h.alice, view)
	require.NoError(t, err)
	assert.Equal(t, 40, res.PointsAwarded)
}

func TestOracleFailureLeavesAttemptOpen(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(t, challenge.Template{Type: challenge.TypeDaily, DifficultyLevel: 1, Description: "Leave your phone in another room"})
	ctx := context.Background()

	view, err := h.assign.OpenDaily(ctx, h.alice.ID)
	require.NoError(t, err)

	h.oracle.answer(challenge.Verdict{}, apperr.External("stub", context.DeadlineExceeded))
	_, err = h.submitAs(h.alice, view)
	assert.ErrorIs(t, err, apperr.ErrExternalService)

	stored, err := h.st.Attempt(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, challenge.StatusOpen, stored.Status)

	l, err := h.ledger.Read(ctx, h.team.ID)
	require.NoError(t, err)
	assert.Zero(t, l.Points)
}

func TestSubmitAfterWindowIsClosed(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(t, challenge.Template{Type: challenge.TypeDaily, DifficultyLevel: 1, Description: "Leave your phone in another room"})
	ctx := context.Background()

	view, err := h.assign.OpenDaily(ctx, h.alice.ID)
	require.NoError(t, err)

	h.clock.Set(view.EndAt)
	_, err = h.submitAs(h.alice, view)
	assert.ErrorIs(t, err, apperr.ErrWindowClosed)
	assert.Empty(t, h.oracle.requests)
}

func TestSubmitOnOthersAttemptIsNotFound(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(t,
		challenge.Template{Type: challenge.TypeDaily, DifficultyLevel: 1, Description: "Leave your phone in another room"},
		challenge.Template{Type: challenge.TypeWeekly, DifficultyLevel: 2, Description: "Play a board game together"},
	)
	ctx := context.Background()

	daily, err := h.assign.OpenDaily(ctx, h.alice.ID)
	require.NoError(t, err)
	_, err = h.submitAs(h.bob, daily)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	weekly, err := h.assign.OpenWeekly(ctx, h.team.ID)
	require.NoError(t, err)
	res, err := h.submitAs(h.bob, weekly)
	require.NoError(t, err)
	assert.Equal(t, 250, res.PointsAwarded)
}

func TestSubmitRejectsNonImageEvidence(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(t, challenge.Template{Type: challenge.TypeDaily, DifficultyLevel: 1, Description: "Leave your phone in another room"})
	ctx := context.Background()

	view, err := h.assign.OpenDaily(ctx, h.alice.ID)
	require.NoError(t, err)

	_, err = h.submit.SubmitEvidence(ctx, Submission{
		AttemptID:     view.ID,
		ParticipantID: h.alice.ID,
		Evidence:      []byte("plain text is not a photo"),
		ContentType:   "text/plain",
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	assert.Empty(t, h.oracle.requests)
}

func TestScreenTimeScoringIsSigned(t *testing.T) {
	tests := []struct {
		bucket int
		want   int
	}{
		{10, 50},
		{20, 20},
		{30, -20},
		{50, -50},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("bucket %d", tt.bucket), func(t *testing.T) {
			h := newHarness(t, nil)
			h.seed(t, challenge.Template{Type: challenge.TypeScreenTime, DifficultyLevel: 1, Description: "Upload today's screen time report"})
			h.oracle.answer(challenge.Verdict{Valid: true, UsageBucket: tt.bucket}, nil)
			ctx := context.Background()

			view, err := h.assign.OpenScreenTime(ctx, h.alice.ID)
			require.NoError(t, err)
			res, err := h.submitAs(h.alice, view)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.PointsAwarded)

			l, err := h.ledger.Read(ctx, h.team.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.Points)

			require.Len(t, h.oracle.requests, 1)
			assert.Equal(t, "2024-01-03", h.oracle.requests[0].Day.Format("2006-01-02"))
			assert.Equal(t, challenge.TypeScreenTime, h.oracle.requests[0].Type)
		})
	}
}

func TestSubmitWithoutOracle(t *testing.T) {
	h := newHarness(t, nil)
	h.seed(t, challenge.Template{Type: challenge.TypeDaily, DifficultyLevel: 1, Description: "Leave your phone in another room"})
	h.submit = NewSubmissionService(h.st, h.submit.evidence, nil, h.scoring, h.submit.log)
	h.submit.now = h.clock.Now
	ctx := context.Background()

	view, err := h.assign.OpenDaily(ctx, h.alice.ID)
	require.NoError(t, err)
	_, err = h.submitAs(h.alice, view)
	assert.True(t, errors.Is(err, apperr.ErrExternalService))
}
