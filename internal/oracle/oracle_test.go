package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offScreenAPI/internal/apperr"
	"offScreenAPI/internal/llm"
	"offScreenAPI/internal/logger"
	"offScreenAPI/internal/types/challenge"
)

type stubClient struct {
	answer string
	err    error
	block  bool
	last   llm.Request
}

func (s *stubClient) Provider() string { return "stub" }

func (s *stubClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.last = req
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.answer, s.err
}

func TestValidateValid(t *testing.T) {
	client := &stubClient{answer: "Valid"}
	o := New(client, time.Second, logger.Nop())

	v, err := o.Validate(context.Background(), Request{
		Type:        challenge.TypeDaily,
		Description: "Read twenty pages",
		Evidence:    []byte("img"),
		ContentType: "image/png",
	})
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Contains(t, client.last.Prompt, "Read twenty pages")
	assert.Equal(t, "image/png", client.last.ImageMIME)
}

func TestValidateScreenTimePromptCarriesDate(t *testing.T) {
	client := &stubClient{answer: "30"}
	o := New(client, time.Second, logger.Nop())

	v, err := o.Validate(context.Background(), Request{
		Type: challenge.TypeScreenTime,
		Day:  time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, 30, v.UsageBucket)
	assert.Contains(t, client.last.Prompt, "2024-05-06")
}

func TestValidateTimeoutIsExternal(t *testing.T) {
	o := New(&stubClient{block: true}, 20*time.Millisecond, logger.Nop())

	_, err := o.Validate(context.Background(), Request{Type: challenge.TypeDaily})
	assert.ErrorIs(t, err, apperr.ErrExternalService)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestValidateTransportErrorIsExternal(t *testing.T) {
	o := New(&stubClient{err: errors.New("connection refused")}, time.Second, logger.Nop())

	_, err := o.Validate(context.Background(), Request{Type: challenge.TypeDaily})
	assert.ErrorIs(t, err, apperr.ErrExternalService)
	var ext *apperr.ExternalError
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, "stub", ext.Provider)
}

func TestValidateGarbageIsExternal(t *testing.T) {
	o := New(&stubClient{answer: "Looks good to me!"}, time.Second, logger.Nop())

	_, err := o.Validate(context.Background(), Request{Type: challenge.TypeDaily})
	assert.ErrorIs(t, err, apperr.ErrExternalService)
	assert.NotErrorIs(t, err, apperr.ErrValidationRejected)
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable{}.Validate(context.Background(), Request{})
	assert.ErrorIs(t, err, apperr.ErrExternalService)
}
