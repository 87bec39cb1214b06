package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"offScreenAPI/internal/apperr"
	"offScreenAPI/internal/llm"
	"offScreenAPI/internal/logger"
	"offScreenAPI/internal/metrics"
	"offScreenAPI/internal/types/challenge"
)

// Request is one piece of evidence to judge.
type Request struct {
	Type        challenge.Type
	Description string
	Evidence    []byte
	ContentType string
	// Day is the local calendar day the attempt covers. Screen-time reports
	// for another day are rejected.
	Day time.Time
}

type Oracle interface {
	Validate(ctx context.Context, req Request) (challenge.Verdict, error)
}

type LLMOracle struct {
	client  llm.Client
	timeout time.Duration
	log     *logger.Logger
}

func New(client llm.Client, timeout time.Duration, log *logger.Logger) *LLMOracle {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LLMOracle{
		client:  client,
		timeout: timeout,
		log:     log.With("service", "ValidationOracle", "provider", client.Provider()),
	}
}

// Validate asks the model for a verdict. Transport failures, timeouts and
// answers outside the grammar all come back as apperr.ErrExternalService;
// the caller must leave the attempt untouched in that case.
func (o *LLMOracle) Validate(ctx context.Context, req Request) (challenge.Verdict, error) {
	provider := o.client.Provider()
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	raw, err := o.client.Complete(ctx, llm.Request{
		System:    systemPrompt(req.Type),
		Prompt:    userPrompt(req),
		Image:     req.Evidence,
		ImageMIME: req.ContentType,
	})
	metrics.OracleDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.OracleRequests.WithLabelValues(provider, "error").Inc()
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("no verdict within %s: %w", o.timeout, err)
		}
		o.log.Warn("oracle call failed", "type", req.Type, "error", err)
		return challenge.Verdict{}, apperr.External(provider, err)
	}

	verdict, err := Parse(req.Type, raw)
	if err != nil {
		metrics.OracleRequests.WithLabelValues(provider, "unparseable").Inc()
		o.log.Warn("oracle answer outside grammar", "type", req.Type, "error", err)
		return challenge.Verdict{}, apperr.External(provider, err)
	}

	outcome := "invalid"
	if verdict.Valid {
		outcome = "valid"
	}
	metrics.OracleRequests.WithLabelValues(provider, outcome).Inc()
	return verdict, nil
}

// Unavailable is used when no provider is configured. Every call fails as
// an external service error so attempts stay open.
type Unavailable struct{}

func (Unavailable) Validate(ctx context.Context, req Request) (challenge.Verdict, error) {
	return challenge.Verdict{}, apperr.External("none", errors.New("no validation provider configured"))
}
