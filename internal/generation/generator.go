package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"offScreenAPI/internal/apperr"
	"offScreenAPI/internal/llm"
	"offScreenAPI/internal/logger"
	"offScreenAPI/internal/types/challenge"
)

// CandidateCount is the number of templates requested per generation, one
// per difficulty level.
const CandidateCount = 3

type Generator interface {
	Generate(ctx context.Context, t challenge.Type, avoid []string) ([]challenge.Template, error)
}

type LLMGenerator struct {
	client llm.Client
	log    *logger.Logger
}

func New(client llm.Client, log *logger.Logger) *LLMGenerator {
	return &LLMGenerator{
		client: client,
		log:    log.With("service", "ChallengeGenerator", "provider", client.Provider()),
	}
}

const systemPrompt = `You invent short real-world challenges that help people spend less time on their phones.
Each challenge must be completable and provable with a single photo.

Return ONLY JSON following this schema:
{"challenges": [{"difficulty": 1, "description": "string"}]}

Rules:
- exactly 3 challenges, with difficulty 1, 2 and 3 (one each)
- each description is at most 280 characters
- never repeat or paraphrase a challenge from the "avoid" list`

func buildPrompt(t challenge.Type, avoid []string) string {
	var b strings.Builder
	scope := "a single person, finished within one day"
	if t == challenge.TypeWeekly {
		scope = "a whole team together, finished within one week"
	}
	fmt.Fprintf(&b, "Challenge type: %s (for %s).\n", t, scope)
	if len(avoid) > 0 {
		b.WriteString("Avoid:\n")
		for _, d := range avoid {
			b.WriteString("- ")
			b.WriteString(d)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Generate asks the model for fresh templates. The answer is accepted only
// if it satisfies every constraint; otherwise nothing is returned.
func (g *LLMGenerator) Generate(ctx context.Context, t challenge.Type, avoid []string) ([]challenge.Template, error) {
	raw, err := g.client.Complete(ctx, llm.Request{
		System: systemPrompt,
		Prompt: buildPrompt(t, avoid),
		JSON:   true,
	})
	if err != nil {
		return nil, apperr.External(g.client.Provider(), fmt.Errorf("generate challenges: %w", err))
	}

	templates, err := ParseCandidates(t, raw, avoid)
	if err != nil {
		g.log.Warn("rejected generated challenges", "type", t, "error", err)
		return nil, apperr.External(g.client.Provider(), err)
	}
	g.log.Info("generated challenges", "type", t, "count", len(templates))
	return templates, nil
}

// ParseCandidates validates a generator answer: exactly three candidates
// with distinct difficulties 1..3, each within the length limit and none
// repeating an avoided description (case-insensitive).
func ParseCandidates(t challenge.Type, raw string, avoid []string) ([]challenge.Template, error) {
	if !gjson.Valid(raw) {
		return nil, errors.New("generator answer is not JSON")
	}
	items := gjson.Get(raw, "challenges").Array()
	if len(items) != CandidateCount {
		return nil, fmt.Errorf("expected %d challenges, got %d", CandidateCount, len(items))
	}

	blocked := make(map[string]bool, len(avoid)+CandidateCount)
	for _, d := range avoid {
		blocked[normalize(d)] = true
	}

	seenLevel := make(map[int]bool, CandidateCount)
	out := make([]challenge.Template, 0, CandidateCount)
	for _, item := range items {
		tpl := challenge.Template{
			Type:            t,
			DifficultyLevel: int(item.Get("difficulty").Int()),
			Description:     strings.TrimSpace(item.Get("description").String()),
			Source:          challenge.SourceGenerated,
		}
		if err := tpl.Validate(); err != nil {
			return nil, err
		}
		if seenLevel[tpl.DifficultyLevel] {
			return nil, fmt.Errorf("difficulty %d appears twice", tpl.DifficultyLevel)
		}
		seenLevel[tpl.DifficultyLevel] = true

		key := normalize(tpl.Description)
		if blocked[key] {
			return nil, fmt.Errorf("description %q repeats an existing challenge", tpl.Description)
		}
		blocked[key] = true
		out = append(out, tpl)
	}
	return out, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
