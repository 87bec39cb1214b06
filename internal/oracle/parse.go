package oracle

import (
	"fmt"
	"strconv"
	"strings"

	"offScreenAPI/internal/types/challenge"
	"offScreenAPI/utils"
)

// Screen-time rejection answers the classifier may give.
const (
	ReasonInvalidImage  = "Invalid image"
	ReasonWrongDate     = "Wrong date"
	ReasonCannotExtract = "Cannot extract"
)

var screenTimeRejections = []string{ReasonInvalidImage, ReasonWrongDate, ReasonCannotExtract}

var screenTimeBuckets = bucketSet(utils.ScreenTimeBuckets)

func bucketSet(buckets []int) map[int]bool {
	set := make(map[int]bool, len(buckets))
	for _, b := range buckets {
		set[b] = true
	}
	return set
}

// UnparseableError is returned for any answer outside the grammar.
type UnparseableError struct {
	Raw string
}

func (e *UnparseableError) Error() string {
	return fmt.Sprintf("unexpected oracle answer %q", truncate(e.Raw, 120))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func clean(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, ".")
	return strings.TrimSpace(s)
}

// ParseVerdict reads a regular challenge answer: "Valid" or
// "Invalid: <reason>". Anything else is an error.
func ParseVerdict(raw string) (challenge.Verdict, error) {
	s := clean(raw)
	if strings.EqualFold(s, "valid") {
		v := challenge.ValidVerdict()
		v.Raw = raw
		return v, nil
	}

	head, reason, found := strings.Cut(s, ":")
	if found && strings.EqualFold(strings.TrimSpace(head), "invalid") {
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return challenge.Verdict{}, &UnparseableError{Raw: raw}
		}
		v := challenge.InvalidVerdict(reason)
		v.Raw = raw
		return v, nil
	}
	return challenge.Verdict{}, &UnparseableError{Raw: raw}
}

// ParseScreenTime reads a screen-time answer: one of utils.ScreenTimeBuckets
// or one of the fixed rejection phrases.
func ParseScreenTime(raw string) (challenge.Verdict, error) {
	s := clean(raw)
	if n, err := strconv.Atoi(s); err == nil {
		if !screenTimeBuckets[n] {
			return challenge.Verdict{}, &UnparseableError{Raw: raw}
		}
		return challenge.Verdict{Valid: true, UsageBucket: n, Raw: raw}, nil
	}
	for _, reason := range screenTimeRejections {
		if strings.EqualFold(s, reason) {
			v := challenge.InvalidVerdict(reason)
			v.Raw = raw
			return v, nil
		}
	}
	return challenge.Verdict{}, &UnparseableError{Raw: raw}
}

// Parse dispatches on the challenge type.
func Parse(t challenge.Type, raw string) (challenge.Verdict, error) {
	if t == challenge.TypeScreenTime {
		return ParseScreenTime(raw)
	}
	return ParseVerdict(raw)
}
