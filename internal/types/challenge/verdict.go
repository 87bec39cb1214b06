package challenge

// Verdict is the oracle's classification of a piece of evidence.
type Verdict struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
	// UsageBucket is set for screen-time evidence only: the reported usage
	// bucket (10, 20, 30 or 50) used by the screen-time scoring table.
	UsageBucket int    `json:"usage_bucket,omitempty"`
	Raw         string `json:"-"`
}

func ValidVerdict() Verdict { return Verdict{Valid: true} }

func InvalidVerdict(reason string) Verdict { return Verdict{Reason: reason} }

// SubmissionResult is returned by evidence submission.
type SubmissionResult struct {
	AttemptID     string  `json:"attempt_id"`
	Status        Status  `json:"status"`
	Verdict       Verdict `json:"verdict"`
	PointsAwarded int     `json:"points_awarded"`
	// AlreadyClosed is true when the attempt had been validated by an
	// earlier call and nothing was re-applied.
	AlreadyClosed bool `json:"already_closed"`
}
