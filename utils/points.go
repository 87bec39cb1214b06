package utils

import (
	"fmt"

	"offScreenAPI/internal/types/challenge"
)

var dailyPoints = map[int]int{1: 40, 2: 70, 3: 100}

var weeklyPoints = map[int]int{1: 150, 2: 250, 3: 400}

// Screen-time evidence is scored on its own signed table: low reported usage
// earns points, high usage is deducted from the team.
var screenTimePoints = map[int]int{10: 50, 20: 20, 30: -20, 50: -50}

// ScreenTimeBuckets lists the usage buckets the classifier may answer with.
var ScreenTimeBuckets = []int{10, 20, 30, 50}

// CalculatePoints returns the signed ledger delta for a validated attempt.
func CalculatePoints(t challenge.Type, difficultyLevel int, verdict challenge.Verdict) (int, error) {
	switch t {
	case challenge.TypeDaily:
		return lookup(dailyPoints, difficultyLevel, "difficulty level")
	case challenge.TypeWeekly:
		return lookup(weeklyPoints, difficultyLevel, "difficulty level")
	case challenge.TypeScreenTime:
		return lookup(screenTimePoints, verdict.UsageBucket, "usage bucket")
	default:
		return 0, fmt.Errorf("no scoring table for challenge type %q", t)
	}
}

func lookup(table map[int]int, key int, what string) (int, error) {
	points, ok := table[key]
	if !ok {
		return 0, fmt.Errorf("unknown %s %d", what, key)
	}
	return points, nil
}
