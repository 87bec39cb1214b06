package oracle

import (
	"fmt"
	"time"

	"offScreenAPI/internal/types/challenge"
)

const regularSystemPrompt = `You verify photo evidence for real-world challenges people take on to spend less time on their phones.

You receive the challenge description and one photo submitted as proof.
Decide whether the photo plausibly shows the challenge being completed.

Answer with exactly one line and nothing else:
Valid
or
Invalid: <short reason the photo does not prove the challenge>`

const screenTimeSystemPrompt = `You read screenshots of a phone's screen-time report.

Extract the total screen time shown for the reported day and map it to a bucket:
10 for under 1 hour, 20 for 1 to 2 hours, 30 for 2 to 4 hours, 50 for 4 hours or more.

Answer with exactly one line and nothing else, one of:
10
20
30
50
Invalid image      (the picture is not a screen-time report)
Wrong date         (the report is not for the expected date)
Cannot extract     (the total cannot be read)`

func systemPrompt(t challenge.Type) string {
	if t == challenge.TypeScreenTime {
		return screenTimeSystemPrompt
	}
	return regularSystemPrompt
}

func userPrompt(req Request) string {
	if req.Type == challenge.TypeScreenTime {
		return fmt.Sprintf("Expected report date: %s.", req.Day.Format(time.DateOnly))
	}
	return fmt.Sprintf("Challenge: %s", req.Description)
}
