package cli

import (
	"fmt"

	"github.com/theirongolddev/nestegg/internal/montecarlo"
)

// AdviceText returns the headline and suggestion for a report.
func AdviceText(r montecarlo.Report) (title, body string) {
	extra := r.ExtraMonthly
	switch r.Advice {
	case montecarlo.AdviceOnTrack:
		title = "On track for your target"
		if extra > 0 {
			body = fmt.Sprintf("You are in a strong position. Adding about %s per month would build extra cushion.", FormatMoney(extra))
		} else {
			body = "You are in a strong position. Keep your current contributions steady to stay ahead."
		}
	case montecarlo.AdviceWithinReach:
		title = "Within reach, but needs a push"
		if extra > 0 {
			body = fmt.Sprintf("Consider increasing contributions by roughly %s per month or extend the timeline.", FormatMoney(extra))
		} else {
			body = "Consider increasing contributions or adjusting the timeline for more certainty."
		}
	case montecarlo.AdviceLow:
		title = "Low probability of success"
		if extra > 0 {
			body = fmt.Sprintf("Boost contributions by about %s per month and revisit your risk profile.", FormatMoney(extra))
		} else {
			body = "Review your risk profile, contributions, or goal target to improve success odds."
		}
	default:
		title = "No target set"
		body = "Set a target to see the chance of reaching it."
	}
	return title, body
}

// AdviceStyle renders s in the colour for the advice tier.
func AdviceStyle(a montecarlo.Advice, s string) string {
	switch a {
	case montecarlo.AdviceOnTrack:
		return goodStyle.Render(s)
	case montecarlo.AdviceWithinReach:
		return accentStyle.Render(s)
	case montecarlo.AdviceLow:
		return warnStyle.Render(s)
	}
	return mutedStyle.Render(s)
}
