// Package engine resolves the reporting window, filters raw forge activity
// into meaningful records and aggregates them into a digest.
package engine

import (
	"time"

	"github.com/recapbot/recap/pkg/types"
)

// ResolveWindow determines the half-open window [start, now) for this run.
// An explicit override wins; otherwise the start anchors to the period end
// of the most recently published summary, falling back to the repository
// creation time when no usable history exists. The end is always now; only
// the gate outcome, never the start, may vary between runs over the same
// history.
func ResolveWindow(previous []types.PreviousSummary, repoCreatedAt time.Time, override *time.Time, now time.Time) types.Window {
	start := repoCreatedAt
	if override != nil {
		start = *override
	} else if len(previous) > 0 && !previous[0].PeriodEnd.IsZero() {
		start = previous[0].PeriodEnd
	}
	return types.Window{Start: start.UTC(), End: now.UTC()}
}
