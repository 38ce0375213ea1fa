package engine

import (
	"sort"

	"github.com/recapbot/recap/pkg/types"
)

var kindOrder = map[types.Kind]int{
	types.KindPullRequest: 0,
	types.KindIssue:       1,
	types.KindRelease:     2,
	types.KindDiscussion:  3,
}

// Aggregate merges classified records into the digest for one window: pull
// requests, then issues, then releases, then discussions, each group
// ascending by primary timestamp. The fixed order keeps digest output
// stable and diffable across runs.
func Aggregate(records []types.ActivityRecord, w types.Window) types.Digest {
	sorted := make([]types.ActivityRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		oi, oj := kindOrder[sorted[i].Kind], kindOrder[sorted[j].Kind]
		if oi != oj {
			return oi < oj
		}
		return sorted[i].PrimaryTimestamp().Before(sorted[j].PrimaryTimestamp())
	})
	return types.Digest{Window: w, Records: sorted}
}

// HasEnoughActivity is the sufficiency gate: a digest qualifies when it
// holds at least one relevant record. On disqualification the run ends as
// Skipped; the next scheduled run naturally covers a wider window because
// its start still anchors to the last published summary.
func HasEnoughActivity(d types.Digest) bool {
	return !d.Empty()
}
