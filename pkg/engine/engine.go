package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/recapbot/recap/pkg/forge"
	"github.com/recapbot/recap/pkg/types"
)

// ActivitySource fetches raw repository activity reaching back to at least
// the given time.
type ActivitySource interface {
	FetchActivity(ctx context.Context, since time.Time) (*forge.ActivitySet, error)
}

// SummarySource lists previously published summaries, newest period first.
type SummarySource interface {
	PreviousSummaries(ctx context.Context) ([]types.PreviousSummary, error)
}

// RepoMeta exposes repository metadata.
type RepoMeta interface {
	CreatedAt(ctx context.Context) (time.Time, error)
}

// Engine runs one recap cycle: resolve the window, fetch, classify,
// aggregate, and gate on sufficiency. All state is scoped to the run; the
// only durable history is the published summaries read through Summaries.
type Engine struct {
	Activity  ActivitySource
	Summaries SummarySource
	Meta      RepoMeta
	Now       func() time.Time // defaults to time.Now
}

// Result is the outcome of a run. Digest is only meaningful when Outcome is
// OutcomePublished; Previous carries the summaries used to anchor the
// window, for prompt continuity downstream.
type Result struct {
	Outcome  types.Outcome
	Window   types.Window
	Digest   types.Digest
	Previous []types.PreviousSummary
}

// Run executes a single cycle. Transport and classification failures are
// fatal and reported with their stage; an empty window is not an error but
// an OutcomeSkipped result.
func (e *Engine) Run(ctx context.Context, override *time.Time) (*Result, error) {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}

	previous, err := e.Summaries.PreviousSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch previous summaries: %w", err)
	}

	var repoCreatedAt time.Time
	if override == nil && (len(previous) == 0 || previous[0].PeriodEnd.IsZero()) {
		repoCreatedAt, err = e.Meta.CreatedAt(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch repository metadata: %w", err)
		}
		log.Printf("No previous summary; starting at repository creation %s", repoCreatedAt.Format("2006-01-02"))
	}

	w := ResolveWindow(previous, repoCreatedAt, override, now())
	log.Printf("Reporting window [%s, %s)", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))

	set, err := e.Activity.FetchActivity(ctx, w.Start)
	if err != nil {
		return nil, fmt.Errorf("fetch activity: %w", err)
	}

	records, err := Classify(set, w)
	if err != nil {
		return nil, fmt.Errorf("classify activity: %w", err)
	}

	digest := Aggregate(records, w)
	log.Printf("Digest: %d records, %d comments, %d commits",
		len(digest.Records), digest.CommentCount(), digest.CommitCount())

	outcome := types.OutcomeSkipped
	if HasEnoughActivity(digest) {
		outcome = types.OutcomePublished
	}
	return &Result{Outcome: outcome, Window: w, Digest: digest, Previous: previous}, nil
}
