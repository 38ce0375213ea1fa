package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/recapbot/recap/pkg/forge"
	"github.com/recapbot/recap/pkg/types"
)

type fakeRepo struct {
	set       *forge.ActivitySet
	summaries []types.PreviousSummary
	createdAt time.Time

	fetchErr  error
	metaCalls int
}

func (f *fakeRepo) FetchActivity(ctx context.Context, since time.Time) (*forge.ActivitySet, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.set, nil
}

func (f *fakeRepo) PreviousSummaries(ctx context.Context) ([]types.PreviousSummary, error) {
	return f.summaries, nil
}

func (f *fakeRepo) CreatedAt(ctx context.Context) (time.Time, error) {
	f.metaCalls++
	return f.createdAt, nil
}

func newEngine(f *fakeRepo, now time.Time) *Engine {
	return &Engine{
		Activity:  f,
		Summaries: f,
		Meta:      f,
		Now:       func() time.Time { return now },
	}
}

func TestRun_PublishesMergedPRAndIgnoresRelabeledIssue(t *testing.T) {
	now := time.Date(2024, 8, 10, 12, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)

	merged := forge.RawPullRequest{
		Number:    42,
		Title:     "Add pagination",
		State:     "MERGED",
		Merged:    true,
		CreatedAt: "2024-07-25T00:00:00Z",
		UpdatedAt: "2024-08-03T00:00:00Z",
		MergedAt:  "2024-08-03T00:00:00Z",
	}
	relabeled := forge.RawIssue{
		Number:    7,
		Title:     "Flaky test",
		State:     "OPEN",
		CreatedAt: "2024-07-01T00:00:00Z",
		UpdatedAt: "2024-08-05T00:00:00Z", // label edit only
	}

	f := &fakeRepo{
		set: &forge.ActivitySet{
			PullRequests: []forge.RawPullRequest{merged},
			Issues:       []forge.RawIssue{relabeled},
		},
		summaries: []types.PreviousSummary{{Title: "July recap", PeriodEnd: periodEnd}},
		createdAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	res, err := newEngine(f, now).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Outcome != types.OutcomePublished {
		t.Fatalf("outcome = %q, want published", res.Outcome)
	}
	if !res.Window.Start.Equal(periodEnd) || !res.Window.End.Equal(now) {
		t.Fatalf("window = %+v, want [%v, %v)", res.Window, periodEnd, now)
	}
	if len(res.Digest.Records) != 1 {
		t.Fatalf("digest has %d records, want only the merged PR: %+v", len(res.Digest.Records), res.Digest.Records)
	}
	if res.Digest.Records[0].Number != 42 {
		t.Errorf("digest record = #%d, want #42", res.Digest.Records[0].Number)
	}
	if f.metaCalls != 0 {
		t.Errorf("repository metadata fetched %d times despite usable history", f.metaCalls)
	}
}

func TestRun_QuietRepositorySkips(t *testing.T) {
	now := time.Date(2024, 8, 10, 12, 0, 0, 0, time.UTC)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	f := &fakeRepo{set: &forge.ActivitySet{}, createdAt: created}

	res, err := newEngine(f, now).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Outcome != types.OutcomeSkipped {
		t.Fatalf("outcome = %q, want skipped", res.Outcome)
	}
	if !res.Window.Start.Equal(created) {
		t.Errorf("window start = %v, want repository creation %v", res.Window.Start, created)
	}
	if !res.Digest.Empty() {
		t.Errorf("digest not empty: %+v", res.Digest.Records)
	}
	if f.metaCalls != 1 {
		t.Errorf("repository metadata fetched %d times, want 1", f.metaCalls)
	}
}

func TestRun_FetchFailureIsFatalWithStage(t *testing.T) {
	f := &fakeRepo{fetchErr: errors.New("boom")}

	_, err := newEngine(f, time.Now()).Run(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got != "fetch activity: boom" {
		t.Errorf("error = %q, want fetch stage prefix", got)
	}
}

func TestRun_OverrideSkipsHistoryAnchor(t *testing.T) {
	now := time.Date(2024, 8, 10, 0, 0, 0, 0, time.UTC)
	override := time.Date(2024, 8, 5, 0, 0, 0, 0, time.UTC)

	f := &fakeRepo{
		set:       &forge.ActivitySet{},
		summaries: []types.PreviousSummary{{PeriodEnd: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)}},
	}

	res, err := newEngine(f, now).Run(context.Background(), &override)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Window.Start.Equal(override) {
		t.Errorf("window start = %v, want override %v", res.Window.Start, override)
	}
	if f.metaCalls != 0 {
		t.Errorf("repository metadata fetched despite override")
	}
}
