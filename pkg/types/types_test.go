package types

import (
	"testing"
	"time"
)

func day(d int) time.Time {
	return time.Date(2024, 8, d, 0, 0, 0, 0, time.UTC)
}

func TestWindow_Contains(t *testing.T) {
	w := Window{Start: day(1), End: day(10)}

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before start", day(1).Add(-time.Second), false},
		{"exactly at start", day(1), true},
		{"inside", day(5), true},
		{"just before end", day(10).Add(-time.Second), true},
		{"exactly at end", day(10), false},
		{"after end", day(11), false},
	}
	for _, c := range cases {
		if got := w.Contains(c.at); got != c.want {
			t.Errorf("%s: Contains(%v) = %v, want %v", c.name, c.at, got, c.want)
		}
	}
}

func TestActivityRecord_PrimaryTimestamp(t *testing.T) {
	rec := ActivityRecord{
		Kind:      KindPullRequest,
		CreatedAt: day(1),
		Events: []SubEvent{
			{Type: EventComment, At: day(3)},
			{Type: EventMerge, At: day(5)},
		},
	}
	if got := rec.PrimaryTimestamp(); !got.Equal(day(3)) {
		t.Errorf("expected first event timestamp, got %v", got)
	}

	rec.Events = nil
	if got := rec.PrimaryTimestamp(); !got.Equal(day(1)) {
		t.Errorf("expected creation timestamp, got %v", got)
	}
}

func TestDigest_Counts(t *testing.T) {
	d := Digest{
		Records: []ActivityRecord{
			{
				Kind: KindPullRequest,
				Events: []SubEvent{
					{Type: EventComment, At: day(2)},
					{Type: EventCommit, At: day(3)},
					{Type: EventCommit, At: day(4)},
					{Type: EventMerge, At: day(5)},
				},
			},
			{
				Kind: KindIssue,
				Events: []SubEvent{
					{Type: EventComment, At: day(6)},
				},
			},
		},
	}

	if got := d.CommentCount(); got != 2 {
		t.Errorf("CommentCount = %d, want 2", got)
	}
	if got := d.CommitCount(); got != 2 {
		t.Errorf("CommitCount = %d, want 2", got)
	}
	if d.Empty() {
		t.Error("digest with records reported empty")
	}
	if got := len(d.PullRequests()); got != 1 {
		t.Errorf("PullRequests = %d records, want 1", got)
	}
	if got := len(d.Releases()); got != 0 {
		t.Errorf("Releases = %d records, want 0", got)
	}
}
