// Package types defines core types for the repository recap engine.
package types

import "time"

// Kind identifies the variant of an ActivityRecord.
type Kind string

const (
	KindPullRequest Kind = "pull_request"
	KindIssue       Kind = "issue"
	KindRelease     Kind = "release"
	KindDiscussion  Kind = "discussion"
)

// SubEventType classifies a dated event attached to an ActivityRecord.
type SubEventType string

const (
	EventComment SubEventType = "comment"
	EventCommit  SubEventType = "commit"
	EventReview  SubEventType = "review"
	EventMerge   SubEventType = "merge"
	EventClose   SubEventType = "close"
)

// SubEvent is a single dated event on a record: a comment, commit, review,
// merge or close.
type SubEvent struct {
	Type    SubEventType `json:"type"`
	At      time.Time    `json:"at"`
	Author  string       `json:"author,omitempty"`
	Message string       `json:"message,omitempty"`
}

// ActivityRecord is one unit of repository activity: a pull request, issue,
// release or discussion, together with its sub-events.
//
// Events are ordered ascending by timestamp and, once filtered for a window,
// hold only in-window events. A record's relevant timestamps are its creation
// time and its sub-event times; the forge's raw "last updated" time is never
// one of them, since it also fires on label and assignee touches.
type ActivityRecord struct {
	Kind      Kind       `json:"kind"`
	Number    int        `json:"number,omitempty"`
	Title     string     `json:"title"`
	URL       string     `json:"url,omitempty"`
	State     string     `json:"state,omitempty"` // open, closed or merged
	Author    string     `json:"author,omitempty"`
	Body      string     `json:"body,omitempty"`
	Category  string     `json:"category,omitempty"` // discussions only
	TagName   string     `json:"tag_name,omitempty"`  // releases only
	CreatedAt time.Time  `json:"created_at"`
	Events    []SubEvent `json:"events,omitempty"`
}

// PrimaryTimestamp returns the timestamp that orders the record inside its
// digest group: the first retained sub-event, or the creation time when no
// sub-events survived filtering.
func (r ActivityRecord) PrimaryTimestamp() time.Time {
	if len(r.Events) > 0 {
		return r.Events[0].At
	}
	return r.CreatedAt
}

// Window is a half-open time interval [Start, End). All times are UTC.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window. The start boundary is
// inclusive, the end boundary exclusive: an event exactly at End is outside.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// PreviousSummary is a recap discussion published by an earlier run.
// Read-only history; PeriodEnd is the exclusive end of the window it covered
// and anchors the next run's start.
type PreviousSummary struct {
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	PublishedAt time.Time `json:"published_at"`
	PeriodEnd   time.Time `json:"period_end"`
}

// Digest is the aggregated, filtered activity for exactly one window,
// ordered pull requests, issues, releases, discussions, each group ascending
// by primary timestamp.
type Digest struct {
	Window  Window           `json:"window"`
	Records []ActivityRecord `json:"records"`
}

// Empty reports whether the digest holds no relevant records.
func (d Digest) Empty() bool { return len(d.Records) == 0 }

// ByKind returns the records of one kind, preserving digest order.
func (d Digest) ByKind(k Kind) []ActivityRecord {
	var out []ActivityRecord
	for _, r := range d.Records {
		if r.Kind == k {
			out = append(out, r)
		}
	}
	return out
}

// PullRequests returns the pull request group of the digest.
func (d Digest) PullRequests() []ActivityRecord { return d.ByKind(KindPullRequest) }

// Issues returns the issue group of the digest.
func (d Digest) Issues() []ActivityRecord { return d.ByKind(KindIssue) }

// Releases returns the release group of the digest.
func (d Digest) Releases() []ActivityRecord { return d.ByKind(KindRelease) }

// Discussions returns the discussion group of the digest.
func (d Digest) Discussions() []ActivityRecord { return d.ByKind(KindDiscussion) }

// CommentCount counts comment sub-events across the digest.
func (d Digest) CommentCount() int {
	return d.countEvents(EventComment)
}

// CommitCount counts commit sub-events across the digest.
func (d Digest) CommitCount() int {
	return d.countEvents(EventCommit)
}

func (d Digest) countEvents(t SubEventType) int {
	n := 0
	for _, r := range d.Records {
		for _, ev := range r.Events {
			if ev.Type == t {
				n++
			}
		}
	}
	return n
}

// Outcome is the terminal state of a recap run.
type Outcome string

const (
	OutcomePublished Outcome = "published"
	OutcomeSkipped   Outcome = "skipped"
)
