package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/recapbot/recap/pkg/forge"
	"github.com/recapbot/recap/pkg/types"
)

// Classify maps a raw activity set onto ActivityRecords, keeping only the
// records relevant to the window. A record is relevant when it was created,
// merged or closed inside the window, or received a comment, review or
// commit inside it; a record touched only by metadata edits (labels,
// assignees) never qualifies. Sub-events outside the window are dropped from
// kept records.
func Classify(set *forge.ActivitySet, w types.Window) ([]types.ActivityRecord, error) {
	var out []types.ActivityRecord
	for _, pr := range set.PullRequests {
		rec, ok, err := classifyPullRequest(pr, w)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	for _, issue := range set.Issues {
		rec, ok, err := classifyIssue(issue, w)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	for _, rel := range set.Releases {
		rec, ok, err := classifyRelease(rel, w)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	for _, disc := range set.Discussions {
		rec, ok, err := classifyDiscussion(disc, w)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func classifyPullRequest(pr forge.RawPullRequest, w types.Window) (types.ActivityRecord, bool, error) {
	createdAt, err := forge.ParseTime(pr.CreatedAt)
	if err != nil {
		return types.ActivityRecord{}, false, err
	}

	events, err := commentEvents(pr.Comments.Nodes, types.EventComment, w)
	if err != nil {
		return types.ActivityRecord{}, false, err
	}
	reviews, err := commentEvents(pr.Reviews.Nodes, types.EventReview, w)
	if err != nil {
		return types.ActivityRecord{}, false, err
	}
	events = append(events, reviews...)

	for _, c := range pr.Commits.Nodes {
		at, err := forge.ParseTime(c.Commit.CommittedDate)
		if err != nil {
			return types.ActivityRecord{}, false, err
		}
		if w.Contains(at) {
			events = append(events, types.SubEvent{
				Type:    types.EventCommit,
				At:      at,
				Author:  c.Commit.Author.Name,
				Message: c.Commit.Message,
			})
		}
	}

	// The merge is the state change; a merged PR's closedAt is noise.
	state := strings.ToLower(pr.State)
	if pr.Merged {
		state = "merged"
		ev, err := stateChangeEvent(pr.MergedAt, types.EventMerge, w)
		if err != nil {
			return types.ActivityRecord{}, false, err
		}
		events = append(events, ev...)
	} else {
		ev, err := stateChangeEvent(pr.ClosedAt, types.EventClose, w)
		if err != nil {
			return types.ActivityRecord{}, false, err
		}
		events = append(events, ev...)
	}

	sortEvents(events)
	rec := types.ActivityRecord{
		Kind:      types.KindPullRequest,
		Number:    pr.Number,
		Title:     pr.Title,
		URL:       pr.URL,
		State:     state,
		Author:    pr.Author.Login,
		Body:      pr.Body,
		CreatedAt: createdAt,
		Events:    events,
	}
	return rec, relevant(createdAt, events, w), nil
}

func classifyIssue(issue forge.RawIssue, w types.Window) (types.ActivityRecord, bool, error) {
	createdAt, err := forge.ParseTime(issue.CreatedAt)
	if err != nil {
		return types.ActivityRecord{}, false, err
	}
	events, err := commentEvents(issue.Comments.Nodes, types.EventComment, w)
	if err != nil {
		return types.ActivityRecord{}, false, err
	}
	closed, err := stateChangeEvent(issue.ClosedAt, types.EventClose, w)
	if err != nil {
		return types.ActivityRecord{}, false, err
	}
	events = append(events, closed...)

	sortEvents(events)
	rec := types.ActivityRecord{
		Kind:      types.KindIssue,
		Number:    issue.Number,
		Title:     issue.Title,
		URL:       issue.URL,
		State:     strings.ToLower(issue.State),
		Author:    issue.Author.Login,
		Body:      issue.Body,
		CreatedAt: createdAt,
		Events:    events,
	}
	return rec, relevant(createdAt, events, w), nil
}

func classifyRelease(rel forge.RawRelease, w types.Window) (types.ActivityRecord, bool, error) {
	publishedAt, err := forge.ParseTime(rel.PublishedAt)
	if err != nil {
		return types.ActivityRecord{}, false, err
	}
	if publishedAt.IsZero() {
		publishedAt, err = forge.ParseTime(rel.CreatedAt)
		if err != nil {
			return types.ActivityRecord{}, false, err
		}
	}
	rec := types.ActivityRecord{
		Kind:      types.KindRelease,
		Title:     rel.Name,
		URL:       rel.URL,
		TagName:   rel.TagName,
		Body:      rel.Description,
		CreatedAt: publishedAt,
	}
	return rec, w.Contains(publishedAt), nil
}

func classifyDiscussion(disc forge.RawDiscussion, w types.Window) (types.ActivityRecord, bool, error) {
	createdAt, err := forge.ParseTime(disc.CreatedAt)
	if err != nil {
		return types.ActivityRecord{}, false, err
	}
	events, err := commentEvents(disc.Comments.Nodes, types.EventComment, w)
	if err != nil {
		return types.ActivityRecord{}, false, err
	}
	closed, err := stateChangeEvent(disc.ClosedAt, types.EventClose, w)
	if err != nil {
		return types.ActivityRecord{}, false, err
	}
	events = append(events, closed...)

	sortEvents(events)
	rec := types.ActivityRecord{
		Kind:      types.KindDiscussion,
		Number:    disc.Number,
		Title:     disc.Title,
		URL:       disc.URL,
		Author:    disc.Author.Login,
		Body:      disc.Body,
		Category:  disc.Category.Name,
		CreatedAt: createdAt,
		Events:    events,
	}
	return rec, relevant(createdAt, events, w), nil
}

func commentEvents(nodes []forge.RawComment, t types.SubEventType, w types.Window) ([]types.SubEvent, error) {
	var out []types.SubEvent
	for _, c := range nodes {
		at, err := forge.ParseTime(c.CreatedAt)
		if err != nil {
			return nil, err
		}
		if w.Contains(at) {
			out = append(out, types.SubEvent{
				Type:    t,
				At:      at,
				Author:  c.Author.Login,
				Message: c.Body,
			})
		}
	}
	return out, nil
}

func stateChangeEvent(ts string, t types.SubEventType, w types.Window) ([]types.SubEvent, error) {
	at, err := forge.ParseTime(ts)
	if err != nil {
		return nil, err
	}
	if at.IsZero() || !w.Contains(at) {
		return nil, nil
	}
	return []types.SubEvent{{Type: t, At: at}}, nil
}

func sortEvents(events []types.SubEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].At.Before(events[j].At)
	})
}

// relevant applies the inclusion rule: created in window, or at least one
// surviving in-window sub-event. Records created at or after the window end
// never qualify.
func relevant(createdAt time.Time, events []types.SubEvent, w types.Window) bool {
	if !createdAt.Before(w.End) {
		return false
	}
	return w.Contains(createdAt) || len(events) > 0
}
