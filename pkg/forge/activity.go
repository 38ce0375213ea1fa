package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/recapbot/recap/pkg/report"
)

// ParseTime parses a forge timestamp (RFC 3339) into UTC. An empty string
// maps to the zero time: absent mergedAt/closedAt fields arrive as "".
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// RawActor is an author reference on a forge record.
type RawActor struct {
	Login string `json:"login"`
}

// RawComment is a comment or review node as returned by the forge.
type RawComment struct {
	CreatedAt string   `json:"createdAt"`
	Body      string   `json:"body"`
	Author    RawActor `json:"author"`
}

// RawCommit is a pull request commit node.
type RawCommit struct {
	Commit struct {
		Message       string `json:"message"`
		CommittedDate string `json:"committedDate"`
		Author        struct {
			Name string `json:"name"`
		} `json:"author"`
	} `json:"commit"`
}

// RawPullRequest mirrors the pull request shape of the activity query.
type RawPullRequest struct {
	Number    int      `json:"number"`
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
	State     string   `json:"state"`
	Merged    bool     `json:"merged"`
	MergedAt  string   `json:"mergedAt"`
	ClosedAt  string   `json:"closedAt"`
	Body      string   `json:"body"`
	Author    RawActor `json:"author"`
	Comments  struct {
		Nodes []RawComment `json:"nodes"`
	} `json:"comments"`
	Reviews struct {
		Nodes []RawComment `json:"nodes"`
	} `json:"reviews"`
	Commits struct {
		Nodes []RawCommit `json:"nodes"`
	} `json:"commits"`
}

// RawIssue mirrors the issue shape of the activity query.
type RawIssue struct {
	Number    int      `json:"number"`
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
	State     string   `json:"state"`
	ClosedAt  string   `json:"closedAt"`
	Body      string   `json:"body"`
	Author    RawActor `json:"author"`
	Comments  struct {
		Nodes []RawComment `json:"nodes"`
	} `json:"comments"`
}

// RawRelease mirrors the release shape of the activity query.
type RawRelease struct {
	Name        string `json:"name"`
	TagName     string `json:"tagName"`
	CreatedAt   string `json:"createdAt"`
	PublishedAt string `json:"publishedAt"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// RawDiscussion mirrors the discussion shape of the activity query.
type RawDiscussion struct {
	Number    int      `json:"number"`
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
	ClosedAt  string   `json:"closedAt"`
	Body      string   `json:"body"`
	Author    RawActor `json:"author"`
	Category  struct {
		Name string `json:"name"`
	} `json:"category"`
	Comments struct {
		Nodes []RawComment `json:"nodes"`
	} `json:"comments"`
}

type activityPage struct {
	Repository struct {
		PullRequests struct {
			PageInfo pageInfo         `json:"pageInfo"`
			Nodes    []RawPullRequest `json:"nodes"`
		} `json:"pullRequests"`
		Issues struct {
			PageInfo pageInfo   `json:"pageInfo"`
			Nodes    []RawIssue `json:"nodes"`
		} `json:"issues"`
		Releases struct {
			PageInfo pageInfo     `json:"pageInfo"`
			Nodes    []RawRelease `json:"nodes"`
		} `json:"releases"`
		Discussions struct {
			PageInfo pageInfo        `json:"pageInfo"`
			Nodes    []RawDiscussion `json:"nodes"`
		} `json:"discussions"`
	} `json:"repository"`
}

// ActivitySet is the raw activity of one repository reaching back to at
// least a given point in time, before classification.
type ActivitySet struct {
	PullRequests []RawPullRequest
	Issues       []RawIssue
	Releases     []RawRelease
	Discussions  []RawDiscussion
}

// streamState tracks one of the four paginated streams inside the combined
// activity query.
type streamState struct {
	active bool
	cursor string
}

func (s *streamState) advance(pi pageInfo) {
	s.active = s.active && pi.HasNextPage
	s.cursor = pi.EndCursor
}

// fetchActivity pages the combined activity query until every stream has
// either run out of pages or fallen behind since. Recap summary discussions
// published by earlier runs are excluded from the result.
func (c *Client) fetchActivity(ctx context.Context, owner, name string, since time.Time) (*ActivitySet, error) {
	vars := map[string]any{
		"owner":           owner,
		"name":            name,
		"afterPR":         nil,
		"afterIssue":      nil,
		"afterRelease":    nil,
		"afterDiscussion": nil,
	}

	set := &ActivitySet{}
	prs := &streamState{active: true}
	issues := &streamState{active: true}
	releases := &streamState{active: true}
	discussions := &streamState{active: true}
	pageNum := 0

	next := func(vars map[string]any) (bool, error) {
		vars["afterPR"] = prs.cursor
		vars["afterIssue"] = issues.cursor
		vars["afterRelease"] = releases.cursor
		vars["afterDiscussion"] = discussions.cursor
		return prs.active || issues.active || releases.active || discussions.active, nil
	}

	for raw, err := range c.Pages(ctx, activityQuery, vars, next) {
		if err != nil {
			return nil, err
		}
		var page activityPage
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("malformed activity page: %w", err)
		}
		pageNum++
		repo := &page.Repository

		if prs.active {
			kept := 0
			for _, n := range repo.PullRequests.Nodes {
				stale, err := updatedBefore(n.UpdatedAt, since)
				if err != nil {
					return nil, err
				}
				if stale {
					prs.active = false
					break
				}
				set.PullRequests = append(set.PullRequests, n)
				kept++
			}
			prs.advance(repo.PullRequests.PageInfo)
			log.Printf("Page %d: %d pull requests", pageNum, kept)
		}

		if issues.active {
			kept := 0
			for _, n := range repo.Issues.Nodes {
				stale, err := updatedBefore(n.UpdatedAt, since)
				if err != nil {
					return nil, err
				}
				if stale {
					issues.active = false
					break
				}
				set.Issues = append(set.Issues, n)
				kept++
			}
			issues.advance(repo.Issues.PageInfo)
			log.Printf("Page %d: %d issues", pageNum, kept)
		}

		if releases.active {
			kept := 0
			for _, n := range repo.Releases.Nodes {
				stale, err := updatedBefore(n.CreatedAt, since)
				if err != nil {
					return nil, err
				}
				if stale {
					releases.active = false
					break
				}
				set.Releases = append(set.Releases, n)
				kept++
			}
			releases.advance(repo.Releases.PageInfo)
			log.Printf("Page %d: %d releases", pageNum, kept)
		}

		if discussions.active {
			kept := 0
			for _, n := range repo.Discussions.Nodes {
				stale, err := updatedBefore(n.UpdatedAt, since)
				if err != nil {
					return nil, err
				}
				if stale {
					discussions.active = false
					break
				}
				if report.ExtractMetadata(n.Body) != nil {
					continue // a recap posted by an earlier run
				}
				set.Discussions = append(set.Discussions, n)
				kept++
			}
			discussions.advance(repo.Discussions.PageInfo)
			log.Printf("Page %d: %d discussions", pageNum, kept)
		}
	}

	return set, nil
}

func updatedBefore(ts string, since time.Time) (bool, error) {
	t, err := ParseTime(ts)
	if err != nil {
		return false, fmt.Errorf("malformed activity page: %w", err)
	}
	return t.Before(since), nil
}
