package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/recapbot/recap/pkg/report"
	"github.com/recapbot/recap/pkg/types"
)

// summaryLookback is how many recent discussions are inspected when looking
// for previously published recaps.
const summaryLookback = 10

// Repo binds a client to one repository and implements the sources the
// engine consumes: activity, previous summaries and repository metadata.
type Repo struct {
	client   *Client
	owner    string
	name     string
	category string
}

// NewRepo creates a repository handle. category names the discussion
// category previous recaps were published under; it may be empty.
func NewRepo(client *Client, owner, name, category string) *Repo {
	return &Repo{client: client, owner: owner, name: name, category: category}
}

// FullName returns "owner/name".
func (r *Repo) FullName() string { return r.owner + "/" + r.name }

// FetchActivity retrieves all raw activity reaching back to since.
func (r *Repo) FetchActivity(ctx context.Context, since time.Time) (*ActivitySet, error) {
	return r.client.fetchActivity(ctx, r.owner, r.name, since)
}

// CreatedAt returns the repository's creation timestamp.
func (r *Repo) CreatedAt(ctx context.Context) (time.Time, error) {
	id, createdAt, err := r.metadata(ctx)
	_ = id
	return createdAt, err
}

// ID returns the repository's node id, needed by mutations.
func (r *Repo) ID(ctx context.Context) (string, error) {
	id, _, err := r.metadata(ctx)
	return id, err
}

func (r *Repo) metadata(ctx context.Context) (string, time.Time, error) {
	raw, err := r.client.Execute(ctx, repoQuery, map[string]any{
		"owner": r.owner,
		"name":  r.name,
	})
	if err != nil {
		return "", time.Time{}, err
	}
	var payload struct {
		Repository struct {
			ID        string `json:"id"`
			CreatedAt string `json:"createdAt"`
		} `json:"repository"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", time.Time{}, fmt.Errorf("malformed repository metadata: %w", err)
	}
	createdAt, err := ParseTime(payload.Repository.CreatedAt)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("repository metadata: %w", err)
	}
	return payload.Repository.ID, createdAt, nil
}

// CategoryID resolves a discussion category name, case-insensitively.
// It returns "" when the category does not exist.
func (r *Repo) CategoryID(ctx context.Context, name string) (string, error) {
	raw, err := r.client.Execute(ctx, categoriesQuery, map[string]any{
		"owner": r.owner,
		"name":  r.name,
	})
	if err != nil {
		return "", err
	}
	var payload struct {
		Repository struct {
			DiscussionCategories struct {
				Nodes []struct {
					ID   string `json:"id"`
					Name string `json:"name"`
				} `json:"nodes"`
			} `json:"discussionCategories"`
		} `json:"repository"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("malformed category list: %w", err)
	}
	for _, cat := range payload.Repository.DiscussionCategories.Nodes {
		if strings.EqualFold(cat.Name, name) {
			return cat.ID, nil
		}
	}
	return "", nil
}

// PreviousSummaries returns recaps published by earlier runs in the bound
// category, newest period first. A missing category or an absent history
// yields an empty slice; a summary whose recorded period end cannot be
// parsed is dropped so the resolver falls back to the repository creation
// date instead of failing the run.
func (r *Repo) PreviousSummaries(ctx context.Context) ([]types.PreviousSummary, error) {
	if r.category == "" {
		return nil, nil
	}
	categoryID, err := r.CategoryID(ctx, r.category)
	if err != nil {
		return nil, err
	}
	if categoryID == "" {
		log.Printf("Discussion category %q not found; no previous summaries", r.category)
		return nil, nil
	}

	raw, err := r.client.Execute(ctx, summariesQuery, map[string]any{
		"owner":      r.owner,
		"name":       r.name,
		"categoryId": categoryID,
		"count":      summaryLookback,
	})
	if err != nil {
		return nil, err
	}
	var payload struct {
		Repository struct {
			Discussions struct {
				Nodes []struct {
					Title     string `json:"title"`
					Body      string `json:"body"`
					CreatedAt string `json:"createdAt"`
				} `json:"nodes"`
			} `json:"discussions"`
		} `json:"repository"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("malformed summary list: %w", err)
	}

	var summaries []types.PreviousSummary
	for _, d := range payload.Repository.Discussions.Nodes {
		meta := report.ExtractMetadata(d.Body)
		if meta == nil {
			continue
		}
		periodEnd, err := meta.PeriodEnd()
		if err != nil {
			log.Printf("Ignoring summary %q with malformed period end: %v", d.Title, err)
			continue
		}
		publishedAt, err := ParseTime(d.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("summary list: %w", err)
		}
		summaries = append(summaries, types.PreviousSummary{
			Title:       d.Title,
			Body:        strings.ReplaceAll(d.Body, "\r\n", "\n"),
			PublishedAt: publishedAt,
			PeriodEnd:   periodEnd,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].PeriodEnd.After(summaries[j].PeriodEnd)
	})
	return summaries, nil
}

// EnsureCategory returns the id of the named discussion category, creating
// it when absent.
func (r *Repo) EnsureCategory(ctx context.Context, name string) (string, error) {
	id, err := r.CategoryID(ctx, name)
	if err != nil || id != "" {
		return id, err
	}
	repoID, err := r.ID(ctx)
	if err != nil {
		return "", err
	}
	raw, err := r.client.Mutate(ctx, createCategoryMutation, map[string]any{
		"input": map[string]any{
			"repositoryId": repoID,
			"name":         name,
			"description":  "Category for " + name,
			"emoji":        ":speech_balloon:",
		},
	})
	if err != nil {
		return "", fmt.Errorf("create category %q: %w", name, err)
	}
	var payload struct {
		CreateDiscussionCategory struct {
			Category struct {
				ID string `json:"id"`
			} `json:"category"`
		} `json:"createDiscussionCategory"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("create category %q: malformed response: %w", name, err)
	}
	return payload.CreateDiscussionCategory.Category.ID, nil
}

// CreateDiscussion posts a new discussion and returns its URL.
func (r *Repo) CreateDiscussion(ctx context.Context, categoryID, title, body string) (string, error) {
	repoID, err := r.ID(ctx)
	if err != nil {
		return "", err
	}
	raw, err := r.client.Mutate(ctx, createDiscussionMutation, map[string]any{
		"input": map[string]any{
			"repositoryId": repoID,
			"categoryId":   categoryID,
			"title":        title,
			"body":         body,
		},
	})
	if err != nil {
		return "", fmt.Errorf("create discussion: %w", err)
	}
	var payload struct {
		CreateDiscussion struct {
			Discussion struct {
				URL string `json:"url"`
			} `json:"discussion"`
		} `json:"createDiscussion"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("create discussion: malformed response: %w", err)
	}
	return payload.CreateDiscussion.Discussion.URL, nil
}
