package forge

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"
)

func summaryBody(endDate string) string {
	return "Things happened.\n\n---\n\n<details>\n<summary>Metadata</summary>\n\n" +
		"```json\n{\n    \"start_date\": \"2024-01-01\",\n    \"end_date\": \"" + endDate + "\",\n" +
		"    \"powered_by\": \"https://github.com/recapbot/recap\",\n    \"llm\": \"test\"\n}\n```\n</details>"
}

// dispatchDoer routes requests by the query text they carry.
func dispatchDoer(t *testing.T, routes map[string]string) Doer {
	t.Helper()
	return doerFunc(func(req *http.Request) (*http.Response, error) {
		var body gqlRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return nil, err
		}
		for needle, resp := range routes {
			if strings.Contains(body.Query, needle) {
				return jsonResponse(200, resp), nil
			}
		}
		t.Errorf("unexpected query: %s", body.Query)
		return jsonResponse(200, `{"data":{}}`), nil
	})
}

func TestPreviousSummaries(t *testing.T) {
	discussions := []map[string]any{
		{"title": "July recap", "body": summaryBody("2024-08-01"), "createdAt": "2024-08-01T09:00:00Z"},
		{"title": "Not a recap", "body": "just a chat", "createdAt": "2024-08-02T09:00:00Z"},
		{"title": "Broken recap", "body": summaryBody("sometime"), "createdAt": "2024-08-03T09:00:00Z"},
		{"title": "August recap", "body": summaryBody("2024-09-01"), "createdAt": "2024-09-01T09:00:00Z"},
	}
	summariesPage, err := json.Marshal(map[string]any{
		"data": map[string]any{
			"repository": map[string]any{
				"discussions": map[string]any{"nodes": discussions},
			},
		},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	c := newTestClient(t, dispatchDoer(t, map[string]string{
		"discussionCategories": `{"data":{"repository":{"discussionCategories":{"nodes":[{"id":"CAT1","name":"recaps"}]}}}}`,
		"categoryId":           string(summariesPage),
	}))

	repo := NewRepo(c, "octo", "widgets", "Recaps")
	got, err := repo.PreviousSummaries(context.Background())
	if err != nil {
		t.Fatalf("previous summaries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d summaries, want 2: %+v", len(got), got)
	}
	if got[0].Title != "August recap" || got[1].Title != "July recap" {
		t.Errorf("not newest first: %q, %q", got[0].Title, got[1].Title)
	}
	wantEnd := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	if !got[0].PeriodEnd.Equal(wantEnd) {
		t.Errorf("period end = %v, want %v", got[0].PeriodEnd, wantEnd)
	}
}

func TestPreviousSummaries_MissingCategory(t *testing.T) {
	c := newTestClient(t, dispatchDoer(t, map[string]string{
		"discussionCategories": `{"data":{"repository":{"discussionCategories":{"nodes":[]}}}}`,
	}))

	repo := NewRepo(c, "octo", "widgets", "Recaps")
	got, err := repo.PreviousSummaries(context.Background())
	if err != nil {
		t.Fatalf("previous summaries: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil for missing category", got)
	}
}

func TestPreviousSummaries_NoCategoryConfigured(t *testing.T) {
	c := newTestClient(t, doerFunc(func(req *http.Request) (*http.Response, error) {
		t.Error("unexpected network request")
		return jsonResponse(200, `{"data":{}}`), nil
	}))

	repo := NewRepo(c, "octo", "widgets", "")
	got, err := repo.PreviousSummaries(context.Background())
	if err != nil || got != nil {
		t.Errorf("got %+v, %v; want nil, nil", got, err)
	}
}

func TestRepoMetadata(t *testing.T) {
	c := newTestClient(t, dispatchDoer(t, map[string]string{
		"createdAt": `{"data":{"repository":{"id":"R_abc","createdAt":"2024-01-01T00:00:00Z"}}}`,
	}))

	repo := NewRepo(c, "octo", "widgets", "")
	createdAt, err := repo.CreatedAt(context.Background())
	if err != nil {
		t.Fatalf("created at: %v", err)
	}
	if !createdAt.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("created at = %v", createdAt)
	}
	id, err := repo.ID(context.Background())
	if err != nil {
		t.Fatalf("id: %v", err)
	}
	if id != "R_abc" {
		t.Errorf("id = %q", id)
	}
}

func TestEnsureCategory_CreatesWhenAbsent(t *testing.T) {
	c := newTestClient(t, dispatchDoer(t, map[string]string{
		"discussionCategories":     `{"data":{"repository":{"discussionCategories":{"nodes":[]}}}}`,
		"createdAt":                `{"data":{"repository":{"id":"R_abc","createdAt":"2024-01-01T00:00:00Z"}}}`,
		"createDiscussionCategory": `{"data":{"createDiscussionCategory":{"category":{"id":"CAT_new"}}}}`,
	}))

	repo := NewRepo(c, "octo", "widgets", "Recaps")
	id, err := repo.EnsureCategory(context.Background(), "Recaps")
	if err != nil {
		t.Fatalf("ensure category: %v", err)
	}
	if id != "CAT_new" {
		t.Errorf("id = %q, want CAT_new", id)
	}
}

func TestCreateDiscussion(t *testing.T) {
	c := newTestClient(t, dispatchDoer(t, map[string]string{
		"createdAt":        `{"data":{"repository":{"id":"R_abc","createdAt":"2024-01-01T00:00:00Z"}}}`,
		"createDiscussion": `{"data":{"createDiscussion":{"discussion":{"id":"D_1","url":"https://example.test/d/1"}}}}`,
	}))

	repo := NewRepo(c, "octo", "widgets", "Recaps")
	url, err := repo.CreateDiscussion(context.Background(), "CAT1", "August recap", "body")
	if err != nil {
		t.Fatalf("create discussion: %v", err)
	}
	if url != "https://example.test/d/1" {
		t.Errorf("url = %q", url)
	}
}
