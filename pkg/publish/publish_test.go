package publish

import (
	"context"
	"testing"
)

func TestPublish_RequiresCategory(t *testing.T) {
	p := &Publisher{}
	if _, err := p.Publish(context.Background(), "", "title", "body"); err == nil {
		t.Fatal("expected error for empty category")
	}
}

func TestPublish_DryRun(t *testing.T) {
	// Repo is nil: a dry run must return before touching the forge.
	p := &Publisher{DryRun: true}
	url, err := p.Publish(context.Background(), "Recaps", "title", "body")
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if url != "" {
		t.Errorf("dry run returned url %q", url)
	}
}
