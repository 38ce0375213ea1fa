// Package publish posts finished recaps as forge discussions.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/recapbot/recap/pkg/forge"
)

// Publisher creates recap discussions in a repository's discussion category.
type Publisher struct {
	Repo   *forge.Repo
	DryRun bool
}

// Publish creates a discussion with the given title and body under category,
// creating the category first when it does not exist. In dry-run mode
// nothing is posted and the returned URL is empty.
func (p *Publisher) Publish(ctx context.Context, category, title, body string) (string, error) {
	if category == "" {
		return "", errors.New("publish: category is required")
	}
	if p.DryRun {
		log.Printf("Dry run: would create discussion %q in category %q", title, category)
		return "", nil
	}

	categoryID, err := p.Repo.EnsureCategory(ctx, category)
	if err != nil {
		return "", fmt.Errorf("publish: %w", err)
	}
	url, err := p.Repo.CreateDiscussion(ctx, categoryID, title, body)
	if err != nil {
		return "", fmt.Errorf("publish: %w", err)
	}
	log.Printf("Discussion created: %s", url)
	return url, nil
}
