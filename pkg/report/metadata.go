// Package report renders digests into activity reports, LLM prompts and
// publishable summary bodies, and owns the metadata appendix format that
// links consecutive recaps together.
package report

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// PoweredBy marks summaries produced by this engine. Its presence in the
// metadata block is how previous recaps are recognized among ordinary
// discussions.
const PoweredBy = "https://github.com/recapbot/recap"

// Metadata is the machine-readable appendix embedded in every published
// summary. EndDate is the exclusive end of the covered window; the next
// run's window starts exactly there.
type Metadata struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	PoweredBy string `json:"powered_by"`
	Model     string `json:"llm,omitempty"`
}

const dateLayout = "2006-01-02"

// PeriodEnd parses the exclusive end of the covered window.
func (m Metadata) PeriodEnd() (time.Time, error) {
	t, err := time.Parse(dateLayout, m.EndDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad end date %q: %w", m.EndDate, err)
	}
	return t.UTC(), nil
}

var (
	metadataRe = regexp.MustCompile("(?s)```json\n(.*?)\n```")
	appendixRe = regexp.MustCompile(`(?s)\n---\n\n<details>.*$`)
)

// ExtractMetadata pulls the metadata block out of a discussion body. It
// returns nil when the body carries none, or when the block was not written
// by this engine.
func ExtractMetadata(body string) *Metadata {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	m := metadataRe.FindStringSubmatch(body)
	if m == nil {
		return nil
	}
	var meta Metadata
	if err := json.Unmarshal([]byte(m[1]), &meta); err != nil {
		return nil
	}
	if !strings.Contains(meta.PoweredBy, "recapbot/recap") || meta.EndDate == "" {
		return nil
	}
	return &meta
}

// StripAppendix removes the trailing metadata appendix from a summary body,
// leaving only the narrative text for embedding into prompts.
func StripAppendix(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	return strings.TrimSpace(appendixRe.ReplaceAllString(body, ""))
}
