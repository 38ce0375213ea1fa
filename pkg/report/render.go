package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/recapbot/recap/pkg/types"
)

var funcs = template.FuncMap{
	"date": func(t time.Time) string { return t.Format(dateLayout) },
	"trim": strings.TrimSpace,
}

const activityTemplate = `# {{.ProjectName}} activity {{date .Digest.Window.Start}} – {{date .Digest.Window.End}}
{{- with .Digest.PullRequests}}

## Pull requests
{{- range .}}

### {{.Title}} (#{{.Number}}, {{.State}}{{with .Author}}, by @{{.}}{{end}})
{{- with trim .Body}}
{{.}}
{{- end}}
{{- range .Events}}
- {{date .At}} {{.Type}}{{with .Author}} by {{.}}{{end}}{{with trim .Message}}: {{.}}{{end}}
{{- end}}
{{- end}}
{{- end}}
{{- with .Digest.Issues}}

## Issues
{{- range .}}

### {{.Title}} (#{{.Number}}, {{.State}}{{with .Author}}, by @{{.}}{{end}})
{{- with trim .Body}}
{{.}}
{{- end}}
{{- range .Events}}
- {{date .At}} {{.Type}}{{with .Author}} by {{.}}{{end}}{{with trim .Message}}: {{.}}{{end}}
{{- end}}
{{- end}}
{{- end}}
{{- with .Digest.Releases}}

## Releases
{{- range .}}

### {{.Title}} ({{.TagName}}, {{date .CreatedAt}})
{{- with trim .Body}}
{{.}}
{{- end}}
{{- end}}
{{- end}}
{{- with .Digest.Discussions}}

## Discussions
{{- range .}}

### {{.Title}} (#{{.Number}}{{with .Category}}, {{.}}{{end}}{{with .Author}}, by @{{.}}{{end}})
{{- with trim .Body}}
{{.}}
{{- end}}
{{- range .Events}}
- {{date .At}} {{.Type}}{{with .Author}} by {{.}}{{end}}{{with trim .Message}}: {{.}}{{end}}
{{- end}}
{{- end}}
{{- end}}
`

const promptTemplate = `You are an AI assistant specialized in summarizing the activity of a software
project. Your task is to write a periodic summary of recent activity in
{{.ProjectName}} covering {{date .Window.Start}} to {{date .Window.End}}.
Follow these guidelines:

1. Provide an overview of key changes, features and bug fixes.
2. Highlight important discussions or decisions made in comments and reviews.
3. Include item numbers in parentheses (e.g. (#123)) when mentioning specific
   pull requests, issues or discussions.
4. Group related changes together when possible.
5. Mention significant merges, closed items and releases.
6. Note ongoing challenges faced by the project.
7. Keep the tone professional but conversational, suitable for a community of
   friendly open source contributors.
8. Aim for 200-300 words, organized into 2-3 paragraphs, using Markdown where
   it helps.

Start your response with a single plain-text title line for the summary, then
the summary itself.
{{- if .PreviousSummaries}}

For continuity, these are the most recent previous summaries, newest first:
{{- range .PreviousSummaries}}

---

{{.}}
{{- end}}

---
{{- end}}

Now, based on the following activity report, write the summary:

{{.ActivityReport}}
`

const summaryBodyTemplate = `{{.Summary}}

---

<details><summary></summary>

` + "```json\n{{.MetadataJSON}}\n```" + `
</details>
`

var (
	activityTmpl    = template.Must(template.New("activity").Funcs(funcs).Parse(activityTemplate))
	promptTmpl      = template.Must(template.New("prompt").Funcs(funcs).Parse(promptTemplate))
	summaryBodyTmpl = template.Must(template.New("summary").Parse(summaryBodyTemplate))
)

// RenderActivityReport renders the digest into the Markdown activity report
// that both humans and the prompt consume. Output is deterministic for a
// given digest.
func RenderActivityReport(projectName string, d types.Digest) (string, error) {
	var b strings.Builder
	err := activityTmpl.Execute(&b, struct {
		ProjectName string
		Digest      types.Digest
	}{projectName, d})
	if err != nil {
		return "", fmt.Errorf("render activity report: %w", err)
	}
	return b.String(), nil
}

// RenderPrompt builds the LLM prompt from the activity report, embedding the
// narrative text of previous summaries verbatim for continuity.
func RenderPrompt(projectName, activityReport string, w types.Window, previous []types.PreviousSummary) (string, error) {
	texts := make([]string, 0, len(previous))
	for _, p := range previous {
		texts = append(texts, p.Title+"\n\n"+StripAppendix(p.Body))
	}
	var b strings.Builder
	err := promptTmpl.Execute(&b, struct {
		ProjectName       string
		Window            types.Window
		PreviousSummaries []string
		ActivityReport    string
	}{projectName, w, texts, activityReport})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return b.String(), nil
}

// RenderSummaryBody appends the metadata appendix to the generated summary,
// producing the final discussion body.
func RenderSummaryBody(summary string, meta Metadata) (string, error) {
	metaJSON, err := json.MarshalIndent(meta, "", "    ")
	if err != nil {
		return "", fmt.Errorf("render summary body: %w", err)
	}
	var b strings.Builder
	err = summaryBodyTmpl.Execute(&b, struct {
		Summary      string
		MetadataJSON string
	}{strings.TrimSpace(summary), string(metaJSON)})
	if err != nil {
		return "", fmt.Errorf("render summary body: %w", err)
	}
	return b.String(), nil
}
