// Command recap summarizes recent repository activity and posts the summary
// as a discussion. It is designed to run on a schedule: each run picks up
// where the last published summary ended.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"

	"github.com/recapbot/recap/pkg/engine"
	"github.com/recapbot/recap/pkg/forge"
	"github.com/recapbot/recap/pkg/llm"
	"github.com/recapbot/recap/pkg/publish"
	"github.com/recapbot/recap/pkg/report"
	"github.com/recapbot/recap/pkg/types"
)

func main() {
	_ = godotenv.Load()

	modelDefault := envOr("GOOGLE_MODEL", "gemini-3-flash-preview")

	start := flag.String("start", "", "Window start override (YYYY-MM-DD); default continues after the last summary")
	modelName := flag.String("model", modelDefault, "Gemini model for the recap")
	dryRun := flag.Bool("dry-run", false, "Render and summarize without posting the discussion")
	output := flag.String("output", "", "Write the AI summary to this file (- for stdout)")
	outputContent := flag.String("output-content", "", "Write the rendered activity report to this file (- for stdout)")
	flag.Parse()

	token := os.Getenv("INPUT_GITHUB_TOKEN")
	if token == "" {
		log.Fatal("INPUT_GITHUB_TOKEN not set")
	}
	fullName := os.Getenv("INPUT_REPO_NAME")
	owner, name, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" {
		log.Fatalf("INPUT_REPO_NAME must be owner/name, got %q", fullName)
	}
	category := os.Getenv("INPUT_CATEGORY")

	var override *time.Time
	if *start != "" {
		t, err := time.Parse("2006-01-02", *start)
		if err != nil {
			log.Fatalf("Bad -start date %q: %v", *start, err)
		}
		t = t.UTC()
		override = &t
	}

	ctx := context.Background()

	client, err := forge.NewClient(forge.Config{Token: token})
	if err != nil {
		log.Fatalf("Forge client: %v", err)
	}
	repo := forge.NewRepo(client, owner, name, category)

	eng := &engine.Engine{Activity: repo, Summaries: repo, Meta: repo}
	res, err := eng.Run(ctx, override)
	if err != nil {
		log.Fatalf("Recap run failed: %v", err)
	}
	if res.Outcome == types.OutcomeSkipped {
		log.Printf("No relevant activity in [%s, %s); nothing to summarize.",
			res.Window.Start.Format("2006-01-02"), res.Window.End.Format("2006-01-02"))
		return
	}

	activityReport, err := report.RenderActivityReport(name, res.Digest)
	if err != nil {
		log.Fatalf("Render report failed: %v", err)
	}
	if *outputContent != "" {
		writeOutput(activityReport, *outputContent)
	}

	prompt, err := report.RenderPrompt(name, activityReport, res.Window, res.Previous)
	if err != nil {
		log.Fatalf("Render prompt failed: %v", err)
	}

	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		log.Fatal("GOOGLE_API_KEY not set")
	}
	m, err := gemini.NewModel(ctx, *modelName, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Fatalf("Create model %s: %v", *modelName, err)
	}
	summarizer, err := llm.NewSummarizer(m)
	if err != nil {
		log.Fatalf("Create summarizer: %v", err)
	}
	title, summary, err := summarizer.Summarize(ctx, prompt)
	if err != nil {
		log.Fatalf("Summarize failed: %v", err)
	}

	body, err := report.RenderSummaryBody(summary, report.Metadata{
		StartDate: res.Window.Start.Format("2006-01-02"),
		EndDate:   res.Window.End.Format("2006-01-02"),
		PoweredBy: report.PoweredBy,
		Model:     *modelName,
	})
	if err != nil {
		log.Fatalf("Render summary failed: %v", err)
	}
	if *output != "" {
		writeOutput(body, *output)
	}

	if category == "" {
		log.Printf("No INPUT_CATEGORY configured; discussion not created.")
		return
	}
	pub := &publish.Publisher{Repo: repo, DryRun: *dryRun}
	if _, err := pub.Publish(ctx, category, title, body); err != nil {
		log.Fatalf("Publish failed: %v", err)
	}
}

func writeOutput(content, path string) {
	if path == "-" {
		fmt.Println(content)
		return
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		log.Fatalf("Write %s: %v", path, err)
	}
	log.Printf("Wrote %s", path)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
