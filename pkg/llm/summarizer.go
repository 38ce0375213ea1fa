// Package llm drives the language model that writes the recap narrative.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"
)

const appName = "recap"

const instruction = `You write periodic activity recaps for software projects.
Respond with a single plain-text title line followed by the recap body.
Never include tool calls or preambles; the response is published verbatim.`

// Summarizer runs a single-shot agent that turns an activity prompt into a
// recap title and body.
type Summarizer struct {
	runner   *runner.Runner
	sessions session.Service
}

// NewSummarizer builds the recap-writer agent around the given model.
func NewSummarizer(m model.LLM) (*Summarizer, error) {
	recapAgent, err := llmagent.New(llmagent.Config{
		Name:        "recap-writer",
		Model:       m,
		Description: "Writes periodic repository activity recaps",
		Instruction: instruction,
	})
	if err != nil {
		return nil, fmt.Errorf("create recap agent: %w", err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        appName,
		Agent:          recapAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("create runner: %w", err)
	}

	return &Summarizer{runner: r, sessions: sessionService}, nil
}

// Summarize sends the prompt to the agent and splits the response into the
// title line and the body.
func (s *Summarizer) Summarize(ctx context.Context, prompt string) (title, body string, err error) {
	sess, err := s.sessions.Create(ctx, &session.CreateRequest{
		AppName:   appName,
		UserID:    appName,
		SessionID: fmt.Sprintf("run-%d", time.Now().UnixNano()),
	})
	if err != nil {
		return "", "", fmt.Errorf("create session: %w", err)
	}

	msg := &genai.Content{
		Role: "user",
		Parts: []*genai.Part{
			{Text: prompt},
		},
	}

	var out strings.Builder
	for event, err := range s.runner.Run(ctx, appName, sess.Session.ID(), msg, agent.RunConfig{}) {
		if err != nil {
			return "", "", fmt.Errorf("generate summary: %w", err)
		}
		if event != nil && event.Content != nil {
			for _, part := range event.Content.Parts {
				if part.Text != "" {
					out.WriteString(part.Text)
				}
			}
		}
	}

	return SplitTitle(out.String())
}

// SplitTitle separates a model response into its first line, used as the
// discussion title, and the remaining body.
func SplitTitle(text string) (string, string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", "", errors.New("empty model response")
	}
	title, rest, _ := strings.Cut(text, "\n")
	title = strings.TrimSpace(strings.TrimLeft(title, "# "))
	body := strings.TrimSpace(rest)
	if body == "" {
		return "", "", fmt.Errorf("model response has no body after title %q", title)
	}
	return title, body, nil
}
