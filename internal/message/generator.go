// Package message produces connection-note text, personalized by an
// OpenAI-compatible chat model when profile context allows it and falling
// back to curated templates when it does not.
package message

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/example/outreachbot/internal/config"
	"github.com/example/outreachbot/internal/logging"
	"github.com/example/outreachbot/internal/models"
	"github.com/example/outreachbot/internal/profile"
	"github.com/go-resty/resty/v2"
)

// Generated carries the note text plus whether the template fallback
// produced it. Fallback is an expected mode, not an error.
type Generated struct {
	Text         string
	UsedFallback bool
}

type Generator interface {
	Generate(ctx context.Context, p *models.Prospect, pc *profile.Context) Generated
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type AIGenerator struct {
	client *resty.Client
	model  string
	temp   float64
	tokens int
	log    *logging.Logger
}

// NewAIGenerator builds a generator against the configured chat endpoint.
// The API key comes from GROQ_API_KEY; without it every call falls back to
// templates.
func NewAIGenerator(cfg *config.Config, log *logging.Logger) *AIGenerator {
	client := resty.New().
		SetBaseURL(cfg.AI.BaseURL).
		SetTimeout(time.Duration(cfg.AI.TimeoutSec) * time.Second).
		SetAuthToken(os.Getenv("GROQ_API_KEY")).
		SetHeader("Content-Type", "application/json")
	return &AIGenerator{
		client: client,
		model:  cfg.AI.Model,
		temp:   cfg.AI.Temperature,
		tokens: cfg.AI.MaxTokens,
		log:    log.With("module", "message"),
	}
}

func (g *AIGenerator) Generate(ctx context.Context, p *models.Prospect, pc *profile.Context) Generated {
	if os.Getenv("GROQ_API_KEY") == "" {
		g.log.Info("no API key configured, using template", "profile", p.ProfileURL)
		return Generated{Text: TemplateFor(p), UsedFallback: true}
	}

	text, err := g.complete(ctx, BuildPrompt(p, pc))
	if err != nil {
		g.log.Warn("generation failed, using template", "profile", p.ProfileURL, "err", err)
		return Generated{Text: TemplateFor(p), UsedFallback: true}
	}
	text = Sanitize(text)
	if err := Validate(text, p); err != nil {
		g.log.Warn("generated message rejected, using template", "profile", p.ProfileURL, "err", err)
		return Generated{Text: TemplateFor(p), UsedFallback: true}
	}
	return Generated{Text: text}
}

func (g *AIGenerator) complete(ctx context.Context, prompt string) (string, error) {
	var out chatResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model: g.model,
			Messages: []chatMessage{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: prompt},
			},
			Temperature: g.temp,
			MaxTokens:   g.tokens,
		}).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("chat completion status %d", resp.StatusCode())
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}
