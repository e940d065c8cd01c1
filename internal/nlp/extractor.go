// Package nlp turns free-text chat messages into structured intents using
// Gemini. The extractor sits strictly upstream of the transaction engine: the
// engine never calls back into it, and extraction failures degrade to an
// "unknown" intent instead of propagating.
package nlp

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/aruniyer/ledger-bot/internal/domain"
)

// Extractor produces intents from raw message text.
//
// Parse never returns a zero intent: on any failure it returns
// domain.Unknown() along with the error, so callers can log the cause and
// still reply with a "couldn't understand" message.
type Extractor interface {
	Parse(ctx context.Context, text string) (domain.Intent, error)

	// ParseTimeRange extracts an explicit date range from a report
	// request. Nil bounds mean "not stated".
	ParseTimeRange(ctx context.Context, text string) (start, end *time.Time, err error)
}

// Config carries everything the Gemini extractor needs. It is passed to the
// constructor explicitly; nothing here is read from process-global state.
type Config struct {
	APIKey string
	Model  string
	Loc    *time.Location
	Log    zerolog.Logger
}

// Gemini is the production Extractor backed by the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	loc    *time.Location
	log    zerolog.Logger
	clock  func() time.Time
}

// NewGemini creates the Gemini-backed extractor.
func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("nlp.NewGemini: create genai client: %w", err)
	}
	return &Gemini{
		client: client,
		model:  cfg.Model,
		loc:    cfg.Loc,
		log:    cfg.Log,
		clock:  time.Now,
	}, nil
}

// Parse implements Extractor.
func (g *Gemini) Parse(ctx context.Context, text string) (domain.Intent, error) {
	raw, err := g.generate(ctx, intentPrompt(text))
	if err != nil {
		return domain.Unknown(), fmt.Errorf("nlp.Parse: %w", err)
	}

	intent, err := decodeIntent(cleanModelJSON(raw), g.loc)
	if err != nil {
		g.log.Warn().Err(err).Str("raw", raw).Msg("extractor returned malformed intent")
		return domain.Unknown(), fmt.Errorf("nlp.Parse: decode: %w", err)
	}
	return intent, nil
}

// ParseTimeRange implements Extractor.
func (g *Gemini) ParseTimeRange(ctx context.Context, text string) (*time.Time, *time.Time, error) {
	today := g.clock().In(g.loc).Format("2006-01-02")
	raw, err := g.generate(ctx, timeRangePrompt(text, today))
	if err != nil {
		return nil, nil, fmt.Errorf("nlp.ParseTimeRange: %w", err)
	}

	start, end, err := decodeTimeRange(cleanModelJSON(raw), g.loc)
	if err != nil {
		return nil, nil, fmt.Errorf("nlp.ParseTimeRange: decode: %w", err)
	}
	return start, end, nil
}

func (g *Gemini) generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	raw := resp.Text()
	if raw == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return raw, nil
}
