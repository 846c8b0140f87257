package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	_ "embed"
)

//go:embed prompt.md
var promptTemplate string

// contentGenerator abstracts the Gemini call so the enricher is testable.
type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Enricher turns a raw query into an enriched one. Implementations fail
// with an error on upstream trouble; the caller owns the fallback policy.
type Enricher interface {
	Enrich(ctx context.Context, query string) (string, error)
}

// GeminiEnricher prompts Gemini to expand the query. One outbound call per
// request, no retries.
type GeminiEnricher struct {
	generator contentGenerator
	logger    *slog.Logger
}

// NewEnricher creates a GeminiEnricher on top of a content generator.
func NewEnricher(generator contentGenerator, logger *slog.Logger) *GeminiEnricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiEnricher{generator: generator, logger: logger}
}

// Enrich implements Enricher.
func (e *GeminiEnricher) Enrich(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", errors.New("enrich: query must not be empty")
	}

	prompt := buildPrompt(query)
	e.logger.Debug("enrichment request", "query_len", utf8.RuneCountInString(query))

	raw, err := e.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("enrich: %w", err)
	}

	enriched := cleanResponse(raw)
	if enriched == "" {
		return "", errors.New("enrich: model returned no usable text")
	}

	e.logger.Debug("enrichment response", "enriched_len", utf8.RuneCountInString(enriched))
	return enriched, nil
}

func buildPrompt(query string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Expand this job query with relevant keywords and skills.\n\nUser Query: {{QUERY}}\nReturn only the enriched query."
	}
	return strings.ReplaceAll(template, "{{QUERY}}", query)
}

// cleanResponse strips markdown fences and surrounding quotes that models
// like to wrap short answers in.
func cleanResponse(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```text")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	}
	s = strings.Trim(s, "`")
	s = strings.Trim(s, "\"")
	return strings.TrimSpace(s)
}
