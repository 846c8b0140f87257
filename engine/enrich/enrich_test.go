package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeGenerator struct {
	gotPrompt string
	response  string
	err       error
}

func (f *fakeGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	f.gotPrompt = prompt
	return f.response, f.err
}

func TestEnrich_BuildsPromptWithQuery(t *testing.T) {
	gen := &fakeGenerator{response: "java developer collaboration teamwork entry-level"}
	e := NewEnricher(gen, nil)

	enriched, err := e.Enrich(context.Background(), "java developer who collaborates well")
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if !strings.Contains(gen.gotPrompt, "java developer who collaborates well") {
		t.Fatalf("prompt should contain the query:\n%s", gen.gotPrompt)
	}
	if strings.Contains(gen.gotPrompt, "{{QUERY}}") {
		t.Fatal("placeholder not substituted")
	}
	if enriched != "java developer collaboration teamwork entry-level" {
		t.Fatalf("unexpected enriched query: %q", enriched)
	}
}

func TestEnrich_GeneratorError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("deadline exceeded")}
	e := NewEnricher(gen, nil)

	if _, err := e.Enrich(context.Background(), "sales lead"); err == nil {
		t.Fatal("expected error to surface")
	}
}

func TestEnrich_EmptyQuery(t *testing.T) {
	e := NewEnricher(&fakeGenerator{}, nil)
	if _, err := e.Enrich(context.Background(), "  "); err == nil {
		t.Fatal("expected error")
	}
}

func TestEnrich_EmptyModelOutput(t *testing.T) {
	e := NewEnricher(&fakeGenerator{response: "``````"}, nil)
	if _, err := e.Enrich(context.Background(), "analyst"); err == nil {
		t.Fatal("expected error for unusable output")
	}
}

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain text", "plain text"},
		{"```text\nenriched query\n```", "enriched query"},
		{"```\nenriched query\n```", "enriched query"},
		{"\"quoted answer\"", "quoted answer"},
		{"  padded  ", "padded"},
	}
	for _, tt := range tests {
		if got := cleanResponse(tt.in); got != tt.want {
			t.Errorf("cleanResponse(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
