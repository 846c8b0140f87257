package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxQueryLength bounds the free-text query so a single request cannot blow
// up the enrichment prompt or the embedding call.
const maxQueryLength = 4096

// ValidateRequest checks a RecommendRequest before any processing happens.
// Validation failures map to a 4xx response in the HTTP layer.
func ValidateRequest(r RecommendRequest) error {
	text := strings.TrimSpace(r.Query)
	if text == "" {
		return NewValidationError("query", text, ErrQueryEmpty)
	}
	if utf8.RuneCountInString(text) > maxQueryLength {
		return NewValidationError("query", text[:32]+"...", ErrQueryTooLong)
	}
	if r.TopK != nil && *r.TopK < 1 {
		return NewValidationError("top_k", fmt.Sprintf("%d", *r.TopK), ErrInvalidTopK)
	}
	return nil
}
