// Package recommend orchestrates the recommendation pipeline. It accepts a
// free-text job query, expands it through the enrichment collaborator,
// embeds the result, runs k-NN search over the assessment index, and maps
// hits back to catalog records.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AssesslyAI/assessly-mvp/engine/catalog"
	"github.com/AssesslyAI/assessly-mvp/engine/domain"
	"github.com/AssesslyAI/assessly-mvp/engine/enrich"
	"github.com/AssesslyAI/assessly-mvp/engine/semantic"
)

// Embedder encodes text into a fixed-size vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher abstracts the vector index k-NN lookup.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, topK int) ([]semantic.SearchResult, error)
}

// Options configures the pipeline behaviour.
type Options struct {
	// EnrichFallback falls back to the raw query when enrichment fails.
	// When false, enrichment failures surface to the caller.
	EnrichFallback bool
	EnrichTimeout  time.Duration
	SearchTimeout  time.Duration
}

// DefaultOptions returns sensible defaults. Fallback mirrors the behaviour
// callers of the catalog API have come to rely on.
func DefaultOptions() Options {
	return Options{
		EnrichFallback: true,
		EnrichTimeout:  10 * time.Second,
		SearchTimeout:  5 * time.Second,
	}
}

// Service runs the recommendation pipeline. All fields are read-only after
// construction; a single Service is shared across requests.
type Service struct {
	enricher enrich.Enricher // nil means enrichment is disabled
	embedder Embedder
	search   Searcher
	cat      *catalog.Catalog
	opts     Options
	logger   *slog.Logger
}

// New creates a Service. A nil enricher disables query enrichment and the
// raw query is embedded directly.
func New(enricher enrich.Enricher, embedder Embedder, search Searcher, cat *catalog.Catalog, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		enricher: enricher,
		embedder: embedder,
		search:   search,
		cat:      cat,
		opts:     opts,
		logger:   logger,
	}
}

// Recommend runs the full pipeline for one query. topK must be >= 1; values
// beyond the catalog size are clamped to it.
func (s *Service) Recommend(ctx context.Context, query string, topK int) (*domain.RecommendResponse, error) {
	if topK < 1 {
		return nil, domain.NewValidationError("top_k", fmt.Sprintf("%d", topK), domain.ErrInvalidTopK)
	}
	if s.cat.Size() == 0 {
		return nil, domain.ErrEmptyCatalog
	}
	if topK > s.cat.Size() {
		topK = s.cat.Size()
	}

	s.logger.Info("recommend start", "query_len", len(query), "top_k", topK)

	// 1. Enrich the query.
	enriched, err := s.enrichQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	// 2. Embed the enriched query.
	vector, err := s.embedder.Embed(ctx, catalog.QueryText(enriched))
	if err != nil {
		return nil, fmt.Errorf("recommend: embed query: %w", err)
	}

	// 3. k-NN search, closest first.
	searchCtx, cancel := context.WithTimeout(ctx, s.opts.SearchTimeout)
	defer cancel()

	hits, err := s.search.Search(searchCtx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("recommend: search: %w", err)
	}
	s.logger.Info("recommend search done", "hits", len(hits))

	// 4. Map hits back to catalog records, preserving rank order. Stale
	// index entries that no longer resolve are skipped, not fatal.
	recs := make([]domain.AssessmentRecord, 0, len(hits))
	for _, h := range hits {
		rec, err := s.cat.Lookup(h.RecordKey)
		if err != nil {
			s.logger.Warn("recommend: hit not in catalog, skipping", "record_key", h.RecordKey, "err", err)
			continue
		}
		recs = append(recs, rec)
	}

	return &domain.RecommendResponse{
		OriginalQuery:   query,
		EnrichedQuery:   enriched,
		Recommendations: recs,
	}, nil
}

// enrichQuery applies the enrichment collaborator with the configured
// fallback policy. With enrichment disabled the raw query passes through.
func (s *Service) enrichQuery(ctx context.Context, query string) (string, error) {
	if s.enricher == nil {
		return query, nil
	}

	enrichCtx, cancel := context.WithTimeout(ctx, s.opts.EnrichTimeout)
	defer cancel()

	enriched, err := s.enricher.Enrich(enrichCtx, query)
	if err != nil {
		if !s.opts.EnrichFallback {
			return "", fmt.Errorf("recommend: enrich: %w", err)
		}
		s.logger.Warn("recommend: enrichment failed, using raw query", "err", err)
		return query, nil
	}
	return enriched, nil
}

// CatalogSize exposes the catalog size for request clamping and liveness
// reporting.
func (s *Service) CatalogSize() int { return s.cat.Size() }
