// Package main implements the Assessly recommender API server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/AssesslyAI/assessly-mvp/engine/catalog"
	"github.com/AssesslyAI/assessly-mvp/engine/domain"
	"github.com/AssesslyAI/assessly-mvp/engine/enrich"
	"github.com/AssesslyAI/assessly-mvp/engine/ingest"
	"github.com/AssesslyAI/assessly-mvp/engine/recommend"
	"github.com/AssesslyAI/assessly-mvp/engine/semantic"
	"github.com/AssesslyAI/assessly-mvp/pkg/metrics"
	"github.com/AssesslyAI/assessly-mvp/pkg/mid"
	"github.com/AssesslyAI/assessly-mvp/pkg/ollama"
	"github.com/AssesslyAI/assessly-mvp/pkg/resilience"
)

// embedDims is the vector size of the nomic-embed-text model.
const embedDims = 768

// Config holds all environment-based configuration.
type Config struct {
	Port           string
	GeminiAPIKey   string
	GeminiModel    string
	OllamaURL      string
	EmbedModel     string
	QdrantURL      string
	Collection     string
	CatalogPath    string
	CORSOrigin     string
	EnrichFallback bool
	MetricsPort    int
}

func loadConfig() Config {
	metricsPort, _ := strconv.Atoi(envOr("METRICS_PORT", "9090"))
	return Config{
		Port:           envOr("PORT", "8080"),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    envOr("GEMINI_MODEL", "gemini-2.5-flash"),
		OllamaURL:      envOr("OLLAMA_URL", "http://localhost:11434"),
		EmbedModel:     envOr("EMBED_MODEL", "nomic-embed-text"),
		QdrantURL:      envOr("QDRANT_URL", "localhost:6334"),
		Collection:     envOr("QDRANT_COLLECTION", "assessments"),
		CatalogPath:    envOr("CATALOG_PATH", "data/assessments.json"),
		CORSOrigin:     envOr("CORS_ORIGIN", "*"),
		EnrichFallback: envOr("ENRICH_FALLBACK", "true") != "false",
		MetricsPort:    metricsPort,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Load the assessment catalog ---
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	logger.Info("catalog loaded", "path", cfg.CatalogPath, "records", cat.Size())

	// --- Connect to Qdrant ---
	vectorStore, err := semantic.New(cfg.QdrantURL, cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vectorStore.Close()

	if err := vectorStore.EnsureCollection(ctx, embedDims); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	embedder := ollama.NewClient(cfg.OllamaURL, cfg.EmbedModel)

	// --- Bootstrap the vector index when it lags the catalog ---
	if err := bootstrapIndex(ctx, vectorStore, embedder, cat, logger); err != nil {
		return fmt.Errorf("bootstrap index: %w", err)
	}

	// --- Gemini enrichment (optional) ---
	var enricher enrich.Enricher
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY not set, query enrichment disabled")
	} else {
		gen, err := enrich.NewGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return fmt.Errorf("gemini client: %w", err)
		}
		breaker := resilience.NewBreaker(resilience.DefaultBreakerOpts)
		enricher = enrich.NewGuarded(enrich.NewEnricher(gen, logger), breaker)
		logger.Info("query enrichment enabled", "model", gen.Model())
	}

	opts := recommend.DefaultOptions()
	opts.EnrichFallback = cfg.EnrichFallback
	svc := recommend.New(enricher, embedder, vectorStore, cat, opts, logger)

	// --- Metrics ---
	reg := metrics.New()
	reg.ServeAsync(cfg.MetricsPort)

	// --- Build HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handleRoot)
	mux.HandleFunc("POST /recommend", handleRecommend(svc, reg, logger))

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("assessly-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// bootstrapIndex re-indexes the catalog when the vector collection holds
// fewer points than the catalog has records, so a fresh deployment serves
// correct results without a separate ingest run.
func bootstrapIndex(ctx context.Context, vs *semantic.VectorStore, embedder *ollama.Client, cat *catalog.Catalog, logger *slog.Logger) error {
	count, err := vs.Count(ctx)
	if err != nil {
		return fmt.Errorf("count points: %w", err)
	}
	if count >= cat.Size() {
		logger.Info("vector index up to date", "points", count, "records", cat.Size())
		return nil
	}

	logger.Info("indexing catalog", "points", count, "records", cat.Size())
	indexed, failed := ingest.BulkIndex(ctx, ingest.Deps{
		Embedder:    embedder,
		VectorStore: vs,
		Logger:      logger,
		Workers:     4,
	}, cat.Records())
	if indexed == 0 && failed > 0 {
		return fmt.Errorf("indexing failed for all %d records", failed)
	}
	logger.Info("catalog indexed", "indexed", indexed, "failed", failed)
	return nil
}

// --- Handlers ---

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Assessly recommender API is running"})
}

// recommender is the slice of recommend.Service the handler needs.
type recommender interface {
	Recommend(ctx context.Context, query string, topK int) (*domain.RecommendResponse, error)
}

func handleRecommend(svc recommender, reg *metrics.Registry, logger *slog.Logger) http.HandlerFunc {
	requests := reg.Counter("recommend_requests_total", "Total recommendation requests.")
	failures := reg.Counter("recommend_failures_total", "Recommendation requests that returned an error.")
	duration := reg.Histogram("recommend_duration_seconds", "Recommendation latency.", metrics.DefaultBuckets)

	return func(w http.ResponseWriter, r *http.Request) {
		requests.Inc()
		start := time.Now()
		defer duration.Since(start)

		var req domain.RecommendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := domain.ValidateRequest(req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		resp, err := svc.Recommend(r.Context(), req.Query, req.TopKOrDefault())
		if err != nil {
			failures.Inc()
			var verr *domain.ValidationError
			if errors.As(err, &verr) {
				writeError(w, http.StatusBadRequest, verr.Error())
				return
			}
			logger.Error("recommend failed", "err", err)
			writeError(w, http.StatusBadGateway, "recommendation pipeline failed")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
