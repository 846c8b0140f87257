// Command ingest builds the assessment vector index. With -catalog it runs
// a one-shot bulk index of a catalog JSON file; otherwise it consumes
// records from NATS and indexes them as they arrive.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/AssesslyAI/assessly-mvp/engine/catalog"
	"github.com/AssesslyAI/assessly-mvp/engine/ingest"
	"github.com/AssesslyAI/assessly-mvp/engine/semantic"
	"github.com/AssesslyAI/assessly-mvp/pkg/metrics"
	"github.com/AssesslyAI/assessly-mvp/pkg/ollama"
	"github.com/nats-io/nats.go"
)

var met = metrics.New()

var (
	mIndexed = met.Counter("assessly_ingest_indexed_total", "Records indexed into the vector store")
	mFailed  = met.Counter("assessly_ingest_failed_total", "Records that failed the pipeline")
	mRunDur  = met.Histogram("assessly_ingest_run_duration_seconds", "Bulk index run time", nil)
)

const vectorDims = 768 // nomic-embed-text

func main() {
	var (
		catalogPath = flag.String("catalog", "", "catalog JSON file for one-shot bulk indexing")
		natsURL     = flag.String("nats", nats.DefaultURL, "NATS server URL for consumer mode")
		ollamaURL   = flag.String("ollama", "http://localhost:11434", "Ollama base URL")
		ollamaModel = flag.String("model", "nomic-embed-text", "Ollama embedding model")
		qdrantAddr  = flag.String("qdrant", "localhost:6334", "Qdrant gRPC address")
		collection  = flag.String("collection", "assessments", "Qdrant collection name")
		workers     = flag.Int("workers", 4, "concurrent pipeline workers")
		metricsPort = flag.Int("metrics-port", 9091, "metrics server port")
	)
	flag.Parse()

	met.ServeAsync(*metricsPort)

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Connect Qdrant
	vs, err := semantic.New(*qdrantAddr, *collection)
	if err != nil {
		log.Error("qdrant connect failed", "error", err)
		os.Exit(1)
	}
	defer vs.Close()
	if err := vs.EnsureCollection(ctx, vectorDims); err != nil {
		log.Error("qdrant ensure collection failed", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Qdrant", "collection", *collection, "dims", vectorDims)

	embedder := ollama.NewClient(*ollamaURL, *ollamaModel)
	log.Info("using Ollama embeddings", "model", *ollamaModel)

	deps := ingest.Deps{
		Embedder:    embedder,
		VectorStore: vs,
		Logger:      log,
		Workers:     *workers,
	}

	if *catalogPath != "" {
		runBulk(ctx, *catalogPath, deps, log)
		return
	}

	runConsumer(ctx, *natsURL, deps, log)
}

// runBulk indexes every record in the catalog file, then exits.
func runBulk(ctx context.Context, path string, deps ingest.Deps, log *slog.Logger) {
	cat, err := catalog.Load(path)
	if err != nil {
		log.Error("catalog load failed", "path", path, "error", err)
		os.Exit(1)
	}
	log.Info("bulk indexing catalog", "path", path, "records", cat.Size())

	start := time.Now()
	indexed, failed := ingest.BulkIndex(ctx, deps, cat.Records())
	mRunDur.Since(start)
	mIndexed.Add(int64(indexed))
	mFailed.Add(int64(failed))

	log.Info("bulk index done", "indexed", indexed, "failed", failed, "took", time.Since(start))
	if failed > 0 && indexed == 0 {
		os.Exit(1)
	}
}

// runConsumer subscribes to the catalog ingest subject and indexes records
// until interrupted.
func runConsumer(ctx context.Context, natsURL string, deps ingest.Deps, log *slog.Logger) {
	nc, err := nats.Connect(natsURL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		log.Error("nats connect failed", "url", natsURL, "error", err)
		os.Exit(1)
	}
	defer nc.Drain()

	sub, err := ingest.StartConsumer(nc, deps)
	if err != nil {
		log.Error("consumer start failed", "error", err)
		os.Exit(1)
	}
	defer sub.Unsubscribe()

	log.Info("consuming catalog records", "subject", ingest.IngestSubject)
	<-ctx.Done()
	log.Info("shutting down")
}
