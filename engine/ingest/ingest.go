// Package ingest provides the pipeline that turns catalog records into
// index points: validation, document building, embedding, and vector
// storage. It runs either as a one-shot bulk index build or as a NATS
// consumer fed by the catalog scraper.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AssesslyAI/assessly-mvp/engine/catalog"
	"github.com/AssesslyAI/assessly-mvp/engine/domain"
	"github.com/AssesslyAI/assessly-mvp/engine/semantic"
	"github.com/AssesslyAI/assessly-mvp/pkg/fn"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	// IngestSubject is the NATS subject for incoming catalog records.
	IngestSubject = "catalog.ingest"
	// DLQSubject is the dead letter queue subject for failed messages.
	DLQSubject = "catalog.ingest.dlq"
	// MaxRetries before a message is sent to the DLQ.
	MaxRetries = 3
)

// Embedder encodes text into a fixed-size vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorWriter is the slice of the vector store the pipeline needs.
type VectorWriter interface {
	Upsert(ctx context.Context, records []semantic.VectorRecord) error
}

// Deps holds the external dependencies for the ingestion pipeline.
type Deps struct {
	Embedder    Embedder
	VectorStore VectorWriter
	Logger      *slog.Logger
	// Workers bounds concurrency in BulkIndex. Zero means sequential.
	Workers int
}

// --- Pipeline stages ---

// Validate rejects records that cannot be meaningfully indexed.
var Validate fn.Stage[domain.AssessmentRecord, domain.AssessmentRecord] = func(_ context.Context, rec domain.AssessmentRecord) fn.Result[domain.AssessmentRecord] {
	if strings.TrimSpace(rec.Name) == "" {
		return fn.Errf[domain.AssessmentRecord]("ingest: record without a name")
	}
	if strings.TrimSpace(rec.Description) == "" && strings.TrimSpace(rec.Type) == "" {
		return fn.Errf[domain.AssessmentRecord]("ingest: record %q has no indexable text", rec.Name)
	}
	return fn.Ok(rec)
}

// Document builds the embeddable text for a record.
var Document fn.Stage[domain.AssessmentRecord, IndexDoc] = func(_ context.Context, rec domain.AssessmentRecord) fn.Result[IndexDoc] {
	return fn.Ok(IndexDoc{Record: rec, Text: catalog.DocumentText(rec)})
}

// NewEmbed creates the stage that encodes the document text.
func NewEmbed(embedder Embedder) fn.Stage[IndexDoc, EmbeddedDoc] {
	return func(ctx context.Context, doc IndexDoc) fn.Result[EmbeddedDoc] {
		vec, err := embedder.Embed(ctx, doc.Text)
		if err != nil {
			return fn.Err[EmbeddedDoc](fmt.Errorf("embed %q: %w", doc.Record.Name, err))
		}
		return fn.Ok(EmbeddedDoc{IndexDoc: doc, Vector: vec})
	}
}

// NewStore creates the stage that upserts the vector into Qdrant. The point
// ID is a deterministic UUID derived from the record key, so re-ingesting a
// record overwrites its previous point.
func NewStore(vs VectorWriter) fn.Stage[EmbeddedDoc, string] {
	return func(ctx context.Context, doc EmbeddedDoc) fn.Result[string] {
		key := catalog.Key(doc.Record)
		pointID := uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()

		rec := semantic.VectorRecord{
			ID:        pointID,
			Embedding: doc.Vector,
			Payload: map[string]any{
				"record_key": key,
				"name":       doc.Record.Name,
				"type":       doc.Record.Type,
			},
		}
		if err := vs.Upsert(ctx, []semantic.VectorRecord{rec}); err != nil {
			return fn.Err[string](fmt.Errorf("vector upsert: %w", err))
		}
		return fn.Ok(key)
	}
}

// LoggedTap returns a pass-through stage that logs entry and duration.
func LoggedTap[T any](name string, log *slog.Logger) fn.Stage[T, T] {
	return func(ctx context.Context, t T) fn.Result[T] {
		log.Debug("stage.enter", "stage", name)
		start := time.Now()
		defer func() {
			log.Debug("stage.exit", "stage", name, "duration", time.Since(start))
		}()
		return fn.Ok(t)
	}
}

// NewPipeline composes Validate -> Document -> Embed -> Store.
func NewPipeline(deps Deps) fn.Stage[domain.AssessmentRecord, string] {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	validated := fn.Then(LoggedTap[domain.AssessmentRecord]("validate", log), Validate)
	documented := fn.Then(validated, Document)
	embedded := fn.Then(documented, fn.TracedStage("ingest.embed", NewEmbed(deps.Embedder)))
	stored := fn.Then(embedded, fn.TracedStage("ingest.store", NewStore(deps.VectorStore)))
	return stored
}

// BulkIndex runs every record through the pipeline with bounded concurrency
// and returns the number indexed and the number failed.
func BulkIndex(ctx context.Context, deps Deps, records []domain.AssessmentRecord) (int, int) {
	pipeline := NewPipeline(deps)
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	workers := deps.Workers
	if workers <= 0 {
		workers = 1
	}

	results := fn.ParMapResult(records, workers, func(rec domain.AssessmentRecord) fn.Result[string] {
		return pipeline(ctx, rec)
	})

	indexed, failed := 0, 0
	for i, r := range results {
		if r.IsErr() {
			_, err := r.Unwrap()
			log.Error("ingest: record failed", "name", records[i].Name, "error", err)
			failed++
			continue
		}
		indexed++
	}
	return indexed, failed
}

// dlqMessage is published to the DLQ after repeated failure.
type dlqMessage struct {
	Record  domain.AssessmentRecord `json:"record"`
	Error   string                  `json:"error"`
	Retries int                     `json:"retries"`
}

// StartConsumer subscribes the pipeline to the ingest subject with retry
// and DLQ support.
func StartConsumer(nc *nats.Conn, deps Deps) (*nats.Subscription, error) {
	pipeline := NewPipeline(deps)
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	return nc.Subscribe(IngestSubject, func(msg *nats.Msg) {
		var rec domain.AssessmentRecord
		if err := json.Unmarshal(msg.Data, &rec); err != nil {
			log.Error("ingest: unmarshal failed", "error", err)
			return
		}

		ctx := context.Background()

		retries := 0
		if msg.Header != nil {
			if v := msg.Header.Get("X-Retry-Count"); v != "" {
				fmt.Sscanf(v, "%d", &retries)
			}
		}

		result := pipeline(ctx, rec)
		if result.IsErr() {
			_, pipeErr := result.Unwrap()
			retries++
			log.Error("ingest: pipeline failed", "name", rec.Name, "error", pipeErr, "retry", retries)

			if retries >= MaxRetries {
				dlq := dlqMessage{Record: rec, Error: pipeErr.Error(), Retries: retries}
				data, _ := json.Marshal(dlq)
				if err := nc.Publish(DLQSubject, data); err != nil {
					log.Error("ingest: dlq publish failed", "error", err)
				}
				return
			}

			retry := &nats.Msg{
				Subject: IngestSubject,
				Data:    msg.Data,
				Header:  nats.Header{"X-Retry-Count": []string{fmt.Sprintf("%d", retries)}},
			}
			if err := nc.PublishMsg(retry); err != nil {
				log.Error("ingest: requeue failed", "error", err)
			}
			return
		}

		key, _ := result.Unwrap()
		log.Info("ingest: record indexed", "record_key", key)
	})
}
