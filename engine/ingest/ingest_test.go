package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/AssesslyAI/assessly-mvp/engine/domain"
	"github.com/AssesslyAI/assessly-mvp/engine/semantic"
)

type fakeEmbedder struct {
	err  error
	seen []string
	mu   sync.Mutex
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.seen = append(f.seen, text)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 2, 3}, nil
}

type fakeStore struct {
	mu      sync.Mutex
	upserts []semantic.VectorRecord
	err     error
}

func (f *fakeStore) Upsert(_ context.Context, recs []semantic.VectorRecord) error {
	f.mu.Lock()
	f.upserts = append(f.upserts, recs...)
	f.mu.Unlock()
	return f.err
}

func record(name string) domain.AssessmentRecord {
	return domain.AssessmentRecord{
		Name:        name,
		Type:        "Individual Test Solutions",
		URL:         "https://example.com/" + strings.ToLower(name),
		Description: name + " description",
	}
}

func TestPipeline_IndexesRecord(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeStore{}
	pipeline := NewPipeline(Deps{Embedder: embedder, VectorStore: store})

	result := pipeline(context.Background(), record("Java"))
	key, err := result.Unwrap()
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	if key != "https://example.com/java" {
		t.Fatalf("unexpected key: %q", key)
	}
	if len(store.upserts) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(store.upserts))
	}
	if store.upserts[0].Payload["record_key"] != "https://example.com/java" {
		t.Fatalf("payload missing record_key: %v", store.upserts[0].Payload)
	}
	if len(embedder.seen) != 1 || !strings.Contains(embedder.seen[0], "Java description") {
		t.Fatalf("document text not embedded: %v", embedder.seen)
	}
}

func TestPipeline_DeterministicPointID(t *testing.T) {
	store := &fakeStore{}
	pipeline := NewPipeline(Deps{Embedder: &fakeEmbedder{}, VectorStore: store})

	pipeline(context.Background(), record("Java"))
	pipeline(context.Background(), record("Java"))

	if store.upserts[0].ID != store.upserts[1].ID {
		t.Fatalf("re-ingest should produce the same point ID: %s vs %s", store.upserts[0].ID, store.upserts[1].ID)
	}
}

func TestValidate_RejectsEmptyRecords(t *testing.T) {
	if r := Validate(context.Background(), domain.AssessmentRecord{}); r.IsOk() {
		t.Fatal("nameless record should fail validation")
	}
	if r := Validate(context.Background(), domain.AssessmentRecord{Name: "X"}); r.IsOk() {
		t.Fatal("record with no indexable text should fail validation")
	}
	if r := Validate(context.Background(), record("Java")); r.IsErr() {
		t.Fatal("valid record rejected")
	}
}

func TestPipeline_EmbedErrorPropagates(t *testing.T) {
	pipeline := NewPipeline(Deps{
		Embedder:    &fakeEmbedder{err: errors.New("ollama down")},
		VectorStore: &fakeStore{},
	})
	if r := pipeline(context.Background(), record("Java")); r.IsOk() {
		t.Fatal("expected embed failure to propagate")
	}
}

func TestPipeline_StoreErrorPropagates(t *testing.T) {
	pipeline := NewPipeline(Deps{
		Embedder:    &fakeEmbedder{},
		VectorStore: &fakeStore{err: errors.New("qdrant down")},
	})
	if r := pipeline(context.Background(), record("Java")); r.IsOk() {
		t.Fatal("expected store failure to propagate")
	}
}

func TestBulkIndex_Counts(t *testing.T) {
	store := &fakeStore{}
	deps := Deps{Embedder: &fakeEmbedder{}, VectorStore: store, Workers: 4}

	records := []domain.AssessmentRecord{
		record("Java"),
		record("Sales"),
		{}, // invalid, should count as failed
		record("Numerical"),
	}

	indexed, failed := BulkIndex(context.Background(), deps, records)
	if indexed != 3 || failed != 1 {
		t.Fatalf("expected 3 indexed / 1 failed, got %d / %d", indexed, failed)
	}
	if len(store.upserts) != 3 {
		t.Fatalf("expected 3 upserts, got %d", len(store.upserts))
	}
}
