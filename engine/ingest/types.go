package ingest

import "github.com/AssesslyAI/assessly-mvp/engine/domain"

// IndexDoc is a catalog record paired with the text that gets embedded.
type IndexDoc struct {
	Record domain.AssessmentRecord
	Text   string
}

// EmbeddedDoc carries the record through the store stage with its vector.
type EmbeddedDoc struct {
	IndexDoc
	Vector []float32
}
