package semantic

// SearchResult represents a single vector search hit.
type SearchResult struct {
	ID        string            `json:"id"`
	Score     float32           `json:"score"`
	RecordKey string            `json:"record_key"`
	Name      string            `json:"name"`
	Meta      map[string]string `json:"meta"`
}

// VectorRecord represents a single vector to store in Qdrant.
type VectorRecord struct {
	ID        string
	Embedding []float32
	Payload   map[string]any // record_key, name, type
}
