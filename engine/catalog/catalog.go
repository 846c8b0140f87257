// Package catalog loads the assessment catalog from its JSON dataset and
// exposes it as read-only process-wide state. The catalog is loaded once at
// startup and shared across all requests.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/AssesslyAI/assessly-mvp/engine/domain"
)

// Catalog is the immutable in-memory metadata table. Records keep their
// dataset order; lookups go through the detail-page URL, which doubles as
// the record key in the vector index payload.
type Catalog struct {
	records []domain.AssessmentRecord
	byKey   map[string]int
}

// Load reads and validates the catalog JSON file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes catalog JSON. Both the normalized record format and the raw
// scraped format (capitalized field names) are accepted.
func Parse(data []byte) (*Catalog, error) {
	var entries []rawEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog: %w", domain.ErrEmptyCatalog)
	}

	records := make([]domain.AssessmentRecord, 0, len(entries))
	byKey := make(map[string]int, len(entries))
	for _, e := range entries {
		rec := e.toRecord()
		if rec.Name == "" {
			continue
		}
		if _, dup := byKey[Key(rec)]; dup {
			continue
		}
		byKey[Key(rec)] = len(records)
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("catalog: no usable records: %w", domain.ErrEmptyCatalog)
	}

	return &Catalog{records: records, byKey: byKey}, nil
}

// Size returns the number of catalog records.
func (c *Catalog) Size() int { return len(c.records) }

// Records returns all records in dataset order.
func (c *Catalog) Records() []domain.AssessmentRecord { return c.records }

// Lookup resolves a record key back to its AssessmentRecord.
func (c *Catalog) Lookup(key string) (domain.AssessmentRecord, error) {
	i, ok := c.byKey[key]
	if !ok {
		return domain.AssessmentRecord{}, fmt.Errorf("catalog: key %q: %w", key, domain.ErrNotInCatalog)
	}
	return c.records[i], nil
}

// Key returns the stable identifier used for a record in the vector index.
// The detail-page URL is unique per assessment; the name is the fallback
// for records scraped without one.
func Key(r domain.AssessmentRecord) string {
	if r.URL != "" {
		return r.URL
	}
	return "name:" + r.Name
}

// rawEntry is a union of the normalized record format and the raw scraped
// catalog format.
type rawEntry struct {
	domain.AssessmentRecord

	// Raw scraped fields.
	Title        string `json:"Title"`
	ProductType  string `json:"Product Type"`
	Remote       string `json:"Remote Testing"`
	Adaptive     string `json:"Adaptive/IRT"`
	RawTestType  string `json:"Test Type"`
	RawDesc      string `json:"Description"`
	RawJobLevels string `json:"Job Levels"`
	RawLanguages string `json:"Languages"`
	Length       string `json:"Assessment Length"`
	DetailPage   string `json:"Detail Page"`
}

func (e rawEntry) toRecord() domain.AssessmentRecord {
	if e.AssessmentRecord.Name != "" {
		return e.AssessmentRecord
	}
	return domain.AssessmentRecord{
		Name:          strings.TrimSpace(e.Title),
		Type:          strings.TrimSpace(e.ProductType),
		URL:           strings.TrimSpace(e.DetailPage),
		RemoteTesting: strings.TrimSpace(e.Remote),
		AdaptiveIRT:   strings.TrimSpace(e.Adaptive),
		Duration:      strings.TrimSpace(e.Length),
		TestType:      strings.TrimSpace(e.RawTestType),
		Description:   strings.TrimSpace(e.RawDesc),
		JobLevels:     strings.TrimSpace(e.RawJobLevels),
		Languages:     strings.TrimSpace(e.RawLanguages),
	}
}
