// Package domain defines the core types, sentinel errors, and request
// validation for the Assessly recommendation pipeline. It acts as the
// validation gate at pipeline entry points.
package domain

// AssessmentRecord is one catalog entry. Records are loaded once at startup
// and never mutated afterwards.
type AssessmentRecord struct {
	Name          string `json:"assessment_name"`
	Type          string `json:"assessment_type"`
	URL           string `json:"url"`
	RemoteTesting string `json:"remote_testing"`
	AdaptiveIRT   string `json:"adaptive_irt"`
	Duration      string `json:"duration"`
	TestType      string `json:"test_type"`
	Description   string `json:"description"`
	JobLevels     string `json:"job_levels"`
	Languages     string `json:"languages"`
}

// RecommendRequest is the JSON body for POST /recommend. TopK is a pointer
// so an omitted field (defaulted) can be told apart from an explicit zero
// (rejected).
type RecommendRequest struct {
	Query string `json:"query"`
	TopK  *int   `json:"top_k,omitempty"`
}

// DefaultTopK is used when a request omits top_k.
const DefaultTopK = 5

// TopKOrDefault resolves the effective top_k for the request.
func (r RecommendRequest) TopKOrDefault() int {
	if r.TopK == nil {
		return DefaultTopK
	}
	return *r.TopK
}

// RecommendResponse pairs the original and enriched query with the ranked
// catalog records, most similar first.
type RecommendResponse struct {
	OriginalQuery   string             `json:"original_query"`
	EnrichedQuery   string             `json:"enriched_query"`
	Recommendations []AssessmentRecord `json:"recommendations"`
}
