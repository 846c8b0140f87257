package catalog

import (
	"fmt"
	"strings"

	"github.com/AssesslyAI/assessly-mvp/engine/domain"
)

// DocumentText builds the text that gets embedded for a record. Several
// fields are folded in so that queries about job level or test type land on
// the right neighbourhood, not just description wording.
func DocumentText(r domain.AssessmentRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Assessment Type: %s\n", r.Type)
	fmt.Fprintf(&b, "Test Type: %s\n", r.TestType)
	fmt.Fprintf(&b, "Job Levels: %s\n", r.JobLevels)
	fmt.Fprintf(&b, "Description: %s", r.Description)
	return b.String()
}

// QueryText wraps the (enriched) query before embedding so query and
// document vectors share a retrieval framing.
func QueryText(query string) string {
	return "Find assessments matching: " + query
}
