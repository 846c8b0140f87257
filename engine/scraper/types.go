package scraper

// ProductType selects which catalog table to scrape.
type ProductType int

const (
	// IndividualTests is the "Individual Test Solutions" catalog table.
	IndividualTests ProductType = 1
	// PrePackagedJobs is the "Pre-packaged Job Solutions" catalog table.
	PrePackagedJobs ProductType = 2
)

// Label returns the human-readable product type name as it appears in the
// catalog table header.
func (p ProductType) Label() string {
	switch p {
	case IndividualTests:
		return "Individual Test Solutions"
	case PrePackagedJobs:
		return "Pre-packaged Job Solutions"
	default:
		return "Unknown"
	}
}

// ScrapeOpts configures a catalog scrape run.
type ScrapeOpts struct {
	// Types lists product tables to scrape; both when empty.
	Types []ProductType
	// MaxPerType caps how many catalog entries to collect per product type.
	MaxPerType int
	// SkipDetails skips fetching each entry's detail page, leaving
	// Description, JobLevels, Languages, and Duration empty.
	SkipDetails bool
}

// detailData holds the fields extracted from an entry's detail page.
type detailData struct {
	Description string
	JobLevels   string
	Languages   string
	Length      string
}
