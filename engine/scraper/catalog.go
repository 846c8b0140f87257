// Package scraper collects assessment records from the public SHL product
// catalog. Listing pages are paged HTML tables; each entry links to a detail
// page carrying the description, job levels, languages, and length.
package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/AssesslyAI/assessly-mvp/engine/domain"
	"github.com/AssesslyAI/assessly-mvp/pkg/fn"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public catalog host.
const DefaultBaseURL = "https://www.shl.com"

// catalogPath is appended to the base URL for listing pages.
const catalogPath = "/solutions/products/product-catalog/"

// pageSize is how many entries each listing page holds.
const pageSize = 12

var (
	tablePattern  = regexp.MustCompile(`(?s)<table[^>]*>.*?</table>`)
	rowPattern    = regexp.MustCompile(`(?s)<tr[^>]*>.*?</tr>`)
	cellPattern   = regexp.MustCompile(`(?s)<td[^>]*>(.*?)</td>`)
	anchorPattern = regexp.MustCompile(`(?s)<a\s+[^>]*href="([^"]+)"[^>]*>(.*?)</a>`)
	yesPattern    = regexp.MustCompile(`catalogue__circle -yes`)
	tagPattern    = regexp.MustCompile(`<[^>]+>`)
	spacePattern  = regexp.MustCompile(`\s+`)

	descPattern    = regexp.MustCompile(`(?s)<div[^>]*class="[^"]*product-catalogue-training-calendar__row typ[^"]*"[^>]*>.*?<p[^>]*>(.*?)</p>`)
	sectionPattern = regexp.MustCompile(`(?s)<h4[^>]*>([^<]+)</h4>\s*<p[^>]*>(.*?)</p>`)
)

// CatalogScraper crawls the product catalog and yields assessment records.
type CatalogScraper struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	seen       sync.Map // dedup by detail URL
}

// NewCatalogScraper creates a scraper against the given catalog host. An
// empty baseURL uses the public catalog.
func NewCatalogScraper(baseURL string, logger *slog.Logger) *CatalogScraper {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogScraper{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 2),
		logger:     logger,
	}
}

// Scrape runs a full crawl based on opts, streaming one result per catalog
// entry. The channel closes when all pages are exhausted or ctx is done.
func (s *CatalogScraper) Scrape(ctx context.Context, opts ScrapeOpts) <-chan fn.Result[domain.AssessmentRecord] {
	ch := make(chan fn.Result[domain.AssessmentRecord], 32)

	types := opts.Types
	if len(types) == 0 {
		types = []ProductType{IndividualTests, PrePackagedJobs}
	}
	maxPerType := opts.MaxPerType
	if maxPerType <= 0 {
		maxPerType = 400
	}

	go func() {
		defer close(ch)
		for _, pt := range types {
			s.scrapeType(ctx, pt, maxPerType, opts.SkipDetails, ch)
		}
	}()

	return ch
}

func (s *CatalogScraper) scrapeType(ctx context.Context, pt ProductType, max int, skipDetails bool, ch chan<- fn.Result[domain.AssessmentRecord]) {
	collected := 0
	for start := 0; start < max; start += pageSize {
		if ctx.Err() != nil {
			return
		}

		pageURL := fmt.Sprintf("%s%s?start=%d&type=%d", s.baseURL, catalogPath, start, pt)
		if start == 0 {
			pageURL = fmt.Sprintf("%s%s?type=%d", s.baseURL, catalogPath, pt)
		}

		body := fn.Retry(ctx, fn.DefaultRetry, func(ctx context.Context) fn.Result[string] {
			return s.fetch(ctx, pageURL)
		})
		html, err := body.Unwrap()
		if err != nil {
			s.logger.Error("catalog page fetch failed", "url", pageURL, "error", err)
			return
		}

		entries := ParseListing(html, pt)
		if len(entries) == 0 {
			s.logger.Info("no more catalog rows", "type", pt.Label(), "start", start)
			return
		}

		for _, rec := range entries {
			if ctx.Err() != nil {
				return
			}
			if collected >= max {
				return
			}
			if _, loaded := s.seen.LoadOrStore(rec.URL, true); loaded {
				continue
			}

			if !skipDetails && rec.URL != "" {
				detail := fn.Retry(ctx, fn.DefaultRetry, func(ctx context.Context) fn.Result[string] {
					return s.fetch(ctx, rec.URL)
				})
				if page, err := detail.Unwrap(); err != nil {
					s.logger.Warn("detail page fetch failed", "url", rec.URL, "error", err)
				} else {
					d := parseDetail(page)
					rec.Description = d.Description
					rec.JobLevels = d.JobLevels
					rec.Languages = d.Languages
					rec.Duration = d.Length
				}
			}

			collected++
			ch <- fn.Ok(rec)
		}
	}
}

// fetch performs a polite rate-limited GET and returns the body.
func (s *CatalogScraper) fetch(ctx context.Context, u string) fn.Result[string] {
	if err := s.limiter.Wait(ctx); err != nil {
		return fn.Err[string](err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fn.Err[string](err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept-Language", "en-US, en;q=0.5")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fn.Err[string](err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fn.Errf[string]("fetch %s: status %d", u, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fn.Err[string](err)
	}
	return fn.Ok(string(body))
}

// ParseListing extracts catalog rows for the given product type from a
// listing page. Only the table whose header matches the product type label
// is considered; detail-page fields are left empty.
func ParseListing(html string, pt ProductType) []domain.AssessmentRecord {
	table := findTable(html, pt.Label())
	if table == "" {
		return nil
	}

	var records []domain.AssessmentRecord
	rows := rowPattern.FindAllString(table, -1)
	for _, row := range rows {
		cells := cellPattern.FindAllStringSubmatch(row, -1)
		if len(cells) < 4 {
			continue // header row or malformed
		}

		anchor := anchorPattern.FindStringSubmatch(cells[0][1])
		if anchor == nil {
			continue
		}

		href := anchor[1]
		if !strings.HasPrefix(href, "http") {
			href = DefaultBaseURL + href
		}

		records = append(records, domain.AssessmentRecord{
			Name:          stripTags(anchor[2]),
			Type:          pt.Label(),
			URL:           href,
			RemoteTesting: yesNo(cells[1][1]),
			AdaptiveIRT:   yesNo(cells[2][1]),
			TestType:      stripTags(cells[3][1]),
		})
	}
	return records
}

// parseDetail extracts the description and keyed sections from an entry's
// detail page.
func parseDetail(html string) detailData {
	d := detailData{}

	if m := descPattern.FindStringSubmatch(html); m != nil {
		d.Description = stripTags(m[1])
	}

	for _, m := range sectionPattern.FindAllStringSubmatch(html, -1) {
		heading := strings.ToLower(strings.TrimSpace(m[1]))
		text := stripTags(m[2])
		switch {
		case strings.Contains(heading, "job levels"):
			d.JobLevels = text
		case strings.Contains(heading, "languages"):
			d.Languages = text
		case strings.Contains(heading, "assessment length"):
			d.Length = text
		}
	}
	return d
}

// findTable returns the markup of the table whose header cell contains label.
func findTable(html, label string) string {
	for _, table := range tablePattern.FindAllString(html, -1) {
		if strings.Contains(table, label) {
			return table
		}
	}
	return ""
}

func yesNo(cell string) string {
	if yesPattern.MatchString(cell) {
		return "Yes"
	}
	return "No"
}

// stripTags removes markup, decodes common entities, and collapses
// whitespace.
func stripTags(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "&#39;", "'")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
