// Command scraper-catalog crawls the public assessment product catalog and
// outputs structured JSON. With -nats it also publishes each record to the
// catalog ingest subject for live indexing.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/AssesslyAI/assessly-mvp/engine/domain"
	"github.com/AssesslyAI/assessly-mvp/engine/ingest"
	"github.com/AssesslyAI/assessly-mvp/engine/scraper"
	"github.com/AssesslyAI/assessly-mvp/pkg/natsutil"
	"github.com/nats-io/nats.go"
)

func main() {
	var (
		baseURL     = flag.String("base-url", scraper.DefaultBaseURL, "catalog host to crawl")
		individual  = flag.Bool("individual", true, "scrape Individual Test Solutions")
		prepackaged = flag.Bool("prepackaged", true, "scrape Pre-packaged Job Solutions")
		maxPerType  = flag.Int("max", 400, "max entries per product type")
		skipDetails = flag.Bool("skip-details", false, "skip detail pages (faster, fewer fields)")
		outPath     = flag.String("out", "", "output JSON file (default: stdout)")
		natsURL     = flag.String("nats", "", "publish records to NATS at this URL")
	)
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var types []scraper.ProductType
	if *individual {
		types = append(types, scraper.IndividualTests)
	}
	if *prepackaged {
		types = append(types, scraper.PrePackagedJobs)
	}
	if len(types) == 0 {
		log.Error("nothing to scrape, enable -individual or -prepackaged")
		os.Exit(1)
	}

	var nc *nats.Conn
	if *natsURL != "" {
		var err error
		nc, err = nats.Connect(*natsURL)
		if err != nil {
			log.Error("nats connect failed", "url", *natsURL, "error", err)
			os.Exit(1)
		}
		defer nc.Drain()
	}

	s := scraper.NewCatalogScraper(*baseURL, log)

	var records []domain.AssessmentRecord
	for result := range s.Scrape(ctx, scraper.ScrapeOpts{
		Types:       types,
		MaxPerType:  *maxPerType,
		SkipDetails: *skipDetails,
	}) {
		rec, err := result.Unwrap()
		if err != nil {
			log.Error("scrape error", "error", err)
			continue
		}
		log.Info("scraped", "name", rec.Name, "type", rec.Type)
		records = append(records, rec)

		if nc != nil {
			if err := natsutil.Publish(ctx, nc, ingest.IngestSubject, rec); err != nil {
				log.Error("publish failed", "name", rec.Name, "error", err)
			}
		}
	}

	log.Info("scrape complete", "records", len(records))

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Error("create output file failed", "path", *outPath, "error", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		log.Error("encode failed", "error", err)
		os.Exit(1)
	}
}
