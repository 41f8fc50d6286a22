// Command genmock reads a QuakeML catalog and generates mock data fixtures
// for downstream consumers of the sink topic. It uses the actual ETL domain
// package so the flattened output matches real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -in internal/pipeline/testdata/catalog.quakeml \
//	  -events-out data/mock/quake_events.json \
//	  -summary-out data/mock/catalog_summary.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/jonboulle/clockwork"
)

// processedAt is fixed so regenerated fixtures diff cleanly.
var processedAt = time.Date(2024, time.April, 3, 6, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	in := flag.String("in", "", "path to a QuakeML catalog document")
	eventsOut := flag.String("events-out", "", "output path for the flattened events fixture")
	summaryOut := flag.String("summary-out", "", "output path for the catalog summary fixture")
	flag.Parse()

	if *in == "" || *eventsOut == "" || *summaryOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -in, -events-out, -summary-out")
	}

	domain.SetClock(clockwork.NewFakeClockAt(processedAt))
	defer domain.SetClock(nil)

	events, summary, err := processCatalog(*in)
	if err != nil {
		return fmt.Errorf("processing %s: %w", *in, err)
	}
	log.Printf("%s: %d events", filepath.Base(*in), len(events))

	if err := writeJSON(*eventsOut, events); err != nil {
		return fmt.Errorf("writing events fixture: %w", err)
	}
	log.Printf("wrote events fixture: %s", *eventsOut)

	if err := writeJSON(*summaryOut, summary); err != nil {
		return fmt.Errorf("writing summary fixture: %w", err)
	}
	log.Printf("wrote summary fixture: %s", *summaryOut)

	printStats(events, summary)
	return nil
}

func processCatalog(path string) ([]domain.QuakeEvent, domain.CatalogSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.CatalogSummary{}, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	catalog, err := domain.DecodeReader(f)
	if err != nil {
		return nil, domain.CatalogSummary{}, fmt.Errorf("decode: %w", err)
	}

	events := make([]domain.QuakeEvent, 0, len(catalog.Events()))
	for _, ev := range catalog.Events() {
		flat, err := domain.Flatten(ev)
		if err != nil {
			return nil, domain.CatalogSummary{}, fmt.Errorf("flatten %s: %w", ev.PublicID, err)
		}
		events = append(events, flat)
	}

	summary, err := domain.Summarize(catalog)
	if err != nil {
		return nil, domain.CatalogSummary{}, fmt.Errorf("summarize: %w", err)
	}
	return events, summary, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

// statsResult holds aggregated counts for printStats reporting.
type statsResult struct {
	typeCounts    map[string]int
	modeCounts    map[string]int
	agencyCounts  map[string]int
	withMagnitude int
	multiOrigin   int
	mag45plus     int
}

func collectStats(events []domain.QuakeEvent) statsResult {
	s := statsResult{
		typeCounts:   map[string]int{},
		modeCounts:   map[string]int{},
		agencyCounts: map[string]int{},
	}
	for i := range events {
		e := &events[i]
		s.modeCounts[e.EvaluationMode]++
		s.agencyCounts[e.Agency]++
		if e.OriginCount > 1 {
			s.multiOrigin++
		}
		if e.Magnitude == nil {
			continue
		}
		s.withMagnitude++
		s.typeCounts[e.MagnitudeType]++
		if *e.Magnitude >= 4.5 {
			s.mag45plus++
		}
	}
	return s
}

type keyCount struct {
	key   string
	count int
}

func sortedCounts(m map[string]int) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, c := range m {
		if k == "" {
			k = "(none)"
		}
		out = append(out, keyCount{k, c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}

func printCounts(label string, m map[string]int) {
	fmt.Printf("%s:", label)
	for _, kc := range sortedCounts(m) {
		fmt.Printf(" %s=%d", kc.key, kc.count)
	}
	fmt.Println()
}

func printStats(events []domain.QuakeEvent, summary domain.CatalogSummary) {
	stats := collectStats(events)

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Println(summary)
	fmt.Printf("With magnitude: %d\n", stats.withMagnitude)
	fmt.Printf("Multiple origins: %d\n", stats.multiOrigin)
	fmt.Printf("Magnitude >= 4.5: %d\n", stats.mag45plus)
	printCounts("By magnitude type", stats.typeCounts)
	printCounts("By evaluation mode", stats.modeCounts)
	printCounts("By agency", stats.agencyCounts)

	printLargestEvent(events)
}

func printLargestEvent(events []domain.QuakeEvent) {
	var largest *domain.QuakeEvent
	for i := range events {
		e := &events[i]
		if e.Magnitude != nil && (largest == nil || *e.Magnitude > *largest.Magnitude) {
			largest = e
		}
	}
	if largest == nil {
		return
	}
	fmt.Printf("\nLargest event:\n")
	fmt.Printf("  ID: %s\n", largest.ID)
	fmt.Printf("  Magnitude: %g %s\n", *largest.Magnitude, largest.MagnitudeType)
	fmt.Printf("  Lat: %g, Lon: %g, Depth: %g m\n", largest.Hypocenter.Lat, largest.Hypocenter.Lon, largest.Hypocenter.Depth)
	fmt.Printf("  OriginTime: %s\n", largest.OriginTime.Format(time.RFC3339))
	if largest.Description != "" {
		fmt.Printf("  Description: %s\n", largest.Description)
	}
}
