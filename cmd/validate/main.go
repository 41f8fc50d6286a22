// Command validate performs end-to-end data integrity checks between a
// QuakeML catalog and the mock fixtures generated from it: the flattened
// events JSON and the catalog summary JSON. It verifies decode stability,
// preferred origin/magnitude resolution, fixture parity, and summary
// consistency.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -in internal/pipeline/testdata/catalog.quakeml \
//	  -events-json data/mock/quake_events.json \
//	  -summary-json data/mock/catalog_summary.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	in := flag.String("in", "", "path to the QuakeML catalog document")
	eventsJSON := flag.String("events-json", "", "path to the flattened events fixture")
	summaryJSON := flag.String("summary-json", "", "path to the catalog summary fixture")
	flag.Parse()

	if *in == "" || *eventsJSON == "" || *summaryJSON == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*in, *eventsJSON, *summaryJSON); code != 0 {
		os.Exit(code)
	}
}

func run(inPath, eventsPath, summaryPath string) int {
	fmt.Println("=== Quake Data Integrity Validation ===")
	fmt.Println()

	raw, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read catalog: %v\n", err)
		return 1
	}
	catalog, err := domain.Decode(string(raw))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: decode catalog: %v\n", err)
		return 1
	}

	fixtureEvents, err := loadJSON[[]domain.QuakeEvent](eventsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load events JSON: %v\n", err)
		return 1
	}

	fixtureSummary, err := loadJSON[domain.CatalogSummary](summaryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load summary JSON: %v\n", err)
		return 1
	}

	flattened := make(map[string]domain.QuakeEvent, len(catalog.Events()))
	phases := []*phase{
		validateDecodeStability(string(raw), catalog),
		validateResolution(catalog, flattened),
		validateFixtureParity(fixtureEvents, flattened),
		validateSummary(catalog, fixtureEvents, fixtureSummary),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d catalog events, %d fixture events\n", len(catalog.Events()), len(fixtureEvents))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadJSON[T any](path string) (T, error) {
	var out T
	data, err := os.ReadFile(path)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, nil
}

// validateDecodeStability re-decodes the document and checks that event
// public IDs are unique across the catalog.
func validateDecodeStability(doc string, catalog domain.Catalog) *phase {
	p := &phase{name: "Phase 1: Decode stability"}

	again, err := domain.Decode(doc)
	if err != nil {
		p.errorf("second decode failed: %v", err)
		return p
	}
	if diff := cmp.Diff(catalog, again); diff != "" {
		p.errorf("decode is not deterministic (-first +second):\n%s", diff)
	}

	seen := make(map[domain.ResourceReference]int)
	for i, ev := range catalog.Events() {
		if prev, ok := seen[ev.PublicID]; ok {
			p.errorf("event %d: duplicate publicID %s (first at %d)", i, ev.PublicID, prev)
			continue
		}
		seen[ev.PublicID] = i
	}
	return p
}

// validateResolution flattens every event and fills flattened by event id.
func validateResolution(catalog domain.Catalog, flattened map[string]domain.QuakeEvent) *phase {
	p := &phase{name: "Phase 2: Preferred origin/magnitude resolution"}

	for _, ev := range catalog.Events() {
		flat, err := domain.Flatten(ev)
		if err != nil {
			p.errorf("event %s: %v", ev.PublicID, err)
			continue
		}
		if ev.PreferredOriginID != nil && len(ev.Origins) > 1 && flat.OriginID != string(*ev.PreferredOriginID) {
			p.errorf("event %s: resolved origin %s, preferred %s", ev.PublicID, flat.OriginID, *ev.PreferredOriginID)
		}
		if ev.PreferredMagnitudeID != nil && len(ev.Magnitudes) > 1 && flat.MagnitudeID != string(*ev.PreferredMagnitudeID) {
			p.errorf("event %s: resolved magnitude %s, preferred %s", ev.PublicID, flat.MagnitudeID, *ev.PreferredMagnitudeID)
		}
		flattened[flat.ID] = flat
	}
	return p
}

// validateFixtureParity compares each fixture record with the event the
// current code flattens, ignoring processing timestamps.
func validateFixtureParity(fixture []domain.QuakeEvent, flattened map[string]domain.QuakeEvent) *phase {
	p := &phase{name: "Phase 3: Fixture parity"}

	if len(fixture) != len(flattened) {
		p.errorf("fixture has %d events, catalog flattens to %d", len(fixture), len(flattened))
	}

	ignore := cmpopts.IgnoreFields(domain.QuakeEvent{}, "ProcessedAt")
	for i := range fixture {
		want := fixture[i]
		got, ok := flattened[want.ID]
		if !ok {
			p.errorf("fixture event %s not found in catalog", want.ID)
			continue
		}
		if diff := cmp.Diff(want, got, ignore); diff != "" {
			p.errorf("event %s mismatch (-fixture +catalog):\n%s", want.ID, diff)
		}
	}
	return p
}

// validateSummary checks the fixture summary against both the catalog and
// the min/max recomputed from the fixture's own events.
func validateSummary(catalog domain.Catalog, fixture []domain.QuakeEvent, want domain.CatalogSummary) *phase {
	p := &phase{name: "Phase 4: Summary consistency"}

	got, err := domain.Summarize(catalog)
	if err != nil {
		p.errorf("summarize catalog: %v", err)
		return p
	}
	if diff := cmp.Diff(want, got); diff != "" {
		p.errorf("summary mismatch (-fixture +catalog):\n%s", diff)
	}

	recomputed := domain.CatalogSummary{EventCount: len(fixture)}
	for i := range fixture {
		m := fixture[i].Magnitude
		if m == nil {
			continue
		}
		if recomputed.MinMagnitude == nil || *m < *recomputed.MinMagnitude {
			recomputed.MinMagnitude = m
		}
		if recomputed.MaxMagnitude == nil || *m > *recomputed.MaxMagnitude {
			recomputed.MaxMagnitude = m
		}
	}
	if diff := cmp.Diff(want, recomputed); diff != "" {
		p.errorf("summary disagrees with fixture events (-summary +events):\n%s", diff)
	}
	return p
}
