package domain

import (
	"fmt"
	"strconv"
)

// CatalogSummary holds catalog-wide statistics over preferred magnitudes.
// Min/MaxMagnitude are nil when no event has a magnitude.
type CatalogSummary struct {
	EventCount   int      `json:"event_count"`
	MinMagnitude *float64 `json:"min_magnitude"`
	MaxMagnitude *float64 `json:"max_magnitude"`
}

// Summarize counts the catalog's events and reduces their preferred
// magnitudes to a min/max. Events without magnitudes are counted but do not
// take part in the reduction. Each event's preferred origin must resolve as
// well; the first resolution failure aborts the whole summary.
func Summarize(c Catalog) (CatalogSummary, error) {
	events := c.Events()
	summary := CatalogSummary{EventCount: len(events)}

	for i := range events {
		if _, err := events[i].PreferredOrigin(); err != nil {
			return CatalogSummary{}, fmt.Errorf("summarize event %s: %w", events[i].PublicID, err)
		}
		v, ok, err := events[i].PreferredMagnitudeValue()
		if err != nil {
			return CatalogSummary{}, fmt.Errorf("summarize event %s: %w", events[i].PublicID, err)
		}
		if !ok {
			continue
		}
		if summary.MinMagnitude == nil || v < *summary.MinMagnitude {
			summary.MinMagnitude = &v
		}
		if summary.MaxMagnitude == nil || v > *summary.MaxMagnitude {
			mv := v
			summary.MaxMagnitude = &mv
		}
	}
	return summary, nil
}

func (s CatalogSummary) String() string {
	return fmt.Sprintf("Events in catalog: %d, max magnitude: %s, min magnitude: %s",
		s.EventCount, formatMagnitude(s.MaxMagnitude), formatMagnitude(s.MinMagnitude))
}

func formatMagnitude(v *float64) string {
	if v == nil {
		return "none"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
