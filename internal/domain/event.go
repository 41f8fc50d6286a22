package domain

import (
	"context"
	"time"
)

// RawDocument represents an unprocessed QuakeML document from the source topic.
type RawDocument struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Hypocenter is the location part of a resolved origin.
type Hypocenter struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Depth float64 `json:"depth"` // meters, as published
}

// QuakeEvent is the flattened record of one event after resolving its
// preferred origin and magnitude.
type QuakeEvent struct {
	ID             string     `json:"id"`
	OriginID       string     `json:"origin_id"`
	OriginTime     time.Time  `json:"origin_time"`
	Hypocenter     Hypocenter `json:"hypocenter"`
	EvaluationMode string     `json:"evaluation_mode,omitempty"`
	Agency         string     `json:"agency,omitempty"`

	// Magnitude is nil when the event carries no magnitude estimate.
	Magnitude     *float64 `json:"magnitude"`
	MagnitudeType string   `json:"magnitude_type,omitempty"`
	MagnitudeID   string   `json:"magnitude_id,omitempty"`

	Description    string `json:"description,omitempty"`
	OriginCount    int    `json:"origin_count"`
	MagnitudeCount int    `json:"magnitude_count"`

	ProcessedAt time.Time `json:"processed_at"`
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
