package domain

import "time"

// ResourceReference is an opaque QuakeML identifier (publicID, originID, ...).
// Identifiers are only comparable within one entity kind: an origin id is
// matched against other origin ids, never against magnitude ids.
type ResourceReference string

// RealQuantity is a measured real value with optional uncertainty metadata.
// Value is always finite; the decoder rejects NaN and infinities.
type RealQuantity struct {
	Value            float64  `json:"value"`
	Uncertainty      *float64 `json:"uncertainty,omitempty"`
	LowerUncertainty *float64 `json:"lower_uncertainty,omitempty"`
	UpperUncertainty *float64 `json:"upper_uncertainty,omitempty"`
	ConfidenceLevel  *float64 `json:"confidence_level,omitempty"`
}

// TimeQuantity is an absolute UTC instant with optional uncertainty (seconds).
type TimeQuantity struct {
	Value            time.Time `json:"value"`
	Uncertainty      *float64  `json:"uncertainty,omitempty"`
	LowerUncertainty *float64  `json:"lower_uncertainty,omitempty"`
	UpperUncertainty *float64  `json:"upper_uncertainty,omitempty"`
	ConfidenceLevel  *float64  `json:"confidence_level,omitempty"`
}
