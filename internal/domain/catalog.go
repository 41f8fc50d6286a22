package domain

import "time"

// Optional fields are pointers: nil means the element was absent from the
// document, never a zero value standing in for it.

// CreationInfo describes who produced an entity and when.
type CreationInfo struct {
	AgencyID     *string   `json:"agency_id,omitempty"`
	AgencyURI    *string   `json:"agency_uri,omitempty"`
	CreationTime time.Time `json:"creation_time"`
}

// OriginQuality holds location diagnostics. It is not used for resolution.
type OriginQuality struct {
	UsedStationCount *int     `json:"used_station_count,omitempty"`
	UsedPhaseCount   *int     `json:"used_phase_count,omitempty"`
	StandardError    *float64 `json:"standard_error,omitempty"`
	AzimuthalGap     *float64 `json:"azimuthal_gap,omitempty"`
}

// OriginUncertainty describes the horizontal location error of an origin.
type OriginUncertainty struct {
	HorizontalUncertainty float64 `json:"horizontal_uncertainty"`
	PreferredDescription  *string `json:"preferred_description,omitempty"`
}

// Origin is one hypocenter estimate: where and when an event happened.
type Origin struct {
	PublicID          ResourceReference  `json:"public_id"`
	Time              TimeQuantity       `json:"time"`
	Longitude         RealQuantity       `json:"longitude"`
	Latitude          RealQuantity       `json:"latitude"`
	Depth             RealQuantity       `json:"depth"`
	OriginUncertainty *OriginUncertainty `json:"origin_uncertainty,omitempty"`
	Quality           *OriginQuality     `json:"quality,omitempty"`
	EvaluationMode    *string            `json:"evaluation_mode,omitempty"`
	CreationInfo      *CreationInfo      `json:"creation_info,omitempty"`
}

// Magnitude is one magnitude estimate, optionally tied to the origin it was
// computed from.
type Magnitude struct {
	PublicID     ResourceReference  `json:"public_id"`
	Mag          RealQuantity       `json:"mag"`
	CreationTime *time.Time         `json:"creation_time,omitempty"`
	OriginID     *ResourceReference `json:"origin_id,omitempty"`
	MethodID     *ResourceReference `json:"method_id,omitempty"`
	Type         *string            `json:"type,omitempty"`
}

// EventDescription is a free-form annotation such as a region name.
type EventDescription struct {
	Text string  `json:"text"`
	Type *string `json:"type,omitempty"`
}

// Event is one seismic occurrence with its candidate origins and magnitudes.
// Slices keep document order; the resolver relies on it.
type Event struct {
	PublicID             ResourceReference  `json:"public_id"`
	Origins              []Origin           `json:"origins"`
	Magnitudes           []Magnitude        `json:"magnitudes"`
	Descriptions         []EventDescription `json:"descriptions"`
	PreferredOriginID    *ResourceReference `json:"preferred_origin_id,omitempty"`
	PreferredMagnitudeID *ResourceReference `json:"preferred_magnitude_id,omitempty"`
}

// EventParameters is the catalog envelope.
type EventParameters struct {
	Events       []Event      `json:"events"`
	CreationInfo CreationInfo `json:"creation_info"`
}

// Catalog is the decoded QuakeML document.
type Catalog struct {
	EventParameters EventParameters `json:"event_parameters"`
}

// Events is shorthand for c.EventParameters.Events.
func (c *Catalog) Events() []Event {
	return c.EventParameters.Events
}
