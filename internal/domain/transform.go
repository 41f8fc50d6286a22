package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Flatten resolves the event's preferred origin and magnitude and builds its
// output record. Resolution errors are returned unchanged.
func Flatten(event Event) (QuakeEvent, error) {
	origin, err := event.PreferredOrigin()
	if err != nil {
		return QuakeEvent{}, err
	}
	mag, err := event.PreferredMagnitude()
	if err != nil {
		return QuakeEvent{}, err
	}

	out := QuakeEvent{
		ID:         string(event.PublicID),
		OriginID:   string(origin.PublicID),
		OriginTime: origin.Time.Value,
		Hypocenter: Hypocenter{
			Lat:   origin.Latitude.Value,
			Lon:   origin.Longitude.Value,
			Depth: origin.Depth.Value,
		},
		EvaluationMode: deref(origin.EvaluationMode),
		OriginCount:    len(event.Origins),
		MagnitudeCount: len(event.Magnitudes),
		ProcessedAt:    clock.Now().UTC(),
	}
	if origin.CreationInfo != nil {
		out.Agency = deref(origin.CreationInfo.AgencyID)
	}
	if mag != nil {
		v := mag.Mag.Value
		out.Magnitude = &v
		out.MagnitudeType = deref(mag.Type)
		out.MagnitudeID = string(mag.PublicID)
	}
	if len(event.Descriptions) > 0 {
		out.Description = event.Descriptions[0].Text
	}
	return out, nil
}

// SerializeQuakeEvent marshals a QuakeEvent into a sink message keyed by event id.
func SerializeQuakeEvent(event QuakeEvent) (OutputEvent, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize quake event: %w", err)
	}
	headers := map[string]string{
		"event_id":     event.ID,
		"processed_at": event.ProcessedAt.Format(time.RFC3339),
	}
	if event.MagnitudeType != "" {
		headers["magnitude_type"] = event.MagnitudeType
	}
	return OutputEvent{
		Key:     []byte(event.ID),
		Value:   data,
		Headers: headers,
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
