package domain

// PreferredOrigin returns the authoritative origin of the event.
//
// A lone origin is returned as-is, whatever preferredOriginID says. With
// several candidates the preferred reference must be set and must match an
// origin's publicID; the first match in document order wins.
func (e *Event) PreferredOrigin() (*Origin, error) {
	if len(e.Origins) == 1 {
		return &e.Origins[0], nil
	}
	if e.PreferredOriginID == nil {
		return nil, &ResolutionError{Kind: NoPreferenceDeclared, Entity: "Origin"}
	}
	for i := range e.Origins {
		if e.Origins[i].PublicID == *e.PreferredOriginID {
			return &e.Origins[i], nil
		}
	}
	return nil, &ResolutionError{Kind: DanglingReference, Entity: "Origin", Reference: *e.PreferredOriginID}
}

// PreferredMagnitude returns the authoritative magnitude of the event, or
// nil without error when the event has no magnitudes at all.
//
// preferredMagnitudeID is matched against each magnitude's own publicID,
// never transitively through originID.
func (e *Event) PreferredMagnitude() (*Magnitude, error) {
	switch len(e.Magnitudes) {
	case 0:
		return nil, nil
	case 1:
		return &e.Magnitudes[0], nil
	}
	if e.PreferredMagnitudeID == nil {
		return nil, &ResolutionError{Kind: NoPreferenceDeclared, Entity: "Magnitude"}
	}
	for i := range e.Magnitudes {
		if e.Magnitudes[i].PublicID == *e.PreferredMagnitudeID {
			return &e.Magnitudes[i], nil
		}
	}
	return nil, &ResolutionError{Kind: DanglingReference, Entity: "Magnitude", Reference: *e.PreferredMagnitudeID}
}

// PreferredMagnitudeValue is PreferredMagnitude reduced to its value.
// ok is false when the event carries no magnitude.
func (e *Event) PreferredMagnitudeValue() (value float64, ok bool, err error) {
	m, err := e.PreferredMagnitude()
	if err != nil || m == nil {
		return 0, false, err
	}
	return m.Mag.Value, true, nil
}
