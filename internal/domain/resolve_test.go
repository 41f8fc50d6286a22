package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreferredOrigin(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		wantID  ResourceReference
		wantErr error
	}{
		{
			name:   "single origin without preference",
			event:  Event{Origins: []Origin{testOrigin("o-1")}},
			wantID: "o-1",
		},
		{
			name:   "single origin ignores dangling preference",
			event:  Event{Origins: []Origin{testOrigin("o-1")}, PreferredOriginID: ref("o-9")},
			wantID: "o-1",
		},
		{
			name:   "preferred among several",
			event:  Event{Origins: []Origin{testOrigin("o-1"), testOrigin("o-2"), testOrigin("o-3")}, PreferredOriginID: ref("o-2")},
			wantID: "o-2",
		},
		{
			name:    "several without preference",
			event:   Event{Origins: []Origin{testOrigin("o-1"), testOrigin("o-2")}},
			wantErr: ErrNoPreferenceDeclared,
		},
		{
			name:    "dangling preference",
			event:   Event{Origins: []Origin{testOrigin("o-1"), testOrigin("o-2")}, PreferredOriginID: ref("o-3")},
			wantErr: ErrDanglingReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origin, err := tt.event.PreferredOrigin()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, origin)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, origin.PublicID)
		})
	}
}

func TestPreferredOrigin_DuplicateIDsFirstWins(t *testing.T) {
	first := testOrigin("o-dup")
	first.Depth.Value = 1000
	second := testOrigin("o-dup")
	second.Depth.Value = 2000
	event := Event{Origins: []Origin{testOrigin("o-1"), first, second}, PreferredOriginID: ref("o-dup")}

	origin, err := event.PreferredOrigin()
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, origin.Depth.Value, 1e-9)
	assert.Same(t, &event.Origins[1], origin)
}

func TestPreferredOrigin_DanglingReportsReference(t *testing.T) {
	event := Event{Origins: []Origin{testOrigin("o-1"), testOrigin("o-2")}, PreferredOriginID: ref("o-404")}

	_, err := event.PreferredOrigin()
	var resErr *ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, DanglingReference, resErr.Kind)
	assert.Equal(t, "Origin", resErr.Entity)
	assert.Equal(t, ResourceReference("o-404"), resErr.Reference)
	assert.NotErrorIs(t, err, ErrNoPreferenceDeclared)
}

func TestPreferredMagnitude(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		wantID  ResourceReference
		wantNil bool
		wantErr error
	}{
		{
			name:    "no magnitudes",
			event:   Event{Magnitudes: []Magnitude{}},
			wantNil: true,
		},
		{
			name:   "single magnitude",
			event:  Event{Magnitudes: []Magnitude{testMagnitude("m-1", 3.1)}},
			wantID: "m-1",
		},
		{
			name:   "preferred among several",
			event:  Event{Magnitudes: []Magnitude{testMagnitude("m1", 3.0), testMagnitude("m2", 5.0)}, PreferredMagnitudeID: ref("m2")},
			wantID: "m2",
		},
		{
			name:    "several without preference",
			event:   Event{Magnitudes: []Magnitude{testMagnitude("m1", 3.0), testMagnitude("m2", 5.0)}},
			wantErr: ErrNoPreferenceDeclared,
		},
		{
			name:    "dangling preference",
			event:   Event{Magnitudes: []Magnitude{testMagnitude("m1", 3.0), testMagnitude("m2", 5.0)}, PreferredMagnitudeID: ref("m3")},
			wantErr: ErrDanglingReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mag, err := tt.event.PreferredMagnitude()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, mag)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, mag)
				return
			}
			require.NotNil(t, mag)
			assert.Equal(t, tt.wantID, mag.PublicID)
		})
	}
}

func TestPreferredMagnitude_DoesNotMatchOriginID(t *testing.T) {
	m1 := testMagnitude("m1", 3.0)
	m1.OriginID = ref("o-1")
	m2 := testMagnitude("m2", 5.0)
	event := Event{Magnitudes: []Magnitude{m1, m2}, PreferredMagnitudeID: ref("o-1")}

	_, err := event.PreferredMagnitude()
	assert.ErrorIs(t, err, ErrDanglingReference)
}

func TestPreferredMagnitudeValue(t *testing.T) {
	event := Event{
		Origins:              []Origin{testOrigin("o-1")},
		Magnitudes:           []Magnitude{testMagnitude("m1", 3.0), testMagnitude("m2", 5.0)},
		PreferredMagnitudeID: ref("m2"),
	}

	v, ok, err := event.PreferredMagnitudeValue()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 5.0, v, 1e-9)

	empty := Event{Origins: []Origin{testOrigin("o-1")}}
	_, ok, err = empty.PreferredMagnitudeValue()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPreferredResolution_FromDocument(t *testing.T) {
	doc := quakeml(eventXML("e-1",
		originXML("o-1"),
		originXML("o-2"),
		magnitudeXML("m1", "3.0"),
		magnitudeXML("m2", "5.0"),
		"<preferredOriginID>o-2</preferredOriginID>",
		"<preferredMagnitudeID>m2</preferredMagnitudeID>",
	))

	catalog, err := Decode(doc)
	require.NoError(t, err)

	event := catalog.Events()[0]
	origin, err := event.PreferredOrigin()
	require.NoError(t, err)
	assert.Equal(t, ResourceReference("o-2"), origin.PublicID)

	mag, err := event.PreferredMagnitude()
	require.NoError(t, err)
	assert.InDelta(t, 5.0, mag.Mag.Value, 1e-9)
}

func TestResolutionError_Message(t *testing.T) {
	err := &ResolutionError{Kind: DanglingReference, Entity: "Magnitude", Reference: "m3"}
	assert.Equal(t, `dangling reference: preferred Magnitude "m3" not found`, err.Error())

	err = &ResolutionError{Kind: NoPreferenceDeclared, Entity: "Origin"}
	assert.Equal(t, "no preference declared: multiple Origin candidates and no preferred reference", err.Error())
}
