package domain

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jacoelho/xsd/pkg/xmlstream"
)

// timeLayouts are the timestamp forms seen in QuakeML feeds. Values without a
// zone designator are taken as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// Decode parses a QuakeML document into a Catalog. Every failure is returned
// as a *DecodeError; nothing in here panics on malformed input.
func Decode(document string) (Catalog, error) {
	return DecodeReader(strings.NewReader(document))
}

// DecodeReader is Decode for an io.Reader.
func DecodeReader(r io.Reader) (Catalog, error) {
	root, err := parseTree(r)
	if err != nil {
		return Catalog{}, err
	}
	if root.name != "quakeml" {
		return Catalog{}, invalidValue("Catalog", "quakeml", fmt.Sprintf("unexpected root element %q", root.name))
	}

	el, err := root.one("Catalog", "eventParameters")
	if err != nil {
		return Catalog{}, err
	}
	params, err := decodeEventParameters(el)
	if err != nil {
		return Catalog{}, err
	}
	return Catalog{EventParameters: params}, nil
}

// element is a node of the parsed document. Names are local names: QuakeML
// prefixes (q:, bed:, anss:) carry no meaning for the mapping.
type element struct {
	name     string
	attrs    map[string]string
	text     strings.Builder
	children []*element
}

func parseTree(r io.Reader) (*element, error) {
	reader, err := xmlstream.NewReader(r)
	if err != nil {
		return nil, malformed(err)
	}

	var root *element
	var stack []*element
	for {
		ev, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, malformed(err)
		}

		switch ev.Kind {
		case xmlstream.EventStartElement:
			el := &element{name: ev.Name.Local}
			if len(ev.Attrs) > 0 {
				el.attrs = make(map[string]string, len(ev.Attrs))
				for _, attr := range ev.Attrs {
					el.attrs[attr.Name.Local] = string(attr.Value)
				}
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, &DecodeError{Kind: MalformedXML, Reason: "multiple root elements"}
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			}
			stack = append(stack, el)
		case xmlstream.EventEndElement:
			if len(stack) == 0 {
				return nil, &DecodeError{Kind: MalformedXML, Reason: "unbalanced end element"}
			}
			stack = stack[:len(stack)-1]
		case xmlstream.EventCharData:
			// Text is only valid until the next call to Next.
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(ev.Text)
			}
		}
	}

	if root == nil {
		return nil, &DecodeError{Kind: MalformedXML, Reason: "empty document"}
	}
	if len(stack) > 0 {
		return nil, &DecodeError{Kind: MalformedXML, Reason: fmt.Sprintf("unclosed element %q", stack[len(stack)-1].name)}
	}
	return root, nil
}

func malformed(err error) *DecodeError {
	return &DecodeError{Kind: MalformedXML, Reason: err.Error(), Err: err}
}

func (e *element) all(name string) []*element {
	var out []*element
	for _, c := range e.children {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

// one returns the single child called name, failing when it is absent or repeated.
func (e *element) one(entity, name string) (*element, error) {
	el, err := e.optional(entity, name)
	if err != nil {
		return nil, err
	}
	if el == nil {
		return nil, missingField(entity, name)
	}
	return el, nil
}

// optional returns the child called name or nil, failing only when repeated.
func (e *element) optional(entity, name string) (*element, error) {
	found := e.all(name)
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return found[0], nil
	default:
		return nil, invalidValue(entity, name, fmt.Sprintf("expected one element, found %d", len(found)))
	}
}

func (e *element) content() string {
	return strings.TrimSpace(e.text.String())
}

func (e *element) requiredAttr(entity, name string) (string, error) {
	v, ok := e.attrs[name]
	if !ok {
		return "", missingField(entity, name)
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", invalidValue(entity, name, "empty value")
	}
	return v, nil
}

func (e *element) optionalString(entity, name string) (*string, error) {
	el, err := e.optional(entity, name)
	if err != nil || el == nil {
		return nil, err
	}
	v := el.content()
	return &v, nil
}

func (e *element) optionalRef(entity, name string) (*ResourceReference, error) {
	s, err := e.optionalString(entity, name)
	if err != nil || s == nil {
		return nil, err
	}
	ref := ResourceReference(*s)
	return &ref, nil
}

func (e *element) optionalFloat(entity, name string) (*float64, error) {
	el, err := e.optional(entity, name)
	if err != nil || el == nil {
		return nil, err
	}
	v, err := parseReal(el.content(), entity, name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (e *element) optionalInt(entity, name string) (*int, error) {
	el, err := e.optional(entity, name)
	if err != nil || el == nil {
		return nil, err
	}
	v, err := strconv.Atoi(el.content())
	if err != nil {
		return nil, &DecodeError{Kind: InvalidNumber, Entity: entity, Field: name, Reason: fmt.Sprintf("%q is not an integer", el.content()), Err: err}
	}
	return &v, nil
}

// parseReal accepts xs:double lexical forms. strconv also takes hex floats
// and digit separators, which QuakeML does not allow.
func parseReal(s, entity, field string) (float64, error) {
	if strings.ContainsAny(s, "_xXpP") {
		return 0, &DecodeError{Kind: InvalidNumber, Entity: entity, Field: field, Reason: fmt.Sprintf("%q is not a number", s)}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &DecodeError{Kind: InvalidNumber, Entity: entity, Field: field, Reason: fmt.Sprintf("%q is not a number", s), Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &DecodeError{Kind: InvalidNumber, Entity: entity, Field: field, Reason: fmt.Sprintf("%q is not finite", s)}
	}
	return v, nil
}

func parseTimestamp(s, entity, field string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &DecodeError{Kind: InvalidTimestamp, Entity: entity, Field: field, Reason: fmt.Sprintf("%q is not an ISO 8601 timestamp", s)}
}

func decodeRealQuantity(parent *element, entity, field string) (RealQuantity, error) {
	el, err := parent.one(entity, field)
	if err != nil {
		return RealQuantity{}, err
	}
	q := quantityFields{el: el, entity: entity, field: field}
	raw, err := q.value()
	if err != nil {
		return RealQuantity{}, err
	}
	v, err := parseReal(raw, entity, field)
	if err != nil {
		return RealQuantity{}, err
	}
	out := RealQuantity{Value: v}
	if err := q.fill(&out.Uncertainty, &out.LowerUncertainty, &out.UpperUncertainty, &out.ConfidenceLevel); err != nil {
		return RealQuantity{}, err
	}
	return out, nil
}

func decodeTimeQuantity(parent *element, entity, field string) (TimeQuantity, error) {
	el, err := parent.one(entity, field)
	if err != nil {
		return TimeQuantity{}, err
	}
	q := quantityFields{el: el, entity: entity, field: field}
	raw, err := q.value()
	if err != nil {
		return TimeQuantity{}, err
	}
	t, err := parseTimestamp(raw, entity, field)
	if err != nil {
		return TimeQuantity{}, err
	}
	out := TimeQuantity{Value: t}
	if err := q.fill(&out.Uncertainty, &out.LowerUncertainty, &out.UpperUncertainty, &out.ConfidenceLevel); err != nil {
		return TimeQuantity{}, err
	}
	return out, nil
}

// quantityFields reads the children of a <value>/<uncertainty>/... quantity
// element, reporting errors as entity.field.child.
type quantityFields struct {
	el     *element
	entity string
	field  string
}

func (q quantityFields) value() (string, error) {
	found := q.el.all("value")
	switch len(found) {
	case 0:
		return "", missingField(q.entity, q.field+".value")
	case 1:
		return found[0].content(), nil
	default:
		return "", invalidValue(q.entity, q.field+".value", fmt.Sprintf("expected one element, found %d", len(found)))
	}
}

func (q quantityFields) fill(unc, lower, upper, conf **float64) error {
	names := []string{"uncertainty", "lowerUncertainty", "upperUncertainty", "confidenceLevel"}
	dst := []**float64{unc, lower, upper, conf}
	for i, name := range names {
		found := q.el.all(name)
		switch len(found) {
		case 0:
			continue
		case 1:
		default:
			return invalidValue(q.entity, q.field+"."+name, fmt.Sprintf("expected one element, found %d", len(found)))
		}
		v, err := parseReal(found[0].content(), q.entity, q.field+"."+name)
		if err != nil {
			return err
		}
		*dst[i] = &v
	}
	return nil
}

func decodeCreationInfo(el *element) (CreationInfo, error) {
	const entity = "CreationInfo"
	var info CreationInfo
	var err error
	if info.AgencyID, err = el.optionalString(entity, "agencyID"); err != nil {
		return CreationInfo{}, err
	}
	if info.AgencyURI, err = el.optionalString(entity, "agencyURI"); err != nil {
		return CreationInfo{}, err
	}
	ct, err := el.one(entity, "creationTime")
	if err != nil {
		return CreationInfo{}, err
	}
	if info.CreationTime, err = parseTimestamp(ct.content(), entity, "creationTime"); err != nil {
		return CreationInfo{}, err
	}
	return info, nil
}

func decodeOptionalCreationInfo(parent *element, entity string) (*CreationInfo, error) {
	el, err := parent.optional(entity, "creationInfo")
	if err != nil || el == nil {
		return nil, err
	}
	info, err := decodeCreationInfo(el)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func decodeOriginQuality(el *element) (OriginQuality, error) {
	const entity = "OriginQuality"
	var q OriginQuality
	var err error
	if q.UsedStationCount, err = el.optionalInt(entity, "usedStationCount"); err != nil {
		return OriginQuality{}, err
	}
	if q.UsedPhaseCount, err = el.optionalInt(entity, "usedPhaseCount"); err != nil {
		return OriginQuality{}, err
	}
	if q.StandardError, err = el.optionalFloat(entity, "standardError"); err != nil {
		return OriginQuality{}, err
	}
	if q.AzimuthalGap, err = el.optionalFloat(entity, "azimuthalGap"); err != nil {
		return OriginQuality{}, err
	}
	return q, nil
}

func decodeOriginUncertainty(el *element) (OriginUncertainty, error) {
	const entity = "OriginUncertainty"
	h, err := el.one(entity, "horizontalUncertainty")
	if err != nil {
		return OriginUncertainty{}, err
	}
	v, err := parseReal(h.content(), entity, "horizontalUncertainty")
	if err != nil {
		return OriginUncertainty{}, err
	}
	desc, err := el.optionalString(entity, "preferredDescription")
	if err != nil {
		return OriginUncertainty{}, err
	}
	return OriginUncertainty{HorizontalUncertainty: v, PreferredDescription: desc}, nil
}

func decodeOrigin(el *element) (Origin, error) {
	const entity = "Origin"
	id, err := el.requiredAttr(entity, "publicID")
	if err != nil {
		return Origin{}, err
	}
	o := Origin{PublicID: ResourceReference(id)}

	if o.Time, err = decodeTimeQuantity(el, entity, "time"); err != nil {
		return Origin{}, err
	}
	if o.Longitude, err = decodeRealQuantity(el, entity, "longitude"); err != nil {
		return Origin{}, err
	}
	if o.Latitude, err = decodeRealQuantity(el, entity, "latitude"); err != nil {
		return Origin{}, err
	}
	if o.Depth, err = decodeRealQuantity(el, entity, "depth"); err != nil {
		return Origin{}, err
	}

	if u, err := el.optional(entity, "originUncertainty"); err != nil {
		return Origin{}, err
	} else if u != nil {
		unc, err := decodeOriginUncertainty(u)
		if err != nil {
			return Origin{}, err
		}
		o.OriginUncertainty = &unc
	}
	if q, err := el.optional(entity, "quality"); err != nil {
		return Origin{}, err
	} else if q != nil {
		quality, err := decodeOriginQuality(q)
		if err != nil {
			return Origin{}, err
		}
		o.Quality = &quality
	}
	if o.EvaluationMode, err = el.optionalString(entity, "evaluationMode"); err != nil {
		return Origin{}, err
	}
	if o.CreationInfo, err = decodeOptionalCreationInfo(el, entity); err != nil {
		return Origin{}, err
	}
	return o, nil
}

func decodeMagnitude(el *element) (Magnitude, error) {
	const entity = "Magnitude"
	id, err := el.requiredAttr(entity, "publicID")
	if err != nil {
		return Magnitude{}, err
	}
	m := Magnitude{PublicID: ResourceReference(id)}

	if m.Mag, err = decodeRealQuantity(el, entity, "mag"); err != nil {
		return Magnitude{}, err
	}
	if m.CreationTime, err = magnitudeCreationTime(el); err != nil {
		return Magnitude{}, err
	}
	if m.OriginID, err = el.optionalRef(entity, "originID"); err != nil {
		return Magnitude{}, err
	}
	if m.MethodID, err = el.optionalRef(entity, "methodID"); err != nil {
		return Magnitude{}, err
	}
	if m.Type, err = el.optionalString(entity, "type"); err != nil {
		return Magnitude{}, err
	}
	return m, nil
}

// magnitudeCreationTime accepts a direct <creationTime> child or the
// <creationInfo><creationTime> nesting that FDSN services emit.
func magnitudeCreationTime(el *element) (*time.Time, error) {
	const entity = "Magnitude"
	ct, err := el.optional(entity, "creationTime")
	if err != nil {
		return nil, err
	}
	if ct == nil {
		info, err := el.optional(entity, "creationInfo")
		if err != nil || info == nil {
			return nil, err
		}
		if ct, err = info.optional("CreationInfo", "creationTime"); err != nil || ct == nil {
			return nil, err
		}
	}
	t, err := parseTimestamp(ct.content(), entity, "creationTime")
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// decodeDescription takes the text from a <text> child or, failing that, the
// element body; the type from the type attribute or a <type> child.
func decodeDescription(el *element) (EventDescription, error) {
	const entity = "EventDescription"
	var d EventDescription

	textEl, err := el.optional(entity, "text")
	if err != nil {
		return EventDescription{}, err
	}
	if textEl != nil {
		d.Text = textEl.content()
	} else {
		d.Text = el.content()
	}
	if d.Text == "" {
		return EventDescription{}, missingField(entity, "text")
	}

	if t, ok := el.attrs["type"]; ok {
		t = strings.TrimSpace(t)
		d.Type = &t
	} else if d.Type, err = el.optionalString(entity, "type"); err != nil {
		return EventDescription{}, err
	}
	return d, nil
}

func decodeEvent(el *element) (Event, error) {
	const entity = "Event"
	id, err := el.requiredAttr(entity, "publicID")
	if err != nil {
		return Event{}, err
	}
	ev := Event{PublicID: ResourceReference(id)}

	originEls := el.all("origin")
	if len(originEls) == 0 {
		return Event{}, missingField(entity, "origin")
	}
	ev.Origins = make([]Origin, 0, len(originEls))
	for _, o := range originEls {
		origin, err := decodeOrigin(o)
		if err != nil {
			return Event{}, err
		}
		ev.Origins = append(ev.Origins, origin)
	}

	magEls := el.all("magnitude")
	ev.Magnitudes = make([]Magnitude, 0, len(magEls))
	for _, m := range magEls {
		mag, err := decodeMagnitude(m)
		if err != nil {
			return Event{}, err
		}
		ev.Magnitudes = append(ev.Magnitudes, mag)
	}

	descEls := el.all("description")
	ev.Descriptions = make([]EventDescription, 0, len(descEls))
	for _, d := range descEls {
		desc, err := decodeDescription(d)
		if err != nil {
			return Event{}, err
		}
		ev.Descriptions = append(ev.Descriptions, desc)
	}

	if ev.PreferredOriginID, err = el.optionalRef(entity, "preferredOriginID"); err != nil {
		return Event{}, err
	}
	if ev.PreferredMagnitudeID, err = el.optionalRef(entity, "preferredMagnitudeID"); err != nil {
		return Event{}, err
	}
	return ev, nil
}

func decodeEventParameters(el *element) (EventParameters, error) {
	const entity = "EventParameters"
	eventEls := el.all("event")
	if len(eventEls) == 0 {
		return EventParameters{}, missingField(entity, "event")
	}

	params := EventParameters{Events: make([]Event, 0, len(eventEls))}
	for _, e := range eventEls {
		ev, err := decodeEvent(e)
		if err != nil {
			return EventParameters{}, err
		}
		params.Events = append(params.Events, ev)
	}

	info, err := el.one(entity, "creationInfo")
	if err != nil {
		return EventParameters{}, err
	}
	if params.CreationInfo, err = decodeCreationInfo(info); err != nil {
		return EventParameters{}, err
	}
	return params, nil
}
