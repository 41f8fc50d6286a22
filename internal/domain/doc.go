// Package domain models QuakeML seismic event catalogs.
//
// # Data Source
//
// Catalogs come from FDSN event web services, chiefly the USGS ComCat
// endpoint at https://earthquake.usgs.gov/fdsnws/event/1/query with
// format=quakeml. Each document is one <q:quakeml> root holding a single
// <eventParameters> envelope with one or more <event> elements.
//
// # QuakeML Conventions
//
// Identifiers:
//
//	Every origin, magnitude and event carries a publicID attribute, usually a
//	URI such as "quakeml:earthquake.usgs.gov/fdsnws/event/1/query?eventid=ci14517572&format=quakeml".
//	They are opaque: only equality is meaningful, and only between entities of
//	the same kind.
//
// Quantities:
//
//	Measured values are wrapped: <latitude><value>34.2</value><uncertainty>0.5</uncertainty></latitude>.
//	Depth is in meters. Times are ISO 8601 UTC, e.g. "2010-01-01T00:05:12.440Z".
//
// Preferred references:
//
//	An event lists every origin and magnitude its contributors produced.
//	<preferredOriginID> and <preferredMagnitudeID> name the authoritative ones.
//	With a single candidate the reference is optional and ignored; with
//	several, a missing or unmatched reference is a [ResolutionError].
//
// # Decoding
//
// [Decode] tokenizes the document with xmlstream, builds an element tree and
// maps it field by field. Names match on local name, so any namespace prefix
// works. Required fields that are absent produce [ErrMissingField]; present
// but unusable values produce [ErrInvalidValue], [ErrInvalidNumber] or
// [ErrInvalidTimestamp]. Optional fields are nil pointers when absent.
// Magnitudes and descriptions default to empty slices; origins do not, an
// event needs at least one.
//
// # Summaries
//
// [Summarize] reduces a catalog to its event count and the min/max preferred
// magnitude. Catalog values are never mutated after decoding, so decoding and
// summarizing independent documents concurrently needs no locking.
package domain
