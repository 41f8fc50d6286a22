package domain

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is matching against *DecodeError and *ResolutionError.
var (
	ErrMalformedXML     = errors.New("malformed xml")
	ErrMissingField     = errors.New("missing field")
	ErrInvalidValue     = errors.New("invalid value")
	ErrInvalidNumber    = errors.New("invalid number")
	ErrInvalidTimestamp = errors.New("invalid timestamp")

	ErrNoPreferenceDeclared = errors.New("no preference declared")
	ErrDanglingReference    = errors.New("dangling reference")
)

// DecodeErrorKind classifies a DecodeError.
type DecodeErrorKind int

const (
	MalformedXML DecodeErrorKind = iota
	MissingField
	InvalidValue
	InvalidNumber
	InvalidTimestamp
)

func (k DecodeErrorKind) String() string {
	switch k {
	case MissingField:
		return "missing_field"
	case InvalidValue:
		return "invalid_value"
	case InvalidNumber:
		return "invalid_number"
	case InvalidTimestamp:
		return "invalid_timestamp"
	default:
		return "malformed_xml"
	}
}

func (k DecodeErrorKind) sentinel() error {
	switch k {
	case MissingField:
		return ErrMissingField
	case InvalidValue:
		return ErrInvalidValue
	case InvalidNumber:
		return ErrInvalidNumber
	case InvalidTimestamp:
		return ErrInvalidTimestamp
	default:
		return ErrMalformedXML
	}
}

// DecodeError reports why a document could not be turned into a Catalog.
// Entity and Field name the schema element at fault (e.g. "Origin", "time").
type DecodeError struct {
	Kind   DecodeErrorKind
	Entity string
	Field  string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.Entity != "" {
		msg += fmt.Sprintf(" %s.%s", e.Entity, e.Field)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is matches the sentinel for the error's kind.
func (e *DecodeError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func missingField(entity, field string) *DecodeError {
	return &DecodeError{Kind: MissingField, Entity: entity, Field: field}
}

func invalidValue(entity, field, reason string) *DecodeError {
	return &DecodeError{Kind: InvalidValue, Entity: entity, Field: field, Reason: reason}
}

// ResolutionErrorKind classifies a ResolutionError.
type ResolutionErrorKind int

const (
	NoPreferenceDeclared ResolutionErrorKind = iota
	DanglingReference
)

func (k ResolutionErrorKind) String() string {
	if k == DanglingReference {
		return "dangling_reference"
	}
	return "no_preference_declared"
}

// ResolutionError reports that an event's preferred origin or magnitude
// cannot be determined. Entity is "Origin" or "Magnitude".
type ResolutionError struct {
	Kind      ResolutionErrorKind
	Entity    string
	Reference ResourceReference
}

func (e *ResolutionError) Error() string {
	if e.Kind == DanglingReference {
		return fmt.Sprintf("%s: preferred %s %q not found", ErrDanglingReference, e.Entity, e.Reference)
	}
	return fmt.Sprintf("%s: multiple %s candidates and no preferred reference", ErrNoPreferenceDeclared, e.Entity)
}

// Is matches ErrNoPreferenceDeclared or ErrDanglingReference.
func (e *ResolutionError) Is(target error) bool {
	switch e.Kind {
	case DanglingReference:
		return target == ErrDanglingReference
	default:
		return target == ErrNoPreferenceDeclared
	}
}
