package internal

import (
	"errors"
	"fmt"
)

var (
	ErrNoText             = errors.New("no extractable text")
	ErrNoAddressMarker    = errors.New("sold to / ship to marker not found")
	ErrNoSONumber         = errors.New("no sales order number found")
	ErrLLMUnavailable     = errors.New("llm unavailable")
	ErrMalformedLLMOutput = errors.New("malformed llm output")
)

// ParseError is returned when a sales order document cannot be read at all.
type ParseError struct {
	Op   string
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// EmailParseError is returned when a shipment email lacks a mandatory field.
type EmailParseError struct {
	Reason string
	Err    error
}

func (e *EmailParseError) Error() string {
	if e.Err == nil {
		return "email parse: " + e.Reason
	}
	return fmt.Sprintf("email parse: %s: %v", e.Reason, e.Err)
}

func (e *EmailParseError) Unwrap() error { return e.Err }

// ExternalServiceError wraps failures of the language model or mail providers.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }
