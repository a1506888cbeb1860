package extract

import (
	"errors"
	"strings"
)

var (
	// ErrEmptyResponse marks a response with no content, usually a safety filter.
	ErrEmptyResponse = errors.New("empty response from model")
	// ErrMalformedOutput marks content that is not JSON or violates the schema.
	ErrMalformedOutput = errors.New("malformed model output")
	// ErrService marks every other failure: unreadable image, transport, HTTP status.
	ErrService = errors.New("extraction failed")
)

// Error-log reasons.
const (
	ReasonEmptyResponse = "Empty response from model (check safety filters)"
	ReasonMalformed     = "JSON parsing error (model returned invalid format)"
	ReasonBlank         = "Blank card / no data found"
	reasonSystemPrefix  = "System error: "
	maxReasonLength     = 300
)

// Error pairs a classification with its cause.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func classify(kind, err error) error {
	return &Error{Kind: kind, Err: err}
}

// Reason returns the error-log text for an extraction failure.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyResponse):
		return ReasonEmptyResponse
	case errors.Is(err, ErrMalformedOutput):
		return ReasonMalformed
	}
	detail := err.Error()
	var classified *Error
	if errors.As(err, &classified) && classified.Err != nil {
		detail = classified.Err.Error()
	}
	detail = strings.Join(strings.Fields(detail), " ")
	if runes := []rune(detail); len(runes) > maxReasonLength {
		detail = string(runes[:maxReasonLength]) + "..."
	}
	return reasonSystemPrefix + detail
}

// Outcome names the error-log category of err, for metrics and the run journal.
func Outcome(err error) string {
	switch {
	case errors.Is(err, ErrEmptyResponse):
		return "empty_response"
	case errors.Is(err, ErrMalformedOutput):
		return "malformed_output"
	default:
		return "service_error"
	}
}
