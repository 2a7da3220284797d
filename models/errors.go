package models

import (
	"errors"
	"fmt"
	"strings"
)

// OutputError is implemented by every error this subsystem can produce
// from model output. Callers can use it to tell "the model output could
// not be understood" apart from collaborator failures (network, Redis,
// Pinecone), which are plain wrapped errors.
type OutputError interface {
	error
	outputError()
}

// IsOutputError reports whether err (or anything it wraps) belongs to
// the model-output error taxonomy.
func IsOutputError(err error) bool {
	var oe OutputError
	return errors.As(err, &oe)
}

// MalformedResponseError means the raw response had the wrong shape:
// wrong line count, unparsable JSON, or a missing required key.
type MalformedResponseError struct {
	Expected string
	Got      string
	Raw      string
}

func (e *MalformedResponseError) Error() string {
	msg := fmt.Sprintf("malformed response: expected %s, got %s", e.Expected, e.Got)
	if e.Raw != "" {
		msg += "\nresponse:\n" + e.Raw
	}
	return msg
}

func (*MalformedResponseError) outputError() {}

// InvalidEnumValueError means a recognized field carried a value outside
// its closed set.
type InvalidEnumValueError struct {
	Field   string
	Value   string
	Allowed []string
}

func (e *InvalidEnumValueError) Error() string {
	return fmt.Sprintf("invalid %s value %q, allowed values are: %s",
		e.Field, e.Value, strings.Join(e.Allowed, ", "))
}

func (*InvalidEnumValueError) outputError() {}

// InvalidConfidenceError means a confidence value was not numeric or was
// outside [0,1].
type InvalidConfidenceError struct {
	Value string
}

func (e *InvalidConfidenceError) Error() string {
	return fmt.Sprintf("invalid confidence value %q, must be a number in [0,1]", e.Value)
}

func (*InvalidConfidenceError) outputError() {}

// IncompleteOutputError means assembly of the aggregate result found a
// required field missing.
type IncompleteOutputError struct {
	Missing string
}

func (e *IncompleteOutputError) Error() string {
	return fmt.Sprintf("incomplete analysis output: missing required field %q", e.Missing)
}

func (*IncompleteOutputError) outputError() {}

// ResponseParsingError wraps the precise sub-reason a parsing strategy
// failed, preserving the full raw response for diagnosis.
type ResponseParsingError struct {
	Raw string
	Err error
}

func (e *ResponseParsingError) Error() string {
	return fmt.Sprintf("failed to parse model response: %v", e.Err)
}

func (e *ResponseParsingError) Unwrap() error {
	return e.Err
}

func (*ResponseParsingError) outputError() {}
