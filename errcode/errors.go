package errcode

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ErrorCode represents the error type. The errors are serialized via strings
// and the integer format may change and should not be depended upon.
type ErrorCode int

// ErrorDescriptor provides relevant information about a given error code.
type ErrorDescriptor struct {
	// Code is the error code that this descriptor describes.
	Code ErrorCode

	// Value provides a unique, string key, often captured in constants,
	// that identifies the error code. This value is used as the keyed
	// value when serializing the error.
	Value string

	// Message is a short, human readable description of the error
	// condition. It may include '%s'/'%q' substitutions to be filled by
	// WithArgs.
	Message string

	// Description provides a complete account of the errors purpose,
	// suitable for use in documentation.
	Description string

	// HTTPStatusCode provides the http status code that is associated with
	// this error condition, when the error is surfaced over an
	// administrative HTTP interface. This is only meaningful there: the
	// wire protocol carries no status codes.
	HTTPStatusCode int
}

// ParseErrorCode attempts to parse the error code string, returning
// ErrorCodeUnknown if the lookup fails.
func ParseErrorCode(value string) ErrorCode {
	ed, ok := idToDescriptors[value]
	if !ok {
		return ErrorCodeUnknown
	}

	return ed.Code
}

// Descriptor returns the descriptor for the error code.
func (ec ErrorCode) Descriptor() ErrorDescriptor {
	d, ok := errorCodeToDescriptors[ec]
	if !ok {
		return ErrorCodeUnknown.Descriptor()
	}

	return d
}

// ErrorCode just returns itself, so a bare ErrorCode satisfies ErrorCoder.
func (ec ErrorCode) ErrorCode() ErrorCode {
	return ec
}

// String returns the canonical identifier for this error code.
func (ec ErrorCode) String() string {
	return ec.Descriptor().Value
}

// Message returned the human-readable error message for this error code.
func (ec ErrorCode) Message() string {
	return ec.Descriptor().Message
}

// Error renders the error code as a plain error, satisfying the error
// interface on the bare ErrorCode value, without the extra Message/Detail
// carried by Error.
func (ec ErrorCode) Error() string {
	return strings.ToLower(strings.ReplaceAll(ec.String(), "_", " "))
}

// MarshalText encodes the receiver into UTF-8-encoded text and returns the
// result.
func (ec ErrorCode) MarshalText() (text []byte, err error) {
	return []byte(ec.String()), nil
}

// UnmarshalText decodes the form generated by MarshalText.
func (ec *ErrorCode) UnmarshalText(text []byte) error {
	*ec = ParseErrorCode(string(text))

	return nil
}

// WithDetail creates a new Error struct based on the passed-in info and
// set the Detail property appropriately without modifying the error code
// receiver value.
func (ec ErrorCode) WithDetail(detail interface{}) Error {
	return Error{
		Code:    ec,
		Message: ec.Message(),
	}.WithDetail(detail)
}

// WithArgs creates a new Error struct and sets the Args slice without
// modifying the error code receiver value.
func (ec ErrorCode) WithArgs(args ...interface{}) Error {
	return Error{
		Code:    ec,
		Message: ec.Message(),
	}.WithArgs(args...)
}

// Error provides a wrapper around ErrorCode with extra Details provided.
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Detail  interface{} `json:"detail,omitempty"`

	// Args are the substitution arguments that may be appended to Message
	// by WithArgs, recorded separately so they can still be replaced later.
	args []interface{}
}

// ErrorCoder is implemented by error types that are identified by an
// ErrorCode.
type ErrorCoder interface {
	ErrorCode() ErrorCode
}

var _ error = Error{}
var _ error = ErrorCode(0)
var _ ErrorCoder = Error{}
var _ ErrorCoder = ErrorCode(0)

// ErrorCode returns the ID/Value of this Error.
func (e Error) ErrorCode() ErrorCode {
	return e.Code
}

// Error returns a human readable representation of the error.
func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", strings.ToLower(strings.ReplaceAll(e.Code.String(), "_", " ")), e.Message)
}

// WithDetail will return a new Error, based on the current one, but with
// the Detail member set to the given value. It does not modify the
// original Error.
func (e Error) WithDetail(detail interface{}) Error {
	return Error{
		Code:    e.Code,
		Message: e.Message,
		Detail:  detail,
		args:    e.args,
	}
}

// WithArgs will return a new Error, based on the current one, but with the
// Message formatted with the provided args, re-derived from the
// ErrorCode's original message template. It does not modify the original
// Error.
func (e Error) WithArgs(args ...interface{}) Error {
	return Error{
		Code:    e.Code,
		Message: fmt.Sprintf(e.Code.Message(), args...),
		Detail:  e.Detail,
		args:    args,
	}
}

// Errors provides the envelope for multiple errors and a JSON report
// format that matches `{"errors":[...]}`.
type Errors []error

var _ error = Errors{}

func (errs Errors) Error() string {
	switch len(errs) {
	case 0:
		return "<nil>"
	case 1:
		return errs[0].Error()
	default:
		msg := "errors:\n"
		for _, err := range errs {
			msg += err.Error() + "\n"
		}
		return msg
	}
}

// MarshalJSON converts slice of error, ErrorCode or Error into a slice of
// Error - then serializes.
func (errs Errors) MarshalJSON() ([]byte, error) {
	var tmpErrs struct {
		Errors []Error `json:"errors"`
	}

	for _, daErr := range errs {
		var newErr Error
		switch daErr := daErr.(type) {
		case ErrorCode:
			newErr = daErr.WithDetail(nil)
			newErr.Detail = nil
		case Error:
			newErr = daErr
		default:
			newErr = ErrorCodeUnknown.WithDetail(daErr.Error())
		}

		tmpErrs.Errors = append(tmpErrs.Errors, newErr)
	}

	return json.Marshal(tmpErrs)
}

// UnmarshalJSON deserializes []Error and then converts it into slice of
// error.
func (errs *Errors) UnmarshalJSON(data []byte) error {
	var tmpErrs struct {
		Errors []Error
	}

	if err := json.Unmarshal(data, &tmpErrs); err != nil {
		return err
	}

	var newErrs Errors
	for _, daErr := range tmpErrs.Errors {
		// timestamp is not serialized so we retain the simple Error shape
		newErrs = append(newErrs, daErr)
	}
	*errs = newErrs

	return nil
}
