package codec

import (
	"errors"
	"fmt"
)

// DecodeErrorKind classifies reply decoding errors.
type DecodeErrorKind int

const (
	// DecodeErrorSyntax indicates the payload is not a single record.
	DecodeErrorSyntax DecodeErrorKind = iota
	// DecodeErrorShape indicates a field has the wrong type.
	DecodeErrorShape
	// DecodeErrorInvalid indicates a well-typed record that breaks a wire rule.
	DecodeErrorInvalid
	// DecodeErrorTooLarge indicates a payload exceeding MaxPayloadSize.
	DecodeErrorTooLarge
)

// String returns a short name for the kind.
func (k DecodeErrorKind) String() string {
	switch k {
	case DecodeErrorSyntax:
		return "syntax"
	case DecodeErrorShape:
		return "shape"
	case DecodeErrorInvalid:
		return "invalid"
	case DecodeErrorTooLarge:
		return "too_large"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DecodeError represents a payload decoding error.
type DecodeError struct {
	Kind  DecodeErrorKind
	Codec string
	Msg   string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError returns true if err is, or wraps, a *DecodeError.
func IsDecodeError(err error) bool {
	var decodeErr *DecodeError
	return errors.As(err, &decodeErr)
}
