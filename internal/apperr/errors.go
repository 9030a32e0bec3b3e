package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies a failure class. Kinds are stable strings so they can be
// logged and matched without depending on message text.
type Kind string

const (
	// KindInvalidPayload covers empty, undecodable or unreadable requests.
	KindInvalidPayload Kind = "INVALID_PAYLOAD"
	// KindFileAccess indicates the dataset could not be read.
	KindFileAccess Kind = "FILE_ACCESS"
	// KindTransport covers resets and socket failures while replying.
	KindTransport Kind = "TRANSPORT"
	// KindEncoding indicates dataset bytes that are not valid UTF-8.
	KindEncoding Kind = "ENCODING"
	// KindTLSSetup is a startup-only failure building the TLS configuration.
	KindTLSSetup Kind = "TLS_SETUP"
	// KindInternal is used for errors that carry no kind.
	KindInternal Kind = "INTERNAL"
)

const (
	ReplyExists      = "STRING EXISTS"
	ReplyNotExist    = "STRING NOT EXIST"
	ReplyServerError = "SERVER ERROR"
	replyErrorPrefix = "ERROR: "
)

type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func New(kind Kind, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		cause:   cause,
	}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func InvalidPayload(message string, cause error) *Error {
	return New(KindInvalidPayload, message, cause)
}

func FileAccess(message string, cause error) *Error {
	return New(KindFileAccess, message, cause)
}

func Encoding(message string, cause error) *Error {
	return New(KindEncoding, message, cause)
}

func Transport(message string, cause error) *Error {
	return New(KindTransport, message, cause)
}

func TLSSetup(message string, cause error) *Error {
	return New(KindTLSSetup, message, cause)
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Reply maps an error to the text written back to the client. Only invalid
// payloads echo their message; everything else is reported as SERVER ERROR.
func Reply(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindInvalidPayload {
		return replyErrorPrefix + e.Message
	}
	return ReplyServerError
}
