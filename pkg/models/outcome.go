package models

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind discriminates the terminal result of one remote invocation.
// Exactly one kind applies per call.
type Kind int

const (
	KindSuccess Kind = iota
	KindClientError
	KindServerError
	KindTransportFailure
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindClientError:
		return "client_error"
	case KindServerError:
		return "server_error"
	case KindTransportFailure:
		return "transport_failure"
	}
	return "unknown"
}

// FailureReason narrows a transport failure when no HTTP status was obtained.
type FailureReason string

const (
	// FailureConnect covers DNS and connection-level errors that are not
	// timeouts.
	FailureConnect        FailureReason = "connect"
	FailureConnectTimeout FailureReason = "connect_timeout"
	FailureReadTimeout    FailureReason = "read_timeout"
	FailureDecode         FailureReason = "decode_error"
	FailureCancelled      FailureReason = "cancelled"
)

// RawResponse is the undecoded result of a network exchange: status code,
// headers and a fully buffered body. It is owned by a single invocation.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Outcome is the classified result of one invocation. Only the fields
// relevant to Kind are populated:
//   - KindSuccess: StatusCode, Header, Decoded
//   - KindClientError: StatusCode, RawBody, OperationKey
//   - KindServerError: StatusCode, RawBody
//   - KindTransportFailure: Reason, Cause
type Outcome struct {
	Kind         Kind
	StatusCode   int
	Header       http.Header
	Decoded      any
	RawBody      []byte
	OperationKey string
	Reason       FailureReason
	Cause        error
}

// Success builds a success outcome around an already-decoded body.
func Success(status int, header http.Header, decoded any) *Outcome {
	return &Outcome{Kind: KindSuccess, StatusCode: status, Header: header, Decoded: decoded}
}

// ClientError builds a 4xx outcome. opKey identifies the operation for
// error-message construction and may be empty.
func ClientError(status int, rawBody []byte, opKey string) *Outcome {
	return &Outcome{Kind: KindClientError, StatusCode: status, RawBody: rawBody, OperationKey: opKey}
}

// ServerError builds a 5xx (or unclassifiable-range) outcome.
func ServerError(status int, rawBody []byte) *Outcome {
	return &Outcome{Kind: KindServerError, StatusCode: status, RawBody: rawBody}
}

// TransportFailure builds an outcome for failures that happened before any
// HTTP status was obtained (DNS, connect/read timeout, body decode).
func TransportFailure(reason FailureReason, cause error) *Outcome {
	return &Outcome{Kind: KindTransportFailure, Reason: reason, Cause: cause}
}

// IsError reports whether the outcome is anything other than success.
func (o *Outcome) IsError() bool { return o.Kind != KindSuccess }

// Equivalent compares two outcomes ignoring the Cause error identity; two
// transport failures with the same reason compare equal even when their
// underlying errors came from different call paths.
func Equivalent(a, b *Outcome) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.StatusCode != b.StatusCode || a.OperationKey != b.OperationKey || a.Reason != b.Reason {
		return false
	}
	return string(a.RawBody) == string(b.RawBody)
}

// FailureError is the error form of a transport-level failure. Adapters
// return it (or wrap it) so callers can recover the reason with errors.As.
type FailureError struct {
	Reason FailureReason
	Err    error
}

func (e *FailureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport failure (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("transport failure (%s)", e.Reason)
}

func (e *FailureError) Unwrap() error { return e.Err }

// ReasonOf extracts a FailureReason from err, defaulting to FailureConnect
// for errors that carry no explicit classification.
func ReasonOf(err error) FailureReason {
	var fe *FailureError
	if errors.As(err, &fe) {
		return fe.Reason
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureReadTimeout
	}
	if errors.Is(err, context.Canceled) {
		return FailureCancelled
	}
	return FailureConnect
}
