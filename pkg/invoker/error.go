package invoker

import (
	"fmt"
	"net/http"

	"callbridge/pkg/models"
)

// ErrorKind classifies a caller-visible invocation error.
type ErrorKind int

const (
	// KindInvalidInvocation covers binding failures and unknown
	// operations; no network call happened.
	KindInvalidInvocation ErrorKind = iota
	// KindRemoteRejected is a 4xx from the remote service.
	KindRemoteRejected
	// KindUpstreamFailed is a 5xx (or unclassifiable status) from the
	// remote service.
	KindUpstreamFailed
	// KindTransport covers failures before any status was obtained.
	KindTransport
)

const excerptLimit = 256

// DomainError is the typed error surface of the engine. It carries enough
// context for the caller to render a diagnostic without re-reading the
// response.
type DomainError struct {
	Kind         ErrorKind
	StatusCode   int
	OperationKey string
	BodyExcerpt  string
	Reason       models.FailureReason
	Cause        error
}

func (e *DomainError) Error() string {
	switch e.Kind {
	case KindInvalidInvocation:
		return fmt.Sprintf("invalid invocation of %s: %v", e.OperationKey, e.Cause)
	case KindRemoteRejected:
		return fmt.Sprintf("operation %s rejected with status %d", e.OperationKey, e.StatusCode)
	case KindUpstreamFailed:
		return fmt.Sprintf("operation %s failed upstream with status %d", e.OperationKey, e.StatusCode)
	default:
		return fmt.Sprintf("operation %s transport failure (%s): %v", e.OperationKey, e.Reason, e.Cause)
	}
}

func (e *DomainError) Unwrap() error { return e.Cause }

// HTTPStatus maps the error onto the hosting layer's boundary response:
// remote rejections keep their 4xx status, upstream failures render 502
// and timeouts 504.
func (e *DomainError) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidInvocation:
		return http.StatusBadRequest
	case KindRemoteRejected:
		if e.StatusCode >= 400 && e.StatusCode <= 499 {
			return e.StatusCode
		}
		return http.StatusBadRequest
	case KindTransport:
		if e.Reason == models.FailureReadTimeout || e.Reason == models.FailureConnectTimeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}

// errorFromOutcome converts a non-success outcome into a DomainError.
func errorFromOutcome(opKey string, out *models.Outcome) *DomainError {
	excerpt := string(out.RawBody)
	if len(excerpt) > excerptLimit {
		excerpt = excerpt[:excerptLimit]
	}
	switch out.Kind {
	case models.KindClientError:
		key := out.OperationKey
		if key == "" {
			key = opKey
		}
		return &DomainError{Kind: KindRemoteRejected, StatusCode: out.StatusCode, OperationKey: key, BodyExcerpt: excerpt}
	case models.KindServerError:
		return &DomainError{Kind: KindUpstreamFailed, StatusCode: out.StatusCode, OperationKey: opKey, BodyExcerpt: excerpt}
	default:
		return &DomainError{Kind: KindTransport, OperationKey: opKey, Reason: out.Reason, Cause: out.Cause}
	}
}
