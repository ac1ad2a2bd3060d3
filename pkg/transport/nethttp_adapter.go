package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"

	"callbridge/pkg/models"
)

// NetHTTPAdapter performs exchanges over the standard library HTTP client.
type NetHTTPAdapter struct {
	client *http.Client
}

// NewNetHTTPAdapter builds the adapter from a transport config. The dial
// timeout comes from ConnectTimeout; read deadlines are enforced through
// the per-call context.
func NewNetHTTPAdapter(cfg Config) *NetHTTPAdapter {
	tr := &http.Transport{}
	if cfg.ConnectTimeout > 0 {
		d := &net.Dialer{Timeout: cfg.ConnectTimeout}
		tr.DialContext = d.DialContext
	}
	return &NetHTTPAdapter{client: &http.Client{Transport: tr}}
}

// NewNetHTTPAdapterWithClient wraps an existing client (tests, custom
// pools).
func NewNetHTTPAdapterWithClient(c *http.Client) *NetHTTPAdapter {
	return &NetHTTPAdapter{client: c}
}

func (a *NetHTTPAdapter) RoundTrip(ctx context.Context, req *Request) (*models.RawResponse, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, &models.FailureError{Reason: models.FailureConnect, Err: err}
	}
	for k, vals := range req.Header {
		hreq.Header[k] = append([]string(nil), vals...)
	}
	resp, err := a.client.Do(hreq)
	if err != nil {
		return nil, &models.FailureError{Reason: classifyNetErr(ctx, err), Err: err}
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.FailureError{Reason: models.FailureReadTimeout, Err: err}
	}
	return &models.RawResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       b,
	}, nil
}

// classifyNetErr maps client errors onto transport failure reasons.
// Dial-phase errors classify as connect failures, everything after as
// read failures; context errors keep their own reasons.
func classifyNetErr(ctx context.Context, err error) models.FailureReason {
	if errors.Is(err, context.Canceled) || ctx.Err() == context.Canceled {
		return models.FailureCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.FailureReadTimeout
	}
	var op *net.OpError
	if errors.As(err, &op) && op.Op == "dial" {
		if op.Timeout() {
			return models.FailureConnectTimeout
		}
		return models.FailureConnect
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return models.FailureReadTimeout
	}
	return models.FailureConnect
}
