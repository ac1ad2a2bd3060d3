package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"callbridge/pkg/binding"
	"callbridge/pkg/codec"
	"callbridge/pkg/dispatch"
	"callbridge/pkg/models"
)

// Config carries per-service endpoint settings, consumed once at
// construction. Mirrors what deployments put under `services:` in the
// config file.
type Config struct {
	BaseURL        string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	DefaultHeaders map[string]string
}

// Request is the wire-level request handed to adapters: everything is
// resolved and the body is already serialized.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Adapter performs one network exchange. Implementations return either a
// fully buffered RawResponse or an error classifying to a transport
// failure; HTTP error statuses are NOT adapter errors.
type Adapter interface {
	RoundTrip(ctx context.Context, req *Request) (*models.RawResponse, error)
}

// Transport executes resolved request specs against one remote service,
// in blocking or non-blocking mode. Both modes run the same exchange path,
// so outcomes for the same request/response pair are observationally
// equivalent.
type Transport struct {
	cfg     Config
	adapter Adapter
	codec   codec.Codec
	pool    *dispatch.Pool
}

// New builds a Transport. pool may be nil when only blocking mode is used;
// Submit then falls back to a plain goroutine per call.
func New(cfg Config, adapter Adapter, c codec.Codec, pool *dispatch.Pool) *Transport {
	if c == nil {
		c = codec.JSON{}
	}
	return &Transport{cfg: cfg, adapter: adapter, codec: c, pool: pool}
}

// Codec exposes the serializer this transport writes bodies with.
func (t *Transport) Codec() codec.Codec { return t.codec }

// build resolves the spec against the transport config: absolute URL,
// default headers merged under the spec's own, body serialized.
func (t *Transport) build(spec *binding.RequestSpec) (*Request, error) {
	base := strings.TrimRight(t.cfg.BaseURL, "/")
	req := &Request{
		Method: spec.Method,
		URL:    base + spec.URL(),
		Header: http.Header{},
	}
	for k, v := range t.cfg.DefaultHeaders {
		req.Header.Set(k, v)
	}
	for k, vals := range spec.Header {
		req.Header[k] = append([]string(nil), vals...)
	}
	if spec.HasBody {
		b, err := t.codec.Marshal(spec.Body)
		if err != nil {
			return nil, &models.FailureError{Reason: models.FailureDecode, Err: err}
		}
		req.Body = b
		if req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", t.codec.ContentType())
		}
	}
	return req, nil
}

// Do executes spec in blocking mode: the calling goroutine suspends until
// a terminal result is available. The configured read timeout applies when
// ctx carries no tighter deadline.
func (t *Transport) Do(ctx context.Context, spec *binding.RequestSpec) (*models.RawResponse, error) {
	req, err := t.build(spec)
	if err != nil {
		return nil, err
	}
	if t.cfg.ReadTimeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, t.cfg.ReadTimeout)
			defer cancel()
		}
	}
	raw, err := t.adapter.RoundTrip(ctx, req)
	if err != nil {
		return nil, classify(err)
	}
	return raw, nil
}

// Submit executes spec in non-blocking mode. It returns immediately with a
// Handle; completion is signaled exactly once on a transport-owned
// goroutine. Cancelling the handle abandons the in-flight exchange (best
// effort) and suppresses the continuation.
func (t *Transport) Submit(ctx context.Context, spec *binding.RequestSpec) *Handle {
	h := newHandle()
	cctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	job := func() {
		defer cancel()
		raw, err := t.Do(cctx, spec)
		h.complete(raw, err)
	}
	if t.pool != nil {
		if err := t.pool.Submit(job); err != nil {
			h.complete(nil, &models.FailureError{Reason: models.FailureConnect, Err: err})
		}
		return h
	}
	go job()
	return h
}

// classify wraps raw adapter errors into FailureError values carrying a
// transport failure reason. Already-classified errors pass through.
func classify(err error) error {
	var fe *models.FailureError
	if errors.As(err, &fe) {
		return err
	}
	return &models.FailureError{Reason: models.ReasonOf(err), Err: err}
}

// ValidateConfig rejects transport configs that cannot work.
func ValidateConfig(cfg Config) error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("transport: base URL must not be empty")
	}
	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return fmt.Errorf("transport: base URL %q must be http(s)", cfg.BaseURL)
	}
	return nil
}
