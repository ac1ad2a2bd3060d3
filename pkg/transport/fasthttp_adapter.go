package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"

	"callbridge/pkg/models"
)

// FastHTTPAdapter performs exchanges over fasthttp. It buffers bodies
// through bytebufferpool to keep per-call allocations low.
type FastHTTPAdapter struct {
	client *fasthttp.Client
}

// NewFastHTTPAdapter builds the adapter from a transport config.
func NewFastHTTPAdapter(cfg Config) *FastHTTPAdapter {
	c := &fasthttp.Client{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.ReadTimeout,
	}
	if cfg.ConnectTimeout > 0 {
		c.Dial = func(addr string) (conn net.Conn, err error) {
			return fasthttp.DialTimeout(addr, cfg.ConnectTimeout)
		}
	}
	return &FastHTTPAdapter{client: c}
}

func (a *FastHTTPAdapter) RoundTrip(ctx context.Context, req *Request) (*models.RawResponse, error) {
	freq := fasthttp.AcquireRequest()
	fresp := fasthttp.AcquireResponse()

	freq.Header.SetMethod(req.Method)
	freq.SetRequestURI(req.URL)
	for k, vals := range req.Header {
		for _, v := range vals {
			freq.Header.Add(k, v)
		}
	}
	var bb *bytebufferpool.ByteBuffer
	if len(req.Body) > 0 {
		bb = bytebufferpool.Get()
		bb.B = append(bb.B[:0], req.Body...)
		freq.SetBody(bb.B)
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		deadline = time.Now().Add(30 * time.Second)
	}

	release := func() {
		fasthttp.ReleaseRequest(freq)
		fasthttp.ReleaseResponse(fresp)
		if bb != nil {
			bytebufferpool.Put(bb)
		}
	}

	// fasthttp has no context plumbing; run the exchange on its own
	// goroutine so cancellation releases the caller promptly. On the
	// cancel path the goroutine keeps ownership of the pooled objects and
	// releases them when the exchange ends.
	type result struct {
		raw *models.RawResponse
		err error
	}
	resCh := make(chan result, 1)
	go func() {
		err := a.client.DoDeadline(freq, fresp, deadline)
		if err != nil {
			release()
			resCh <- result{err: err}
			return
		}
		hdr := make(http.Header)
		fresp.Header.VisitAll(func(k, v []byte) {
			key := http.CanonicalHeaderKey(string(k))
			hdr[key] = append(hdr[key], string(v))
		})
		raw := &models.RawResponse{
			StatusCode: fresp.StatusCode(),
			Header:     hdr,
			Body:       append([]byte(nil), fresp.Body()...),
		}
		release()
		resCh <- result{raw: raw}
	}()

	select {
	case res := <-resCh:
		if res.err != nil {
			return nil, &models.FailureError{Reason: classifyFastErr(res.err), Err: res.err}
		}
		return res.raw, nil
	case <-ctx.Done():
		return nil, &models.FailureError{Reason: models.ReasonOf(ctx.Err()), Err: ctx.Err()}
	}
}

func classifyFastErr(err error) models.FailureReason {
	switch {
	case errors.Is(err, fasthttp.ErrTimeout):
		return models.FailureReadTimeout
	case errors.Is(err, fasthttp.ErrDialTimeout):
		return models.FailureConnectTimeout
	case errors.Is(err, fasthttp.ErrConnectionClosed):
		return models.FailureConnect
	default:
		return models.FailureConnect
	}
}
