package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"callbridge/pkg/config"
	"callbridge/pkg/descriptor"
)

// newTestApp builds an app with one declared operation against an
// httptest backend.
func newTestApp(t *testing.T, backend http.HandlerFunc) *App {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Services = []config.ServiceConfig{{Name: "posts", BaseURL: srv.URL}}
	cfg.Operations = []descriptor.OperationSpec{{
		Key: "getPostById", Service: "posts", Method: "GET", Path: "/posts/{id}",
		Params: []struct {
			Name     string `yaml:"name"`
			In       string `yaml:"in"`
			Required bool   `yaml:"required"`
		}{{Name: "id", In: "path", Required: true}},
	}}

	a, err := New(cfg, "127.0.0.1:0", "test")
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	t.Cleanup(a.pool.Close)
	a.ready = true
	return a
}

func TestInvokeEndpointSuccess(t *testing.T) {
	a := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/posts/7" {
			t.Errorf("unexpected upstream path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":7,"title":"hello"}`))
	})

	req := httptest.NewRequest("POST", "/v1/invoke/getPostById", strings.NewReader(`{"id":7}`))
	rec := httptest.NewRecorder()
	a.routes().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Status int            `json:"status"`
		Result map[string]any `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response json: %v", err)
	}
	if resp.Status != 200 || resp.Result["title"] != "hello" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestInvokeEndpointMissingArgumentIs400(t *testing.T) {
	a := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("binding errors must not reach the backend")
	})

	req := httptest.NewRequest("POST", "/v1/invoke/getPostById", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	a.routes().ServeHTTP(rec, req)

	if rec.Code != 400 {
		t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestInvokeEndpointUpstream404Preserved(t *testing.T) {
	a := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
		_, _ = w.Write([]byte(`{"error":"no such post"}`))
	})

	req := httptest.NewRequest("POST", "/v1/invoke/getPostById", strings.NewReader(`{"id":99}`))
	rec := httptest.NewRecorder()
	a.routes().ServeHTTP(rec, req)

	if rec.Code != 404 {
		t.Fatalf("remote rejection must keep its status, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad response json: %v", err)
	}
	if body["statusCode"] != float64(404) {
		t.Fatalf("unexpected error body: %v", body)
	}
	if up, ok := body["upstream"].(string); !ok || up == "" {
		t.Fatalf("upstream excerpt missing: %v", body)
	}
}

func TestInvokeEndpointUpstream500Renders502(t *testing.T) {
	a := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	})

	req := httptest.NewRequest("POST", "/v1/invoke/getPostById", strings.NewReader(`{"id":1}`))
	rec := httptest.NewRecorder()
	a.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestInvokeEndpointBadJSON(t *testing.T) {
	a := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest("POST", "/v1/invoke/getPostById", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	a.routes().ServeHTTP(rec, req)

	if rec.Code != 400 {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestOperationsEndpoint(t *testing.T) {
	a := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest("GET", "/v1/operations", nil)
	rec := httptest.NewRecorder()
	a.routes().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var resp struct {
		Operations []string `json:"operations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response json: %v", err)
	}
	if len(resp.Operations) != 1 || resp.Operations[0] != "getPostById" {
		t.Fatalf("unexpected operations: %v", resp.Operations)
	}
}

func TestHealthAndReady(t *testing.T) {
	a := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {})

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		a.routes().ServeHTTP(rec, req)
		if rec.Code != 200 {
			t.Fatalf("%s: unexpected status %d", path, rec.Code)
		}
	}

	a.ready = false
	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	a.routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz must report 503 before startup, got %d", rec.Code)
	}
}

func TestRecordsEndpointDisabled(t *testing.T) {
	a := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest("GET", "/v1/records/getPostById", nil)
	rec := httptest.NewRecorder()
	a.routes().ServeHTTP(rec, req)
	if rec.Code != 404 {
		t.Fatalf("expected 404 with journal disabled, got %d", rec.Code)
	}
}
