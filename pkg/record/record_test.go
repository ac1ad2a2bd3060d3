package record

import (
	"testing"
	"time"

	"callbridge/pkg/models"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAppendAndRecent(t *testing.T) {
	s := openStore(t)
	for i := 0; i < 5; i++ {
		out := models.Success(200, nil, nil)
		if err := s.Append("getPostById", out, 12*time.Millisecond); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := s.Append("createPost", models.ServerError(503, nil), time.Millisecond); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := s.Recent("getPostById", 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Operation != "getPostById" || e.Kind != "success" {
			t.Fatalf("unexpected entry: %+v", e)
		}
	}
}

func TestRecentNewestFirst(t *testing.T) {
	s := openStore(t)
	_ = s.Append("op", models.Success(200, nil, nil), 0)
	time.Sleep(2 * time.Millisecond)
	_ = s.Append("op", models.ServerError(500, nil), 0)

	entries, err := s.Recent("op", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Kind != "server_error" || entries[1].Kind != "success" {
		t.Fatalf("entries not newest-first: %+v", entries)
	}
}

func TestRecentIsolatesOperations(t *testing.T) {
	s := openStore(t)
	_ = s.Append("op", models.Success(200, nil, nil), 0)
	_ = s.Append("op:evil", models.Success(200, nil, nil), 0)

	entries, err := s.Recent("op", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("prefix scan leaked across operations: %+v", entries)
	}
}

func TestTransportFailureEntry(t *testing.T) {
	s := openStore(t)
	out := models.TransportFailure(models.FailureReadTimeout, nil)
	if err := s.Append("ping", out, 50*time.Millisecond); err != nil {
		t.Fatalf("append: %v", err)
	}
	entries, err := s.Recent("ping", 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if entries[0].Reason != "read_timeout" || entries[0].Kind != "transport_failure" {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
}
