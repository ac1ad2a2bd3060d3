package decode

import (
	"net/http"
	"testing"

	"callbridge/pkg/codec"
	"callbridge/pkg/models"
)

func rawResp(status int, body string) *models.RawResponse {
	return &models.RawResponse{StatusCode: status, Header: http.Header{}, Body: []byte(body)}
}

func TestDefaultSuccessDecodesBody(t *testing.T) {
	ch := NewChain(codec.JSON{})
	var target struct {
		ID int `json:"id"`
	}
	out := ch.Decode("getPostById", rawResp(200, `{"id":7}`), &target)
	if out.Kind != models.KindSuccess || out.StatusCode != 200 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if target.ID != 7 {
		t.Fatalf("body not decoded: %+v", target)
	}
}

func TestDefaultSuccessMalformedBodyIsDecodeFailure(t *testing.T) {
	ch := NewChain(codec.JSON{})
	var target map[string]any
	out := ch.Decode("getPostById", rawResp(200, `{not json`), &target)
	if out.Kind != models.KindTransportFailure {
		t.Fatalf("expected transport failure, got %v", out.Kind)
	}
	if out.Reason != models.FailureDecode {
		t.Fatalf("expected decode_error, got %s", out.Reason)
	}
}

func TestDefaultSuccessNilTargetSkipsDecode(t *testing.T) {
	ch := NewChain(codec.JSON{})
	out := ch.Decode("deletePost", rawResp(204, ""), nil)
	if out.Kind != models.KindSuccess || out.StatusCode != 204 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestDefaultClientError(t *testing.T) {
	ch := NewChain(codec.JSON{})
	out := ch.Decode("getPostById", rawResp(404, `{"error":"no such post"}`), nil)
	if out.Kind != models.KindClientError || out.StatusCode != 404 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if string(out.RawBody) != `{"error":"no such post"}` {
		t.Fatalf("raw body not preserved: %s", out.RawBody)
	}
}

func TestDefaultServerError(t *testing.T) {
	ch := NewChain(codec.JSON{})
	out := ch.Decode("getPostById", rawResp(503, "unavailable"), nil)
	if out.Kind != models.KindServerError || out.StatusCode != 503 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestDefaultUnknownRangeIsServerError(t *testing.T) {
	ch := NewChain(codec.JSON{})
	for _, status := range []int{302, 100, 700} {
		out := ch.Decode("op", rawResp(status, ""), nil)
		if out.Kind != models.KindServerError {
			t.Fatalf("status %d: expected server error, got %v", status, out.Kind)
		}
		if out.StatusCode != status {
			t.Fatalf("raw status must be preserved: %d != %d", out.StatusCode, status)
		}
	}
}

func TestCustomEntryClaimsBeforeDefault(t *testing.T) {
	ch := NewChain(codec.JSON{}, ForStatus("getPostById", 404))
	out := ch.Decode("ignored", rawResp(404, "gone"), nil)
	if out.Kind != models.KindClientError {
		t.Fatalf("unexpected kind: %v", out.Kind)
	}
	if out.OperationKey != "getPostById" {
		t.Fatalf("custom entry must stamp its operation key, got %q", out.OperationKey)
	}
}

func TestCustomEntryDeclinesUnmatchedStatus(t *testing.T) {
	ch := NewChain(codec.JSON{}, ForStatus("getPostById", 404))
	out := ch.Decode("getPostById", rawResp(400, "bad"), nil)
	if out.Kind != models.KindClientError || out.StatusCode != 400 {
		t.Fatalf("default must classify unclaimed status: %+v", out)
	}
}

func TestOrderFirstClaimWins(t *testing.T) {
	first := DecoderFunc(func(_ string, raw *models.RawResponse, _ any) (*models.Outcome, bool) {
		if raw.StatusCode == 404 {
			return models.ClientError(404, raw.Body, "first"), true
		}
		return nil, false
	})
	second := DecoderFunc(func(_ string, raw *models.RawResponse, _ any) (*models.Outcome, bool) {
		return models.ClientError(404, raw.Body, "second"), true
	})
	ch := NewChain(codec.JSON{}, first, second)
	out := ch.Decode("op", rawResp(404, ""), nil)
	if out.OperationKey != "first" {
		t.Fatalf("first claiming entry must win, got %q", out.OperationKey)
	}
}

func TestPanickingEntryFallsThrough(t *testing.T) {
	bad := DecoderFunc(func(string, *models.RawResponse, any) (*models.Outcome, bool) {
		panic("buggy decoder")
	})
	ch := NewChain(codec.JSON{}, bad)
	out := ch.Decode("op", rawResp(404, "x"), nil)
	if out == nil || out.Kind != models.KindClientError {
		t.Fatalf("default must still classify after a panicking entry: %+v", out)
	}
}
