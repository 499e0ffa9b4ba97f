// internal/transport/client_test.go
package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewWithHTTPClient(&http.Client{Timeout: 5 * time.Second}, StaticBaseURL(srv.URL+"/"))
}

func TestGetDecodesSuccess(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/foundry/list" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"name":"phi","count":2}`))
	})

	res := Get[sample](context.Background(), client, "foundry/list")
	if !res.IsSuccess() {
		t.Fatalf("unexpected error: %v", res.Err())
	}
	if got := res.Value(); got.Name != "phi" || got.Count != 2 {
		t.Fatalf("unexpected value: %+v", got)
	}
}

func TestGetNullBodyFails(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	})

	res := Get[sample](context.Background(), client, "v1/models")
	if res.IsSuccess() {
		t.Fatalf("expected failure for null body")
	}
	if res.Err().Message != "Response deserialization returned null" || res.Err().Details != "Endpoint: v1/models" {
		t.Fatalf("unexpected error: %+v", res.Err())
	}
	if res.Err().Kind != KindParse {
		t.Fatalf("expected parse kind, got %s", res.Err().Kind)
	}
}

func TestGetMalformedBodyIsParseError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":`))
	})

	res := Get[sample](context.Background(), client, "v1/models")
	if res.IsSuccess() || res.Err().Kind != KindParse || res.Err().Message != "Failed to parse response" {
		t.Fatalf("expected parse failure, got %+v", res.Err())
	}
}

func TestGetErrorStatusIsClassified(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"title":"Bad Request","detail":"missing field"}`))
	})

	res := Get[sample](context.Background(), client, "v1/models")
	if res.IsSuccess() {
		t.Fatalf("expected failure")
	}
	info := res.Err()
	if info.Message != "Bad Request" || info.Details != "missing field" {
		t.Fatalf("unexpected classification: %+v", info)
	}
	if status, _ := info.Status(); status != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", status)
	}
}

func TestNetworkFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	client := NewWithHTTPClient(&http.Client{Timeout: time.Second}, StaticBaseURL(base))
	res := Get[sample](context.Background(), client, "v1/models")
	if res.IsSuccess() {
		t.Fatalf("expected failure against closed server")
	}
	if res.Err().Kind != KindNetwork || res.Err().Message != "Network error" {
		t.Fatalf("expected network error, got %+v", res.Err())
	}
}

func TestPostSendsJSON(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		var in sample
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode request: %v", err)
		}
		in.Count++
		_ = json.NewEncoder(w).Encode(in)
	})

	res := Post[sample, sample](context.Background(), client, "v1/chat/completions", sample{Name: "x", Count: 1})
	v, err := res.Unwrap()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Count != 2 || v.Name != "x" {
		t.Fatalf("unexpected echo: %+v", v)
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()

	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	res := client.Delete(context.Background(), "v1/models/phi%3A1")
	if !res.IsSuccess() || !res.Value() {
		t.Fatalf("expected success, got %+v", res.Err())
	}
	if gotPath != "/v1/models/phi%3A1" {
		t.Fatalf("unexpected path %q", gotPath)
	}
}

func TestOpenStream(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_, _ = w.Write([]byte("10%\n20%\n"))
	})

	resp, info := client.OpenStream(context.Background(), http.MethodPost, "openai/download", map[string]string{"a": "b"})
	if info != nil {
		t.Fatalf("unexpected error: %v", info)
	}
	data, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(data), "20%") {
		t.Fatalf("unexpected stream body %q", data)
	}

	if _, info := client.OpenStream(context.Background(), http.MethodPost, "fail", nil); info == nil || info.Message != "Server internal error" {
		t.Fatalf("expected classified failure, got %+v", info)
	}
}

func TestResultInvariant(t *testing.T) {
	t.Parallel()

	failed := Fail[int](nil)
	if failed.IsSuccess() || failed.Err() == nil {
		t.Fatalf("Fail(nil) must still carry an error")
	}
	if _, err := failed.Unwrap(); err == nil {
		t.Fatalf("Unwrap must surface the error")
	}
	ok := Ok(3)
	if !ok.IsSuccess() || ok.Err() != nil || ok.Value() != 3 {
		t.Fatalf("unexpected ok result: %+v", ok)
	}
	retyped := FailWith[string](Fail[int](NewError(KindParse, "bad", "")))
	if retyped.Err().Kind != KindParse {
		t.Fatalf("FailWith lost the kind")
	}
}
