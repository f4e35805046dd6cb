package httputil

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStandardClientDelegates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	c := NewStandardClient(nil)
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTeapot {
		t.Fatalf("status = %d, want 418", resp.StatusCode)
	}
}

func TestMockClientQueuedResponses(t *testing.T) {
	m := NewMockClient().
		AddResponse(200, `{"ok":true}`).
		AddError(errors.New("connection refused"))

	req, _ := http.NewRequest(http.MethodPost, "http://model/run", strings.NewReader("payload"))
	resp, err := m.Do(req)
	if err != nil {
		t.Fatalf("first Do: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != `{"ok":true}` {
		t.Fatalf("body = %s", body)
	}

	req2, _ := http.NewRequest(http.MethodPost, "http://model/run", nil)
	if _, err := m.Do(req2); err == nil {
		t.Fatal("expected queued error on second request")
	}

	if m.RequestCount() != 2 {
		t.Fatalf("RequestCount = %d, want 2", m.RequestCount())
	}
	if string(m.RequestBody(0)) != "payload" {
		t.Fatalf("recorded body = %q", m.RequestBody(0))
	}
	if m.RequestBody(5) != nil {
		t.Fatal("out-of-range body should be nil")
	}
}

func TestMockClientDefaultResponse(t *testing.T) {
	m := NewMockClient()
	req, _ := http.NewRequest(http.MethodGet, "http://model/health", nil)
	resp, err := m.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("default status = %d", resp.StatusCode)
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSONError(rec, http.StatusBadRequest, "bad input")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "bad input") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
