package collector

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nordlicht/waypost/internal/domain"
)

func testPayload() domain.Payload {
	return domain.Payload{
		EntityID:   "entity-1",
		Lat:        48.8584,
		Lon:        2.2945,
		Speed:      1.2,
		Accuracy:   8,
		CapturedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSenderPostsPayload(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		gotBody domain.Payload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewSender(srv.URL, time.Second, StaticToken("secret"))
	if err := s.Send(context.Background(), testPayload()); err != nil {
		t.Fatalf("send: %v", err)
	}

	if gotPath != "/api/location/update" {
		t.Fatalf("wrong path: %s", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("wrong auth header: %s", gotAuth)
	}
	if gotBody.EntityID != "entity-1" || gotBody.Lat != 48.8584 {
		t.Fatalf("body mismatch: %+v", gotBody)
	}
	if gotBody.CapturedAt.IsZero() {
		t.Fatal("capturedAt did not round-trip")
	}
}

func TestSenderPlaceholderTokenWhenAbsent(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	s := NewSender(srv.URL, time.Second, StaticToken(""))
	if err := s.Send(context.Background(), testPayload()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotAuth != "Bearer anonymous" {
		t.Fatalf("expected placeholder token, got %s", gotAuth)
	}
}

func TestSenderNonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewSender(srv.URL, time.Second, nil)
	if err := s.Send(context.Background(), testPayload()); err == nil {
		t.Fatal("expected error on 502 response")
	}
}

func TestSenderTransportErrorIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	s := NewSender(srv.URL, time.Second, nil)
	if err := s.Send(context.Background(), testPayload()); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	p := NewProbe(srv.URL)
	if !p.Connected(context.Background()) {
		t.Fatal("expected connected against live server")
	}

	srv.Close()
	if p.Connected(context.Background()) {
		t.Fatal("expected disconnected after server close")
	}
}
