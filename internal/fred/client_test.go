package fred

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const sampleCSV = `observation_date,BAMLH0A0HYM2
2020-03-02,4.90
2020-03-03,.
2020-03-04,5.12
2020-03-05,5.40
`

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fastClient(url string) *Client {
	return NewClient(
		WithBaseURL(url),
		WithRateLimit(1000),
		WithRetries(2, time.Millisecond),
	)
}

func TestClient_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("id"); got != "BAMLH0A0HYM2" {
			t.Errorf("expected id BAMLH0A0HYM2, got %s", got)
		}
		if got := r.URL.Query().Get("cosd"); got != "2020-03-02" {
			t.Errorf("expected cosd 2020-03-02, got %s", got)
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer server.Close()

	obs, err := fastClient(server.URL).Fetch(context.Background(),
		Series{ID: "BAMLH0A0HYM2", Column: "hy_oas"}, day(2020, 3, 2), day(2020, 3, 4))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(obs) != 3 {
		t.Fatalf("expected 3 observations inside the range, got %d", len(obs))
	}
	if obs[0].Series != "hy_oas" || obs[0].Value != 4.90 {
		t.Errorf("unexpected first observation %+v", obs[0])
	}
	if !math.IsNaN(obs[1].Value) {
		t.Errorf("expected '.' to parse as NaN, got %v", obs[1].Value)
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer server.Close()

	obs, err := fastClient(server.URL).Fetch(context.Background(),
		Series{ID: "BAMLH0A0HYM2", Column: "hy_oas"}, day(2020, 1, 1), day(2020, 12, 31))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
	if len(obs) != 4 {
		t.Errorf("expected 4 observations, got %d", len(obs))
	}
}

func TestClient_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad series", http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := fastClient(server.URL).Fetch(context.Background(),
		Series{ID: "NOPE", Column: "nope"}, day(2020, 1, 1), day(2020, 12, 31))

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected StatusError 400, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single call, got %d", calls.Load())
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(WithBaseURL(server.URL)).Fetch(ctx,
		Series{ID: "DGS10", Column: "dgs10"}, day(2020, 1, 1), day(2020, 12, 31))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestParseCSV_Malformed(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("DATE,X\nnot-a-date,1\n"), "x")
	if !errors.Is(err, ErrMalformedCSV) {
		t.Errorf("expected ErrMalformedCSV, got %v", err)
	}
	_, err = ParseCSV(strings.NewReader("DATE,X\n2020-01-02,abc\n"), "x")
	if !errors.Is(err, ErrMalformedCSV) {
		t.Errorf("expected ErrMalformedCSV for bad value, got %v", err)
	}
}

func TestLookup(t *testing.T) {
	s, ok := Lookup("hy_oas")
	if !ok || s.ID != "BAMLH0A0HYM2" {
		t.Errorf("expected hy_oas to map to BAMLH0A0HYM2, got %+v", s)
	}
	if _, ok := Lookup("VXVCLS"); !ok {
		t.Error("expected lookup by FRED ID")
	}
	if _, ok := Lookup("spy"); ok {
		t.Error("the asset is not a FRED series")
	}
}
