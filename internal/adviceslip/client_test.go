package adviceslip

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]Option{WithLimiter(NewLimiter(0))}, opts...)
	c, err := NewClient(server.URL, opts...)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.String() != DefaultBaseURL {
		t.Fatalf("url = %q, want %q", u.String(), DefaultBaseURL)
	}

	u, err = parseBaseURL("example.com:1234/api/?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "https" || u.Path != "/api" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}

	if _, err := parseBaseURL("http://"); err == nil {
		t.Fatalf("parseBaseURL returned nil error for url without host")
	}
}

func TestClient_FetchRandomMapsWireShape(t *testing.T) {
	t.Parallel()

	var gotPath, gotAccept, gotUserAgent string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"slip":{"id":42,"advice":"Be kind."}}`))
	})

	got, err := c.FetchRandom(context.Background())
	if err != nil {
		t.Fatalf("FetchRandom returned error: %v", err)
	}
	if diff := cmp.Diff(Advice{ID: 42, Text: "Be kind."}, got); diff != "" {
		t.Fatalf("FetchRandom mismatch (-want +got):\n%s", diff)
	}
	if gotPath != "/advice" {
		t.Fatalf("path = %q, want /advice", gotPath)
	}
	if gotAccept != "application/json" {
		t.Fatalf("Accept = %q, want application/json", gotAccept)
	}
	if !strings.HasPrefix(gotUserAgent, "slip/") {
		t.Fatalf("User-Agent = %q, want slip/*", gotUserAgent)
	}
}

func TestClient_FetchByIDAcceptsStringID(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/advice/117" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"slip": { "id": "117", "advice": "  Never pay full price for a sofa.  "}}`))
	})

	got, err := c.FetchByID(context.Background(), 117)
	if err != nil {
		t.Fatalf("FetchByID returned error: %v", err)
	}
	want := Advice{ID: 117, Text: "Never pay full price for a sofa."}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("FetchByID mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_ErrorTaxonomy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		byID    bool
		want    error
	}{
		{
			name:    "404 is not found",
			handler: func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) },
			byID:    true,
			want:    ErrNotFound,
		},
		{
			name: "message without slip is not found for by-id",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"message":{"type":"error","text":"Advice slip not found."}}`))
			},
			byID: true,
			want: ErrNotFound,
		},
		{
			name: "429 is rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "slow down", http.StatusTooManyRequests)
			},
			want: ErrRateLimited,
		},
		{
			name: "500 is unexpected",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", http.StatusInternalServerError)
			},
			want: ErrUnexpected,
		},
		{
			name: "malformed body is unexpected",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("{not-json"))
			},
			want: ErrUnexpected,
		},
		{
			name: "empty advice text is unexpected",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"slip":{"id":3,"advice":"   "}}`))
			},
			want: ErrUnexpected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			var err error
			if tt.byID {
				_, err = c.FetchByID(context.Background(), 999)
			} else {
				_, err = c.FetchRandom(context.Background())
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want kind %v", err, tt.want)
			}
		})
	}
}

func TestClient_TimeoutIsReported(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, WithTimeout(50*time.Millisecond))
	t.Cleanup(func() { close(release) })

	_, err := c.FetchRandom(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("error = %v, want timeout", err)
	}
	if !Retryable(err) {
		t.Fatalf("timeout should be retryable")
	}
}

func TestClient_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c, err := NewClient(url, WithLimiter(NewLimiter(0)))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	_, err = c.FetchRandom(context.Background())
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("error = %v, want transport", err)
	}
}

func TestClient_CallerCancellationPassesThrough(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.FetchRandom(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if Retryable(err) {
		t.Fatalf("cancellation must not be retryable")
	}
}

func TestClient_RequestsAreSpacedByLimiter(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"slip":{"id":1,"advice":"a"}}`))
	}, WithLimiter(NewLimiter(100*time.Millisecond)))

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := c.FetchRandom(context.Background()); err != nil {
			t.Fatalf("FetchRandom returned error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 190*time.Millisecond {
		t.Fatalf("3 requests took %v, want >= ~200ms", elapsed)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}
