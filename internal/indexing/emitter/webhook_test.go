package emitter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vietddude/lottowatch/internal/core/domain"
)

// ============================================================================
// Helpers
// ============================================================================

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

func newTestClient(t *testing.T, urls map[domain.Channel]string) (*DeliveryClient, *sleepRecorder) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.URLs = urls
	cfg.MinInterval = 0
	cfg.Timeout = 2 * time.Second

	c := NewDeliveryClient(cfg)
	rec := &sleepRecorder{}
	c.sleep = rec.sleep
	c.jitter = func(time.Duration) time.Duration { return 0 }
	t.Cleanup(func() { c.Close() })
	return c, rec
}

func testPayload(ch domain.Channel) domain.Payload {
	return domain.Payload{
		Channel: ch,
		Title:   "Draw Initiated",
		Color:   3447003,
		Fields:  []domain.Field{{Name: "Game Number", Value: "7"}},
	}
}

// ============================================================================
// Tests
// ============================================================================

func TestDeliver_Success(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("invalid body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, rec := newTestClient(t, map[domain.Channel]string{domain.ChannelEvents: srv.URL})

	if res := c.Deliver(context.Background(), testPayload(domain.ChannelEvents)); res != ResultSent {
		t.Fatalf("result = %v, want sent", res)
	}
	if len(rec.recorded()) != 0 {
		t.Errorf("unexpected waits: %v", rec.recorded())
	}
	embeds, ok := got["embeds"].([]any)
	if !ok || len(embeds) != 1 {
		t.Fatalf("embeds = %v", got["embeds"])
	}
	if title := embeds[0].(map[string]any)["title"]; title != "Draw Initiated" {
		t.Errorf("title = %v", title)
	}
}

func TestDeliver_HonorsRetryAfterBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"retry_after": 2000}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, rec := newTestClient(t, map[domain.Channel]string{domain.ChannelEvents: srv.URL})

	if res := c.Deliver(context.Background(), testPayload(domain.ChannelEvents)); res != ResultSent {
		t.Fatalf("result = %v, want sent", res)
	}
	if calls.Load() != 2 {
		t.Errorf("attempts = %d, want 2", calls.Load())
	}
	waits := rec.recorded()
	if len(waits) != 1 || waits[0] < 2*time.Second {
		t.Errorf("waits = %v, want one wait >= 2s", waits)
	}
}

func TestDeliver_RetryAfterSources(t *testing.T) {
	tests := []struct {
		name   string
		header string
		body   string
		want   time.Duration
	}{
		{"body milliseconds", "", `{"retry_after": 1500}`, 1500 * time.Millisecond},
		{"header seconds", "3", "", 3 * time.Second},
		{"body wins over header", "9", `{"retry_after": 250}`, 250 * time.Millisecond},
		{"no hint falls back to backoff", "", `rate limited`, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) == 1 {
					if tt.header != "" {
						w.Header().Set("Retry-After", tt.header)
					}
					w.WriteHeader(http.StatusTooManyRequests)
					_, _ = w.Write([]byte(tt.body))
					return
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			c, rec := newTestClient(t, map[domain.Channel]string{domain.ChannelTickets: srv.URL})
			if res := c.Deliver(context.Background(), testPayload(domain.ChannelTickets)); res != ResultSent {
				t.Fatalf("result = %v, want sent", res)
			}
			waits := rec.recorded()
			if len(waits) != 1 || waits[0] != tt.want {
				t.Errorf("waits = %v, want [%v]", waits, tt.want)
			}
		})
	}
}

func TestDeliver_DropsAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, rec := newTestClient(t, map[domain.Channel]string{domain.ChannelEvents: srv.URL})

	if res := c.Deliver(context.Background(), testPayload(domain.ChannelEvents)); res != ResultDropped {
		t.Fatalf("result = %v, want dropped", res)
	}
	if calls.Load() != 4 {
		t.Errorf("attempts = %d, want 4", calls.Load())
	}

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	waits := rec.recorded()
	if len(waits) != len(want) {
		t.Fatalf("waits = %v, want %v", waits, want)
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Errorf("wait[%d] = %v, want %v", i, waits[i], want[i])
		}
	}
}

func TestDeliver_ClientErrorRetried(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"bad request", http.StatusBadRequest},
		{"not found", http.StatusNotFound},
		{"forbidden", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"message":"invalid embed"}`))
			}))
			defer srv.Close()

			c, rec := newTestClient(t, map[domain.Channel]string{domain.ChannelEvents: srv.URL})

			if res := c.Deliver(context.Background(), testPayload(domain.ChannelEvents)); res != ResultDropped {
				t.Fatalf("result = %v, want dropped", res)
			}
			if calls.Load() != 4 {
				t.Errorf("attempts = %d, want 4", calls.Load())
			}
			if n := len(rec.recorded()); n != 3 {
				t.Errorf("waits = %d, want 3", n)
			}
		})
	}
}

func TestDeliver_ClientErrorRecovers(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, map[domain.Channel]string{domain.ChannelEvents: srv.URL})

	if res := c.Deliver(context.Background(), testPayload(domain.ChannelEvents)); res != ResultSent {
		t.Fatalf("result = %v, want sent", res)
	}
	if calls.Load() != 2 {
		t.Errorf("attempts = %d, want 2", calls.Load())
	}
}

func TestDeliver_LongRetryAfterSpendsRetries(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantRes   Result
		wantCalls int32
		wantWaits []time.Duration
	}{
		{
			name:      "waited out in slices",
			body:      `{"retry_after": 90000}`,
			wantRes:   ResultSent,
			wantCalls: 2,
			wantWaits: []time.Duration{60 * time.Second, 30 * time.Second},
		},
		{
			name:      "outlasts retry budget",
			body:      `{"retry_after": 3600000}`,
			wantRes:   ResultDropped,
			wantCalls: 1,
			wantWaits: []time.Duration{60 * time.Second, 60 * time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) == 1 {
					w.WriteHeader(http.StatusTooManyRequests)
					_, _ = w.Write([]byte(tt.body))
					return
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			c, rec := newTestClient(t, map[domain.Channel]string{domain.ChannelTickets: srv.URL})

			if res := c.Deliver(context.Background(), testPayload(domain.ChannelTickets)); res != tt.wantRes {
				t.Fatalf("result = %v, want %v", res, tt.wantRes)
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("attempts = %d, want %d", calls.Load(), tt.wantCalls)
			}
			waits := rec.recorded()
			if len(waits) != len(tt.wantWaits) {
				t.Fatalf("waits = %v, want %v", waits, tt.wantWaits)
			}
			var total time.Duration
			for i := range waits {
				if waits[i] != tt.wantWaits[i] {
					t.Errorf("wait[%d] = %v, want %v", i, waits[i], tt.wantWaits[i])
				}
				total += waits[i]
			}
			if tt.wantRes == ResultSent && total < 90*time.Second {
				t.Errorf("posted after %v, before the 90s hint elapsed", total)
			}
		})
	}
}

func TestDeliver_RoutesByChannel(t *testing.T) {
	var tickets, events atomic.Int32
	ticketSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tickets.Add(1)
	}))
	defer ticketSrv.Close()
	eventSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		events.Add(1)
	}))
	defer eventSrv.Close()

	c, _ := newTestClient(t, map[domain.Channel]string{
		domain.ChannelTickets: ticketSrv.URL,
		domain.ChannelEvents:  eventSrv.URL,
	})

	ctx := context.Background()
	c.Deliver(ctx, testPayload(domain.ChannelTickets))
	c.Deliver(ctx, testPayload(domain.ChannelEvents))
	c.Deliver(ctx, testPayload(domain.ChannelEvents))

	if tickets.Load() != 1 || events.Load() != 2 {
		t.Errorf("tickets = %d, events = %d; want 1, 2", tickets.Load(), events.Load())
	}
}

func TestDeliver_MissingChannelDropped(t *testing.T) {
	c, _ := newTestClient(t, map[domain.Channel]string{})
	if res := c.Deliver(context.Background(), testPayload(domain.ChannelTickets)); res != ResultDropped {
		t.Errorf("result = %v, want dropped", res)
	}
}

func TestDeliver_CanceledDuringWait(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, map[domain.Channel]string{domain.ChannelEvents: srv.URL})
	ctx, cancel := context.WithCancel(context.Background())
	c.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	if res := c.Deliver(ctx, testPayload(domain.ChannelEvents)); res != ResultDropped {
		t.Errorf("result = %v, want dropped", res)
	}
}

func TestBackoff(t *testing.T) {
	c := NewDeliveryClient(Config{BackoffBase: time.Second, MaxBackoff: 5 * time.Second})
	c.jitter = func(n time.Duration) time.Duration { return n - 1 }

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 2*time.Second - 1},
		{1, 3*time.Second - 1},
		{2, 5*time.Second - 1},
		{3, 6*time.Second - 1},
		{40, 6*time.Second - 1},
	}
	for _, tt := range tests {
		if got := c.backoff(tt.attempt); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
