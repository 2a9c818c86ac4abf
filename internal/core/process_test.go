package core

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type countingHealth struct {
	calls     atomic.Int32
	readyFrom int32
}

func (h *countingHealth) Healthy(ctx context.Context, url string) bool {
	return h.calls.Add(1) >= h.readyFrom
}

func TestWaitReadyBecomesHealthy(t *testing.T) {
	h := &countingHealth{readyFrom: 3}
	err := WaitReady(context.Background(), h, "http://x", nil, time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("WaitReady() error: %v", err)
	}
	if got := h.calls.Load(); got != 3 {
		t.Errorf("health checks = %d, want 3", got)
	}
}

func TestWaitReadyTimeout(t *testing.T) {
	h := &countingHealth{readyFrom: 1 << 30}
	err := WaitReady(context.Background(), h, "http://x", nil, 5*time.Millisecond, 30*time.Millisecond)
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("WaitReady() error = %v, want ErrNotReady", err)
	}
}

func TestWaitReadyProcessExit(t *testing.T) {
	proc := &fakeProcess{done: make(chan struct{})}
	close(proc.done)
	h := &countingHealth{readyFrom: 1 << 30}

	err := WaitReady(context.Background(), h, "http://x", proc, time.Hour, time.Hour)
	if !errors.Is(err, ErrNotReady) || !strings.Contains(err.Error(), "exited") {
		t.Fatalf("WaitReady() error = %v, want process exit", err)
	}
}

func TestWaitReadyContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := &countingHealth{readyFrom: 1 << 30}

	if err := WaitReady(ctx, h, "http://x", nil, time.Hour, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("WaitReady() error = %v, want context.Canceled", err)
	}
}

func TestHTTPHealth(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusServiceUnavailable)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	h := HTTPHealth{Timeout: time.Second}
	if h.Healthy(context.Background(), srv.URL) {
		t.Error("Healthy() = true for 503")
	}
	status.Store(http.StatusOK)
	if !h.Healthy(context.Background(), srv.URL) {
		t.Error("Healthy() = false for 200")
	}
	if h.Healthy(context.Background(), "http://127.0.0.1:1") {
		t.Error("Healthy() = true for a closed port")
	}
}

func TestScanTunnelURL(t *testing.T) {
	out := strings.Join([]string{
		"2024-01-01T00:00:00Z INF Thank you for trying Cloudflare Tunnel.",
		"2024-01-01T00:00:01Z INF |  https://quiet-river-1234.trycloudflare.com  |",
		"2024-01-01T00:00:02Z INF |  https://second.trycloudflare.com  |",
	}, "\n")

	found := make(chan string, 1)
	scanTunnelURL(strings.NewReader(out), DefaultTunnelPattern, found)
	got, ok := <-found
	if !ok {
		t.Fatal("scanTunnelURL() found nothing")
	}
	if got != "https://quiet-river-1234.trycloudflare.com" {
		t.Errorf("scanTunnelURL() = %q", got)
	}

	none := make(chan string, 1)
	scanTunnelURL(strings.NewReader("no url here\n"), DefaultTunnelPattern, none)
	if u, ok := <-none; ok {
		t.Errorf("scanTunnelURL() matched %q in output without a URL", u)
	}
}

func TestTailBuffer(t *testing.T) {
	b := &tailBuffer{limit: 8}
	_, _ = b.Write([]byte("hello "))
	_, _ = b.Write([]byte("world"))
	if got := b.String(); got != "lo world" {
		t.Errorf("tail = %q, want %q", got, "lo world")
	}
}
