package infra

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestHTTPServerRunStopsOnCancel(t *testing.T) {
	cfg := &Config{Port: "0", GenerationDeadline: time.Second}
	srv := NewHTTPServer(cfg, http.NotFoundHandler())
	if srv.Addr() != ":0" {
		t.Fatalf("addr = %q", srv.Addr())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
