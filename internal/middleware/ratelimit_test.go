package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientIPForRateLimit(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		remoteAddr string
		want       string
	}{
		{
			name:       "single ip",
			header:     "203.0.113.1",
			remoteAddr: "198.51.100.10:1234",
			want:       "203.0.113.1",
		},
		{
			name:       "multiple ips use first",
			header:     " 203.0.113.1 , 198.51.100.2 ",
			remoteAddr: "198.51.100.10:1234",
			want:       "203.0.113.1",
		},
		{
			name:       "invalid forwarded falls back",
			header:     "invalid",
			remoteAddr: "198.51.100.10:1234",
			want:       "198.51.100.10",
		},
		{
			name:       "empty forwarded uses remote host",
			header:     "",
			remoteAddr: "198.51.100.10:1234",
			want:       "198.51.100.10",
		},
		{
			name:       "ipv6 forwarded",
			header:     "2001:db8::1",
			remoteAddr: net.JoinHostPort("2001:db8::2", "443"),
			want:       "2001:db8::1",
		},
		{
			name:       "ipv6 remote fallback",
			header:     "invalid",
			remoteAddr: net.JoinHostPort("2001:db8::2", "443"),
			want:       "2001:db8::2",
		},
		{
			name:       "remote without port",
			header:     "invalid",
			remoteAddr: "203.0.113.1",
			want:       "203.0.113.1",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.header != "" {
				req.Header.Set("X-Forwarded-For", tc.header)
			}
			if got := clientIPForRateLimit(req); got != tc.want {
				t.Fatalf("clientIPForRateLimit() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRateLimitRejectsAfterLimit(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	h := rateLimit(2, time.Minute, func() time.Time { return now })(okHandler)

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rr.Code)
		}
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:5000"
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "61" {
		t.Fatalf("Retry-After = %q", rr.Header().Get("Retry-After"))
	}

	other := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.1:5000"
	h.ServeHTTP(other, req)
	if other.Code != http.StatusOK {
		t.Fatalf("other client status = %d", other.Code)
	}

	now = now.Add(2 * time.Minute)
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:5000"
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("after window status = %d", rr.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	h := RateLimit(0, time.Minute)(okHandler)
	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
	}
}

func TestRateLimitRejectionBody(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		elapsed    time.Duration
		retryAfter string
	}{
		{name: "window just opened", elapsed: 0, retryAfter: "31"},
		{name: "mid window", elapsed: 12500 * time.Millisecond, retryAfter: "18"},
		{name: "last second", elapsed: 29900 * time.Millisecond, retryAfter: "1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			now := start
			h := rateLimit(1, 30*time.Second, func() time.Time { return now })(okHandler)

			req := httptest.NewRequest(http.MethodPost, "/v1/generate", nil)
			req.Header.Set("X-Forwarded-For", "203.0.113.9")
			h.ServeHTTP(httptest.NewRecorder(), req)

			now = start.Add(tc.elapsed)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != http.StatusTooManyRequests {
				t.Fatalf("status = %d, want 429", rr.Code)
			}
			if got := rr.Header().Get("Retry-After"); got != tc.retryAfter {
				t.Fatalf("Retry-After = %q, want %q", got, tc.retryAfter)
			}
			if got := rr.Header().Get("Content-Type"); got != "application/json" {
				t.Fatalf("Content-Type = %q", got)
			}
			var body struct {
				Error struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Error.Code != "RATE_LIMITED" || body.Error.Message == "" {
				t.Fatalf("body = %+v", body)
			}
		})
	}
}
