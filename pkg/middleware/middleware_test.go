package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/metrics"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ranks", nil))
	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("generated id %q, header %q", seen, rec.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ranks", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "abc-123" {
		t.Errorf("caller id not kept: %q", seen)
	}
}

func TestMetrics(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	h := Metrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/series" {
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	for _, path := range []string{"/api/v1/ranks", "/api/v1/series", "/nope/1", "/nope/2"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	tests := []struct {
		path, status string
		want         float64
	}{
		{"/api/v1/ranks", "200", 1},
		{"/api/v1/series", "400", 1},
		{"other", "200", 2},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", tt.path, tt.status)); got != tt.want {
			t.Errorf("%s %s = %v, want %v", tt.path, tt.status, got, tt.want)
		}
	}
	if got := testutil.ToFloat64(m.HTTPRequestsInFlight); got != 0 {
		t.Errorf("in flight = %v", got)
	}
}

func TestTimeout(t *testing.T) {
	h := Timeout(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ranks", nil))
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", rec.Code)
	}
}

func TestLimiter(t *testing.T) {
	now := time.Date(2021, 1, 28, 0, 0, 0, 0, time.UTC)
	l := NewLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	for i, want := range []bool{true, true, false} {
		if got := l.Allow("a"); got != want {
			t.Errorf("request %d = %v, want %v", i+1, got, want)
		}
	}
	if !l.Allow("b") {
		t.Error("second client shares the first client's bucket")
	}
	now = now.Add(30 * time.Second)
	if !l.Allow("a") {
		t.Error("no token refilled after half a window")
	}
	if l.Allow("a") {
		t.Error("refill exceeded the rate")
	}

	now = now.Add(5 * time.Minute)
	l.Allow("c")
	if _, ok := l.buckets["b"]; ok {
		t.Error("idle bucket not swept")
	}
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(NewLimiter(1, time.Minute))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	do := func(path, client string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-Forwarded-For", client+", 10.0.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	tests := []struct {
		name   string
		path   string
		client string
		want   int
	}{
		{name: "first", path: "/api/v1/ranks", client: "1.1.1.1", want: http.StatusOK},
		{name: "limited", path: "/api/v1/ranks", client: "1.1.1.1", want: http.StatusTooManyRequests},
		{name: "health exempt", path: "/health/ready", client: "1.1.1.1", want: http.StatusOK},
		{name: "metrics exempt", path: "/metrics", client: "1.1.1.1", want: http.StatusOK},
		{name: "other client", path: "/api/v1/ranks", client: "2.2.2.2", want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(tt.path, tt.client)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusTooManyRequests && rec.Header().Get("Retry-After") != "60" {
				t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
			}
		})
	}
}

func TestCORS(t *testing.T) {
	called := 0
	h := CORS(DefaultCORSConfig("http://dash.local"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
	}))

	tests := []struct {
		name       string
		method     string
		origin     string
		wantAllow  string
		wantStatus int
		wantCalled int
	}{
		{name: "allowed", method: http.MethodGet, origin: "http://dash.local", wantAllow: "http://dash.local", wantStatus: http.StatusOK, wantCalled: 1},
		{name: "other origin", method: http.MethodGet, origin: "http://evil.local", wantStatus: http.StatusOK, wantCalled: 1},
		{name: "no origin", method: http.MethodGet, wantStatus: http.StatusOK, wantCalled: 1},
		{name: "preflight", method: http.MethodOptions, origin: "http://dash.local", wantAllow: "http://dash.local", wantStatus: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called = 0
			req := httptest.NewRequest(tt.method, "/api/v1/ranks", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("allow origin = %q, want %q", got, tt.wantAllow)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if called != tt.wantCalled {
				t.Errorf("next called %d times, want %d", called, tt.wantCalled)
			}
		})
	}
}
