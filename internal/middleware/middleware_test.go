package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/trustbrief/internal/domain/assessment"
)

var echoClient = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(GetClientFromContext(r.Context())))
})

func TestAPIKeyAuth(t *testing.T) {
	h := APIKeyAuth(map[string]string{"ci": "s3cret"})(echoClient)

	cases := []struct {
		name   string
		path   string
		header string
		value  string
		status int
		body   string
	}{
		{"missing", "/api/cache", "", "", http.StatusUnauthorized, ""},
		{"bearer", "/api/cache", "Authorization", "Bearer s3cret", http.StatusOK, "ci"},
		{"x-api-key", "/api/cache", "X-API-Key", "s3cret", http.StatusOK, "ci"},
		{"wrong", "/api/cache", "Authorization", "Bearer nope", http.StatusUnauthorized, ""},
		{"public", "/api/health", "", "", http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, tc.body, rec.Body.String())
			} else {
				var body ErrorBody
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, "unauthorized", body.Error)
			}
		})
	}
}

func TestAPIKeyAuthDisabledWithoutKeys(t *testing.T) {
	rec := httptest.NewRecorder()
	APIKeyAuth(nil)(echoClient).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cache", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	limiter := NewRateLimiter(2, 0)
	defer limiter.Stop()
	h := RateLimit(limiter)(echoClient)

	codes := []int{}
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/assess", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	// other clients have their own bucket
	req := httptest.NewRequest(http.MethodPost, "/api/assess", nil)
	req.RemoteAddr = "203.0.113.8:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type recordingObserver struct {
	mu     sync.Mutex
	routes []string
	codes  []int
}

func (o *recordingObserver) ObserveHTTP(_, route string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.routes = append(o.routes, route)
	o.codes = append(o.codes, status)
}

func (o *recordingObserver) InFlight(float64) {}

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	obs := &recordingObserver{}
	r := chi.NewRouter()
	r.Use(MetricsMiddleware(obs))
	r.Get("/api/cache/{key}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/cache/abc", nil))
	assert.Equal(t, []string{"/api/cache/{key}"}, obs.routes)
	assert.Equal(t, []int{http.StatusNotFound}, obs.codes)
}

func TestHealthHandler(t *testing.T) {
	checks := map[string]HealthChecker{
		"cache": CheckerFunc(func(context.Context) error { return nil }),
	}
	rec := httptest.NewRecorder()
	HealthHandler(checks)(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	checks["history"] = CheckerFunc(func(context.Context) error { return errors.New("db down") })
	rec = httptest.NewRecorder()
	HealthHandler(checks)(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var h HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, "unhealthy", h.Status)
	assert.Equal(t, "db down", h.Checks["history"].Message)

	rec = httptest.NewRecorder()
	ReadinessHandler(checks)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestValidators(t *testing.T) {
	s, err := ValidateTarget("  Slack\x00 ")
	require.NoError(t, err)
	assert.Equal(t, "Slack", s)

	_, err = ValidateTarget(`"Slack" vs "Teams"`)
	assert.ErrorIs(t, err, assessment.ErrMultipleEntities)
	_, err = ValidateTarget(strings.Repeat("a", assessment.MaxInputLength+1))
	assert.ErrorIs(t, err, assessment.ErrInputTooLong)

	assert.NoError(t, ValidateCacheKey(assessment.CacheKey("slack")))
	assert.Error(t, ValidateCacheKey("../../etc/passwd"))

	assert.NoError(t, ValidateURL("https://slack.com/trust"))
	assert.Error(t, ValidateURL("http://127.0.0.1/security"))
	assert.Error(t, ValidateURL("http://10.1.2.3/"))
	assert.Error(t, ValidateURL("http://localhost:8080/"))
	assert.Error(t, ValidateURL("file:///etc/passwd"))
	assert.Error(t, ValidateURL("http://169.254.169.254/latest/meta-data/"))

	assert.NoError(t, ValidateIP(net.ParseIP("93.184.216.34")))
	assert.Error(t, ValidateIP(net.ParseIP("169.254.169.254")))
	assert.Error(t, ValidateIP(net.ParseIP("192.168.0.10")))
	assert.Error(t, ValidateIP(net.ParseIP("::1")))

	assert.Equal(t, 20, ValidateLimit(0))
	assert.Equal(t, 100, ValidateLimit(1000))
}
