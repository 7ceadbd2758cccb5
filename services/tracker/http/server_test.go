package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/carbon-intensity-tracker/services/tracker/carbon"
	"github.com/02loveslollipop/carbon-intensity-tracker/services/tracker/config"
	"github.com/02loveslollipop/carbon-intensity-tracker/services/tracker/models"
)

// upstream serves the recorded API fixtures and counts hits per path.
type upstream struct {
	mu     sync.Mutex
	hits   map[string]int
	status int
	srv    *httptest.Server
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	intensity, err := os.ReadFile("../testdata/intensity_today.json")
	require.NoError(t, err)
	generation, err := os.ReadFile("../testdata/generation.json")
	require.NoError(t, err)

	u := &upstream{hits: map[string]int{}, status: http.StatusOK}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.hits[r.URL.Path]++
		status := u.status
		u.mu.Unlock()

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		switch r.URL.Path {
		case "/intensity/date":
			_, _ = w.Write(intensity)
		case "/generation":
			_, _ = w.Write(generation)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(u.srv.Close)
	return u
}

func (u *upstream) hitCount(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hits[path]
}

type fakeHistory struct {
	since time.Time
	rows  []models.IntensitySnapshot
	err   error
}

func (f *fakeHistory) IntensitySince(ctx context.Context, since time.Time) ([]models.IntensitySnapshot, error) {
	f.since = since
	return f.rows, f.err
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 5, 0, time.UTC)

func testConfig(baseURL string) config.Config {
	return config.Config{
		BaseURL:         baseURL,
		Port:            8080,
		RefreshInterval: 31 * time.Minute,
		RequestTimeout:  5 * time.Second,
	}
}

func newTestServer(cfg config.Config, history HistoryStore) *Server {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	source := carbon.NewClient(cfg.BaseURL, &http.Client{Timeout: cfg.RequestTimeout})
	return New(cfg, source, history, logger).WithClock(func() time.Time { return fixedNow })
}

func get(s *Server, target string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := get(newTestServer(testConfig("http://unused"), nil), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestDashboard_DefaultViewIsIntensity(t *testing.T) {
	up := newUpstream(t)
	s := newTestServer(testConfig(up.srv.URL), nil)

	rec := get(s, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `id="intensity-table"`)
	assert.Equal(t, 48, strings.Count(rec.Body.String(), "<tr><td>"))
	assert.Equal(t, 1, up.hitCount("/intensity/date"))
	assert.Equal(t, 0, up.hitCount("/generation"))
}

func TestDashboard_GenerationViewNeverCallsIntensity(t *testing.T) {
	up := newUpstream(t)
	s := newTestServer(testConfig(up.srv.URL), nil)

	rec := get(s, "/?view=generation")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="mix-table"`)
	assert.Equal(t, 0, up.hitCount("/intensity/date"))
	assert.Equal(t, 1, up.hitCount("/generation"))
}

func TestDashboard_RefreshIsIdempotent(t *testing.T) {
	up := newUpstream(t)
	s := newTestServer(testConfig(up.srv.URL), nil)

	first := get(s, "/?view=intensity")
	second := get(s, "/?view=intensity")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 2, up.hitCount("/intensity/date"), "every refresh fetches again")
}

func TestDashboard_UnknownView(t *testing.T) {
	up := newUpstream(t)
	rec := get(newTestServer(testConfig(up.srv.URL), nil), "/?view=weather")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown view")
	assert.Equal(t, 0, up.hitCount("/intensity/date"))
}

func TestDashboard_UpstreamFailureShowsError(t *testing.T) {
	up := newUpstream(t)
	up.status = http.StatusInternalServerError
	rec := get(newTestServer(testConfig(up.srv.URL), nil), "/?view=generation")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), `role="alert"`)
	assert.Contains(t, rec.Body.String(), "unexpected status 500")
}

func TestV1Intensity(t *testing.T) {
	up := newUpstream(t)
	rec := get(newTestServer(testConfig(up.srv.URL), nil), "/api/v1/intensity")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v1", rec.Header().Get("X-API-Version"))

	var body struct {
		Data []models.IntensityReading `json:"data"`
		Meta struct {
			Count int `json:"count"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 48, body.Meta.Count)
	require.Len(t, body.Data, 48)
	assert.True(t, body.Data[0].From.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
}

func TestV1Generation(t *testing.T) {
	up := newUpstream(t)
	rec := get(newTestServer(testConfig(up.srv.URL), nil), "/api/v1/generation")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []models.GenerationMixEntry `json:"data"`
		Meta struct {
			Count int     `json:"count"`
			Total float64 `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 9, body.Meta.Count)
	assert.InDelta(t, 100.0, body.Meta.Total, 0.01)
	assert.Equal(t, 0, up.hitCount("/intensity/date"))
}

func TestV1_UpstreamFailure(t *testing.T) {
	up := newUpstream(t)
	up.status = http.StatusServiceUnavailable
	rec := get(newTestServer(testConfig(up.srv.URL), nil), "/api/v1/intensity")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "503")
}

func TestV1_BearerToken(t *testing.T) {
	up := newUpstream(t)
	cfg := testConfig(up.srv.URL)
	cfg.BearerToken = "secret"
	s := newTestServer(cfg, nil)

	assert.Equal(t, http.StatusUnauthorized, get(s, "/api/v1/generation").Code)
	assert.Equal(t, http.StatusUnauthorized, get(s, "/api/v1/generation", "Authorization", "Bearer wrong").Code)
	assert.Equal(t, http.StatusOK, get(s, "/api/v1/generation", "Authorization", "Bearer secret").Code)
	assert.Equal(t, http.StatusOK, get(s, "/?view=generation").Code, "dashboard stays public")
}

func TestV1History(t *testing.T) {
	t.Run("archive not configured", func(t *testing.T) {
		rec := get(newTestServer(testConfig("http://unused"), nil), "/api/v1/history/intensity")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("default window", func(t *testing.T) {
		history := &fakeHistory{rows: []models.IntensitySnapshot{{
			IntensityReading: models.IntensityReading{Forecast: 120, Index: "moderate"},
			RetrievedAt:      fixedNow,
		}}}
		rec := get(newTestServer(testConfig("http://unused"), history), "/api/v1/history/intensity")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, history.since.Equal(fixedNow.Add(-24*time.Hour)))
		assert.Contains(t, rec.Body.String(), `"count":1`)
		assert.Contains(t, rec.Body.String(), `"forecast":120`)
	})

	t.Run("days parameter", func(t *testing.T) {
		history := &fakeHistory{}
		rec := get(newTestServer(testConfig("http://unused"), history), "/api/v1/history/intensity?days=7")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, history.since.Equal(fixedNow.Add(-7*24*time.Hour)))
	})

	t.Run("invalid days", func(t *testing.T) {
		rec := get(newTestServer(testConfig("http://unused"), &fakeHistory{}), "/api/v1/history/intensity?days=0")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("store error", func(t *testing.T) {
		rec := get(newTestServer(testConfig("http://unused"), &fakeHistory{err: errors.New("db down")}), "/api/v1/history/intensity")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/intensity", nil)
	rec := httptest.NewRecorder()
	newTestServer(testConfig("http://unused"), nil).Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
