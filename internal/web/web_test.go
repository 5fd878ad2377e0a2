package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"countdown/internal/battery"
	"countdown/internal/calendar"
	"countdown/internal/config"
	"countdown/internal/model"
	"countdown/internal/pipeline"
	"countdown/internal/store"
)

type fixedBattery struct{}

func (fixedBattery) Read(context.Context) (battery.Status, error) {
	return battery.Status{Percent: 76, VoltageMv: 3950, Source: "mock"}, nil
}

func newTestServer(t *testing.T, loaded bool, mutate func(*config.Config)) (*Server, *pipeline.Service) {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	now := time.Date(2025, 12, 26, 10, 0, 0, 0, calendar.Zone)
	svc := pipeline.New(pipeline.Options{
		Store: store.NewFile(filepath.Join(t.TempDir(), "holidays.json")),
		Clock: func() time.Time { return now },
	})
	if loaded {
		require.NoError(t, svc.Reload(context.Background()))
	}
	return NewServer(cfg, svc, fixedBattery{}), svc
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, false, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestCountdown(t *testing.T) {
	s, _ := newTestServer(t, true, nil)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/countdown", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out model.Output
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 8, out.DisplayDays)
	assert.Equal(t, "active", out.Status)
	assert.Equal(t, "morning", out.Daypart)

	rec = do(t, h, http.MethodGet, "/api/countdown?today=2025-12-25&daypart=night", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "paused-holiday", out.Status)
	assert.Equal(t, "christmas", out.ThemeKey)
	assert.Equal(t, "night", out.Daypart)

	rec = do(t, h, http.MethodGet, "/api/countdown?preview=newyear", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "newyear", out.ThemeKey)

	rec = do(t, h, http.MethodPost, "/api/countdown", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCountdown_Unloaded(t *testing.T) {
	s, _ := newTestServer(t, false, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/api/countdown", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"unconfigured"`)

	rec = do(t, s.Handler(), http.MethodGet, "/api/holidays", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHolidayEndpoints(t *testing.T) {
	s, svc := newTestServer(t, true, nil)
	h := s.Handler()

	var resp holidaysResponse
	rec := do(t, h, http.MethodGet, "/api/holidays", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Configured)
	assert.Empty(t, resp.User)

	rec = do(t, h, http.MethodPost, "/api/holidays", `{"date":"2025-12-26","label":"Office closed"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []store.Holiday{{Date: "2025-12-26", Label: "Office closed"}}, resp.User)
	assert.Equal(t, "paused-holiday", svc.Current().Status)

	rec = do(t, h, http.MethodPost, "/api/holidays", `{"date":"tomorrow"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/holidays", `{"date":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/holidays?date=2025-12-26&label=Office+closed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.User)

	rec = do(t, h, http.MethodDelete, "/api/holidays", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	do(t, h, http.MethodPost, "/api/holidays", `{"date":"2025-12-29"}`)
	rec = do(t, h, http.MethodPost, "/api/holidays/clear", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.User)

	rec = do(t, h, http.MethodGet, "/api/holidays/clear", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	rec = do(t, h, http.MethodPut, "/api/holidays", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestThemes(t *testing.T) {
	s, _ := newTestServer(t, true, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/api/themes", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var themes map[string]map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &themes))
	assert.Contains(t, themes, "base")
	assert.Contains(t, themes, "christmas")
}

func TestBattery(t *testing.T) {
	s, _ := newTestServer(t, false, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/api/battery", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"percent":76,"voltage_mv":3950,"source":"mock"}`, rec.Body.String())

	for _, m := range []string{http.MethodPost, http.MethodDelete} {
		rec = do(t, s.Handler(), m, "/api/battery", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, m)
		assert.Equal(t, http.MethodGet, rec.Header().Get("Allow"))
	}

	s.battery = nil
	rec = do(t, s.Handler(), http.MethodGet, "/api/battery", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPreview(t *testing.T) {
	s, _ := newTestServer(t, false, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/preview.png", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	path := filepath.Join(t.TempDir(), "preview.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n"), 0o600))
	s, _ = newTestServer(t, false, func(c *config.Config) {
		c.Capture.Enabled = true
		c.Capture.Output = path
	})
	rec = do(t, s.Handler(), http.MethodGet, "/preview.png", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
}

func TestViewerAndUnknownAPI(t *testing.T) {
	s, _ := newTestServer(t, false, nil)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-ready`)
	assert.Contains(t, rec.Body.String(), `/api/countdown`)

	rec = do(t, h, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBasicAuth(t *testing.T) {
	s, _ := newTestServer(t, true, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "s3cret"}
	})
	h := s.Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code)

	rec := do(t, h, http.MethodGet, "/api/countdown", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	req := httptest.NewRequest(http.MethodGet, "/api/countdown", nil)
	req.SetBasicAuth("admin", "s3cret")
	ok := httptest.NewRecorder()
	h.ServeHTTP(ok, req)
	assert.Equal(t, http.StatusOK, ok.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/countdown", nil)
	req.SetBasicAuth("admin", "wrong")
	bad := httptest.NewRecorder()
	h.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusUnauthorized, bad.Code)
}

func TestServe_Shutdown(t *testing.T) {
	s, _ := newTestServer(t, false, func(c *config.Config) { c.Listen = "127.0.0.1:0" })
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
