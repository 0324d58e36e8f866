package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"ZakatSentinel/internal/app"
	"ZakatSentinel/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const masterPassword = "test-master"

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{}
	cfg.DataDir = dir
	cfg.Currency.Reference = "BAM"
	cfg.Currency.Rates = map[string]string{"EUR": "1.955830"}
	cfg.Nisab.FallbackBAM = "24624.0"
	cfg.Nisab.URLs = []string{"http://127.0.0.1:1"} // unreachable: fallback path
	cfg.Database.SQLitePath = filepath.Join(dir, "audit.db")

	profile := &config.Profile{
		EmailSources: []config.EmailSource{{
			ID:         "personal",
			IMAPServer: "127.0.0.1",
			IMAPPort:   1, // unreachable: collection degrades to NoData
			Email:      "user@example.com",
			Password:   "pw",
			AccountPairs: []config.AccountPair{
				{BAMAccount: "1234567890"},
			},
		}},
	}
	require.NoError(t, config.SaveProfile(cfg.ProfilePath(), []byte(masterPassword), profile))

	factory, err := app.NewFactory(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { factory.Close() })

	return NewServer(factory, nil).Router(nil)
}

func postJSON(t *testing.T, h http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMarkPaidValidation(t *testing.T) {
	h := newTestServer(t)

	rec := postJSON(t, h, "/api/mark-paid", map[string]string{
		"master_password": masterPassword,
		"date":            "2025-01-15",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, h, "/api/mark-paid", map[string]string{
		"master_password": masterPassword,
		"date":            "15.01.2025",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMarkPaidWrongPassword(t *testing.T) {
	h := newTestServer(t)
	rec := postJSON(t, h, "/api/mark-paid", map[string]string{
		"master_password": "wrong",
		"date":            "15.01.2025",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHistoryRequiresPassword(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/history?master_password="+masterPassword, nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Count)
}

func TestHistoryReflectsPayments(t *testing.T) {
	h := newTestServer(t)

	rec := postJSON(t, h, "/api/mark-paid", map[string]string{
		"master_password": masterPassword,
		"date":            "15.01.2025",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/history?master_password="+masterPassword, nil)
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusOK, rec2.Code)

	var resp struct {
		Count   int `json:"count"`
		Entries []struct {
			Type string `json:"type"`
			Date string `json:"gregorian_date"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "zakat_paid", resp.Entries[0].Type)
	assert.Equal(t, "15.01.2025", resp.Entries[0].Date)
}

func TestNisabFallback(t *testing.T) {
	h := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/nisab", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Source string `json:"source"`
		Value  string `json:"value"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "fallback", resp.Source)
	assert.Equal(t, "24624.0", resp.Value)
}

func TestYearProgressUpdate(t *testing.T) {
	h := newTestServer(t)

	rec := postPut(t, h, "/api/settings/year-progress", map[string]interface{}{
		"master_password":    masterPassword,
		"enabled":            true,
		"months_above_nisab": 8,
		"as_of_hijri_date":   "01.07.1446",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Out-of-range override is rejected by profile validation.
	rec = postPut(t, h, "/api/settings/year-progress", map[string]interface{}{
		"master_password":    masterPassword,
		"enabled":            true,
		"months_above_nisab": 12,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func postPut(t *testing.T, h http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPut, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeRequiresPassword(t *testing.T) {
	h := newTestServer(t)
	rec := postJSON(t, h, "/api/analyze", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, h, "/api/analyze", map[string]string{"master_password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
