package nisab

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"ZakatSentinel/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fallback = decimal.RequireFromString("24624")

func newTestResolver(urls ...string) *Resolver {
	r := NewResolver(urls, fallback)
	r.limiter.SetLimit(1e6) // no politeness delay in tests
	return r
}

func TestResolveAuthoritative(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><body>Aktuelni nisab: 25.100,00 KM</body></html>`))
	}))
	defer srv.Close()

	res := newTestResolver(srv.URL).Resolve(context.Background())
	assert.Equal(t, model.NisabSourceAuthoritative, res.Source)
	assert.Equal(t, srv.URL, res.URL)
	assert.True(t, res.Value.Equal(decimal.RequireFromString("25100")))
}

func TestResolveSecondPatternAndURL(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`Nisab: 24.624,00 KM`))
	}))
	defer good.Close()

	res := newTestResolver(bad.URL, good.URL).Resolve(context.Background())
	assert.Equal(t, model.NisabSourceAuthoritative, res.Source)
	assert.Equal(t, good.URL, res.URL)
	assert.True(t, res.Value.Equal(fallback))
}

func TestResolveOutOfBandFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Plausibility band is [5000, 35000]; this must be treated as a
		// parse miss, not as data.
		w.Write([]byte(`Aktuelni nisab: 99.999,00 KM`))
	}))
	defer srv.Close()

	res := newTestResolver(srv.URL).Resolve(context.Background())
	assert.Equal(t, model.NisabSourceFallback, res.Source)
	assert.True(t, res.Value.Equal(fallback))
}

func TestResolveNetworkFailureFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	srv.Close() // refuse connections

	res := newTestResolver(srv.URL).Resolve(context.Background())
	assert.Equal(t, model.NisabSourceFallback, res.Source)
	assert.True(t, res.Value.Equal(fallback))
}

func TestParseNisab(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		ok      bool
	}{
		{"primary pattern", "Aktuelni nisab: 24.624,00 KM", "24624", true},
		{"secondary pattern", "Nisab: 25.000,00 KM danas", "25000", true},
		{"loose pattern", "vrijednost nisaba iznosi 24.624,00 konvertibilnih maraka (KM)", "24624", true},
		{"below band", "Aktuelni nisab: 1.000,00 KM", "", false},
		{"no match", "nothing relevant here", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNisab(tt.content)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}
