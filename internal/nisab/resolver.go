// Package nisab resolves the current nisab threshold. It scrapes the
// official zekat.ba pages, sanity-checks the value, and falls back to
// a configured static threshold on any failure. Resolution never
// fails: the caller always gets a usable value with its provenance.
package nisab

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"ZakatSentinel/internal/model"
	"ZakatSentinel/internal/numfmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Values outside this band are treated as a parse miss, not as real
// data: the upstream page format is unstable and a bad match must not
// move the threshold.
var (
	MinPlausible = decimal.RequireFromString("5000")
	MaxPlausible = decimal.RequireFromString("35000")
)

// DefaultURLs are the zekat.ba pages tried in order.
var DefaultURLs = []string{
	"https://zekat.ba",
	"https://zekat.ba/nisab",
	"https://zekat.ba/kalkulator",
}

// The page publishes the value in Bosnian notation, e.g.
// "Aktuelni nisab: 24.624,00 KM". Patterns are tried in order; the
// pages are matched lowercased.
var nisabPatterns = []*regexp.Regexp{
	regexp.MustCompile(`aktuelni nisab:\s*(\d{1,2}\.\d{3},\d{2})\s*km`),
	regexp.MustCompile(`nisab:\s*(\d{1,2}\.\d{3},\d{2})\s*km`),
	regexp.MustCompile(`(?s)nisab.*?(\d{1,2}\.\d{3},\d{2}).*?km`),
}

// Resolver fetches the authoritative nisab value with a circuit
// breaker and a per-host rate limiter in front of the upstream site.
type Resolver struct {
	urls     []string
	fallback decimal.Decimal
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	limiter  *rate.Limiter
}

// NewResolver creates a Resolver. urls defaults to the zekat.ba pages;
// fallback is the configured static threshold used when no
// authoritative value can be obtained.
func NewResolver(urls []string, fallback decimal.Decimal) *Resolver {
	if len(urls) == 0 {
		urls = DefaultURLs
	}
	return &Resolver{
		urls:     urls,
		fallback: fallback,
		client:   &http.Client{Timeout: 10 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "zekat.ba",
			Timeout: 5 * time.Minute,
		}),
		// The site is small and non-commercial; one request every two
		// seconds is plenty for three URLs a month.
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
}

// Resolve returns the current nisab value and its provenance. It never
// returns an error: any fetch or parse failure falls through to the
// configured fallback.
func (r *Resolver) Resolve(ctx context.Context) model.NisabResolution {
	for _, url := range r.urls {
		value, err := r.fetchOne(ctx, url)
		if err != nil {
			log.Warn().Str("url", url).Err(err).Msg("nisab fetch failed")
			continue
		}
		log.Info().Str("url", url).Msg("nisab resolved from official source")
		return model.NisabResolution{
			Value:     value,
			Source:    model.NisabSourceAuthoritative,
			URL:       url,
			FetchedAt: time.Now().UTC(),
		}
	}

	log.Warn().
		Str("fallback", r.fallback.String()).
		Msg("could not resolve official nisab, using configured fallback")
	return model.NisabResolution{
		Value:     r.fallback,
		Source:    model.NisabSourceFallback,
		FetchedAt: time.Now().UTC(),
	}
}

func (r *Resolver) fetchOne(ctx context.Context, url string) (decimal.Decimal, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return decimal.Zero, err
	}
	result, err := r.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; ZakatSentinel)")
		req.Header.Set("Accept", "text/html,application/xhtml+xml")

		resp, err := r.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("http %d", resp.StatusCode)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
		if err != nil {
			return nil, err
		}
		return body, nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	value, err := ParseNisab(string(result.([]byte)))
	if err != nil {
		return decimal.Zero, err
	}
	return value, nil
}

// ParseNisab extracts a plausible nisab value from page content.
func ParseNisab(content string) (decimal.Decimal, error) {
	lowered := strings.ToLower(content)
	for i, pattern := range nisabPatterns {
		m := pattern.FindStringSubmatch(lowered)
		if m == nil {
			continue
		}
		value, err := numfmt.ParseBosnian(m[1])
		if err != nil {
			log.Debug().Int("pattern", i+1).Err(err).Msg("nisab pattern matched but value unparsable")
			continue
		}
		if value.Cmp(MinPlausible) < 0 || value.Cmp(MaxPlausible) > 0 {
			log.Warn().Str("value", value.String()).Msg("nisab value out of plausible range, ignoring")
			continue
		}
		return value, nil
	}
	return decimal.Zero, errors.New("no plausible nisab value in page")
}
