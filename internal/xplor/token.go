package xplor

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const tokenField = "__RequestVerificationToken"

// Token is the short-lived anti-forgery credential scraped from a facility
// landing page. It is only valid together with the session cookies set on
// the same exchange, which live in the provider's cookie jar.
type Token struct {
	Value     string
	FetchedAt time.Time
}

// TokenProvider acquires and caches anti-forgery tokens. The cache key is
// (base_url, facility_id); entries expire proactively after ttl and are
// dropped reactively via Invalidate when the API rejects one.
type TokenProvider struct {
	hc          *http.Client
	ua          string
	ttl         time.Duration
	maxAttempts int
	backoff     time.Duration
	now         func() time.Time

	mu    sync.Mutex
	cache map[string]Token
}

type TokenProviderOptions struct {
	// HTTPClient should be the same client the availability requests go
	// through: the platform only accepts a token alongside the session
	// cookies set when it was issued.
	HTTPClient  *http.Client
	Timeout     time.Duration
	UserAgent   string
	TTL         time.Duration
	MaxAttempts int
	Backoff     time.Duration
}

func NewTokenProvider(opts TokenProviderOptions) *TokenProvider {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.TTL <= 0 {
		opts.TTL = 15 * time.Minute
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	hc := opts.HTTPClient
	if hc == nil {
		jar, _ := cookiejar.New(nil)
		hc = &http.Client{Timeout: opts.Timeout, Jar: jar}
	}
	return &TokenProvider{
		hc:          hc,
		ua:          opts.UserAgent,
		ttl:         opts.TTL,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
		now:         time.Now,
		cache:       make(map[string]Token),
	}
}

func tokenKey(p Params) string {
	return p.BaseURL + "|" + p.FacilityID
}

// Acquire returns a cached token if one is still fresh, otherwise fetches
// the facility page and extracts a new one, retrying transient failures.
func (tp *TokenProvider) Acquire(ctx context.Context, p Params) (Token, error) {
	key := tokenKey(p)

	tp.mu.Lock()
	tok, ok := tp.cache[key]
	tp.mu.Unlock()
	if ok && tp.now().Sub(tok.FetchedAt) < tp.ttl {
		return tok, nil
	}

	var lastErr error
	for attempt := 1; attempt <= tp.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, tp.backoff<<(attempt-2)); err != nil {
				return Token{}, &TokenError{Reason: "acquisition canceled", Err: err}
			}
		}
		tok, err := tp.fetch(ctx, p)
		if err == nil {
			tp.mu.Lock()
			tp.cache[key] = tok
			tp.mu.Unlock()
			return tok, nil
		}
		lastErr = err
		log.Debug().Err(err).Int("attempt", attempt).Str("facility_id", p.FacilityID).
			Msg("token acquisition failed")
		if ctx.Err() != nil {
			break
		}
	}
	return Token{}, &TokenError{Reason: "could not acquire token", Err: lastErr}
}

// Invalidate drops the cached token for a facility so the next Acquire
// refetches. Called when the API signals an anti-forgery rejection.
func (tp *TokenProvider) Invalidate(p Params) {
	tp.mu.Lock()
	delete(tp.cache, tokenKey(p))
	tp.mu.Unlock()
}

func (tp *TokenProvider) fetch(ctx context.Context, p Params) (Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.FacilityPageURL(), nil)
	if err != nil {
		return Token{}, err
	}
	req.Header.Set("User-Agent", tp.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := tp.hc.Do(req)
	if err != nil {
		return Token{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Token{}, fmt.Errorf("facility page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Token{}, fmt.Errorf("parse facility page: %w", err)
	}
	value, ok := doc.Find(`input[name="` + tokenField + `"]`).First().Attr("value")
	if !ok || value == "" {
		return Token{}, fmt.Errorf("no %s input on facility page", tokenField)
	}

	log.Debug().Str("facility_id", p.FacilityID).Msg("acquired anti-forgery token")
	return Token{Value: value, FetchedAt: tp.now()}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
