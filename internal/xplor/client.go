package xplor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/example/courtsched/internal/schedule"
)

// Client performs availability fetches against one platform. It owns the
// cookie jar and token provider for the facilities it serves; a config-driven
// run creates one Client per facility so no token state crosses facilities.
type Client struct {
	hc          *http.Client
	tokens      *TokenProvider
	limiter     *rate.Limiter
	ua          string
	maxAttempts int
	backoff     time.Duration
}

type ClientOptions struct {
	Timeout   time.Duration
	UserAgent string

	// Limiter paces every request sent to the platform, token fetches
	// included when shared with the TokenProvider's client. May be shared
	// across facilities; nil disables pacing.
	Limiter *rate.Limiter

	// MaxAttempts bounds retries for 5xx and transport failures. The
	// single anti-forgery refresh retry is budgeted separately.
	MaxAttempts int
	Backoff     time.Duration
	TokenTTL    time.Duration
}

func NewClient(opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	jar, _ := cookiejar.New(nil)
	hc := &http.Client{Timeout: opts.Timeout, Jar: jar}
	return &Client{
		hc: hc,
		tokens: NewTokenProvider(TokenProviderOptions{
			HTTPClient:  hc,
			UserAgent:   opts.UserAgent,
			TTL:         opts.TokenTTL,
			MaxAttempts: opts.MaxAttempts,
			Backoff:     opts.Backoff,
		}),
		limiter:     opts.Limiter,
		ua:          opts.UserAgent,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
	}
}

// FetchDays runs one availability exchange for the params' full date range
// (the platform accepts daysCount, so a multi-day window is a single call)
// and returns the normalized days plus any per-entry parse notes.
//
// Response handling: 401/403 triggers exactly one token invalidate+refresh
// and one retry, a second rejection is a TokenError. 5xx and transport
// failures retry with exponential backoff up to MaxAttempts, then surface as
// HTTPError/NetworkError. 404 maps to HTTPError{HTTPNotFound} immediately.
func (c *Client) FetchDays(ctx context.Context, p Params) ([]schedule.ScheduleDay, []string, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}

	tok, err := c.tokens.Acquire(ctx, p)
	if err != nil {
		return nil, nil, err
	}

	attempts := 0
	refreshed := false
	for {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				// rate.Limiter fails either because the context is
				// already done, or because the remaining deadline is
				// too short for a slot. Both are the run deadline's
				// doing, so report them as such rather than as a
				// limiter failure.
				if cerr := ctx.Err(); cerr != nil {
					return nil, nil, cerr
				}
				if _, ok := ctx.Deadline(); ok {
					return nil, nil, context.DeadlineExceeded
				}
				return nil, nil, &NetworkError{Err: err}
			}
		}

		status, body, err := c.post(ctx, p, tok)
		if err != nil {
			attempts++
			if attempts >= c.maxAttempts || ctx.Err() != nil {
				return nil, nil, &NetworkError{Err: err}
			}
			if serr := sleep(ctx, c.backoff<<(attempts-1)); serr != nil {
				return nil, nil, &NetworkError{Err: err}
			}
			continue
		}

		switch {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			if refreshed {
				return nil, nil, &TokenError{Reason: fmt.Sprintf("token rejected twice (status=%d)", status)}
			}
			refreshed = true
			log.Debug().Str("facility_id", p.FacilityID).Int("status", status).
				Msg("anti-forgery rejection, refreshing token")
			c.tokens.Invalidate(p)
			tok, err = c.tokens.Acquire(ctx, p)
			if err != nil {
				return nil, nil, err
			}
			continue
		case status == http.StatusNotFound:
			return nil, nil, &HTTPError{Kind: HTTPNotFound, Status: status, Body: truncate(body)}
		case status >= 500:
			attempts++
			if attempts >= c.maxAttempts {
				return nil, nil, &HTTPError{Kind: HTTPServerError, Status: status, Body: truncate(body)}
			}
			if serr := sleep(ctx, c.backoff<<(attempts-1)); serr != nil {
				return nil, nil, &HTTPError{Kind: HTTPServerError, Status: status, Body: truncate(body)}
			}
			continue
		case status < 200 || status >= 300:
			return nil, nil, &HTTPError{Kind: HTTPOther, Status: status, Body: truncate(body)}
		}

		return ParseAvailability(body)
	}
}

func (c *Client) post(ctx context.Context, p Params, tok Token) (int, []byte, error) {
	form := url.Values{}
	form.Set("facilityId", p.FacilityID)
	form.Set("date", p.wireDate())
	form.Set("daysCount", strconv.Itoa(p.Days))
	form.Set("duration", strconv.Itoa(p.Duration))
	form.Set("serviceId", p.ServiceID)
	form.Set("calendarId", p.CalendarID)
	form.Set("feeType", strconv.Itoa(p.FeeType))
	form.Set(tokenField, tok.Value)
	for i, id := range p.DurationIDs {
		form.Set(fmt.Sprintf("durationIds[%d]", i), id)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.APIURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("User-Agent", c.ua)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Referer", p.FacilityPageURL())

	log.Debug().Str("url", p.APIURL()).Str("facility_id", p.FacilityID).
		Str("date", p.wireDate()).Int("days", p.Days).
		Str("token", truncateToken(tok.Value)).
		Msg("posting availability request")

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}

	ev := log.Debug().Int("status", resp.StatusCode).Int("bytes", len(body)).
		Str("facility_id", p.FacilityID)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		ev = ev.Str("body", truncate(body))
	}
	ev.Msg("availability response")
	return resp.StatusCode, body, nil
}

func truncate(b []byte) string {
	const max = 500
	if len(b) > max {
		b = b[:max]
	}
	return string(b)
}

func truncateToken(s string) string {
	if len(s) > 12 {
		return s[:12] + "..."
	}
	return s
}
