// Package scraper drives the fetch pipeline across the facility set a
// selection resolves to, isolating per-facility failures and aggregating
// the outcomes.
package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/example/courtsched/internal/config"
	"github.com/example/courtsched/internal/schedule"
	"github.com/example/courtsched/internal/xplor"
)

// FetchFunc runs one facility's availability exchange. The orchestrator
// never lets an error returned here escape a facility's own result.
type FetchFunc func(ctx context.Context, p xplor.Params) ([]schedule.ScheduleDay, []string, error)

// NewPlatformFetch returns a FetchFunc that dials the real platform with a
// fresh client per facility, so each facility's run owns its token cache and
// cookie jar. The limiter is the one piece shared across facilities: the
// platform is rate limited as a whole, not per court.
func NewPlatformFetch(limiter *rate.Limiter, opts xplor.ClientOptions) FetchFunc {
	return func(ctx context.Context, p xplor.Params) ([]schedule.ScheduleDay, []string, error) {
		o := opts
		o.Limiter = limiter
		return xplor.NewClient(o).FetchDays(ctx, p)
	}
}

type Orchestrator struct {
	cfg         *config.Config
	fetch       FetchFunc
	concurrency int
	timeout     time.Duration
	now         func() time.Time
}

type Options struct {
	Config *config.Config
	Fetch  FetchFunc

	// Concurrency bounds simultaneous in-flight facility fetches. The
	// platform is an external rate-limited service, so the default stays
	// in the low single digits.
	Concurrency int

	// Timeout is the run-level deadline. Facilities still pending when it
	// passes are recorded as failed with reason "timeout". Zero means no
	// deadline beyond the caller's context.
	Timeout time.Duration
}

func New(opts Options) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 3
	}
	return &Orchestrator{
		cfg:         opts.Config,
		fetch:       opts.Fetch,
		concurrency: opts.Concurrency,
		timeout:     opts.Timeout,
		now:         time.Now,
	}
}

// Run resolves the selection and fetches every matching facility. Resolution
// failure is the one fatal-before-work case; after that, any error inside a
// facility's pipeline is converted into that facility's failed result and
// the run always returns an AggregateResult in resolution order.
func (o *Orchestrator) Run(ctx context.Context, sel config.Selection, date time.Time, days int) (schedule.AggregateResult, error) {
	resolved, err := config.Resolve(o.cfg, sel)
	if err != nil {
		return schedule.AggregateResult{}, err
	}

	agg := schedule.AggregateResult{
		RunID:     uuid.NewString(),
		Selection: sel.String(),
		Date:      date.Format("2006-01-02"),
		Days:      days,
		StartedAt: o.now(),
		Total:     len(resolved),
		Results:   make([]schedule.FacilityScheduleResult, len(resolved)),
	}

	log.Info().Str("selection", agg.Selection).Int("facilities", len(resolved)).
		Str("date", agg.Date).Int("days", days).Msg("starting scrape run")

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	g := new(errgroup.Group)
	g.SetLimit(o.concurrency)
	for i, r := range resolved {
		i, r := i, r
		g.Go(func() error {
			agg.Results[i] = o.fetchOne(ctx, r, date, days)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range agg.Results {
		if res.Status == schedule.StatusSucceeded {
			agg.Succeeded++
		} else {
			agg.Failed++
		}
	}
	agg.FinishedAt = o.now()

	log.Info().Int("succeeded", agg.Succeeded).Int("failed", agg.Failed).
		Int("total", agg.Total).Msg("scrape run finished")
	return agg, nil
}

// fetchOne walks a single facility through the pipeline stages. Each stage
// either advances the facility or lands it in a terminal failed state; a
// terminal state is never left again.
func (o *Orchestrator) fetchOne(ctx context.Context, r config.Resolved, date time.Time, days int) schedule.FacilityScheduleResult {
	logger := log.With().Str("facility", r.Facility.Name).Str("city", r.City.Name).Logger()

	res := schedule.FacilityScheduleResult{
		FacilityID: r.Facility.FacilityID,
		FetchedAt:  o.now(),
	}

	logger.Debug().Msg("resolving request parameters")
	p, err := xplor.BuildParams(r.City, r.Facility, o.cfg.DefaultSettings, date, days)
	if p.BaseURL != "" {
		res.FacilityPageURL = p.FacilityPageURL()
	}
	if err != nil {
		return o.fail(logger, res, err)
	}

	if ctx.Err() != nil {
		return o.fail(logger, res, ctx.Err())
	}

	rng := p.DateRange()
	logger.Debug().Time("from", rng[0]).Time("to", rng[len(rng)-1]).Msg("fetching availability")
	daysOut, notes, err := o.fetch(ctx, p)
	if err != nil {
		return o.fail(logger, res, err)
	}

	res.ScheduleData = daysOut
	res.Notes = notes
	res.Status = schedule.StatusSucceeded
	res.FetchedAt = o.now()
	logger.Debug().Int("days", len(daysOut)).Int("notes", len(notes)).Msg("facility succeeded")
	return res
}

func (o *Orchestrator) fail(logger zerolog.Logger, res schedule.FacilityScheduleResult, err error) schedule.FacilityScheduleResult {
	res.Status = schedule.StatusFailed
	res.FailureReason = FailureReason(err)
	res.FetchedAt = o.now()
	logger.Warn().Err(err).Str("reason", res.FailureReason).Msg("facility failed")
	return res
}

// FailureReason maps pipeline errors to the stable human-readable reason
// strings recorded in the aggregate output.
func FailureReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var pe *xplor.ParameterError
	if errors.As(err, &pe) {
		return pe.Error()
	}
	var te *xplor.TokenError
	if errors.As(err, &te) {
		return te.Error()
	}
	var he *xplor.HTTPError
	if errors.As(err, &he) {
		return he.Error()
	}
	var ne *xplor.NetworkError
	if errors.As(err, &ne) {
		return ne.Error()
	}
	var pse *xplor.ParseError
	if errors.As(err, &pse) {
		return pse.Error()
	}
	return err.Error()
}
