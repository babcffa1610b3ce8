package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"dune-health/internal/analysis"
	"dune-health/internal/health"
)

const fillKey = "snapshot"

// Persister receives every freshly filled snapshot
type Persister interface {
	SaveSnapshot(ctx context.Context, snap *health.Snapshot) error
}

// Options configures a Cache
type Options struct {
	TTL             time.Duration
	UpstreamTimeout time.Duration
	// HRVDays is the HRV sample lookback
	HRVDays int
	// SleepDays is the lookback for daily sleep totals and the RHR collection
	SleepDays int
	// LatestWithinDays bounds the search for the most recent RHR and sleep
	LatestWithinDays int
	Params           analysis.ConditionParams
	Now              func() time.Time
	Logger           *zap.Logger
	Persisters       []Persister
}

// DefaultOptions returns the default cache options
func DefaultOptions() Options {
	return Options{
		TTL:              5 * time.Minute,
		UpstreamTimeout:  10 * time.Second,
		HRVDays:          30,
		SleepDays:        14,
		LatestWithinDays: 7,
		Params:           analysis.DefaultConditionParams(),
		Now:              time.Now,
		Logger:           zap.NewNop(),
	}
}

// Cache is a single-flight TTL cache of health snapshots. It is safe for
// concurrent use.
type Cache struct {
	hrv   health.HRVQuerier
	sleep health.SleepQuerier
	opts  Options

	mu         sync.Mutex
	snapshot   *health.Snapshot
	filledAt   time.Time
	last       *health.Snapshot
	generation uint64

	group singleflight.Group
}

// New creates a Cache. Zero-valued options fall back to DefaultOptions.
func New(hrv health.HRVQuerier, sleep health.SleepQuerier, opts Options) *Cache {
	def := DefaultOptions()
	if opts.TTL <= 0 {
		opts.TTL = def.TTL
	}
	if opts.UpstreamTimeout <= 0 {
		opts.UpstreamTimeout = def.UpstreamTimeout
	}
	if opts.HRVDays <= 0 {
		opts.HRVDays = def.HRVDays
	}
	if opts.SleepDays <= 0 {
		opts.SleepDays = def.SleepDays
	}
	if opts.LatestWithinDays <= 0 {
		opts.LatestWithinDays = def.LatestWithinDays
	}
	if opts.Params == (analysis.ConditionParams{}) {
		opts.Params = def.Params
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	if opts.Logger == nil {
		opts.Logger = def.Logger
	}
	return &Cache{hrv: hrv, sleep: sleep, opts: opts}
}

// SeedLastKnown installs a previously persisted snapshot as the fallback for
// cancelled callers. It does not make the snapshot fresh.
func (c *Cache) SeedLastKnown(snap *health.Snapshot) {
	if snap == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		c.last = snap
	}
}

// FetchSnapshot returns the cached snapshot while it is younger than the TTL,
// otherwise joins or starts a fill. It never fails: upstream errors are recorded
// in the snapshot's FailedSources. If ctx ends first, the last known snapshot is
// returned (or an empty one flagging every source failed) and the fill carries
// on for other waiters.
func (c *Cache) FetchSnapshot(ctx context.Context) *health.Snapshot {
	c.mu.Lock()
	if c.snapshot != nil && c.opts.Now().Sub(c.filledAt) < c.opts.TTL {
		snap := c.snapshot
		c.mu.Unlock()
		return snap
	}
	c.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(fillKey, func() (any, error) {
		return c.fill(detached), nil
	})

	select {
	case res := <-ch:
		return res.Val.(*health.Snapshot)
	case <-ctx.Done():
		c.opts.Logger.Debug("snapshot wait cancelled", zap.Error(ctx.Err()))
		return c.lastKnown()
	}
}

// InvalidateCache drops the cached snapshot without refetching. A fill already
// in flight still answers its waiters but will not repopulate the cache.
func (c *Cache) InvalidateCache() {
	c.mu.Lock()
	c.snapshot = nil
	c.filledAt = time.Time{}
	c.generation++
	c.mu.Unlock()

	c.group.Forget(fillKey)
}

func (c *Cache) lastKnown() *health.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last != nil {
		return c.last
	}
	return &health.Snapshot{
		FailedSources: health.NewSourceSet(health.AllSources...),
		FetchedAt:     c.opts.Now(),
	}
}

func (c *Cache) fill(ctx context.Context) *health.Snapshot {
	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()

	snap := c.load(ctx)

	c.mu.Lock()
	if c.generation == gen {
		c.snapshot = snap
		c.filledAt = snap.FetchedAt
	}
	c.last = snap
	c.mu.Unlock()

	c.persist(ctx, snap)
	return snap
}

// load fans out to every upstream call. Each call is isolated: a failure leaves
// its field empty and marks its source.
func (c *Cache) load(ctx context.Context) *health.Snapshot {
	now := c.opts.Now()
	today := health.StartOfDay(now)
	yesterday := today.AddDate(0, 0, -1)
	windowStart := today.AddDate(0, 0, -c.opts.SleepDays)

	snap := &health.Snapshot{ID: uuid.NewString(), FetchedAt: now}

	var mu sync.Mutex
	failed := health.SourceSet(0)
	var g errgroup.Group

	run := func(kind health.SourceKind, name string, fn func(ctx context.Context) error) {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, c.opts.UpstreamTimeout)
			defer cancel()
			if err := fn(callCtx); err != nil {
				c.opts.Logger.Warn("upstream call failed",
					zap.String("source", kind.String()),
					zap.String("call", name),
					zap.Error(err),
				)
				mu.Lock()
				failed = failed.Add(kind)
				mu.Unlock()
			}
			return nil
		})
	}

	// Each closure writes a distinct field of snap
	run(health.SourceHRV, "hrv_samples", func(ctx context.Context) error {
		v, err := c.hrv.FetchHRVSamples(ctx, c.opts.HRVDays)
		snap.HRVSamples = v
		return err
	})
	run(health.SourceRHR, "rhr_today", func(ctx context.Context) error {
		v, err := c.hrv.FetchRestingHeartRate(ctx, today)
		snap.TodayRHR = v
		return err
	})
	run(health.SourceRHR, "rhr_yesterday", func(ctx context.Context) error {
		v, err := c.hrv.FetchRestingHeartRate(ctx, yesterday)
		snap.YesterdayRHR = v
		return err
	})
	run(health.SourceRHR, "rhr_latest", func(ctx context.Context) error {
		v, err := c.hrv.FetchLatestRestingHeartRate(ctx, c.opts.LatestWithinDays)
		snap.LatestRHR = v
		return err
	})
	run(health.SourceRHR, "rhr_collection", func(ctx context.Context) error {
		v, err := c.hrv.FetchRHRCollection(ctx, windowStart, now, 24*time.Hour)
		snap.RHRCollection = v
		return err
	})
	run(health.SourceSleep, "sleep_today", func(ctx context.Context) error {
		v, err := c.sleep.FetchSleepStages(ctx, today)
		snap.TodaySleepStages = v
		return err
	})
	run(health.SourceSleep, "sleep_yesterday", func(ctx context.Context) error {
		v, err := c.sleep.FetchSleepStages(ctx, yesterday)
		snap.YesterdaySleepStages = v
		return err
	})
	run(health.SourceSleep, "sleep_latest", func(ctx context.Context) error {
		v, err := c.sleep.FetchLatestSleepStages(ctx, c.opts.LatestWithinDays)
		snap.LatestSleep = v
		return err
	})
	run(health.SourceSleep, "sleep_daily", func(ctx context.Context) error {
		v, err := c.sleep.FetchDailySleepDurations(ctx, windowStart, now)
		snap.DailySleep = v
		return err
	})

	_ = g.Wait()

	// Failed calls may still have returned partial values
	if failed.Has(health.SourceHRV) {
		snap.HRVSamples = nil
	}
	snap.FailedSources = failed
	snap.Condition, snap.BaselineStatus = analysis.ComputeConditionScore(
		snap.HRVSamples, snap.EffectiveRHR(), snap.RHRBaseline(now), c.opts.Params)

	c.opts.Logger.Debug("snapshot filled",
		zap.String("id", snap.ID),
		zap.Int("hrv_samples", len(snap.HRVSamples)),
		zap.Stringer("failed_sources", snap.FailedSources),
	)
	return snap
}

func (c *Cache) persist(ctx context.Context, snap *health.Snapshot) {
	for _, p := range c.opts.Persisters {
		pctx, cancel := context.WithTimeout(ctx, c.opts.UpstreamTimeout)
		if err := p.SaveSnapshot(pctx, snap); err != nil {
			c.opts.Logger.Warn("snapshot persistence failed",
				zap.String("id", snap.ID),
				zap.Error(err),
			)
		}
		cancel()
	}
}
