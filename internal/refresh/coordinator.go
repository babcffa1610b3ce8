package refresh

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Source identifies what asked for a refresh
type Source int

const (
	SourceAppLaunch Source = iota
	SourceForeground
	SourceBackground
	SourceProviderObserver
	SourcePullToRefresh
	SourceScheduled
)

func (s Source) String() string {
	switch s {
	case SourceAppLaunch:
		return "app_launch"
	case SourceForeground:
		return "foreground"
	case SourceBackground:
		return "background"
	case SourceProviderObserver:
		return "provider_observer"
	case SourcePullToRefresh:
		return "pull_to_refresh"
	case SourceScheduled:
		return "scheduled"
	default:
		return "unknown"
	}
}

// DefaultThrottle is the minimum spacing between throttled refreshes
const DefaultThrottle = 60 * time.Second

// subscriberBuffer is the channel capacity given to each subscriber
const subscriberBuffer = 8

// Invalidator drops cached data. *cache.Cache satisfies it.
type Invalidator interface {
	InvalidateCache()
}

// Coordinator throttles refresh requests and fans emitted refreshes out to
// subscribers. It is safe for concurrent use.
type Coordinator struct {
	cache    Invalidator
	throttle time.Duration
	now      func() time.Time
	logger   *zap.Logger

	mu          sync.Mutex
	lastRefresh time.Time
	refreshed   bool
	subs        map[int]chan Source
	nextSub     int
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithClock injects the time source used for throttle decisions
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithLogger sets the coordinator's logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// NewCoordinator creates a coordinator. A non-positive throttle uses DefaultThrottle.
func NewCoordinator(cache Invalidator, throttle time.Duration, opts ...Option) *Coordinator {
	if throttle <= 0 {
		throttle = DefaultThrottle
	}
	c := &Coordinator{
		cache:    cache,
		throttle: throttle,
		now:      time.Now,
		logger:   zap.NewNop(),
		subs:     make(map[int]chan Source),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestRefresh invalidates the cache and emits source when at least the
// throttle interval has passed since the last refresh. It reports whether a
// refresh happened; a throttled request has no side effects.
func (c *Coordinator) RequestRefresh(source Source) bool {
	c.mu.Lock()
	now := c.now()
	if c.refreshed && now.Sub(c.lastRefresh) < c.throttle {
		c.mu.Unlock()
		c.logger.Debug("refresh throttled",
			zap.Stringer("source", source),
			zap.Duration("since_last", now.Sub(c.lastRefresh)),
		)
		return false
	}
	c.lastRefresh = now
	c.refreshed = true
	c.mu.Unlock()

	c.cache.InvalidateCache()
	c.emit(source)
	return true
}

// ForceRefresh bypasses the throttle and emits SourcePullToRefresh
func (c *Coordinator) ForceRefresh() {
	c.mu.Lock()
	c.lastRefresh = c.now()
	c.refreshed = true
	c.mu.Unlock()

	c.cache.InvalidateCache()
	c.emit(SourcePullToRefresh)
}

// InvalidateCacheOnly drops cached data without notifying subscribers
func (c *Coordinator) InvalidateCacheOnly() {
	c.cache.InvalidateCache()
}

// LastRefresh returns when the last refresh happened and whether one has
func (c *Coordinator) LastRefresh() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRefresh, c.refreshed
}

// Subscribe returns a channel receiving every emitted source. The cancel func
// unregisters and closes the channel.
func (c *Coordinator) Subscribe() (<-chan Source, func()) {
	ch := make(chan Source, subscriberBuffer)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// emit never blocks: a subscriber with a full buffer misses the event
func (c *Coordinator) emit(source Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.subs {
		select {
		case ch <- source:
		default:
			c.logger.Debug("subscriber buffer full, dropping refresh",
				zap.Int("subscriber", id),
				zap.Stringer("source", source),
			)
		}
	}
}
