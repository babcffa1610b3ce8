package refresh

import (
	"fmt"

	"github.com/robfig/cron"
	"go.uber.org/zap"
)

// DefaultSchedule requests a background refresh every 15 minutes
const DefaultSchedule = "@every 15m"

// Scheduler issues throttled SourceScheduled requests on a cron schedule
type Scheduler struct {
	coord  *Coordinator
	cron   *cron.Cron
	logger *zap.Logger
}

// NewScheduler registers a robfig/cron expression, including descriptors such as
// "@every 10m" or "@hourly". Empty uses DefaultSchedule.
func NewScheduler(coord *Coordinator, schedule string, logger *zap.Logger) (*Scheduler, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{coord: coord, cron: cron.New(), logger: logger}
	if err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("parsing refresh schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	if s.coord.RequestRefresh(SourceScheduled) {
		s.logger.Info("scheduled refresh")
	}
}

// Start runs the schedule in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule. Running ticks are not interrupted.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
