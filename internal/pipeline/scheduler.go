package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"countdown/internal/calendar"
	appLog "countdown/internal/log"
)

// Scheduler runs Tick on a fixed interval and Reload on a cron spec.
type Scheduler struct {
	c *cron.Cron
}

// NewScheduler registers the jobs; ctx is handed to every run. An empty
// refresh spec disables periodic reloads.
func NewScheduler(ctx context.Context, svc *Service, tick time.Duration, refresh string) (*Scheduler, error) {
	if tick < time.Second {
		tick = time.Second
	}
	c := cron.New(cron.WithLocation(calendar.Zone))

	if _, err := c.AddFunc(fmt.Sprintf("@every %s", tick), func() {
		svc.Tick(ctx)
	}); err != nil {
		return nil, fmt.Errorf("pipeline: tick schedule: %w", err)
	}

	if refresh != "" {
		if _, err := c.AddFunc(refresh, func() {
			if err := svc.Reload(ctx); err != nil {
				appLog.Warn("scheduled reload left countdown unconfigured", "err", err)
			}
		}); err != nil {
			return nil, fmt.Errorf("pipeline: refresh schedule %q: %w", refresh, err)
		}
	}

	return &Scheduler{c: c}, nil
}

func (s *Scheduler) Start() {
	s.c.Start()
}

// Stop halts the schedule and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.c.Stop().Done()
}

// Entries is the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.c.Entries())
}
