// Package scheduler decides when the next cycle starts.
package scheduler

import (
	"context"
	"fmt"
	"time"

	clierr "github.com/ggonzalez94/goldilocks-keeper/internal/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Schedule waits between cycles. An interval schedule is a fixed delay
// measured from the end of the previous cycle; a cron schedule waits for
// the next matching time.
type Schedule struct {
	sched  cron.Schedule
	desc   string
	now    func() time.Time
	logger zerolog.Logger
}

// Every builds a fixed-delay schedule. Intervals are rounded down to whole
// seconds with a one second minimum.
func Every(interval time.Duration) (*Schedule, error) {
	if interval <= 0 {
		return nil, clierr.New(clierr.CodeConfig, "cycle interval must be positive")
	}
	s := cron.Every(interval)
	return &Schedule{sched: s, desc: "every " + s.Delay.String(), now: time.Now, logger: zerolog.Nop()}, nil
}

// Parse accepts a five or six field cron expression or a descriptor such
// as "@hourly" or "@every 2m".
func Parse(spec string) (*Schedule, error) {
	s, err := parser.Parse(spec)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeConfig, fmt.Sprintf("invalid cycle schedule %q", spec), err)
	}
	return &Schedule{sched: s, desc: spec, now: time.Now, logger: zerolog.Nop()}, nil
}

func (s *Schedule) WithLogger(logger zerolog.Logger) *Schedule {
	s.logger = logger
	return s
}

func (s *Schedule) Describe() string { return s.desc }

// Next returns the first activation after t.
func (s *Schedule) Next(t time.Time) time.Time { return s.sched.Next(t) }

// Wait blocks until the next activation or until ctx is done.
func (s *Schedule) Wait(ctx context.Context) error {
	now := s.now()
	next := s.sched.Next(now)
	delay := next.Sub(now)
	s.logger.Info().Time("next_cycle", next).Dur("delay", delay).Msg("waiting for next cycle")

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
