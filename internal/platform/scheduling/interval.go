// Package scheduling runs the import job on a fixed interval.
package scheduling

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Job is one import run. Errors are reported, not retried; the next tick
// picks up whatever is still unprocessed.
type Job func(ctx context.Context) error

// Interval triggers a Job immediately and then on every tick. Runs execute
// one at a time on the scheduler goroutine; ticks that elapse during a slow
// run coalesce, so runs never stack up.
type Interval struct {
	every time.Duration
	job   Job
	log   zerolog.Logger
}

func NewInterval(every time.Duration, job Job, log zerolog.Logger) *Interval {
	return &Interval{every: every, job: job, log: log}
}

// Start blocks until ctx is cancelled.
func (s *Interval) Start(ctx context.Context) {
	ticker := time.NewTicker(s.every)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Interval) runOnce(ctx context.Context) {
	started := time.Now()
	if err := s.job(ctx); err != nil {
		s.log.Error().Err(err).Dur("elapsed", time.Since(started)).Msg("import run failed")
		return
	}
	s.log.Info().Dur("elapsed", time.Since(started)).Msg("import run finished")
}
