package worker

import (
	"context"
	"time"
)

// Schedule is the desired state of a Poller.
type Schedule struct {
	Enabled  bool
	Interval time.Duration
}

// Scheduler applies Schedules to a Poller on its own goroutine. Stopping
// or resetting a Poller waits for an in-flight poll, and Set must not, so
// settings updates return at once. Only the latest pending Schedule is
// applied.
type Scheduler struct {
	poller  *Poller
	pending chan Schedule
	done    chan struct{}
}

// NewScheduler starts applying Schedules to p until ctx ends. A started
// poller runs under ctx.
func NewScheduler(ctx context.Context, p *Poller) *Scheduler {
	s := &Scheduler{
		poller:  p,
		pending: make(chan Schedule, 1),
		done:    make(chan struct{}),
	}
	go s.loop(ctx)
	return s
}

// Set queues sc, replacing any Schedule not yet applied.
func (s *Scheduler) Set(sc Schedule) {
	for {
		select {
		case s.pending <- sc:
			return
		default:
		}
		select {
		case <-s.pending:
		default:
		}
	}
}

// Done is closed once the scheduler has stopped.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case sc := <-s.pending:
			s.apply(ctx, sc)
		}
	}
}

func (s *Scheduler) apply(ctx context.Context, sc Schedule) {
	switch {
	case !sc.Enabled:
		s.poller.Stop()
	case !s.poller.Running():
		s.poller.Reset(sc.Interval)
		s.poller.Start(ctx)
	default:
		s.poller.Reset(sc.Interval)
	}
}
