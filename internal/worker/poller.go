package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPollInterval is the refresh period when none is configured.
const DefaultPollInterval = 15 * time.Minute

// PollFunc is the work done on every tick.
type PollFunc func(ctx context.Context) error

// PollerConfig holds configuration for a Poller.
type PollerConfig struct {
	Name     string
	Interval time.Duration
	Poll     PollFunc
	Logger   zerolog.Logger
}

// Poller runs a PollFunc immediately on start and then on every tick
// until stopped. Changing the interval restarts the cycle.
type Poller struct {
	name   string
	poll   PollFunc
	logger zerolog.Logger

	mu       sync.Mutex
	interval time.Duration
	parent   context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	trigger  chan struct{}

	statusMu  sync.RWMutex
	lastRunAt time.Time
	lastErr   error
	runs      int64
}

// NewPoller creates a stopped Poller.
func NewPoller(cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.Name == "" {
		cfg.Name = "poller"
	}
	return &Poller{
		name:     cfg.Name,
		poll:     cfg.Poll,
		logger:   cfg.Logger.With().Str("poller", cfg.Name).Logger(),
		interval: cfg.Interval,
	}
}

// Start begins polling. It is a no-op when already running. The poller
// stops when ctx is cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.runningLocked() {
		return
	}
	p.stopLocked()
	p.parent = ctx
	p.startLocked()
}

// Stop halts polling and waits for an in-flight poll to return.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Reset changes the interval. A running poller is cancelled and started
// again, polling immediately.
func (p *Poller) Reset(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if interval == p.interval {
		return
	}
	p.interval = interval
	if !p.runningLocked() {
		return
	}
	p.logger.Info().Dur("interval", interval).Msg("restarting poller with new interval")
	p.stopLocked()
	p.startLocked()
}

// Trigger requests an immediate poll. Requests made while a poll is
// pending are coalesced. It returns false when the poller is stopped.
func (p *Poller) Trigger() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.runningLocked() {
		return false
	}
	select {
	case p.trigger <- struct{}{}:
	default:
	}
	return true
}

// Running reports whether the poller is started.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runningLocked()
}

// runningLocked must be called with mu held. A poller whose parent
// context ended is no longer running.
func (p *Poller) runningLocked() bool {
	if p.cancel == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Interval returns the current polling interval.
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// PollerStatus describes the most recent poll.
type PollerStatus struct {
	Running   bool
	Interval  time.Duration
	Runs      int64
	LastRunAt time.Time
	LastError error
}

// Status returns the poller's state.
func (p *Poller) Status() PollerStatus {
	running, interval := p.Running(), p.Interval()

	p.statusMu.RLock()
	defer p.statusMu.RUnlock()
	return PollerStatus{
		Running:   running,
		Interval:  interval,
		Runs:      p.runs,
		LastRunAt: p.lastRunAt,
		LastError: p.lastErr,
	}
}

// startLocked must be called with mu held.
func (p *Poller) startLocked() {
	parent := p.parent
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.trigger = make(chan struct{}, 1)

	p.logger.Debug().Dur("interval", p.interval).Msg("poller started")
	go p.loop(ctx, p.interval, p.trigger, p.done)
}

// stopLocked must be called with mu held.
func (p *Poller) stopLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil
	p.trigger = nil
	p.logger.Debug().Msg("poller stopped")
}

func (p *Poller) loop(ctx context.Context, interval time.Duration, trigger <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.run(ctx)
		case <-trigger:
			p.run(ctx)
			ticker.Reset(interval)
		}
	}
}

func (p *Poller) run(ctx context.Context) {
	start := time.Now()
	err := p.poll(ctx)
	if ctx.Err() != nil {
		return
	}

	p.statusMu.Lock()
	p.runs++
	p.lastRunAt = start
	p.lastErr = err
	p.statusMu.Unlock()

	if err != nil {
		p.logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("poll failed")
		return
	}
	p.logger.Debug().Dur("duration", time.Since(start)).Msg("poll completed")
}
