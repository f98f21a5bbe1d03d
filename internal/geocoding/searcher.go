package geocoding

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/airas/airas/internal/airquality"
)

const (
	// DefaultDebounce is the quiet period before a search is issued.
	DefaultDebounce = 300 * time.Millisecond

	// MinQueryLength is the shortest query that reaches the API.
	MinQueryLength = 2
)

// Finder looks up places by name.
type Finder interface {
	Search(ctx context.Context, query string) ([]airquality.Location, error)
}

// ResultFunc receives the results for the most recent query.
// It is called with the searcher's lock held and must not call Submit.
type ResultFunc func(query string, results []airquality.Location)

// SearcherConfig holds configuration for a Searcher.
type SearcherConfig struct {
	Finder   Finder
	Logger   zerolog.Logger
	Debounce time.Duration
	OnResult ResultFunc
}

// Searcher debounces place searches. Every submission takes a new token
// and results are delivered only while their token is still the latest,
// so a slow response can never replace a newer one.
type Searcher struct {
	finder   Finder
	logger   zerolog.Logger
	debounce time.Duration
	onResult ResultFunc

	ctx  context.Context
	stop context.CancelFunc

	mu       sync.Mutex
	token    uint64
	timer    *time.Timer
	inflight context.CancelFunc
	closed   bool
	query    string
	results  []airquality.Location
}

// NewSearcher creates a Searcher.
func NewSearcher(cfg SearcherConfig) *Searcher {
	if cfg.Debounce == 0 {
		cfg.Debounce = DefaultDebounce
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Searcher{
		finder:   cfg.Finder,
		logger:   cfg.Logger,
		debounce: cfg.Debounce,
		onResult: cfg.OnResult,
		ctx:      ctx,
		stop:     stop,
	}
}

// Submit records a new query. Pending and in-flight searches for earlier
// queries are abandoned. Queries shorter than MinQueryLength clear the
// results immediately.
func (s *Searcher) Submit(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.token++
	token := s.token
	s.cancelPending()

	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength {
		s.deliver(token, query, nil)
		return
	}

	s.timer = time.AfterFunc(s.debounce, func() { s.run(token, query) })
}

// Results returns the last delivered query and its results.
func (s *Searcher) Results() (string, []airquality.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query, s.results
}

// Close cancels pending and in-flight searches. No results are delivered
// after Close returns.
func (s *Searcher) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancelPending()
	s.stop()
}

func (s *Searcher) run(token uint64, query string) {
	s.mu.Lock()
	if s.closed || token != s.token {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.inflight = cancel
	s.mu.Unlock()
	defer cancel()

	results, err := s.finder.Search(ctx, query)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn().Err(err).Str("query", query).Msg("place search failed")
		}
		results = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliver(token, query, results)
}

// deliver must be called with mu held.
func (s *Searcher) deliver(token uint64, query string, results []airquality.Location) {
	if s.closed || token != s.token {
		s.logger.Debug().Str("query", query).Msg("dropping stale search results")
		return
	}
	if results == nil {
		results = []airquality.Location{}
	}
	s.query = query
	s.results = results
	if s.onResult != nil {
		s.onResult(query, results)
	}
}

// cancelPending must be called with mu held.
func (s *Searcher) cancelPending() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.inflight != nil {
		s.inflight()
		s.inflight = nil
	}
}
