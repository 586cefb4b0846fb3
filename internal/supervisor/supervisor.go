package supervisor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mevdschee/openspec-ui/internal/config"
	"github.com/mevdschee/openspec-ui/internal/metrics"
	"github.com/mevdschee/openspec-ui/pkg/changebus"
	"github.com/mevdschee/openspec-ui/pkg/watcher"
	"go.uber.org/zap"
)

// State is the supervisor's watch lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateBuilding
	StateWatching
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateWatching:
		return "watching"
	default:
		return "idle"
	}
}

// Options configures a Supervisor.
type Options struct {
	Debounce time.Duration
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

// Supervisor owns the watch session over all valid sources and rebuilds it on reconfiguration.
type Supervisor struct {
	registry    *SourceRegistry
	bus         *changebus.Bus
	debounce    time.Duration
	logger      *zap.Logger
	metrics     *metrics.Metrics
	reconfigure chan struct{}
	state       atomic.Int32

	mu      sync.Mutex
	session *watcher.FileWatcher
}

// New creates a supervisor. Call Run to start watching.
func New(registry *SourceRegistry, bus *changebus.Bus, opts Options) *Supervisor {
	if opts.Debounce <= 0 {
		opts.Debounce = watcher.DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Supervisor{
		registry:    registry,
		bus:         bus,
		debounce:    opts.Debounce,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		reconfigure: make(chan struct{}, 1),
	}
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

func (s *Supervisor) setState(state State) {
	s.state.Store(int32(state))
}

// WatchedSources returns the roots of the current session.
func (s *Supervisor) WatchedSources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	return s.session.Roots()
}

// Reconfigure asks the supervisor to rebuild its session. Signals sent while one is
// already pending collapse into it.
func (s *Supervisor) Reconfigure() {
	select {
	case s.reconfigure <- struct{}{}:
	default:
	}
}

// Apply replaces the registry's source list, signals a rebuild and notifies subscribers
// right away so clients re-fetch before any file changes.
func (s *Supervisor) Apply(sources []config.Source) {
	s.registry.Update(sources)
	valid := 0
	for _, src := range sources {
		if src.Valid {
			valid++
		}
	}
	s.metrics.SetSources(valid, len(sources)-valid)
	s.Reconfigure()
	s.bus.Publish()
}

// Run builds the initial session and rebuilds it on every reconfiguration until ctx is done.
func (s *Supervisor) Run(ctx context.Context) error {
	s.rebuild()
	for {
		select {
		case <-ctx.Done():
			s.teardown()
			s.setState(StateIdle)
			return nil
		case <-s.reconfigure:
			s.logger.Info("configuration updated, restarting file watcher")
			s.rebuild()
		}
	}
}

// teardown closes the current session, if any.
func (s *Supervisor) teardown() {
	s.mu.Lock()
	session := s.session
	s.session = nil
	s.mu.Unlock()

	if session == nil {
		return
	}
	if err := session.Close(); err != nil {
		s.logger.Warn("failed to close file watcher", zap.Error(err))
	}
}

func (s *Supervisor) rebuild() {
	s.setState(StateBuilding)
	s.teardown()

	session, err := watcher.NewFileWatcher(s.debounce, s.logger, s.onChange, s.onError)
	if err != nil {
		s.logger.Error("failed to create file watcher", zap.Error(err))
		s.metrics.RecordRebuild(0)
		s.setState(StateIdle)
		return
	}

	watched := 0
	for _, src := range s.registry.Valid() {
		if err := session.AddRecursive(src.Path); err != nil {
			s.logger.Warn("failed to watch source",
				zap.String("source", src.ID), zap.String("path", src.Path), zap.Error(err))
			continue
		}
		watched++
		s.logger.Info("watching source", zap.String("source", src.ID), zap.String("path", src.Path))
	}

	s.mu.Lock()
	s.session = session
	s.mu.Unlock()

	s.metrics.RecordRebuild(watched)
	s.setState(StateWatching)
}

func (s *Supervisor) onChange(paths []string) {
	s.logger.Debug("sources changed", zap.Int("paths", len(paths)), zap.String("first", paths[0]))
	s.bus.Publish()
}

func (s *Supervisor) onError(err error) {
	s.logger.Warn("file watcher error", zap.Error(err))
	s.metrics.RecordWatchError()
}
