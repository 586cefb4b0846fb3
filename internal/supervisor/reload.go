package supervisor

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mevdschee/openspec-ui/internal/config"
	"go.uber.org/zap"
)

// fileMtime returns the modification time of a file, or zero time if it cannot be stat'ed.
func fileMtime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// ConfigReloader re-reads the configuration file on SIGHUP and applies its sources when the
// file changed since the last load. Edits made through the API already apply themselves.
type ConfigReloader struct {
	manager *config.Manager
	sup     *Supervisor
	logger  *zap.Logger

	mu    sync.Mutex
	mtime time.Time
}

// NewConfigReloader records the current mtime of the manager's config file.
func NewConfigReloader(manager *config.Manager, sup *Supervisor, logger *zap.Logger) *ConfigReloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfigReloader{
		manager: manager,
		sup:     sup,
		logger:  logger,
		mtime:   fileMtime(manager.Path()),
	}
}

// Run reloads on every SIGHUP until ctx is done.
func (r *ConfigReloader) Run(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigChan:
			r.logger.Info("received SIGHUP, checking config file")
			r.CheckNow()
		}
	}
}

// CheckNow applies the config file's sources if the file is newer than the last load.
// It reports whether sources were applied.
func (r *ConfigReloader) CheckNow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := fileMtime(r.manager.Path())
	if current.IsZero() || !current.After(r.mtime) {
		return false
	}

	var applied int
	err := r.manager.Reload(func(sources []config.Source) {
		r.sup.Apply(sources)
		applied = len(sources)
	})
	if err != nil {
		// keep the running sources; a fixed file is picked up on the next signal
		r.logger.Error("config reload failed", zap.String("path", r.manager.Path()), zap.Error(err))
		return false
	}
	r.mtime = current
	r.logger.Info("config reloaded", zap.Int("sources", applied))
	return true
}
