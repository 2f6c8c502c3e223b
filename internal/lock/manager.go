package lock

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"photoimport/internal/logging"
	"photoimport/internal/services"
)

const guardRetryDelay = 50 * time.Millisecond

// Manager hands out the single-instance lock for one lock path. Acquire
// serializes on a companion "<path>.guard" flock file that stays on disk
// after Release; unlinking it would let a third starter lock a fresh inode
// while a second one still holds the old.
type Manager struct {
	path    string
	timeout time.Duration
	logger  *slog.Logger
	alive   func(int) bool
	now     func() time.Time
	pid     int
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLivenessCheck replaces the process liveness check.
func WithLivenessCheck(alive func(int) bool) Option {
	return func(m *Manager) {
		if alive != nil {
			m.alive = alive
		}
	}
}

// WithClock replaces the time source used to age locks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithPID overrides the identifier written into the lock file.
func WithPID(pid int) Option {
	return func(m *Manager) {
		if pid > 0 {
			m.pid = pid
		}
	}
}

// NewManager builds a Manager for path. A lock older than timeout is stale
// even when its owner is still alive.
func NewManager(path string, timeout time.Duration, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		path:    path,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "lock"),
		alive:   ProcessAlive,
		now:     time.Now,
		pid:     os.Getpid(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Path returns the lock file location.
func (m *Manager) Path() string { return m.path }

// Lock is a held lock. Release is safe to call more than once.
type Lock struct {
	Path       string
	OwnerPID   int
	AcquiredAt time.Time

	logger *slog.Logger
	once   sync.Once
	err    error
}

// Inspect evaluates the current lock file without modifying it.
func (m *Manager) Inspect() (Assessment, error) {
	obs, err := m.observe()
	if err != nil {
		return Assessment{}, err
	}
	return Evaluate(obs, m.alive, m.now(), m.timeout), nil
}

// Acquire takes the lock or fails with services.ErrAlreadyRunning when a
// valid lock is held by another process. Corrupt and stale locks are
// reclaimed.
func (m *Manager) Acquire(ctx context.Context) (*Lock, error) {
	if strings.TrimSpace(m.path) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "lock", "acquire", "lock path is empty", nil)
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "lock", "create lock directory", filepath.Dir(m.path), err)
	}

	// The guard serializes the read-evaluate-write section between instances
	// started at the same moment.
	guard := flock.New(m.path + ".guard")
	locked, err := guard.TryLockContext(ctx, guardRetryDelay)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrConfiguration, "lock", "guard", m.path, err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrAlreadyRunning, "lock", "guard", "another instance is acquiring the lock", nil)
	}
	defer func() {
		if err := guard.Unlock(); err != nil {
			m.logger.Debug("release lock guard failed", logging.Error(err))
		}
	}()

	assessment, err := m.Inspect()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "lock", "read", m.path, err)
	}

	switch assessment.State {
	case StateValid:
		if assessment.PID == m.pid {
			break
		}
		return nil, services.Wrap(services.ErrAlreadyRunning, "lock", "acquire",
			fmt.Sprintf("held by pid %d for %s", assessment.PID, assessment.Age.Round(time.Second)), nil)
	case StateCorrupt:
		logging.WarnWithContext(m.logger, "Reclaiming corrupt lock file", "lock_corrupt",
			logging.String("path", m.path),
			logging.String(logging.FieldErrorHint, "the previous run left an unreadable lock"),
			logging.String(logging.FieldImpact, "lock reclaimed"),
		)
	case StateStale:
		if assessment.Age > m.timeout && m.timeout > 0 {
			logging.WarnWithContext(m.logger, "Reclaiming stale lock", "lock_stale",
				logging.String("path", m.path),
				logging.Int("pid", assessment.PID),
				logging.Duration("age", assessment.Age.Round(time.Second)),
				logging.String("reason", assessment.Reason),
				logging.String(logging.FieldErrorHint, "check whether the previous run is hung"),
				logging.String(logging.FieldImpact, "lock reclaimed"),
			)
		} else {
			m.logger.Info("Removing lock left by exited process",
				logging.String("path", m.path),
				logging.Int("pid", assessment.PID),
			)
		}
	}

	if err := m.write(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "lock", "write", m.path, err)
	}

	// Re-read to detect an instance that wrote between our read and write.
	obs, err := m.observe()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "lock", "verify", m.path, err)
	}
	if owner, ok := parsePID(obs.Content); !ok || owner != m.pid {
		return nil, services.Wrap(services.ErrAlreadyRunning, "lock", "verify",
			fmt.Sprintf("lock taken over by %q", strings.TrimSpace(obs.Content)), nil)
	}

	m.logger.Debug("Lock acquired", logging.String("path", m.path), logging.Int("pid", m.pid))
	return &Lock{
		Path:       m.path,
		OwnerPID:   m.pid,
		AcquiredAt: obs.ModTime,
		logger:     m.logger,
	}, nil
}

// Run acquires the lock, calls fn, and releases the lock on every return
// path including a canceled ctx or a panic in fn.
func (m *Manager) Run(ctx context.Context, fn func(context.Context) error) (err error) {
	held, err := m.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := held.Release(); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}()
	return fn(ctx)
}

// Release removes the lock file if it still names this process. The guard
// file is left in place.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	l.once.Do(func() {
		data, err := os.ReadFile(l.Path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return
			}
			l.err = fmt.Errorf("read lock %s: %w", l.Path, err)
			return
		}
		if owner, ok := parsePID(string(data)); ok && owner != l.OwnerPID {
			logging.WarnWithContext(l.logger, "Lock owned by another process; leaving it", "lock_foreign",
				logging.String("path", l.Path),
				logging.Int("owner", owner),
				logging.String(logging.FieldImpact, "lock not removed"),
			)
			return
		}
		if err := os.Remove(l.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			l.err = fmt.Errorf("remove lock %s: %w", l.Path, err)
			return
		}
		l.logger.Debug("Lock released", logging.String("path", l.Path))
	})
	return l.err
}

func (m *Manager) observe() (Observation, error) {
	info, err := os.Stat(m.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Observation{}, nil
		}
		return Observation{}, err
	}
	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Observation{}, nil
		}
		return Observation{}, err
	}
	return Observation{Exists: true, Content: string(data), ModTime: info.ModTime()}, nil
}

func (m *Manager) write() error {
	tmp := fmt.Sprintf("%s.%d.tmp", m.path, m.pid)
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(m.pid)+"\n"), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, m.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
