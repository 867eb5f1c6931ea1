package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/Vijaya2621/Chatbot-using-API/internal/logging"
	"github.com/robfig/cron/v3"
)

const (
	// DefaultSweepInterval is how often the background sweep runs.
	DefaultSweepInterval = 24 * time.Hour
	// DefaultMaxAge is the idle time after which a session is aged out.
	DefaultMaxAge = 7 * 24 * time.Hour
)

// Sweeper runs Manager.Sweep on a fixed schedule.
// Failures are logged and never stop the schedule.
type Sweeper struct {
	manager  *Manager
	interval time.Duration
	maxAge   time.Duration
	logger   *slog.Logger
	cron     *cron.Cron
}

// SweeperOption configures the Sweeper.
type SweeperOption func(*Sweeper)

// WithInterval sets the time between two sweeps.
func WithInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithMaxAge sets the idle threshold passed to Manager.Sweep.
func WithMaxAge(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d >= 0 {
			s.maxAge = d
		}
	}
}

// WithSweeperLogger configures a logger for the Sweeper.
func WithSweeperLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		s.logger = logger
	}
}

// NewSweeper creates a stopped Sweeper for the manager.
func NewSweeper(manager *Manager, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		manager:  manager,
		interval: DefaultSweepInterval,
		maxAge:   DefaultMaxAge,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	cl := cronLogger{s.logger}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.interval)
		defer cancel()
		_, _ = s.RunOnce(ctx)
	}))
	return s
}

// RunOnce performs a single sweep immediately.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepReport, error) {
	report, err := s.manager.Sweep(ctx, s.maxAge)
	if err != nil {
		s.logger.Error("background sweep failed", "max_age", s.maxAge, "err", err)
	}
	return report, err
}

// Start begins the schedule in its own goroutine. The first sweep runs one interval from now.
func (s *Sweeper) Start() {
	s.logger.Info("session sweeper started", "interval", s.interval, "max_age", s.maxAge)
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish, or for ctx to be done.
func (s *Sweeper) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
