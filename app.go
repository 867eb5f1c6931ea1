package chatbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	sqlstore "github.com/Vijaya2621/Chatbot-using-API/internal/adapters/sql"
	"github.com/Vijaya2621/Chatbot-using-API/internal/adapters/file"
	"github.com/Vijaya2621/Chatbot-using-API/internal/chat"
	"github.com/Vijaya2621/Chatbot-using-API/internal/config"
	"github.com/Vijaya2621/Chatbot-using-API/internal/document"
	"github.com/Vijaya2621/Chatbot-using-API/internal/llm"
	"github.com/Vijaya2621/Chatbot-using-API/internal/logging"
	"github.com/Vijaya2621/Chatbot-using-API/internal/metrics"
	httpAdapter "github.com/Vijaya2621/Chatbot-using-API/pkg/adapters/http"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/adapters/memory"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/adapters/redis"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/domain"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/persistence/middleware"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/ports"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/session"
)

// App is the fully wired chat backend.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Store    ports.SessionStore
	Sessions *session.Manager
	Chat     *chat.Handler
	Metrics  *metrics.Collector
	Sweeper  *session.Sweeper

	server  *httpAdapter.Server
	closers []func() error
}

type appOptions struct {
	logger    *slog.Logger
	generator ports.Generator
	processor ports.DocumentProcessor
	store     ports.SessionStore
}

// Option customizes New.
type Option func(*appOptions)

// WithLogger overrides the logger built from the configuration.
func WithLogger(logger *slog.Logger) Option {
	return func(o *appOptions) {
		o.logger = logger
	}
}

// WithGenerator bypasses the configured LLM provider.
func WithGenerator(g ports.Generator) Option {
	return func(o *appOptions) {
		o.generator = g
	}
}

// WithProcessor replaces the PDF processor.
func WithProcessor(p ports.DocumentProcessor) Option {
	return func(o *appOptions) {
		o.processor = p
	}
}

// WithStore replaces the configured backend. Encryption and redaction still apply.
func WithStore(s ports.SessionStore) Option {
	return func(o *appOptions) {
		o.store = s
	}
}

// NewLogger builds the logger described by cfg.
func NewLogger(cfg config.LogConfig) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(cfg.Format, "json") {
		return logging.NewJSON(os.Stderr, level), nil
	}
	return logging.New(level), nil
}

// OpenStore opens the configured backend. The returned locker is non-nil only
// for redis with locking enabled; close releases backend connections.
func OpenStore(cfg config.Config) (store ports.SessionStore, locker ports.DistributedLocker, close func() error, err error) {
	noop := func() error { return nil }
	switch cfg.Store.Backend {
	case config.BackendFile:
		return file.New(cfg.Store.Dir), nil, noop, nil
	case config.BackendMemory:
		return memory.NewStore(), nil, noop, nil
	case config.BackendRedis:
		opts := []redis.Option{redis.WithTTL(cfg.Redis.TTL)}
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		rs := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		if cfg.Redis.Lock {
			locker = redis.NewLocker(rs.Client(), cfg.Redis.Prefix)
		}
		return rs, locker, rs.Close, nil
	case config.BackendSQL:
		ss, err := sqlstore.Open(cfg.SQL.Driver, cfg.SQL.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		return ss, nil, ss.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// storeMiddleware returns redaction and encryption in the order they must wrap the store.
func storeMiddleware(cfg config.SecurityConfig) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(cfg.RedactPatterns) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(cfg.RedactPatterns))
	}
	if cfg.EncryptionKey != "" {
		active, err := config.DecodeKey(cfg.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("encryption key: %w", err)
		}
		enc := middleware.EncryptionConfig{ActiveKey: active}
		for _, k := range cfg.FallbackKeys {
			b, err := config.DecodeKey(k)
			if err != nil {
				return nil, fmt.Errorf("fallback key: %w", err)
			}
			enc.FallbackKeys = append(enc.FallbackKeys, b)
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(enc))
	}
	return mws, nil
}

// OpenSessions opens the configured store with redaction and encryption applied
// and builds a session Manager on it. close releases the backend.
func OpenSessions(cfg config.Config, opts ...session.Option) (mgr *session.Manager, close func() error, err error) {
	base, locker, close, err := OpenStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	mws, err := storeMiddleware(cfg.Security)
	if err != nil {
		close()
		return nil, nil, err
	}
	if locker != nil {
		opts = append(opts, session.WithLocker(locker))
	}
	return session.NewManager(session.NewCache(middleware.Chain(base, mws...)), opts...), close, nil
}

// New wires the application from cfg.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}

	app := &App{Config: cfg, Logger: o.logger}
	if app.Logger == nil {
		logger, err := NewLogger(cfg.Log)
		if err != nil {
			return nil, err
		}
		app.Logger = logger
	}

	base, locker := o.store, ports.DistributedLocker(nil)
	if base == nil {
		s, l, closeFn, err := OpenStore(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Backend, err)
		}
		base, locker = s, l
		app.closers = append(app.closers, closeFn)
	}

	mws, err := storeMiddleware(cfg.Security)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = middleware.Chain(base, mws...)

	generator := o.generator
	if generator == nil {
		generator, err = llm.DefaultRegistry().Get(ctx, cfg.LLM.Provider, llm.Settings{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		})
		if err != nil {
			app.Close()
			return nil, err
		}
	}

	processor := o.processor
	if processor == nil {
		processor = document.NewProcessor(document.WithLogger(app.Logger))
	}

	app.Metrics = metrics.New(true)
	streams := httpAdapter.NewStreamManager(app.Logger)
	hooks := streams.Hooks(app.Metrics.Hooks(domain.LifecycleHooks{}))

	managerOpts := []session.Option{
		session.WithLogger(app.Logger),
		session.WithLifecycleHooks(hooks),
	}
	if locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(locker))
	}
	app.Sessions = session.NewManager(session.NewCache(app.Store), managerOpts...)

	app.Chat = chat.NewHandler(app.Sessions, generator,
		chat.WithLogger(app.Logger),
		chat.WithObserver(app.Metrics),
	)

	app.Sweeper = session.NewSweeper(app.Sessions,
		session.WithInterval(cfg.Sweep.Interval),
		session.WithMaxAge(cfg.Sweep.MaxAge),
		session.WithSweeperLogger(app.Logger),
	)

	app.server = httpAdapter.NewServer(app.Sessions, app.Chat, processor,
		httpAdapter.WithUploadsDir(cfg.Server.UploadsDir),
		httpAdapter.WithMaxUploadBytes(cfg.Server.MaxUploadBytes),
		httpAdapter.WithMetrics(app.Metrics.Handler()),
		httpAdapter.WithLogger(app.Logger),
		httpAdapter.WithInfo(cfg.LLM.Provider, Version),
		httpAdapter.WithStreams(streams),
	)
	return app, nil
}

// Handler returns the HTTP API.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Serve runs the HTTP server, and the sweeper when enabled, until ctx is
// cancelled or the listener fails.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    a.Config.Server.Addr,
		Handler: a.Handler(),
	}

	if a.Config.Sweep.Enabled {
		a.Sweeper.Start()
	}

	serverErrors := make(chan error, 1)
	go func() {
		a.Logger.Info("server listening", "addr", srv.Addr, "store", a.Config.Store.Backend, "provider", a.Config.LLM.Provider)
		serverErrors <- srv.ListenAndServe()
	}()

	var err error
	select {
	case err = <-serverErrors:
	case <-ctx.Done():
		a.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()
		if err = srv.Shutdown(shutdownCtx); err != nil {
			a.Logger.Error("graceful shutdown did not complete", "timeout", a.Config.Server.ShutdownTimeout, "err", err)
			_ = srv.Close()
		}
	}

	if a.Config.Sweep.Enabled {
		stopCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()
		if stopErr := a.Sweeper.Stop(stopCtx); stopErr != nil {
			a.Logger.Warn("sweeper did not stop in time", "err", stopErr)
		}
	}

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close releases backend connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}
