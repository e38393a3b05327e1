// Package server wires the notekeeper core together: it opens and migrates
// the database, derives the note key, rebuilds reminder timers and runs the
// console front end until it is closed or the process is signalled.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/cryptox"
	"github.com/dmitrijs2005/notekeeper/internal/filex"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/server/authgate"
	"github.com/dmitrijs2005/notekeeper/internal/server/config"
	"github.com/dmitrijs2005/notekeeper/internal/server/console"
	"github.com/dmitrijs2005/notekeeper/internal/server/database"
	"github.com/dmitrijs2005/notekeeper/internal/server/delivery"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/notekeeper/internal/server/scheduler"
	"github.com/dmitrijs2005/notekeeper/internal/server/store"
)

// ShutdownTimeout bounds how long in-flight deliveries may run after a stop
// was requested.
const ShutdownTimeout = 5 * time.Second

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	store     *store.Store
	scheduler *scheduler.Scheduler
	gate      *authgate.Gate
	console   *console.Console

	in      io.Reader
	signals bool
}

type Option func(*options)

type options struct {
	in          io.Reader
	out         io.Writer
	interactive bool
	clock       scheduler.Clock
	signals     bool
}

// WithIO replaces stdin and stdout. interactive turns the prompt on.
func WithIO(in io.Reader, out io.Writer, interactive bool) Option {
	return func(o *options) {
		o.in, o.out, o.interactive = in, out, interactive
	}
}

// WithClock sets the time source for timers, audit timestamps and codes.
func WithClock(c scheduler.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithoutSignals keeps Run from reacting to SIGINT and SIGTERM.
func WithoutSignals() Option {
	return func(o *options) { o.signals = false }
}

// NewApp validates cfg and builds every component. On error nothing is left
// open.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger, opts ...Option) (*App, error) {
	o := options{in: os.Stdin, out: os.Stdout, clock: scheduler.SystemClock{}, signals: true}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	box, err := cryptox.NewBox([]byte(cfg.MasterPassword), []byte(cfg.EncryptionSalt))
	if err != nil {
		return nil, fmt.Errorf("crypto init error: %w", err)
	}

	db, m, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	now := func() time.Time { return o.clock.Now().UTC() }

	st := store.New(db, m, box,
		store.WithLogger(logger),
		store.WithNow(now),
		store.WithDefaultLanguage(cfg.DefaultLanguage))

	// replies and reminders share one terminal
	tty := delivery.NewConsole(o.out)

	var d scheduler.Deliverer = tty
	if cfg.WebhookURL != "" {
		d = delivery.Fanout{d, delivery.NewWebhook(cfg.WebhookURL, cfg.WebhookTimeout, nil)}
	}

	sched := scheduler.New(st, d,
		scheduler.WithClock(o.clock),
		scheduler.WithLogger(logger))

	gate := authgate.New(st, authgate.NewTOTP(),
		authgate.WithIssuer(cfg.TOTPIssuer),
		authgate.WithNow(o.clock.Now),
		authgate.WithLogger(logger))

	con := console.New(st, sched, gate, cfg.ConsoleUserID, tty,
		console.WithPrompt(o.interactive),
		console.WithLogger(logger))

	return &App{
		config:    cfg,
		logger:    logger,
		db:        db,
		store:     st,
		scheduler: sched,
		gate:      gate,
		console:   con,
		in:        o.in,
		signals:   o.signals,
	}, nil
}

// Migrate opens the configured database, applies pending migrations and
// closes it again.
func Migrate(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	db, _, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return db.Close()
}

func openDatabase(ctx context.Context, cfg *config.Config, logger logging.Logger) (*sql.DB, *repomanager.SQLRepositoryManager, error) {
	d, err := database.DialectFor(cfg.DatabaseDriver)
	if err != nil {
		return nil, nil, err
	}

	if path, ok := filex.DBFilePath(cfg.DatabaseDSN); ok && d.Driver == database.SQLite.Driver {
		dir, err := filex.EnsureParentDir(path)
		if err != nil {
			return nil, nil, fmt.Errorf("db init error: %w", err)
		}
		logger.Debug(ctx, "database directory ready", "dir", dir)
	}

	db, err := database.Open(ctx, d, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewSQLRepositoryManager(d)
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("db migration error: %w", err)
	}
	logger.Info(ctx, "database ready", "driver", d.Driver)

	return db, m, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) func() {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "signal received", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()

	return func() { signal.Stop(sigs) }
}

// Run rebuilds reminder timers and serves the console until its input ends,
// ctx is cancelled or a termination signal arrives. Shutdown waits for
// in-flight deliveries and closes the database last.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	if app.signals {
		stop := app.initSignalHandler(ctx, cancelFunc)
		defer stop()
	}

	n, err := app.scheduler.Bootstrap(ctx)
	if err != nil {
		if ctx.Err() != nil {
			app.logger.Info(context.Background(), "stopped during startup")
			return app.shutdown()
		}
		app.logger.Error(ctx, "reminder bootstrap failed", "error", err)
		return errors.Join(err, app.shutdown())
	}
	app.logger.Info(ctx, "reminders armed", "count", n)

	var wg sync.WaitGroup
	var runErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancelFunc()
		if err := app.console.Run(ctx, app.in); err != nil {
			app.logger.Error(ctx, "console input failed", "error", err)
			runErr = err
		}
	}()

	<-ctx.Done()
	wg.Wait()

	app.logger.Info(context.Background(), "Stopping app...")
	return errors.Join(runErr, app.shutdown())
}

func (app *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := app.scheduler.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("scheduler stop: %w", err))
	}
	if err := app.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("db close: %w", err))
	}
	return errors.Join(errs...)
}
