// Package daemon wires the history store, clipboard poller and IPC server
// into the long-running background process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/berrythewa/cliplog/internal/clipboard"
	"github.com/berrythewa/cliplog/internal/common"
	"github.com/berrythewa/cliplog/internal/config"
	"github.com/berrythewa/cliplog/internal/history"
	"github.com/berrythewa/cliplog/internal/ipc"
	"github.com/berrythewa/cliplog/internal/storage"
	"github.com/berrythewa/cliplog/internal/types"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrAlreadyRunning means another daemon owns the pid file
var ErrAlreadyRunning = errors.New("daemon already running")

// Status is returned by the status command
type Status struct {
	PID        int                    `json:"pid"`
	StartedAt  time.Time              `json:"started_at"`
	Socket     string                 `json:"socket"`
	DeviceID   string                 `json:"device_id"`
	Monitoring types.MonitoringStatus `json:"monitoring"`
	Storage    storage.Stats          `json:"storage"`
}

// Options configures a Daemon
type Options struct {
	Logger *zap.Logger
	// Level, when set, receives log level changes from the watched config file
	Level *zap.AtomicLevel
	// HostFactory overrides the platform clipboard, mainly for tests
	HostFactory clipboard.HostFactory
	// WatchConfig enables config file reloads
	WatchConfig bool
}

// Daemon owns every long-lived component
type Daemon struct {
	cfg    *config.Config
	opts   Options
	logger *zap.Logger

	storage  *storage.BoltStorage
	store    *history.Store
	accessor *clipboard.Accessor
	poller   *clipboard.Poller
	handler  *Handler
	server   *ipc.Server

	startedAt time.Time
}

// New opens the database and builds the components. Nothing runs until Run.
func New(cfg *config.Config, opts Options) (*Daemon, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := cfg.SystemPaths.EnsureDirs(); err != nil {
		return nil, err
	}

	st, err := storage.NewBoltStorage(storage.StorageConfig{
		DBPath:            cfg.SystemPaths.DBFile,
		CompressThreshold: cfg.Storage.CompressThreshold,
		OpenTimeout:       cfg.OpenTimeout(),
		Logger:            logger.Named("storage"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	store := history.New(st, history.Options{
		MaxEntries: cfg.Storage.MaxEntries,
		TimeFormat: cfg.History.TimeFormat,
		Logger:     logger.Named("history"),
	})

	seen, err := store.LastSeen()
	if err != nil {
		st.Close()
		return nil, err
	}

	factory := opts.HostFactory
	if factory == nil {
		factory = PlatformHostFactory(cfg, logger.Named("clipboard"))
	}
	accessor := clipboard.NewAccessor(factory, clipboard.AccessorOptions{
		KeepBoth: cfg.Clipboard.KeepBoth,
		Logger:   logger.Named("clipboard"),
	})

	poller := clipboard.NewPoller(accessor, store, clipboard.PollerOptions{
		Interval: cfg.PollingInterval(),
		LastSeen: seen,
		Logger:   logger.Named("poller"),
	})

	d := &Daemon{
		cfg:      cfg,
		opts:     opts,
		logger:   logger,
		storage:  st,
		store:    store,
		accessor: accessor,
		poller:   poller,
	}
	d.handler = NewHandler(store, accessor, d.Status, logger.Named("handler"))
	d.server = ipc.NewServer(cfg.SystemPaths.SocketPath, d.handler, logger.Named("ipc"))
	return d, nil
}

// PlatformHostFactory builds hosts on the configured clipboard backends
func PlatformHostFactory(cfg *config.Config, logger *zap.Logger) clipboard.HostFactory {
	return func() (*clipboard.Host, error) {
		primary, fallback, err := clipboard.NewBackends(cfg.Clipboard.Backend, logger)
		if err != nil {
			return nil, err
		}
		return clipboard.NewHost(primary, fallback, clipboard.HostOptions{
			Heartbeat: cfg.HeartbeatInterval(),
			Logger:    logger,
		}), nil
	}
}

// Run serves until ctx is cancelled, then releases every resource
func (d *Daemon) Run(ctx context.Context) error {
	d.startedAt = time.Now()
	defer d.close()

	runDir := d.cfg.SystemPaths.RunDir
	if pid, ok := Running(runDir); ok && pid != os.Getpid() {
		return fmt.Errorf("%w: pid %d", ErrAlreadyRunning, pid)
	}
	if err := WritePID(runDir, os.Getpid()); err != nil {
		return err
	}
	defer RemovePID(runDir)

	if err := d.accessor.Ensure(); err != nil {
		// The poller keeps retrying on every tick
		d.logger.Warn("Clipboard unavailable at startup", zap.Error(err))
	}

	d.logger.Info("Daemon started",
		zap.Int("pid", os.Getpid()),
		zap.String("db", d.cfg.SystemPaths.DBFile),
		zap.String("socket", d.cfg.SystemPaths.SocketPath),
		zap.String("backend", d.accessor.Backend()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.poller.Run(gctx) })
	g.Go(func() error { return d.server.ListenAndServe(gctx) })
	if d.opts.WatchConfig && d.opts.Level != nil {
		g.Go(func() error {
			err := config.Watch(gctx, d.cfg.SystemPaths.ConfigFile, d.logger.Named("config"), d.applyConfig)
			if err != nil {
				d.logger.Warn("Config watcher disabled", zap.Error(err))
			}
			return nil
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Error("Daemon stopped with error", zap.Error(err))
		return err
	}
	d.logger.Info("Daemon stopped")
	return nil
}

// Status reports the daemon state
func (d *Daemon) Status() (Status, error) {
	stats, err := d.store.Stats()
	if err != nil {
		return Status{}, err
	}
	return Status{
		PID:        os.Getpid(),
		StartedAt:  d.startedAt,
		Socket:     d.cfg.SystemPaths.SocketPath,
		DeviceID:   d.cfg.DeviceID,
		Monitoring: d.poller.Status(),
		Storage:    stats,
	}, nil
}

func (d *Daemon) applyConfig(cfg *config.Config) {
	level := d.opts.Level
	next := common.ParseLevel(cfg.Log.Level)
	if level.Level() != next {
		d.logger.Info("Log level changed", zap.Stringer("from", level.Level()), zap.Stringer("to", next))
		level.SetLevel(next)
	}
}

func (d *Daemon) close() {
	d.accessor.Close()
	if err := d.storage.Close(); err != nil {
		d.logger.Warn("Failed to close database", zap.Error(err))
	}
}
