package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/berrythewa/cliplog/internal/clipboard"
	"github.com/berrythewa/cliplog/internal/daemon"
	"github.com/berrythewa/cliplog/internal/history"
	"github.com/berrythewa/cliplog/internal/ipc"
	"github.com/berrythewa/cliplog/internal/storage"

	"go.uber.org/zap"
)

// errNeedsDaemon is returned by commands that only work against a running daemon
var errNeedsDaemon = errors.New("this command needs a running daemon (cliplog daemon start)")

// client sends requests to the daemon, or serves them in-process when no
// daemon is running.
type client interface {
	Send(ctx context.Context, req *ipc.Request) (*ipc.Response, error)
	Stream(ctx context.Context, req *ipc.Request, fn func(*ipc.Response) error) error
	Offline() bool
	Close() error
}

type remoteClient struct {
	*ipc.Client
}

func (c *remoteClient) Offline() bool { return false }
func (c *remoteClient) Close() error  { return nil }

// offlineClient owns the database for the duration of one command
type offlineClient struct {
	storage  *storage.BoltStorage
	accessor *clipboard.Accessor
	handler  *daemon.Handler
}

func (c *offlineClient) Send(ctx context.Context, req *ipc.Request) (*ipc.Response, error) {
	// The clipboard owner on X11 and Wayland is the writing process, so a
	// copy made here would vanish as soon as the command exits.
	if req.Command == ipc.CmdHistoryCopy {
		return nil, errNeedsDaemon
	}
	return c.handler.Handle(ctx, req), nil
}

func (c *offlineClient) Stream(ctx context.Context, req *ipc.Request, fn func(*ipc.Response) error) error {
	return errNeedsDaemon
}

func (c *offlineClient) Offline() bool { return true }

func (c *offlineClient) Close() error {
	c.accessor.Close()
	return c.storage.Close()
}

// connect prefers the daemon and falls back to opening the database
func (a *app) connect(ctx context.Context) (client, error) {
	remote := ipc.NewClient(a.cfg.SystemPaths.SocketPath)
	if remote.Ping(ctx) {
		return &remoteClient{Client: remote}, nil
	}

	a.logger.Debug("Daemon not reachable, opening database directly",
		zap.String("db", a.cfg.SystemPaths.DBFile))

	st, err := storage.NewBoltStorage(storage.StorageConfig{
		DBPath:            a.cfg.SystemPaths.DBFile,
		CompressThreshold: a.cfg.Storage.CompressThreshold,
		OpenTimeout:       a.cfg.OpenTimeout(),
		Logger:            a.logger.Named("storage"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	store := history.New(st, history.Options{
		MaxEntries: a.cfg.Storage.MaxEntries,
		TimeFormat: a.cfg.History.TimeFormat,
		Logger:     a.logger.Named("history"),
	})
	// The host is only started when a command touches the clipboard
	accessor := clipboard.NewAccessor(a.hostFactory(a.cfg, a.logger.Named("clipboard")), clipboard.AccessorOptions{
		KeepBoth: a.cfg.Clipboard.KeepBoth,
		Logger:   a.logger.Named("clipboard"),
	})

	return &offlineClient{
		storage:  st,
		accessor: accessor,
		handler:  daemon.NewHandler(store, accessor, nil, a.logger.Named("handler")),
	}, nil
}

// call sends one request and decodes the reply into out, which may be nil
func (a *app) call(ctx context.Context, command string, args map[string]interface{}, out interface{}) error {
	c, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	resp, err := c.Send(ctx, &ipc.Request{Command: command, Args: args})
	if err != nil {
		return err
	}
	return resp.Decode(out)
}
