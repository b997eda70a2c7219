package clipboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/berrythewa/cliplog/internal/types"

	"go.uber.org/zap"
)

const defaultReplyTimeout = 5 * time.Second

// HostFactory builds a fresh host
type HostFactory func() (*Host, error)

// AccessorOptions configures an Accessor
type AccessorOptions struct {
	// KeepBoth keeps the image of a snapshot that also carries text
	KeepBoth     bool
	ReplyTimeout time.Duration
	Logger       *zap.Logger
}

// Accessor is the clipboard boundary used by the poller and by user commands
type Accessor struct {
	mu       sync.Mutex
	host     *Host
	stale    *Host // dropped host whose goroutine has not returned yet
	factory  HostFactory
	keepBoth bool
	timeout  time.Duration
	logger   *zap.Logger
	created  int
}

// NewAccessor returns an accessor without a host. Call Ensure to start one.
func NewAccessor(factory HostFactory, opts AccessorOptions) *Accessor {
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = defaultReplyTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Accessor{
		factory:  factory,
		keepBoth: opts.KeepBoth,
		timeout:  opts.ReplyTimeout,
		logger:   opts.Logger,
	}
}

// Ensure starts a host unless a live one exists. While a dropped host is
// still stuck in a backend call no new host is started, so at most one
// goroutine ever talks to the platform clipboard.
func (a *Accessor) Ensure() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.host != nil && a.host.Alive() {
		return nil
	}

	if a.stale != nil {
		select {
		case <-a.stale.Stopped():
			a.stale = nil
		default:
			return fmt.Errorf("%w: previous host is still blocked in the clipboard", ErrHostUnavailable)
		}
	}

	host, err := a.factory()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrHostUnavailable, err)
	}
	a.host = host
	a.created++
	if a.created > 1 {
		a.logger.Info("Clipboard host re-created", zap.Int("generation", a.created), zap.String("backend", host.Name()))
	}
	return nil
}

// Ready reports whether a live host exists
func (a *Accessor) Ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.host != nil && a.host.Alive()
}

// Backend names the backends of the current host
func (a *Accessor) Backend() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.host == nil {
		return "none"
	}
	return a.host.Name()
}

// Close stops the current host
func (a *Accessor) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.host != nil {
		a.host.Close()
		a.host = nil
	}
}

// Read returns the current clipboard contents. It always returns a usable
// snapshot, empty on failure; the error only says why nothing was observed.
// Unless KeepBoth is set, text wins and the image of a mixed snapshot is dropped.
func (a *Accessor) Read(ctx context.Context) (types.Snapshot, error) {
	resp, err := a.send(ctx, Request{Type: MsgReadClipboard})
	if err != nil {
		return types.Snapshot{}, err
	}
	if resp.Error != "" {
		return types.Snapshot{}, fmt.Errorf("%w: %s", ErrTransientRead, resp.Error)
	}

	var snap types.Snapshot
	if resp.Text != nil {
		snap.Text = *resp.Text
	}
	if resp.ImageData != nil {
		snap.ImageData = *resp.ImageData
	}
	if !a.keepBoth && snap.Text != "" && snap.ImageData != "" {
		snap.ImageData = ""
	}
	return snap, nil
}

// Write puts entry on the system clipboard
func (a *Accessor) Write(ctx context.Context, entry *types.HistoryEntry) error {
	if entry == nil || !entry.Kind.Valid() || entry.Payload() == "" {
		return fmt.Errorf("%w: nothing to copy", ErrUserAction)
	}

	if !a.Ready() {
		if err := a.Ensure(); err != nil {
			return fmt.Errorf("%w: %w", ErrUserAction, err)
		}
	}

	resp, err := a.send(ctx, Request{Type: MsgWriteClipboard, Entry: entry})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUserAction, err)
	}
	if resp.Error != "" {
		return fmt.Errorf("%w: %s", ErrUserAction, resp.Error)
	}
	return nil
}

// send delivers a request to the current host. A closed host or a missing
// reply drops the host so the next Ensure re-creates it.
func (a *Accessor) send(ctx context.Context, req Request) (Response, error) {
	a.mu.Lock()
	host := a.host
	a.mu.Unlock()

	if host == nil || !host.Alive() {
		return Response{}, ErrHostUnavailable
	}

	sendCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := host.Send(sendCtx, req)
	switch {
	case err == nil:
		return resp, nil
	case errors.Is(err, ErrHostUnavailable):
		a.drop(host)
		return Response{}, err
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		a.logger.Warn("Clipboard host did not reply", zap.String("type", req.Type), zap.Duration("timeout", a.timeout))
		a.drop(host)
		return Response{}, fmt.Errorf("%w: no reply within %s", ErrHostUnavailable, a.timeout)
	default:
		return Response{}, err
	}
}

func (a *Accessor) drop(host *Host) {
	host.Close()
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.host == host {
		a.host = nil
		a.stale = host
	}
}
