package clipboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/berrythewa/cliplog/internal/types"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultPollInterval = time.Second

// Source is what the poller reads from
type Source interface {
	Read(ctx context.Context) (types.Snapshot, error)
	Ready() bool
	Ensure() error
	Backend() string
}

// Sink is what the poller appends to
type Sink interface {
	Append(kind types.Kind, payload string) (string, error)
}

// PollerOptions configures a Poller
type PollerOptions struct {
	Interval time.Duration
	LastSeen types.LastSeen
	Logger   *zap.Logger
}

// Poller reads the clipboard on a fixed interval and appends changes.
// At most one tick runs at a time; a tick that fires while another is still
// in flight is skipped.
type Poller struct {
	source   Source
	sink     Sink
	interval time.Duration
	logger   *zap.Logger

	inFlight atomic.Bool
	wg       sync.WaitGroup

	// throttles repeated read-failure warnings
	warn *rate.Limiter

	mu     sync.Mutex
	seen   types.LastSeen
	status types.MonitoringStatus
}

// NewPoller creates a poller seeded with opts.LastSeen
func NewPoller(source Source, sink Sink, opts PollerOptions) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = defaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Poller{
		source:   source,
		sink:     sink,
		interval: opts.Interval,
		logger:   opts.Logger,
		warn:     rate.NewLimiter(rate.Every(time.Minute), 3),
		seen:     opts.LastSeen,
		status:   types.MonitoringStatus{Interval: opts.Interval.String()},
	}
}

// Run ticks until ctx is cancelled, then waits for an in-flight tick
func (p *Poller) Run(ctx context.Context) error {
	p.setRunning(true)
	defer p.setRunning(false)

	p.logger.Info("Starting clipboard poller",
		zap.Duration("interval", p.interval),
		zap.String("backend", p.source.Backend()))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.wg.Wait()
			p.logger.Info("Clipboard poller stopped")
			return nil
		case <-ticker.C:
			if !p.inFlight.CompareAndSwap(false, true) {
				p.skipped()
				continue
			}
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				defer p.inFlight.Store(false)
				p.check(ctx)
			}()
		}
	}
}

// Tick runs one check synchronously. It returns false without doing
// anything if another tick is in flight.
func (p *Poller) Tick(ctx context.Context) bool {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.skipped()
		return false
	}
	defer p.inFlight.Store(false)
	p.check(ctx)
	return true
}

// LastSeen returns the poller's view of the latest payloads
func (p *Poller) LastSeen() types.LastSeen {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seen
}

// Status returns a copy of the monitoring status
func (p *Poller) Status() types.MonitoringStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.status
	st.Backend = p.source.Backend()
	return st
}

func (p *Poller) check(ctx context.Context) {
	p.mu.Lock()
	p.status.LastActivity = time.Now()
	p.mu.Unlock()

	if !p.source.Ready() {
		if err := p.source.Ensure(); err != nil {
			p.failed("Failed to re-create clipboard host", err)
			return
		}
		p.mu.Lock()
		p.status.HostRecreated++
		p.mu.Unlock()
		return
	}

	snap, err := p.source.Read(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.failed("Clipboard read failed", err)
		return
	}

	seen := p.LastSeen()
	if snap.Text != "" && snap.Text != seen.Text {
		if p.capture(types.KindText, snap.Text) {
			p.mu.Lock()
			p.seen.Text = snap.Text
			p.mu.Unlock()
		}
	}
	if snap.ImageData != "" && snap.ImageData != seen.Image {
		if p.capture(types.KindImage, snap.ImageData) {
			p.mu.Lock()
			p.seen.Image = snap.ImageData
			p.mu.Unlock()
		}
	}
}

// capture appends one payload. It reports whether LastSeen may advance,
// which includes a dedup no-op.
func (p *Poller) capture(kind types.Kind, payload string) bool {
	id, err := p.sink.Append(kind, payload)
	if err != nil {
		p.failed("Failed to record clipboard change", err)
		return false
	}
	if id == "" {
		return true
	}

	p.logger.Info("Captured clipboard change",
		zap.String("id", id),
		zap.String("kind", string(kind)),
		zap.Int("size", len(payload)))

	p.mu.Lock()
	p.status.Captured++
	p.status.LastCapture = time.Now()
	p.mu.Unlock()
	return true
}

func (p *Poller) failed(msg string, err error) {
	p.mu.Lock()
	p.status.ErrorCount++
	p.status.LastError = err.Error()
	p.mu.Unlock()

	switch {
	case !errors.Is(err, ErrTransientRead) && !errors.Is(err, ErrHostUnavailable):
		p.logger.Error(msg, zap.Error(err))
	case p.warn.Allow():
		p.logger.Warn(msg, zap.Error(err))
	default:
		p.logger.Debug(msg, zap.Error(err))
	}
}

func (p *Poller) skipped() {
	p.mu.Lock()
	p.status.SkippedTicks++
	p.mu.Unlock()
	p.logger.Debug("Skipped tick, previous check still in flight")
}

func (p *Poller) setRunning(running bool) {
	p.mu.Lock()
	p.status.IsRunning = running
	p.mu.Unlock()
}
