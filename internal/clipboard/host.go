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

// Message types understood by the host
const (
	MsgReadClipboard  = "readClipboard"
	MsgWriteClipboard = "writeClipboard"
)

const defaultHeartbeat = 30 * time.Second

// Request is a message to the host
type Request struct {
	Type  string              `json:"type"`
	Entry *types.HistoryEntry `json:"entry,omitempty"`
}

// Response is the host's reply. Nil text or image means absent.
type Response struct {
	Text      *string `json:"text"`
	ImageData *string `json:"imageData"`
	Error     string  `json:"error,omitempty"`
}

type envelope struct {
	req   Request
	reply chan Response
}

// HostOptions configures a Host
type HostOptions struct {
	Heartbeat time.Duration
	Logger    *zap.Logger
}

// Host is the long-lived goroutine that owns the clipboard backends.
// All platform clipboard calls happen on it.
type Host struct {
	primary  Backend
	fallback Backend
	logger   *zap.Logger

	reqs      chan envelope
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewHost starts a host goroutine. fallback may be nil.
func NewHost(primary, fallback Backend, opts HostOptions) *Host {
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = defaultHeartbeat
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	h := &Host{
		primary:  primary,
		fallback: fallback,
		logger:   opts.Logger,
		reqs:     make(chan envelope),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go h.loop(opts.Heartbeat)
	return h
}

// Name reports the backends in use, e.g. "native+text"
func (h *Host) Name() string {
	if h.fallback == nil {
		return h.primary.Name()
	}
	return h.primary.Name() + "+" + h.fallback.Name()
}

// Alive reports whether the host still accepts messages
func (h *Host) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Close stops the host. Pending and later Sends fail with ErrHostUnavailable.
func (h *Host) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Stopped is closed once the host goroutine has returned. A host stuck in a
// backend call stays open after Close until that call comes back.
func (h *Host) Stopped() <-chan struct{} {
	return h.stopped
}

// Send delivers req and waits for the reply
func (h *Host) Send(ctx context.Context, req Request) (Response, error) {
	env := envelope{req: req, reply: make(chan Response, 1)}

	select {
	case h.reqs <- env:
	case <-h.done:
		return Response{}, ErrHostUnavailable
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}

	select {
	case resp := <-env.reply:
		return resp, nil
	case <-h.done:
		return Response{}, ErrHostUnavailable
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

func (h *Host) loop(heartbeat time.Duration) {
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()
	defer close(h.stopped)

	h.logger.Info("Clipboard host started", zap.String("backend", h.Name()))

	for {
		select {
		case <-h.done:
			h.logger.Info("Clipboard host stopped")
			return
		case <-ticker.C:
			h.logger.Debug("Clipboard host heartbeat", zap.String("backend", h.Name()))
		case env := <-h.reqs:
			env.reply <- h.handle(env.req)
		}
	}
}

func (h *Host) handle(req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Clipboard backend panicked", zap.Any("panic", r), zap.String("type", req.Type))
			resp = Response{Error: fmt.Sprintf("backend panic: %v", r)}
		}
	}()

	switch req.Type {
	case MsgReadClipboard:
		return h.read()
	case MsgWriteClipboard:
		if err := h.write(req.Entry); err != nil {
			return Response{Error: err.Error()}
		}
		return Response{}
	default:
		return Response{Error: fmt.Sprintf("unknown message type %q", req.Type)}
	}
}

// read collects image and text from the primary backend. When both come back
// empty, or the primary fails, a plain text read from the fallback is used.
func (h *Host) read() Response {
	text, image, err := h.readPrimary()
	if err != nil {
		h.logger.Debug("Primary clipboard read failed", zap.Error(err))
		if h.fallback == nil {
			return Response{Error: err.Error()}
		}
		fbText, fbErr := h.fallback.ReadText()
		if fbErr != nil {
			return Response{Error: errors.Join(err, fbErr).Error()}
		}
		return Response{Text: optional(fbText)}
	}

	if text == "" && image == "" && h.fallback != nil {
		if fbText, fbErr := h.fallback.ReadText(); fbErr == nil {
			text = fbText
		}
	}

	return Response{Text: optional(text), ImageData: optional(image)}
}

func (h *Host) readPrimary() (string, string, error) {
	png, err := h.primary.ReadImage()
	if err != nil && !errors.Is(err, ErrUnsupported) {
		return "", "", err
	}

	var image string
	if len(png) > 0 {
		image = EncodePNG(png)
	}

	text, err := h.primary.ReadText()
	if err != nil {
		return "", "", err
	}
	return text, image, nil
}

func (h *Host) write(entry *types.HistoryEntry) error {
	if entry == nil {
		return errors.New("write request without entry")
	}

	switch entry.Kind {
	case types.KindText:
		err := h.primary.WriteText(entry.Text)
		if err != nil && h.fallback != nil {
			err = h.fallback.WriteText(entry.Text)
		}
		return err
	case types.KindImage:
		mediaType, data, err := DecodeDataURL(entry.ImageData)
		if err != nil {
			return err
		}
		if mediaType != "image/png" {
			return fmt.Errorf("unsupported image type %s", mediaType)
		}
		return h.primary.WriteImage(data)
	default:
		return fmt.Errorf("unknown entry kind %q", entry.Kind)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
