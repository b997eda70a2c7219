package daemon

import (
	"context"
	"errors"
	"time"

	"github.com/berrythewa/cliplog/internal/clipboard"
	"github.com/berrythewa/cliplog/internal/history"
	"github.com/berrythewa/cliplog/internal/ipc"
	"github.com/berrythewa/cliplog/internal/types"

	"go.uber.org/zap"
)

// Handler serves IPC commands against a history store and clipboard accessor.
// It runs inside the daemon and, without a daemon, directly in the CLI.
type Handler struct {
	store    *history.Store
	accessor *clipboard.Accessor
	status   func() (Status, error)
	logger   *zap.Logger
}

// NewHandler creates a Handler. status may be nil when no daemon is running.
func NewHandler(store *history.Store, accessor *clipboard.Accessor, status func() (Status, error), logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, accessor: accessor, status: status, logger: logger}
}

// Handle implements ipc.Handler
func (h *Handler) Handle(ctx context.Context, req *ipc.Request) *ipc.Response {
	h.logger.Debug("Handling request", zap.String("command", req.Command))

	switch req.Command {
	case ipc.CmdHistoryList:
		return h.list(req)
	case ipc.CmdHistoryGet:
		entry, err := h.store.Get(req.String("id"))
		if err != nil {
			return errorResponse(err)
		}
		return ipc.OK(entry)
	case ipc.CmdHistoryAppend:
		id, err := h.store.Append(types.Kind(req.String("type")), req.String("payload"))
		if err != nil {
			return errorResponse(err)
		}
		return ipc.OK(map[string]interface{}{"id": id, "duplicate": id == ""})
	case ipc.CmdHistoryDelete:
		return h.delete(req)
	case ipc.CmdHistoryClear:
		if err := h.store.Clear(); err != nil {
			return errorResponse(err)
		}
		return ipc.OK(nil)
	case ipc.CmdHistoryCopy:
		return h.copy(ctx, req)
	case ipc.CmdHistoryStats:
		stats, err := h.store.Stats()
		if err != nil {
			return errorResponse(err)
		}
		return ipc.OK(stats)
	case ipc.CmdClipGet:
		if !h.accessor.Ready() {
			if err := h.accessor.Ensure(); err != nil {
				return errorResponse(err)
			}
		}
		snap, err := h.accessor.Read(ctx)
		if err != nil {
			return errorResponse(err)
		}
		return ipc.OK(snap)
	case ipc.CmdStatus:
		if h.status == nil {
			return ipc.Errorf(ipc.CodeUnavailable, "daemon not running")
		}
		st, err := h.status()
		if err != nil {
			return errorResponse(err)
		}
		return ipc.OK(st)
	default:
		return ipc.Errorf(ipc.CodeUnknown, "unknown command %q", req.Command)
	}
}

// Stream implements ipc.Streamer for history.watch
func (h *Handler) Stream(ctx context.Context, req *ipc.Request, send func(*ipc.Response) error) error {
	if req.Command != ipc.CmdHistoryWatch {
		return send(ipc.Errorf(ipc.CodeUnknown, "command %q does not stream", req.Command))
	}

	events, cancel := h.store.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := send(ipc.Event(ev)); err != nil {
				return err
			}
		}
	}
}

func (h *Handler) list(req *ipc.Request) *ipc.Response {
	entries, err := h.store.List()
	if err != nil {
		return errorResponse(err)
	}

	kind := types.Kind(req.String("type"))
	if kind != "" && !kind.Valid() {
		return ipc.Errorf(ipc.CodeInvalid, "unknown entry type %q", kind)
	}

	limit := req.Int("limit", 0)
	out := make([]*types.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if kind != "" && e.Kind != kind {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return ipc.OK(out)
}

func (h *Handler) delete(req *ipc.Request) *ipc.Response {
	ids := req.Strings("ids")
	if id := req.String("id"); id != "" {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return ipc.Errorf(ipc.CodeInvalid, "no entry id given")
	}
	for _, id := range ids {
		if err := h.store.Delete(id); err != nil {
			return errorResponse(err)
		}
	}
	return ipc.OK(map[string]int{"requested": len(ids)})
}

func (h *Handler) copy(ctx context.Context, req *ipc.Request) *ipc.Response {
	entry, err := h.store.Get(req.String("id"))
	if err != nil {
		return errorResponse(err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := h.accessor.Write(ctx, entry); err != nil {
		h.logger.Warn("Failed to copy entry to clipboard", zap.String("id", entry.ID), zap.Error(err))
		return errorResponse(err)
	}
	return ipc.OK(entry)
}

// errorResponse maps sentinel errors onto IPC error codes
func errorResponse(err error) *ipc.Response {
	code := ipc.CodeInternal
	switch {
	case errors.Is(err, history.ErrNotFound):
		code = ipc.CodeNotFound
	case errors.Is(err, history.ErrInvalidEntry):
		code = ipc.CodeInvalid
	case errors.Is(err, history.ErrPersistence):
		code = ipc.CodePersistence
	case errors.Is(err, clipboard.ErrUserAction):
		code = ipc.CodeUserAction
	case errors.Is(err, clipboard.ErrHostUnavailable), errors.Is(err, clipboard.ErrTransientRead):
		code = ipc.CodeUnavailable
	}
	return ipc.Errorf(code, "%v", err)
}
