package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/berrythewa/cliplog/internal/clipboard"
	"github.com/berrythewa/cliplog/internal/config"
	"github.com/berrythewa/cliplog/internal/daemon"
	"github.com/berrythewa/cliplog/internal/ipc"
	"github.com/berrythewa/cliplog/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type memBackend struct {
	mu   sync.Mutex
	text string
}

func (m *memBackend) Name() string { return "mem" }

func (m *memBackend) ReadText() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, nil
}

func (m *memBackend) ReadImage() ([]byte, error) { return nil, nil }

func (m *memBackend) WriteText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	return nil
}

func (m *memBackend) WriteImage([]byte) error { return clipboard.ErrUnsupported }

func (m *memBackend) current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}

type harness struct {
	t       *testing.T
	backend *memBackend
	socket  string
}

// newHarness points every cliplog path into temp directories
func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	sockDir, err := os.MkdirTemp("", "cl")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(sockDir) })

	socket := filepath.Join(sockDir, "c.sock")
	t.Setenv("CLIPLOG_CONFIG_DIR", filepath.Join(dir, "config"))
	t.Setenv("CLIPLOG_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("CLIPLOG_SOCKET", socket)
	t.Setenv("NO_COLOR", "1")

	return &harness{t: t, backend: &memBackend{}, socket: socket}
}

func (h *harness) factory(*config.Config, *zap.Logger) clipboard.HostFactory {
	return func() (*clipboard.Host, error) {
		return clipboard.NewHost(h.backend, nil, clipboard.HostOptions{}), nil
	}
}

func (h *harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()
	root := newRootCmd(&app{hostFactory: h.factory})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--no-file-log"}, args...))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run("", args...)
	require.NoError(h.t, err, out)
	return out
}

func (h *harness) list() []*types.HistoryEntry {
	h.t.Helper()
	var entries []*types.HistoryEntry
	require.NoError(h.t, json.Unmarshal([]byte(h.mustRun("history", "list", "-n", "0", "--json")), &entries))
	return entries
}

func TestOfflineAddAndList(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("clip", "add", "hello")
	assert.Contains(t, out, "Added ")

	out = h.mustRun("clip", "add", "hello")
	assert.Contains(t, out, "Already the newest entry")

	out, err := h.run("world\n", "clip", "add")
	require.NoError(t, err, out)

	entries := h.list()
	require.Len(t, entries, 2)
	assert.Equal(t, "world", entries[0].Text)
	assert.Equal(t, "hello", entries[1].Text)

	out = h.mustRun("history", "list", "--compact")
	assert.Contains(t, out, "world")
	assert.Contains(t, out, "hello")
}

func TestOfflineShowSaveCopyDelete(t *testing.T) {
	h := newHarness(t)
	h.mustRun("clip", "add", "line one")
	id := h.list()[0].ID

	assert.Equal(t, "line one", h.mustRun("history", "show", id, "--raw"))

	dir := t.TempDir()
	out := h.mustRun("history", "save", id, "--dir", dir)
	entry := h.list()[0]
	path := filepath.Join(dir, "clipboard_"+strconv.FormatInt(entry.CreatedAt, 10)+".txt")
	assert.Contains(t, out, path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "line one", string(data))

	_, err = h.run("", "history", "copy", id)
	assert.ErrorIs(t, err, errNeedsDaemon)
	assert.Empty(t, h.backend.current(), "nothing is written without a daemon to own the selection")

	h.mustRun("history", "delete", id)
	assert.Empty(t, h.list())

	_, err = h.run("", "history", "show", id)
	var remote *ipc.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, ipc.CodeNotFound, remote.Code)
}

func TestOfflineClearPrompts(t *testing.T) {
	h := newHarness(t)
	h.mustRun("clip", "add", "keep me")

	out, err := h.run("n\n", "history", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted")
	assert.Len(t, h.list(), 1)

	out, err = h.run("y\n", "history", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "History cleared")
	assert.Empty(t, h.list())

	h.mustRun("clip", "add", "again")
	h.mustRun("history", "clear", "--force")
	assert.Empty(t, h.list())
}

func TestOfflineClipGet(t *testing.T) {
	h := newHarness(t)

	assert.Contains(t, h.mustRun("clip", "get"), "Clipboard is empty")

	h.backend.WriteText("from clipboard")
	assert.Equal(t, "from clipboard\n", h.mustRun("clip", "get"))
}

func TestOfflineWatchNeedsDaemon(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("", "history", "watch")
	assert.ErrorIs(t, err, errNeedsDaemon)
}

func TestOfflineStats(t *testing.T) {
	h := newHarness(t)
	h.mustRun("clip", "add", "a")
	h.mustRun("clip", "add", "b")

	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("history", "stats", "--json")), &stats))
	assert.EqualValues(t, 2, stats["total_entries"])
	assert.Contains(t, stats, "db_size")

	assert.Contains(t, h.mustRun("history", "stats"), "Total entries")
}

func TestDaemonStatusStopped(t *testing.T) {
	h := newHarness(t)
	assert.Contains(t, h.mustRun("daemon", "status"), "Status: stopped")
	assert.Contains(t, h.mustRun("daemon", "stop"), "not running")
}

func TestConfigAndVersion(t *testing.T) {
	h := newHarness(t)
	assert.Contains(t, h.mustRun("config", "path"), h.socket)
	assert.Contains(t, h.mustRun("config", "show"), "max_entries: 100")
	assert.Contains(t, h.mustRun("version"), "Version:")
}

func TestRemoteCommands(t *testing.T) {
	h := newHarness(t)

	cfg, err := config.Load("")
	require.NoError(t, err)
	d, err := daemon.New(cfg, daemon.Options{
		Logger:      zaptest.NewLogger(t),
		HostFactory: h.factory(cfg, nil),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	client := ipc.NewClient(h.socket)
	require.Eventually(t, func() bool { return client.Ping(context.Background()) }, 3*time.Second, 20*time.Millisecond)

	h.mustRun("clip", "add", "via daemon")
	entries := h.list()
	require.Len(t, entries, 1)
	assert.Equal(t, "via daemon", entries[0].Text)

	out := h.mustRun("history", "copy", entries[0].ID)
	assert.Contains(t, out, "Copied text entry "+entries[0].ID)
	assert.Equal(t, "via daemon", h.backend.current())
	assert.Len(t, h.list(), 1, "copying does not append")

	out = h.mustRun("daemon", "status")
	assert.Contains(t, out, "Status: running")
	assert.Contains(t, out, "Clipboard Monitor")

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	root := newRootCmd(&app{hostFactory: h.factory})
	var watchOut syncBuffer
	root.SetOut(&watchOut)
	root.SetArgs([]string{"--no-file-log", "history", "watch"})
	watchDone := make(chan error, 1)
	go func() { watchDone <- root.ExecuteContext(watchCtx) }()

	time.Sleep(200 * time.Millisecond)
	h.mustRun("clip", "add", "watched")
	require.Eventually(t, func() bool { return strings.Contains(watchOut.String(), "watched") }, 3*time.Second, 20*time.Millisecond)

	stopWatch()
	<-watchDone
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServiceCmdRunsDaemon(t *testing.T) {
	h := newHarness(t)

	cmd := newServiceCmd(&app{hostFactory: h.factory})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--no-file-log", "--log-level", "error"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	client := ipc.NewClient(h.socket)
	require.Eventually(t, func() bool { return client.Ping(context.Background()) }, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, h.backend.WriteText("from service"))
	require.Eventually(t, func() bool {
		entries := h.list()
		return len(entries) == 1 && entries[0].Text == "from service"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err, out.String())
	case <-time.After(5 * time.Second):
		t.Fatal("service command did not stop")
	}
}
