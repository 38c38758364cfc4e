package watch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/nicholasgasior/fileconv"
)

type collector struct {
	mu      sync.Mutex
	results []fileconv.Result
}

func (c *collector) add(r fileconv.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

func (c *collector) snapshot() []fileconv.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]fileconv.Result(nil), c.results...)
}

func startWatcher(t *testing.T, cfg Config) (*collector, func()) {
	t.Helper()
	engine, err := fileconv.New()
	require.NoError(t, err)
	return runWatcher(t, engine, cfg)
}

func runWatcher(t *testing.T, conv Converter, cfg Config) (*collector, func()) {
	t.Helper()
	c := &collector{}
	w, err := New(conv, cfg, c.add)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	require.Eventually(t, func() bool { return w.Healthy() == nil }, 5*time.Second, 10*time.Millisecond)

	return c, func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Fatal("watcher did not stop")
		}
		assert.Error(t, w.Healthy())
	}
}

func TestWatcherConvertsNewFiles(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	in, out := t.TempDir(), t.TempDir()
	c, stop := startWatcher(t, Config{In: in, Out: out, Target: "html", Debounce: 50 * time.Millisecond})

	require.NoError(t, os.WriteFile(filepath.Join(in, "notes.txt"), []byte("hello watcher\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(in, ".hidden.txt"), []byte("skip me\n"), 0o644))

	require.Eventually(t, func() bool { return len(c.snapshot()) >= 1 }, 5*time.Second, 20*time.Millisecond)
	stop()

	results := c.snapshot()
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, filepath.Join(out, "notes.html"), results[0].Artifact.Path)

	data, err := os.ReadFile(results[0].Artifact.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello watcher")
}

func TestWatcherScanAndUnsupported(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	in, out := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(in, "data.json"), []byte(`{"a":1}`), 0o644))

	c, stop := startWatcher(t, Config{In: in, Out: out, Target: "pdf", Debounce: 10 * time.Millisecond, Scan: true})
	require.Eventually(t, func() bool { return len(c.snapshot()) == 1 }, 5*time.Second, 20*time.Millisecond)
	stop()

	res := c.snapshot()[0]
	assert.True(t, fileconv.IsUnsupportedConversion(res.Err))
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewValidates(t *testing.T) {
	dir := t.TempDir()
	_, err := New(nil, Config{In: dir, Out: dir, Target: "pdf"}, nil)
	assert.Error(t, err)
	_, err = New(nil, Config{In: dir, Out: filepath.Join(dir, "out")}, nil)
	assert.Error(t, err)
	_, err = New(nil, Config{Out: dir, Target: "pdf"}, nil)
	assert.Error(t, err)
}

func TestIgnored(t *testing.T) {
	assert.True(t, ignored(".renameio-123"))
	assert.True(t, ignored("report.docx~"))
	assert.True(t, ignored(".report.txt.swp"))
	assert.False(t, ignored("report.txt"))
}

// gatedConverter records the content it was given and holds "held.txt"
// until release is closed.
type gatedConverter struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once

	mu   sync.Mutex
	seen map[string][]string
}

func (g *gatedConverter) Convert(ctx context.Context, src fileconv.Source, _, _ string) (*fileconv.Artifact, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return nil, err
	}

	name := filepath.Base(src.Name())
	g.mu.Lock()
	g.seen[name] = append(g.seen[name], string(data))
	g.mu.Unlock()

	if name == "held.txt" {
		g.once.Do(func() { close(g.entered) })
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &fileconv.Artifact{Path: src.Name()}, nil
}

func (g *gatedConverter) calls(name string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.seen[name]...)
}

func TestWatcherQueuesWhileWorkersBusy(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	in, out := t.TempDir(), t.TempDir()
	conv := &gatedConverter{entered: make(chan struct{}), release: make(chan struct{}), seen: map[string][]string{}}
	c, stop := runWatcher(t, conv, Config{In: in, Out: out, Target: "html", Debounce: 50 * time.Millisecond, Workers: 1})

	require.NoError(t, os.WriteFile(filepath.Join(in, "held.txt"), []byte("held\n"), 0o644))
	select {
	case <-conv.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first conversion did not start")
	}

	// The only worker is busy: next.txt fires, waits in the queue and is
	// rewritten before any worker takes it.
	next := filepath.Join(in, "next.txt")
	require.NoError(t, os.WriteFile(next, []byte("v1\n"), 0o644))
	time.Sleep(300 * time.Millisecond)
	require.NoError(t, os.WriteFile(next, []byte("v2\n"), 0o644))
	time.Sleep(300 * time.Millisecond)
	assert.Empty(t, conv.calls("next.txt"))

	close(conv.release)
	require.Eventually(t, func() bool { return len(c.snapshot()) == 2 }, 5*time.Second, 20*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	stop()

	assert.Len(t, c.snapshot(), 2)
	assert.Equal(t, []string{"v2\n"}, conv.calls("next.txt"))
}

func TestPathQueue(t *testing.T) {
	var q pathQueue
	_, ok := q.peek()
	assert.False(t, ok)

	assert.True(t, q.push("a"))
	assert.True(t, q.push("b"))
	assert.False(t, q.push("a"))
	assert.True(t, q.push("c"))
	q.remove("b")
	q.remove("missing")
	assert.Equal(t, 2, q.len())

	head, ok := q.peek()
	require.True(t, ok)
	assert.Equal(t, "a", head)
	assert.Equal(t, "a", q.pop())
	assert.True(t, q.push("a"))
	assert.Equal(t, "c", q.pop())
	assert.Equal(t, "a", q.pop())
	assert.Equal(t, 0, q.len())
}
