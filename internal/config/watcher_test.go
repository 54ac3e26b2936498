package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// testCallback captures reload invocations for assertions.
type testCallback struct {
	mu      sync.Mutex
	calls   []callRecord
	callsCh chan struct{}
}

type callRecord struct {
	cfg  *Config
	errs []error
}

func newTestCallback() *testCallback {
	return &testCallback{callsCh: make(chan struct{}, 100)}
}

func (tc *testCallback) fn(cfg *Config, errs []error) {
	tc.mu.Lock()
	tc.calls = append(tc.calls, callRecord{cfg: cfg, errs: errs})
	tc.mu.Unlock()
	tc.callsCh <- struct{}{}
}

func (tc *testCallback) waitForCall(t *testing.T, timeout time.Duration) {
	t.Helper()
	select {
	case <-tc.callsCh:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for callback")
	}
}

func (tc *testCallback) count() int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return len(tc.calls)
}

func (tc *testCallback) last() callRecord {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.calls[len(tc.calls)-1]
}

func writeConfigFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
}

const routingLowConfig = `routing:
  forceBothOnSeverity: ["CRITICAL"]
`

const routingHighConfig = `routing:
  forceBothOnSeverity: ["MEDIUM", "HIGH", "CRITICAL"]
`

const malformedYAML = `routing:
  forceBothOnSeverity: [invalid yaml
`

func TestWatcher_FileModificationTriggersCallback(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeConfigFile(t, cfgPath, routingLowConfig)

	cb := newTestCallback()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	w := NewWatcher(cfgPath, cb.fn, logger, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	// Give watcher time to start
	time.Sleep(100 * time.Millisecond)

	// Modify the file
	writeConfigFile(t, cfgPath, routingHighConfig)
	cb.waitForCall(t, 2*time.Second)

	rec := cb.last()
	if rec.cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if len(rec.cfg.Routing.ForceBothOnSeverity) != 3 {
		t.Errorf("expected 3 severities after reload, got %v", rec.cfg.Routing.ForceBothOnSeverity)
	}
	if len(rec.errs) != 0 {
		t.Errorf("expected no errors, got %v", rec.errs)
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Errorf("Run() returned error: %v", err)
	}
}

func TestWatcher_DebounceRapidWrites(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeConfigFile(t, cfgPath, routingLowConfig)

	cb := newTestCallback()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	w := NewWatcher(cfgPath, cb.fn, logger, WithDebounce(100*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	// Rapid writes — should debounce to one callback
	writeConfigFile(t, cfgPath, routingLowConfig)
	time.Sleep(20 * time.Millisecond)
	writeConfigFile(t, cfgPath, routingHighConfig)
	time.Sleep(20 * time.Millisecond)
	writeConfigFile(t, cfgPath, routingLowConfig)

	cb.waitForCall(t, 2*time.Second)

	// Wait a bit more to confirm no extra callbacks fire
	time.Sleep(300 * time.Millisecond)

	if count := cb.count(); count != 1 {
		t.Errorf("expected exactly 1 callback (debounced), got %d", count)
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Errorf("Run() returned error: %v", err)
	}
}

func TestWatcher_FileCreatedAfterStart(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	// Do NOT create the file initially

	cb := newTestCallback()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	w := NewWatcher(cfgPath, cb.fn, logger, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	// Create the file
	writeConfigFile(t, cfgPath, routingLowConfig)
	cb.waitForCall(t, 2*time.Second)

	rec := cb.last()
	if rec.cfg == nil {
		t.Fatal("expected non-nil config after file creation")
	}
	got := rec.cfg.Routing.ForceBothOnSeverity
	if len(got) != 1 || got[0] != "CRITICAL" {
		t.Errorf("unexpected routing config: %v", got)
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Errorf("Run() returned error: %v", err)
	}
}

func TestWatcher_AtomicRenameTriggersCallback(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeConfigFile(t, cfgPath, routingLowConfig)

	cb := newTestCallback()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	w := NewWatcher(cfgPath, cb.fn, logger, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	// Simulate editor atomic save: write temp file, then rename over target.
	tmpPath := filepath.Join(dir, "config.yaml.tmp")
	writeConfigFile(t, tmpPath, routingHighConfig)
	if err := os.Rename(tmpPath, cfgPath); err != nil {
		t.Fatalf("rename failed: %v", err)
	}

	cb.waitForCall(t, 2*time.Second)
	rec := cb.last()
	if rec.cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if len(rec.cfg.Routing.ForceBothOnSeverity) != 3 {
		t.Errorf("expected reloaded severities, got %v", rec.cfg.Routing.ForceBothOnSeverity)
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Errorf("Run() returned error: %v", err)
	}
}

func TestWatcher_ContextCancellationReturnsNil(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeConfigFile(t, cfgPath, routingLowConfig)

	cb := newTestCallback()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	w := NewWatcher(cfgPath, cb.fn, logger, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() should return nil on context cancel, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}

func TestWatcher_CallbackReceivesValidationErrors(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeConfigFile(t, cfgPath, routingLowConfig)

	cb := newTestCallback()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	w := NewWatcher(cfgPath, cb.fn, logger, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	// Unknown severity should surface as a validation error with a usable config
	writeConfigFile(t, cfgPath, `routing:
  forceBothOnSeverity: ["URGENT"]
`)
	cb.waitForCall(t, 2*time.Second)

	rec := cb.last()
	if rec.cfg == nil {
		t.Fatal("expected non-nil config (invalid entries stripped)")
	}
	if len(rec.errs) == 0 {
		t.Error("expected validation errors for unknown severity")
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Errorf("Run() returned error: %v", err)
	}
}

func TestWatcher_MalformedYAMLTriggersCallbackWithNilConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeConfigFile(t, cfgPath, routingLowConfig)

	cb := newTestCallback()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	w := NewWatcher(cfgPath, cb.fn, logger, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	// Write malformed YAML
	writeConfigFile(t, cfgPath, malformedYAML)
	cb.waitForCall(t, 2*time.Second)

	rec := cb.last()
	if rec.cfg != nil {
		t.Errorf("expected nil config for malformed YAML, got %+v", rec.cfg)
	}
	if len(rec.errs) == 0 {
		t.Error("expected parse error for malformed YAML")
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Errorf("Run() returned error: %v", err)
	}
}
