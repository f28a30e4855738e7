package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/saeedalam/radscribe/internal/bridge"
)

// WatcherConfig configures the dictation buffer watcher
type WatcherConfig struct {
	Debounce time.Duration `json:"debounce"` // 0 processes every change
}

// DetectionHandler receives the buffer text and detections after each change
type DetectionHandler func(text string, snap bridge.Snapshot)

// WatcherStats tracks watcher activity
type WatcherStats struct {
	Updates    int       `json:"updates"`
	ErrorCount int       `json:"error_count"`
	LastUpdate time.Time `json:"last_update"`
	LastError  string    `json:"last_error,omitempty"`
}

// Watcher feeds every change of a dictation file into a bridge
type Watcher struct {
	path   string
	config WatcherConfig
	bridge *bridge.Bridge
	log    *zap.Logger

	onDetection DetectionHandler

	fsw      *fsnotify.Watcher
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.RWMutex
	running  bool
	debounce *time.Timer

	stats WatcherStats
}

// NewWatcher creates a watcher for path. Call Start to begin watching.
func NewWatcher(path string, b *bridge.Bridge, log *zap.Logger, config WatcherConfig) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		path:   path,
		config: config,
		bridge: b,
		log:    log,
	}
}

// OnDetection registers the handler called after each processed change
func (w *Watcher) OnDetection(fn DetectionHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onDetection = fn
}

// Start watches the file's directory and processes the current content once.
// Watching the directory survives editors that replace the file on save.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		w.mu.Unlock()
		return fmt.Errorf("watch directory: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.fsw = fsw
	w.cancel = cancel
	w.running = true
	w.mu.Unlock()

	if _, err := os.Stat(w.path); err == nil {
		if _, err := w.Process(); err != nil {
			w.log.Warn("Initial read failed", zap.String("path", w.path), zap.Error(err))
		}
	}

	w.wg.Add(1)
	go w.loop(ctx)

	w.log.Info("Watching dictation buffer", zap.String("path", w.path))
	return nil
}

// Stop ends watching and waits for the event loop and any debounce
// callback already running. No handler runs after Stop returns.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.cancel()
	w.stopDebounce()
	w.mu.Unlock()

	w.wg.Wait()
	w.fsw.Close()
}

// IsRunning returns whether the watcher is running
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// GetStats returns watcher statistics
func (w *Watcher) GetStats() WatcherStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// Process reads the file once, updates the bridge and notifies the handler
func (w *Watcher) Process() (bridge.Snapshot, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.recordError("read", err)
		return bridge.Snapshot{}, err
	}

	text := string(data)
	snap := w.bridge.Update(text)

	w.mu.Lock()
	w.stats.Updates++
	w.stats.LastUpdate = time.Now()
	handler := w.onDetection
	w.mu.Unlock()

	w.log.Debug("Buffer classified",
		zap.String("body_part", snap.BodyPartLabel()),
		zap.String("modality", snap.ModalityLabel()),
		zap.Int("bytes", len(data)))

	if handler != nil {
		handler(text, snap)
	}
	return snap, nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	target := filepath.Clean(w.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.schedule()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.recordError("watch", err)
		}
	}
}

// schedule processes the change now or after the debounce window. A pending
// debounce callback is counted in wg so Stop waits for it.
func (w *Watcher) schedule() {
	if w.config.Debounce <= 0 {
		// Process records its own errors
		_, _ = w.Process()
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.stopDebounce()
	w.wg.Add(1)
	w.debounce = time.AfterFunc(w.config.Debounce, func() {
		defer w.wg.Done()
		if w.IsRunning() {
			_, _ = w.Process()
		}
	})
}

// stopDebounce cancels a pending callback. Callers hold w.mu.
func (w *Watcher) stopDebounce() {
	if w.debounce != nil && w.debounce.Stop() {
		w.wg.Done()
	}
	w.debounce = nil
}

func (w *Watcher) recordError(stage string, err error) {
	w.mu.Lock()
	w.stats.ErrorCount++
	w.stats.LastError = fmt.Sprintf("%s: %v", stage, err)
	w.mu.Unlock()

	w.log.Warn("Watcher error", zap.String("stage", stage), zap.Error(err))
}
