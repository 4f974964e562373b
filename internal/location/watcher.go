package location

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrUnavailable = errors.New("location source not available")

type Position struct {
	Lat      float64
	Lng      float64
	Accuracy float64
}

func (p Position) String() string {
	return fmt.Sprintf("%.4f,%.4f ±%.0fm", p.Lat, p.Lng, p.Accuracy)
}

type Source interface {
	Current(ctx context.Context) (Position, error)
}

// FixedSource reports a configured position.
type FixedSource struct {
	Pos Position
}

func (s FixedSource) Current(context.Context) (Position, error) {
	return s.Pos, nil
}

type Watcher struct {
	src Source
	log *zap.Logger

	mu      sync.Mutex
	current *Position
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewWatcher(src Source, log *zap.Logger) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{src: src, log: log}
}

// Current takes a single fix and caches it.
func (w *Watcher) Current(ctx context.Context) (Position, error) {
	if w.src == nil {
		return Position{}, ErrUnavailable
	}
	pos, err := w.src.Current(ctx)
	if err != nil {
		return Position{}, fmt.Errorf("current position: %w", err)
	}
	w.mu.Lock()
	w.current = &pos
	w.mu.Unlock()
	return pos, nil
}

func (w *Watcher) Last() (Position, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return Position{}, false
	}
	return *w.current, true
}

// Start polls the source every interval and emits each fix. Source errors
// are logged and polling continues. The channel closes after Stop or when
// ctx is done.
func (w *Watcher) Start(ctx context.Context, interval time.Duration) (<-chan Position, error) {
	if w.src == nil {
		return nil, ErrUnavailable
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return nil, errors.New("location watcher already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Position, 1)
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done

	go func() {
		defer close(done)
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if pos, err := w.Current(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				w.log.Warn("location watch error", zap.Error(err))
			} else {
				select {
				case out <- pos:
				case <-ctx.Done():
					return
				}
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
