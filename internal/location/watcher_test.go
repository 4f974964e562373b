package location

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type flakySource struct {
	calls atomic.Int32
}

func (s *flakySource) Current(context.Context) (Position, error) {
	n := s.calls.Add(1)
	if n%2 == 1 {
		return Position{}, errors.New("no fix")
	}
	return Position{Lat: float64(n), Lng: 2, Accuracy: 10}, nil
}

func TestCurrentCachesFix(t *testing.T) {
	w := NewWatcher(FixedSource{Pos: Position{Lat: 41.9, Lng: 12.5, Accuracy: 5}}, nil)
	if _, ok := w.Last(); ok {
		t.Fatalf("expected no cached fix before Current")
	}
	pos, err := w.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	last, ok := w.Last()
	if !ok || last != pos {
		t.Fatalf("expected cached %v, got %v %t", pos, last, ok)
	}
}

func TestWatchContinuesAfterErrors(t *testing.T) {
	src := &flakySource{}
	w := NewWatcher(src, nil)
	ch, err := w.Start(context.Background(), time.Millisecond)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	var got []Position
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case p := <-ch:
			got = append(got, p)
		case <-timeout:
			t.Fatalf("timed out waiting for positions, got %d", len(got))
		}
	}
	w.Stop()
	w.Stop()

	if got[0].Lat != 2 || got[1].Lat != 4 {
		t.Fatalf("expected fixes from even calls only, got %#v", got)
	}
	for range ch {
	}
}

func TestStartTwiceFails(t *testing.T) {
	w := NewWatcher(FixedSource{}, nil)
	if _, err := w.Start(context.Background(), time.Hour); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()
	if _, err := w.Start(context.Background(), time.Hour); err == nil {
		t.Fatalf("expected second Start to fail")
	}
}

func TestNoSource(t *testing.T) {
	w := NewWatcher(nil, nil)
	if _, err := w.Current(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := w.Start(context.Background(), time.Second); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from Start, got %v", err)
	}
}
