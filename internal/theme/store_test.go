package theme

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

type fakeNotifier struct {
	got []string
	err error
}

func (f *fakeNotifier) NotifyTheme(_ context.Context, theme string) error {
	f.got = append(f.got, theme)
	return f.err
}

func openStore(t *testing.T, n Notifier) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "prefs.sqlite"), n, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInitialFallsBackToTerminalBackground(t *testing.T) {
	s := openStore(t, nil)
	if got := s.Initial(func() bool { return false }); got != Light {
		t.Fatalf("expected light for light terminal, got %s", got)
	}
	if got := s.Initial(func() bool { return true }); got != Dark {
		t.Fatalf("expected dark for dark terminal, got %s", got)
	}
}

func TestSetPersistsAndNotifies(t *testing.T) {
	n := &fakeNotifier{}
	path := filepath.Join(t.TempDir(), "prefs.sqlite")
	s, err := Open(path, n, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Set(context.Background(), Light); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(context.Background(), Dark); err != nil {
		t.Fatalf("Set: %v", err)
	}
	_ = s.Close()

	if len(n.got) != 2 || n.got[0] != "light" || n.got[1] != "dark" {
		t.Fatalf("unexpected notifications: %#v", n.got)
	}

	reopened, err := Open(path, nil, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if got := reopened.Initial(func() bool { return false }); got != Dark {
		t.Fatalf("expected stored dark preference to win, got %s", got)
	}
}

func TestSetIgnoresNotifyFailure(t *testing.T) {
	s := openStore(t, &fakeNotifier{err: errors.New("offline")})
	if err := s.Set(context.Background(), Light); err != nil {
		t.Fatalf("notify failure must not fail Set: %v", err)
	}
	got, ok, err := s.Stored()
	if err != nil || !ok || got != Light {
		t.Fatalf("expected stored light, got %q %t %v", got, ok, err)
	}
}

func TestSetRejectsUnknownTheme(t *testing.T) {
	s := openStore(t, nil)
	if err := s.Set(context.Background(), Theme("sepia")); err == nil {
		t.Fatalf("expected error for unknown theme")
	}
}

func TestToggleAndStyle(t *testing.T) {
	if Dark.Toggle() != Light || Light.Toggle() != Dark {
		t.Fatalf("toggle mismatch")
	}
	if Light.GlamourStyle() != "light" || Dark.GlamourStyle() != "dark" {
		t.Fatalf("style mismatch")
	}
}
