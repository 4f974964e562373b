package notify

import (
	"testing"
	"time"
)

func TestShowRequiresGrant(t *testing.T) {
	e := NewEmitter(PermissionDenied)
	if _, ok := e.TravelTip("carry cash"); ok {
		t.Fatalf("expected denied emitter to suppress notifications")
	}

	e = NewEmitter(PermissionDefault)
	if _, ok := e.TravelTip("carry cash"); ok {
		t.Fatalf("expected default permission to suppress until checked")
	}
	if got := e.Check(); got != PermissionGranted {
		t.Fatalf("expected default to resolve to granted, got %s", got)
	}
	n, ok := e.TravelTip("carry cash")
	if !ok {
		t.Fatalf("expected notification after grant")
	}
	if n.Title != "Travel Tip" || n.Body != "carry cash" {
		t.Fatalf("unexpected notification: %#v", n)
	}
}

func TestCannedTemplatesAndExpiry(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e := NewEmitter(PermissionGranted)
	e.now = func() time.Time { return now }

	w, _ := e.WeatherAlert("storm at 6pm")
	if w.Title != "Weather Alert" {
		t.Fatalf("unexpected title %q", w.Title)
	}
	if !w.Expires.Equal(now.Add(AutoClose)) {
		t.Fatalf("expected expiry %s, got %s", now.Add(AutoClose), w.Expires)
	}
	tip, _ := e.TravelTip("x")
	if tip.ID == w.ID {
		t.Fatalf("expected distinct ids")
	}
}

func TestParsePermission(t *testing.T) {
	cases := map[string]Permission{
		"granted": PermissionGranted,
		"ON":      PermissionGranted,
		"off":     PermissionDenied,
		"denied":  PermissionDenied,
		"":        PermissionDefault,
	}
	for in, want := range cases {
		if got := ParsePermission(in); got != want {
			t.Fatalf("ParsePermission(%q) = %s, want %s", in, got, want)
		}
	}
}
