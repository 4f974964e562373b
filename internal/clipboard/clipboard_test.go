package clipboard

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func lookup(found ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, f := range found {
			if f == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("not found")
	}
}

func env(vals map[string]string) func(string) string {
	return func(k string) string { return vals[k] }
}

func TestSelectCommandDarwin(t *testing.T) {
	cmd, err := SelectCommand("darwin", lookup("pbcopy"), nil)
	if err != nil {
		t.Fatalf("expected command, got error: %v", err)
	}
	if cmd.Path != "/usr/bin/pbcopy" {
		t.Fatalf("unexpected path: %s", cmd.Path)
	}
	if len(cmd.Args) != 0 {
		t.Fatalf("did not expect args for pbcopy: %#v", cmd.Args)
	}
}

func TestSelectCommandLinuxPrefersWlCopyOnWayland(t *testing.T) {
	cmd, err := SelectCommand("linux", lookup("wl-copy", "xclip"), env(map[string]string{"WAYLAND_DISPLAY": "wayland-0"}))
	if err != nil {
		t.Fatalf("expected command, got error: %v", err)
	}
	if cmd.Path != "/usr/bin/wl-copy" {
		t.Fatalf("expected wl-copy, got %q", cmd.Path)
	}
}

func TestSelectCommandLinuxUsesXclipOutsideWayland(t *testing.T) {
	cmd, err := SelectCommand("linux", lookup("wl-copy", "xclip"), env(nil))
	if err != nil {
		t.Fatalf("expected command, got error: %v", err)
	}
	if cmd.Path != "/usr/bin/xclip" {
		t.Fatalf("expected xclip, got %q", cmd.Path)
	}
	if len(cmd.Args) != 2 || cmd.Args[0] != "-selection" || cmd.Args[1] != "clipboard" {
		t.Fatalf("unexpected xclip args: %#v", cmd.Args)
	}
}

func TestSelectCommandLinuxFallsBackToXsel(t *testing.T) {
	cmd, err := SelectCommand("linux", lookup("xsel"), env(nil))
	if err != nil {
		t.Fatalf("expected command, got error: %v", err)
	}
	if cmd.Path != "/usr/bin/xsel" || len(cmd.Args) != 2 {
		t.Fatalf("unexpected xsel command: %#v", cmd)
	}
}

func TestSelectCommandLinuxWlCopyOnlyTool(t *testing.T) {
	cmd, err := SelectCommand("linux", lookup("wl-copy"), env(nil))
	if err != nil {
		t.Fatalf("expected wl-copy as last resort, got %v", err)
	}
	if cmd.Path != "/usr/bin/wl-copy" {
		t.Fatalf("unexpected path %q", cmd.Path)
	}
}

func TestSelectCommandWindows(t *testing.T) {
	cmd, err := SelectCommand("windows", lookup("clip"), nil)
	if err != nil || cmd.Path != "/usr/bin/clip" {
		t.Fatalf("expected clip, got %#v %v", cmd, err)
	}
}

func TestSelectCommandUnavailable(t *testing.T) {
	for _, goos := range []string{"linux", "plan9"} {
		_, err := SelectCommand(goos, lookup(), nil)
		if !errors.Is(err, ErrToolNotFound) {
			t.Fatalf("%s: expected ErrToolNotFound, got %v", goos, err)
		}
	}
}

func writeTool(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script tools need a unix shell")
	}
	path := filepath.Join(t.TempDir(), "fake-xclip")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write fake tool: %v", err)
	}
	return path
}

func TestRunReturnsWhileToolChildHoldsSelection(t *testing.T) {
	out := filepath.Join(t.TempDir(), "copied")
	tool := writeTool(t, "cat >"+out+"\n(sleep 10) &\nexit 0\n")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := run(ctx, Command{Path: tool}, "¿Dónde está la estación?"); err != nil {
		t.Fatalf("expected copy to succeed, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("copy blocked on background child for %s", elapsed)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read copied text: %v", err)
	}
	if string(got) != "¿Dónde está la estación?" {
		t.Fatalf("unexpected copied text %q", got)
	}
}

func TestRunReportsToolFailure(t *testing.T) {
	tool := writeTool(t, "cat >/dev/null\necho 'no display' >&2\nexit 3\n")
	if err := run(context.Background(), Command{Path: tool}, "x"); err == nil {
		t.Fatalf("expected error from failing tool")
	}
}
