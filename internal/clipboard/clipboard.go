package clipboard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

var ErrToolNotFound = errors.New("clipboard tool not found")

const waitDelay = time.Second

type Command struct {
	Path string
	Args []string
}

type candidate struct {
	name string
	args []string
	// wayland limits the tool to Wayland sessions.
	wayland bool
}

var candidates = map[string][]candidate{
	"darwin":  {{name: "pbcopy"}},
	"windows": {{name: "clip.exe"}, {name: "clip"}},
	"linux": {
		{name: "wl-copy", wayland: true},
		{name: "xclip", args: []string{"-selection", "clipboard"}},
		{name: "xsel", args: []string{"--clipboard", "--input"}},
	},
}

// SelectCommand picks the first available clipboard tool for goos. On Linux
// wl-copy is preferred only inside a Wayland session unless it is the sole
// tool installed.
func SelectCommand(goos string, lookPath func(string) (string, error), getenv func(string) string) (Command, error) {
	list, ok := candidates[goos]
	if !ok {
		return Command{}, ErrToolNotFound
	}
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	onWayland := strings.TrimSpace(getenv("WAYLAND_DISPLAY")) != ""

	var waylandOnly *Command
	for _, c := range list {
		path, err := lookPath(c.name)
		if err != nil {
			continue
		}
		cmd := Command{Path: path, Args: c.args}
		if c.wayland && !onWayland {
			if waylandOnly == nil {
				waylandOnly = &cmd
			}
			continue
		}
		return cmd, nil
	}
	if waylandOnly != nil {
		return *waylandOnly, nil
	}
	return Command{}, ErrToolNotFound
}

func Copy(ctx context.Context, text string) error {
	cmdDef, err := SelectCommand(runtime.GOOS, exec.LookPath, os.Getenv)
	if err != nil {
		return err
	}
	return run(ctx, cmdDef, text)
}

// run feeds text to the tool. Output is not captured: xclip, xsel and
// wl-copy leave a child behind to own the selection, and a captured pipe
// would keep Wait blocked for that child's lifetime.
func run(ctx context.Context, cmdDef Command, text string) error {
	cmd := exec.CommandContext(ctx, cmdDef.Path, cmdDef.Args...)
	cmd.Stdin = strings.NewReader(text)
	cmd.WaitDelay = waitDelay
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("clipboard command failed: %w", err)
	}
	return nil
}
