package uiauto

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Driver abstracts the pointer/keyboard backend so handlers can be tested
// without a display server.
type Driver interface {
	// MoveTo places the pointer at an absolute screen position.
	MoveTo(ctx context.Context, p Point) error
	// Click presses the primary button at the pointer's current position.
	Click(ctx context.Context) error
	// Type sends the text as keystrokes to the focused window.
	Type(ctx context.Context, text string) error
	// Position reports the pointer's current screen position.
	Position(ctx context.Context) (Point, error)
}

// XdoDriver drives the display through the xdotool binary. It requires an
// X11 session (or XWayland) with xdotool on PATH.
type XdoDriver struct {
	// Binary overrides the xdotool executable path. Empty means "xdotool".
	Binary string
	// TypeDelayMS is the per-keystroke delay passed to xdotool type.
	TypeDelayMS int
}

func (d *XdoDriver) binary() string {
	if d.Binary != "" {
		return d.Binary
	}
	return "xdotool"
}

func (d *XdoDriver) run(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, d.binary(), args...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return "", fmt.Errorf("xdotool %s: %w", args[0], err)
		}
		return "", fmt.Errorf("xdotool %s: %s: %w", args[0], msg, err)
	}
	return string(out), nil
}

func (d *XdoDriver) MoveTo(ctx context.Context, p Point) error {
	_, err := d.run(ctx, "mousemove", strconv.Itoa(p.X), strconv.Itoa(p.Y))
	return err
}

func (d *XdoDriver) Click(ctx context.Context) error {
	_, err := d.run(ctx, "click", "1")
	return err
}

func (d *XdoDriver) Type(ctx context.Context, text string) error {
	delay := d.TypeDelayMS
	if delay <= 0 {
		delay = 12
	}
	_, err := d.run(ctx, "type", "--delay", strconv.Itoa(delay), "--", text)
	return err
}

// Position parses `xdotool getmouselocation --shell`, which prints lines of
// the form X=123, Y=456, SCREEN=0, WINDOW=...
func (d *XdoDriver) Position(ctx context.Context) (Point, error) {
	out, err := d.run(ctx, "getmouselocation", "--shell")
	if err != nil {
		return Point{}, err
	}
	var p Point
	var haveX, haveY bool
	for _, line := range strings.Split(out, "\n") {
		key, val, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		n, convErr := strconv.Atoi(val)
		if convErr != nil {
			continue
		}
		switch key {
		case "X":
			p.X, haveX = n, true
		case "Y":
			p.Y, haveY = n, true
		}
	}
	if !haveX || !haveY {
		return Point{}, fmt.Errorf("unexpected getmouselocation output: %q", strings.TrimSpace(out))
	}
	return p, nil
}
