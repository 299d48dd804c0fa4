package theme

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// SystemScheme reads the desktop's color-scheme setting. It never touches
// the terminal, so it is safe to call while the TUI owns the TTY. ok is
// false when no setting could be read.
func SystemScheme(ctx context.Context) (dark, ok bool) {
	switch runtime.GOOS {
	case "darwin":
		out, err := exec.CommandContext(ctx, "defaults", "read", "-g", "AppleInterfaceStyle").Output()
		if err != nil {
			// The key is absent in light mode.
			var exitErr *exec.ExitError
			if ctx.Err() == nil && errors.As(err, &exitErr) {
				return false, true
			}
			return false, false
		}
		return strings.TrimSpace(string(out)) == "Dark", true

	case "linux", "freebsd", "openbsd":
		out, err := exec.CommandContext(ctx, "gsettings", "get", "org.gnome.desktop.interface", "color-scheme").Output()
		if err == nil {
			if dark, ok := parseGnomeScheme(string(out)); ok {
				return dark, true
			}
		}
	}
	return parseColorFGBG(os.Getenv("COLORFGBG"))
}

// parseGnomeScheme reads gsettings output such as 'prefer-dark'.
func parseGnomeScheme(s string) (dark, ok bool) {
	switch strings.Trim(strings.TrimSpace(s), "'") {
	case "prefer-dark":
		return true, true
	case "prefer-light", "default":
		return false, true
	}
	return false, false
}

// parseColorFGBG reads the "fg;bg" palette indexes some terminals export.
// Background indexes 0-6 and 8 are dark.
func parseColorFGBG(s string) (dark, ok bool) {
	parts := strings.Split(s, ";")
	if len(parts) < 2 {
		return false, false
	}
	bg, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return false, false
	}
	return bg == 8 || (bg >= 0 && bg <= 6), true
}
