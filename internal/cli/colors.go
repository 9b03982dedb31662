// Package cli holds terminal output helpers: ANSI styling, JSON
// highlighting, and the small glyph vocabulary the commands share.
package cli

import (
	"fmt"
	"os"
)

const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"
	White  = "\033[37m"
)

// RGB is a 24-bit terminal color.
type RGB struct {
	R, G, B float64
}

var (
	BrandTeal   = RGB{32, 178, 170}
	BrandViolet = RGB{138, 92, 246}
)

// colorEnabled caches the NO_COLOR check (https://no-color.org/).
var colorEnabled = checkColor()

func checkColor() bool {
	if _, noColor := os.LookupEnv("NO_COLOR"); noColor {
		return false
	}
	if val := os.Getenv("SPINDLE_COLOR"); val != "" {
		return val == "true" || val == "1"
	}
	return true
}

// Enabled reports whether ANSI styling is active for this process.
func Enabled() bool {
	return colorEnabled
}

// Style wraps text in a color code, honoring NO_COLOR.
func Style(text, code string) string {
	if !colorEnabled {
		return text
	}
	return code + text + Reset
}

// StyleRGB wraps text in TrueColor escape codes.
func StyleRGB(text string, c RGB) string {
	if !colorEnabled {
		return text
	}
	return fmt.Sprintf("\033[38;2;%d;%d;%dm%s\033[0m", int(c.R), int(c.G), int(c.B), text)
}

// Gradient colors text by linear interpolation between start and end,
// with progress in [0, 1].
func Gradient(text string, start, end RGB, progress float64) string {
	if !colorEnabled {
		return text
	}
	r := start.R + (end.R-start.R)*progress
	g := start.G + (end.G-start.G)*progress
	b := start.B + (end.B-start.B)*progress
	return StyleRGB(text, RGB{r, g, b})
}

func CheckMark() string { return Style("✔", Green) }
func CrossMark() string { return Style("✘", Red) }
func Arrow() string     { return Style("➜", Blue) }
func Bullet() string    { return Style("•", Dim) }
