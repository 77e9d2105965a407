package display

import (
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// ColorSystem applies terminal colors when the output supports them
type ColorSystem struct {
	supported bool
	profile   termenv.Profile
}

// NewColorSystem creates a color system with terminal detection
func NewColorSystem() *ColorSystem {
	cs := &ColorSystem{
		supported: detectColorSupport(),
		profile:   termenv.ColorProfile(),
	}
	if !cs.supported {
		color.NoColor = true
	}
	return cs
}

func detectColorSupport() bool {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return false
	}
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	return true
}

// Supported reports whether colors are enabled
func (cs *ColorSystem) Supported() bool {
	return cs.supported
}

// Success formats text in the success color
func (cs *ColorSystem) Success(format string, args ...interface{}) string {
	return color.GreenString(format, args...)
}

// Warning formats text in the warning color
func (cs *ColorSystem) Warning(format string, args ...interface{}) string {
	return color.YellowString(format, args...)
}

// Failure formats text in the failure color
func (cs *ColorSystem) Failure(format string, args ...interface{}) string {
	return color.RedString(format, args...)
}

// Emphasis formats text in the emphasis color
func (cs *ColorSystem) Emphasis(format string, args ...interface{}) string {
	return color.CyanString(format, args...)
}
