package helpers

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	// SuccessColor for successful operations
	SuccessColor = color.New(color.FgGreen, color.Bold)

	// ErrorColor for error messages
	ErrorColor = color.New(color.FgRed, color.Bold)

	// WarningColor for warning messages
	WarningColor = color.New(color.FgYellow, color.Bold)

	// InfoColor for informational messages
	InfoColor = color.New(color.FgCyan, color.Bold)

	// TitleColor for titles and headers
	TitleColor = color.New(color.FgMagenta, color.Bold)

	// DebugColor for diagnostics shown with --verbose
	DebugColor = color.New(color.FgHiBlack)
)

var verbose atomic.Bool

// SetVerbose turns debug output on or off
func SetVerbose(on bool) {
	verbose.Store(on)
}

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...interface{}) {
	SuccessColor.Printf("✅ "+format+"\n", args...)
}

// PrintError prints an error message to stderr
func PrintError(format string, args ...interface{}) {
	ErrorColor.Fprintf(os.Stderr, "❌ "+format+"\n", args...)
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...interface{}) {
	WarningColor.Printf("⚠️  "+format+"\n", args...)
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...interface{}) {
	InfoColor.Printf("ℹ️  "+format+"\n", args...)
}

// PrintTitle prints a title
func PrintTitle(format string, args ...interface{}) {
	TitleColor.Printf("🎯 "+format+"\n", args...)
}

// PrintDebug prints a diagnostic message to stderr when verbose output is on
func PrintDebug(format string, args ...interface{}) {
	if !verbose.Load() {
		return
	}
	DebugColor.Fprintf(os.Stderr, "🔍 "+format+"\n", args...)
}

// PrintProgress prints a progress message
func PrintProgress(current, total int, message string) {
	InfoColor.Printf("📊 [%d/%d] %s\n", current, total, message)
}

// PrintPercent prints a coarse progress bar
func PrintPercent(label string, percent int) {
	filled := percent / 5
	InfoColor.Printf("⏳ %-12s [%s%s] %3d%%\n", label, strings.Repeat("█", filled), strings.Repeat("░", 20-filled), percent)
}

// BandColor returns the color of a similarity band name
func BandColor(band string) *color.Color {
	switch band {
	case "green":
		return SuccessColor
	case "yellow":
		return WarningColor
	default:
		return ErrorColor
	}
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println(strings.Repeat("─", 80))
}

// IsTerminal checks if output is going to a terminal
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Console shows notifications with the colored printers
type Console struct{}

// Success implements the services notifier
func (Console) Success(format string, args ...interface{}) { PrintSuccess(format, args...) }

// Warning implements the services notifier
func (Console) Warning(format string, args ...interface{}) { PrintWarning(format, args...) }

// Error implements the services notifier
func (Console) Error(format string, args ...interface{}) { PrintError(format, args...) }

// Info implements the services notifier
func (Console) Info(format string, args ...interface{}) { PrintInfo(format, args...) }
