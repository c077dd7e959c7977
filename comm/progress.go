package comm

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// ProgressTheme contains all the characters we need to show progress.
type ProgressTheme struct {
	BarStart string
	BarEnd   string
	Current  string
	Empty    string
	OpSign   string
	StatSign string
}

var themes = map[string]*ProgressTheme{
	"unicode": {"▐", "▌", "▓", "░", "•", "✓"},
	"ascii":   {"|", "|", "#", "-", ">", "<"},
	"cp437":   {"▐", "▌", "█", "░", "∙", "√"},
}

func getCharset() string {
	if runtime.GOOS == "windows" && os.Getenv("OS") != "CYGWIN" {
		return "cp437"
	}

	var utf8 = ".UTF-8"
	if strings.Contains(os.Getenv("LC_ALL"), utf8) ||
		os.Getenv("LC_CTYPE") == "UTF-8" ||
		strings.Contains(os.Getenv("LANG"), utf8) {
		return "unicode"
	}

	return "ascii"
}

var theme = themes[getCharset()]

// GetTheme returns the theme used to show progress.
func GetTheme() *ProgressTheme {
	return theme
}

const barWidth = 30
const maxLabelLength = 40

var bar = &struct {
	active bool
	alpha  float64
	label  string
}{}

// StartProgress begins a period in which progress is regularly
// printed.
func StartProgress() {
	if settings.noProgress || settings.json || settings.quiet {
		return
	}
	bar.active = true
	bar.alpha = 0
	render()
}

// Progress announces the degree of completion of the operation, in
// the [0,1] interval.
func Progress(alpha float64) {
	if settings.json {
		send("progress", JsonMessage{"progress": alpha})
		return
	}
	if !bar.active {
		return
	}
	bar.alpha = alpha
	render()
}

// ProgressLabel sets the string printed next to the progress
// indicator.
func ProgressLabel(label string) {
	if len(label) > maxLabelLength {
		label = fmt.Sprintf("...%s", label[len(label)-(maxLabelLength-3):])
	}
	bar.label = label
	if bar.active {
		render()
	}
}

// PauseProgress temporarily stops printing the progress bar.
func PauseProgress() {
	if bar.active {
		fmt.Fprint(os.Stderr, "\r\x1b[K")
	}
	bar.active = false
}

// ResumeProgress resumes printing the progress bar.
func ResumeProgress() {
	if settings.noProgress || settings.json || settings.quiet {
		return
	}
	bar.active = true
	render()
}

// EndProgress stops the progress period, clearing the bar.
func EndProgress() {
	if bar.active {
		fmt.Fprint(os.Stderr, "\r\x1b[K")
	}
	bar.active = false
	bar.label = ""
}

func render() {
	filled := int(bar.alpha * barWidth)
	if filled > barWidth {
		filled = barWidth
	}

	fmt.Fprintf(os.Stderr, "\r\x1b[K%s%s%s%s %5.1f%%  %s",
		theme.BarStart,
		strings.Repeat(theme.Current, filled),
		strings.Repeat(theme.Empty, barWidth-filled),
		theme.BarEnd,
		bar.alpha*100,
		bar.label)
}
