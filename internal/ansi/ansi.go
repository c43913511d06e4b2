// Package ansi normalizes raw terminal output for analysis and display.
//
// Terminal panes hand back text full of control sequences (CSI color runs, OSC
// title updates terminated by BEL, DCS blocks terminated by ST) and mixed line
// endings. Every consumer of pane output goes through this package first.
package ansi

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
)

// Strip removes all escape and control sequences from text. Unmatched escape
// fragments are left as literal text; Strip never fails on malformed input.
func Strip(text string) string {
	return xansi.Strip(text)
}

// NormalizeLineEndings converts CRLF and bare CR sequences to a single LF.
func NormalizeLineEndings(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// Normalize strips escape sequences and unifies line endings.
func Normalize(text string) string {
	return NormalizeLineEndings(Strip(text))
}

// CleanLines returns a line-filtered variant of normalized text: leading and
// trailing blank lines are dropped, as are bare prompt-noise lines ("$", ">",
// "#", "%") that carry no content of their own.
func CleanLines(text string) string {
	lines := strings.Split(Normalize(text), "\n")

	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		if isPromptNoise(line) {
			continue
		}
		filtered = append(filtered, line)
	}

	// Trim blank lines from both ends, preserving interior blanks.
	start := 0
	for start < len(filtered) && strings.TrimSpace(filtered[start]) == "" {
		start++
	}
	end := len(filtered)
	for end > start && strings.TrimSpace(filtered[end-1]) == "" {
		end--
	}

	return strings.Join(filtered[start:end], "\n")
}

// isPromptNoise reports whether a line is a bare shell prompt with no command.
func isPromptNoise(line string) bool {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) == 0 || len(trimmed) > 2 {
		return false
	}
	for _, r := range trimmed {
		switch r {
		case '$', '>', '#', '%':
		default:
			return false
		}
	}
	return true
}

// TailLines returns at most n trailing lines of text, joined with LF. Used to
// bound the volume of a streamed delta to the most recent screenful.
func TailLines(text string, n int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || n <= 0 {
		return ""
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
