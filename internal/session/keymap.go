package session

import "regexp"

// keyMap translates tmux-style key names into the byte sequences a terminal
// application expects. Unknown names are sent literally.
var keyMap = map[string]string{
	"C-c":       "\x03",
	"C-d":       "\x04",
	"C-l":       "\x0c",
	"C-z":       "\x1a",
	"Enter":     "\r",
	"Up":        "\x1b[A",
	"Down":      "\x1b[B",
	"Left":      "\x1b[D",
	"Right":     "\x1b[C",
	"Escape":    "\x1b",
	"Tab":       "\t",
	"Backspace": "\x7f",
	"Delete":    "\x1b[3~",
	"Home":      "\x1b[H",
	"End":       "\x1b[F",
	"PageUp":    "\x1b[5~",
	"PageDown":  "\x1b[6~",
}

// KeySequence resolves a key name to its byte sequence, falling back to the
// name itself for plain characters.
func KeySequence(key string) string {
	if seq, ok := keyMap[key]; ok {
		return seq
	}
	return key
}

// inputWaitPatterns mark a session as waiting for a human decision when any
// of them appears near the bottom of the screen.
var inputWaitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\[Y/n\]`),
	regexp.MustCompile(`(?i)\[y/N\]`),
	regexp.MustCompile(`(?i)Continue\?`),
	regexp.MustCompile(`(?i)Proceed\?`),
	regexp.MustCompile(`(?i)Are you sure\?`),
	regexp.MustCompile(`(?i)\(yes/no\)`),
}

// promptScanLines is how many trailing lines are inspected for an input
// prompt. Prompts sit at the bottom of the screen; scanning the whole capture
// would flag prompts that were already answered.
const promptScanLines = 5

func isWaitingInput(content string) bool {
	tail := tailOf(content, promptScanLines)
	for _, p := range inputWaitPatterns {
		if p.MatchString(tail) {
			return true
		}
	}
	return false
}
