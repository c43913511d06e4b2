// Package summarizer turns raw agent terminal output into a structured
// analysis: files touched, commands run, test counts, git activity, errors.
//
// Matching is line-by-line against ordered regex lists per category. The first
// matching pattern within a category wins for that line, so cost stays linear
// in lines × categories and results are deterministic. The analyzer keeps no
// state between calls; callers re-analyze whatever window of output they hold.
package summarizer

import (
	"regexp"
	"strconv"
	"strings"
)

// Match records one classified line.
type Match struct {
	Type    PatternType       `json:"type"`
	Content string            `json:"content"`
	Details map[string]string `json:"details,omitempty"`
}

// Analysis is the result of analyzing a window of terminal output. Lists keep
// insertion order with the first occurrence of each value.
type Analysis struct {
	FilesCreated  []string `json:"files_created"`
	FilesModified []string `json:"files_modified"`
	FilesDeleted  []string `json:"files_deleted"`
	FilesRead     []string `json:"files_read"`

	CommandsExecuted []string `json:"commands_executed"`

	TestsPassed int `json:"tests_passed"`
	TestsFailed int `json:"tests_failed"`

	GitCommits []string `json:"git_commits"`
	GitPushes  []string `json:"git_pushes"`

	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`

	IsThinking  bool `json:"is_thinking"`
	IsCompleted bool `json:"is_completed"`
	HasError    bool `json:"has_error"`

	Matches []Match `json:"matches,omitempty"`
}

// HasChanges reports whether the analysis found anything worth reporting.
func (a *Analysis) HasChanges() bool {
	return len(a.FilesCreated) > 0 ||
		len(a.FilesModified) > 0 ||
		len(a.FilesDeleted) > 0 ||
		len(a.CommandsExecuted) > 0 ||
		len(a.GitCommits) > 0 ||
		len(a.Errors) > 0 ||
		a.TestsPassed > 0 ||
		a.TestsFailed > 0
}

// Stats returns summary counts for the analysis, keyed for JSON rendering.
func (a *Analysis) Stats() map[string]any {
	return map[string]any{
		"files_created":     len(a.FilesCreated),
		"files_modified":    len(a.FilesModified),
		"files_deleted":     len(a.FilesDeleted),
		"commands_executed": len(a.CommandsExecuted),
		"tests_passed":      a.TestsPassed,
		"tests_failed":      a.TestsFailed,
		"errors":            len(a.Errors),
		"warnings":          len(a.Warnings),
		"git_commits":       len(a.GitCommits),
		"has_changes":       a.HasChanges(),
		"has_error":         a.HasError,
		"is_completed":      a.IsCompleted,
	}
}

// Summarizer analyzes terminal output for known patterns.
type Summarizer struct {
	patterns map[PatternType][]*regexp.Regexp
}

// New creates a summarizer with all patterns compiled.
func New() *Summarizer {
	return &Summarizer{patterns: compilePatterns()}
}

// completionScanLines bounds the completion-marker scan to the end of output,
// where a final "Done." actually signals completion rather than quoted text.
const completionScanLines = 5

// Analyze classifies output and returns the accumulated analysis.
func (s *Summarizer) Analyze(output string) *Analysis {
	analysis := &Analysis{}

	if output == "" {
		return analysis
	}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s.analyzeLine(line, analysis)
	}

	analysis.HasError = len(analysis.Errors) > 0

	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > completionScanLines {
		lines = lines[len(lines)-completionScanLines:]
	}
	for _, line := range lines {
		if matchesAny(s.patterns[Completion], line) {
			analysis.IsCompleted = true
			break
		}
	}

	analysis.IsThinking = matchesAny(s.patterns[Thinking], output)

	return analysis
}

var fileCategories = []PatternType{FileCreated, FileModified, FileDeleted, FileRead}

// analyzeLine runs every category over one line. Categories are independent:
// a "commit abc123" line is consumed by the git-commit category and must not
// also misfire as a generic command, which the per-category priority order
// guarantees.
func (s *Summarizer) analyzeLine(line string, analysis *Analysis) {
	for _, pt := range fileCategories {
		if captured, ok := firstMatch(s.patterns[pt], line); ok {
			path := cleanFilePath(captured)
			switch pt {
			case FileCreated:
				analysis.FilesCreated = appendUnique(analysis.FilesCreated, path)
			case FileModified:
				analysis.FilesModified = appendUnique(analysis.FilesModified, path)
			case FileDeleted:
				analysis.FilesDeleted = appendUnique(analysis.FilesDeleted, path)
			case FileRead:
				analysis.FilesRead = appendUnique(analysis.FilesRead, path)
			}
			analysis.Matches = append(analysis.Matches, Match{pt, line, map[string]string{"file": path}})
		}
	}

	if command, ok := firstMatch(s.patterns[CommandExecuted], line); ok {
		analysis.CommandsExecuted = appendUnique(analysis.CommandsExecuted, command)
		analysis.Matches = append(analysis.Matches, Match{CommandExecuted, line, map[string]string{"command": command}})
	}

	if errMsg, ok := firstMatch(s.patterns[ErrorPattern], line); ok {
		analysis.Errors = appendUnique(analysis.Errors, errMsg)
		analysis.Matches = append(analysis.Matches, Match{ErrorPattern, line, map[string]string{"error": errMsg}})
	}

	if warnMsg, ok := firstMatch(s.patterns[WarningPattern], line); ok {
		analysis.Warnings = appendUnique(analysis.Warnings, warnMsg)
		analysis.Matches = append(analysis.Matches, Match{WarningPattern, line, map[string]string{"warning": warnMsg}})
	}

	if captured, ok := firstMatch(s.patterns[TestPassed], line); ok {
		analysis.TestsPassed += countOrOne(captured)
		analysis.Matches = append(analysis.Matches, Match{TestPassed, line, nil})
	}

	if captured, ok := firstMatch(s.patterns[TestFailed], line); ok {
		analysis.TestsFailed += countOrOne(captured)
		analysis.Matches = append(analysis.Matches, Match{TestFailed, line, nil})
	}

	if commitHash, ok := firstMatch(s.patterns[GitCommit], line); ok {
		if commitHash != "" {
			analysis.GitCommits = appendUnique(analysis.GitCommits, commitHash)
		}
		analysis.Matches = append(analysis.Matches, Match{GitCommit, line, map[string]string{"hash": commitHash}})
	}

	if target, ok := firstMatch(s.patterns[GitPush], line); ok {
		if target != "" {
			analysis.GitPushes = appendUnique(analysis.GitPushes, target)
		}
		analysis.Matches = append(analysis.Matches, Match{GitPush, line, map[string]string{"target": target}})
	}
}

// firstMatch tries patterns in priority order and returns the first capture.
// Patterns with no capture group (bare markers) return the whole line.
func firstMatch(patterns []*regexp.Regexp, line string) (string, bool) {
	for _, p := range patterns {
		m := p.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if len(m) > 1 {
			return m[1], true
		}
		return line, true
	}
	return "", false
}

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// countOrOne interprets a numeric capture as a count, else counts one event.
func countOrOne(captured string) int {
	if n, err := strconv.Atoi(captured); err == nil {
		return n
	}
	return 1
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}

// cleanFilePath trims trailing punctuation and surrounding quotes that regex
// captures drag along from prose context.
func cleanFilePath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.TrimRight(path, ".,;:)")
	path = strings.TrimLeft(path, "(")

	if len(path) >= 2 {
		first, last := path[0], path[len(path)-1]
		if (first == '\'' || first == '"') && (last == '\'' || last == '"') {
			path = path[1 : len(path)-1]
		}
	}

	return path
}
