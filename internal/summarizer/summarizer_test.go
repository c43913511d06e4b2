package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeEmptyOutput(t *testing.T) {
	s := New()

	analysis := s.Analyze("")

	assert.False(t, analysis.HasChanges())
	assert.False(t, analysis.HasError)
	assert.False(t, analysis.IsCompleted)
	assert.Empty(t, analysis.FilesCreated)
	assert.Empty(t, analysis.Errors)
	assert.Zero(t, analysis.TestsPassed)
	assert.Zero(t, analysis.TestsFailed)
}

func TestFileCreatedDetection(t *testing.T) {
	s := New()

	analysis := s.Analyze("Created src/new_file.py\nWrite tests/test_new.py\n")

	require.Len(t, analysis.FilesCreated, 2)
	assert.Contains(t, analysis.FilesCreated, "src/new_file.py")
	assert.Contains(t, analysis.FilesCreated, "tests/test_new.py")
}

func TestFileModifiedDetection(t *testing.T) {
	s := New()

	analysis := s.Analyze("Modified src/existing.py\nUpdated config.json\nEdit README.md\n")

	require.Len(t, analysis.FilesModified, 3)
	assert.Contains(t, analysis.FilesModified, "src/existing.py")
	assert.Contains(t, analysis.FilesModified, "config.json")
}

func TestFileDeletedDetection(t *testing.T) {
	s := New()

	analysis := s.Analyze("Deleted old_file.py\nRemoved temp.txt\n")

	require.Len(t, analysis.FilesDeleted, 2)
	assert.Contains(t, analysis.FilesDeleted, "old_file.py")
	assert.Contains(t, analysis.FilesDeleted, "temp.txt")
}

func TestCommandExecutionDetection(t *testing.T) {
	s := New()

	analysis := s.Analyze("$ pytest tests/\nRunning: npm install\nBash (git status)\n")

	assert.GreaterOrEqual(t, len(analysis.CommandsExecuted), 2)
	assert.Contains(t, analysis.CommandsExecuted, "pytest tests/")
}

func TestErrorDetection(t *testing.T) {
	s := New()

	analysis := s.Analyze("Error: Something went wrong\nModuleNotFoundError: No module named 'foo'\nTypeError: unsupported operand type\n")

	assert.Len(t, analysis.Errors, 3)
	assert.True(t, analysis.HasError)
}

func TestErrorCapturedVerbatim(t *testing.T) {
	s := New()

	analysis := s.Analyze("ModuleNotFoundError: No module named 'x'\n")

	assert.True(t, analysis.HasError)
	assert.Contains(t, analysis.Errors, "No module named 'x'")
}

func TestWarningDetection(t *testing.T) {
	s := New()

	analysis := s.Analyze("Warning: Deprecated API\nWARNING: This is a warning\n")

	assert.Len(t, analysis.Warnings, 2)
	assert.False(t, analysis.HasError)
}

func TestTestCountsAccumulate(t *testing.T) {
	s := New()

	analysis := s.Analyze("5 passed\nOK (3 tests)\n")
	assert.Equal(t, 8, analysis.TestsPassed)

	analysis = s.Analyze("2 failed\nFAIL: test_something\n")
	assert.Equal(t, 3, analysis.TestsFailed)
}

func TestGitCommitDetection(t *testing.T) {
	s := New()

	analysis := s.Analyze("commit abc1234\n[main abc1234] Add new feature\n")

	// Same hash on both lines dedups to one entry.
	require.Len(t, analysis.GitCommits, 1)
	assert.Equal(t, "abc1234", analysis.GitCommits[0])
}

func TestGitPushDetection(t *testing.T) {
	s := New()

	analysis := s.Analyze("Pushed to origin/main\n")

	require.NotEmpty(t, analysis.GitPushes)
	assert.Equal(t, "origin/main", analysis.GitPushes[0])
}

func TestCompletionOnlyNearEnd(t *testing.T) {
	s := New()

	assert.True(t, s.Analyze("Some work...\nDone.\n").IsCompleted)

	// A completion marker buried early in long output does not count.
	buried := "Done.\na\nb\nc\nd\ne\nf\n"
	assert.False(t, s.Analyze(buried).IsCompleted)
}

func TestThinkingDetection(t *testing.T) {
	s := New()

	assert.True(t, s.Analyze("Thinking...\n").IsThinking)
	assert.False(t, s.Analyze("plain text\n").IsThinking)
}

func TestCleanFilePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"src/a.py", "src/a.py"},
		{"src/a.py.,;:)", "src/a.py"},
		{"(src/a.py", "src/a.py"},
		{`"src/a.py"`, "src/a.py"},
		{"'src/a.py'", "src/a.py"},
		{"  src/a.py  ", "src/a.py"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanFilePath(tt.in), "input %q", tt.in)
	}
}

func TestFilePathWithTrailingProse(t *testing.T) {
	s := New()

	analysis := s.Analyze("Created src/quoted.py successfully\n")

	require.Len(t, analysis.FilesCreated, 1)
	assert.Equal(t, "src/quoted.py", analysis.FilesCreated[0])
}

func TestDeduplicationKeepsInsertionOrder(t *testing.T) {
	s := New()

	analysis := s.Analyze("Created b.py\nCreated a.py\nCreated b.py\n")

	assert.Equal(t, []string{"b.py", "a.py"}, analysis.FilesCreated)
}

func TestComplexOutput(t *testing.T) {
	s := New()

	output := "Created src/a.py\nModified src/b.py\n$ pytest\n5 passed, 1 failed\ncommit abc1234\nDone.\n"
	analysis := s.Analyze(output)

	assert.Equal(t, []string{"src/a.py"}, analysis.FilesCreated)
	assert.Equal(t, []string{"src/b.py"}, analysis.FilesModified)
	assert.NotEmpty(t, analysis.CommandsExecuted)
	assert.Equal(t, 5, analysis.TestsPassed)
	assert.Equal(t, 1, analysis.TestsFailed)
	assert.Equal(t, []string{"abc1234"}, analysis.GitCommits)
	assert.True(t, analysis.IsCompleted)
	assert.False(t, analysis.HasError)
	assert.True(t, analysis.HasChanges())
}

func TestStats(t *testing.T) {
	s := New()

	analysis := s.Analyze("Created file1.py\nCreated file2.py\nModified existing.py\n$ pytest\n3 passed\n")
	stats := analysis.Stats()

	assert.Equal(t, 2, stats["files_created"])
	assert.Equal(t, 1, stats["files_modified"])
	assert.Equal(t, 0, stats["files_deleted"])
	assert.Equal(t, 3, stats["tests_passed"])
	assert.Equal(t, true, stats["has_changes"])
}

func TestStatelessAcrossCalls(t *testing.T) {
	s := New()

	first := s.Analyze("3 passed\n")
	second := s.Analyze("3 passed\n")

	assert.Equal(t, first.TestsPassed, second.TestsPassed)
}
