package summarizer

import "regexp"

// PatternType classifies a matched line of terminal output.
type PatternType string

const (
	FileCreated     PatternType = "file_created"
	FileModified    PatternType = "file_modified"
	FileDeleted     PatternType = "file_deleted"
	FileRead        PatternType = "file_read"
	CommandExecuted PatternType = "command_executed"
	ErrorPattern    PatternType = "error"
	WarningPattern  PatternType = "warning"
	TestPassed      PatternType = "test_passed"
	TestFailed      PatternType = "test_failed"
	GitCommit       PatternType = "git_commit"
	GitPush         PatternType = "git_push"
	Thinking        PatternType = "thinking"
	Completion      PatternType = "completion"
)

// Pattern alternatives per category, in priority order. Within a category the
// first pattern that matches a line wins for that line; a line may still
// contribute to several different categories. The ordering is part of the
// output contract and must not be rearranged.
var patternSources = map[PatternType][]string{
	FileCreated: {
		`(?i)Created\s+([\w./\-]+\.[\w]+)`,
		`(?i)Created\s+([\w]+/[\w./\-]+)`,
		`(?i)Write\s+([\w./\-]+\.[\w]+)`,
		`(?i)Wrote\s+([\w./\-]+\.[\w]+)`,
		`(?i)Creating\s+([\w./\-]+\.[\w]+)`,
		`(?i)\+\s+([\w./\-]+\.[\w]+)(?:\s+\(created\))`,
	},
	FileModified: {
		`(?i)Modified\s+([\w./\-]+\.[\w]+)`,
		`(?i)Modified\s+([\w]+/[\w./\-]+)`,
		`(?i)Updated\s+([\w./\-]+\.[\w]+)`,
		`(?i)Edit\s+([\w./\-]+\.[\w]+)`,
		`(?i)Edited\s+([\w./\-]+\.[\w]+)`,
		`(?i)~\s+([\w./\-]+\.[\w]+)(?:\s+\(modified\))`,
	},
	FileDeleted: {
		`(?i)Deleted\s+([\w./\-]+\.[\w]+)`,
		`(?i)Removed\s+([\w./\-]+\.[\w]+)`,
		`(?i)-\s+([\w./\-]+\.[\w]+)(?:\s+\(deleted\))`,
	},
	FileRead: {
		`(?i)Read\s+([\w./\-]+\.[\w]+)`,
		`(?i)Reading\s+([\w./\-]+\.[\w]+)`,
	},
	CommandExecuted: {
		`(?i)^\$\s+(.+?)$`,
		`(?i)Running:\s+(.+?)$`,
		`(?i)Executing:\s+(.+?)$`,
		`(?i)Bash\s*\((.+?)\)`,
	},
	ErrorPattern: {
		`(?i)Error:\s*(.+?)$`,
		`(?i)ERROR:\s*(.+?)$`,
		`(?i)Exception:\s*(.+?)$`,
		`(?i)Traceback\s*\(most recent call last\)`,
		`(?i)ModuleNotFoundError:\s*(.+?)$`,
		`(?i)ImportError:\s*(.+?)$`,
		`(?i)SyntaxError:\s*(.+?)$`,
		`(?i)TypeError:\s*(.+?)$`,
		`(?i)ValueError:\s*(.+?)$`,
		`(?i)KeyError:\s*(.+?)$`,
		`(?i)AttributeError:\s*(.+?)$`,
		`(?i)NameError:\s*(.+?)$`,
		`(?i)FileNotFoundError:\s*(.+?)$`,
		`(?i)PermissionError:\s*(.+?)$`,
	},
	WarningPattern: {
		`(?i)Warning:\s*(.+?)$`,
		`(?i)WARNING:\s*(.+?)$`,
		`(?i)WARN:\s*(.+?)$`,
	},
	TestPassed: {
		`(?i)(\d+)\s+passed`,
		`(?i)OK\s*\((\d+)\s+test`,
		`(?i)(\d+)\s+tests?\s+passed`,
	},
	TestFailed: {
		`(?i)(\d+)\s+failed`,
		`(?i)FAIL:\s*(.+?)$`,
		`(?i)(\d+)\s+tests?\s+failed`,
	},
	GitCommit: {
		`(?i)commit\s+([a-f0-9]{7,40})`,
		`(?i)\[.+?\s+([a-f0-9]{7,40})\]`,
		`(?i)Committed:\s*(.+?)$`,
	},
	GitPush: {
		`(?i)push(?:ed)?\s+(?:to\s+)?(\S+)`,
		`(?i)Pushed\s+to\s+(.+?)$`,
	},
	Thinking: {
		`(?i)Thinking\.{3}`,
		`(?i)Processing\.{3}`,
		`(?i)Analyzing\.{3}`,
	},
	Completion: {
		`(?i)Done\.?$`,
		`(?i)Completed\.?$`,
		`(?i)Finished\.?$`,
		`(?i)Success\.?$`,
	},
}

func compilePatterns() map[PatternType][]*regexp.Regexp {
	compiled := make(map[PatternType][]*regexp.Regexp, len(patternSources))
	for pt, sources := range patternSources {
		regexps := make([]*regexp.Regexp, len(sources))
		for i, src := range sources {
			regexps[i] = regexp.MustCompile(src)
		}
		compiled[pt] = regexps
	}
	return compiled
}
