// Package gitutil provisions isolated git worktrees for sessions.
//
// Every function shells out to git with a bounded timeout and reports failure
// through return values rather than panics. Worktree management is best-effort
// by contract: session creation and destruction proceed even when a git
// operation fails, so callers log errors and move on.
package gitutil

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	shortTimeout = 5 * time.Second
	longTimeout  = 30 * time.Second

	// branchPrefix namespaces session branches away from user branches.
	branchPrefix = "cc/"

	// worktreeDir is where per-session checkouts live inside the repo.
	worktreeDir = ".worktrees"
)

func runGit(dir string, timeout time.Duration, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	out, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(out))
		if detail == "" {
			detail = err.Error()
		}
		return "", fmt.Errorf("git %s: %s", args[0], detail)
	}
	return strings.TrimSpace(string(out)), nil
}

// IsRepo reports whether path is inside a git work tree.
func IsRepo(path string) bool {
	out, err := runGit(expandHome(path), shortTimeout, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// Root returns the repository root for path, or "" when path is not inside a
// repository.
func Root(path string) string {
	out, err := runGit(expandHome(path), shortTimeout, "rev-parse", "--show-toplevel")
	if err != nil {
		return ""
	}
	return out
}

// CurrentBranch returns the checked-out branch name, or "" on error.
func CurrentBranch(repoPath string) string {
	out, err := runGit(repoPath, shortTimeout, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return ""
	}
	return out
}

var branchSlugInvalid = regexp.MustCompile(`[^a-z0-9-]`)
var branchSlugSpaces = regexp.MustCompile(`[\s_]+`)
var branchSlugDashes = regexp.MustCompile(`-+`)

// GenerateBranchName derives a valid, unique branch name from a session name,
// e.g. "My Feature" -> "cc/my-feature-a1b2c3".
func GenerateBranchName(sessionName string) string {
	slug := strings.ToLower(sessionName)
	slug = branchSlugSpaces.ReplaceAllString(slug, "-")
	slug = branchSlugInvalid.ReplaceAllString(slug, "")
	slug = branchSlugDashes.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return branchPrefix + slug + "-" + suffix
}

// WorktreePath returns where the worktree for a branch is created:
// {root}/.worktrees/{branch-with-slashes-flattened}.
func WorktreePath(gitRoot, branchName string) string {
	return filepath.Join(gitRoot, worktreeDir, strings.ReplaceAll(branchName, "/", "-"))
}

// Worktree describes one entry from `git worktree list`.
type Worktree struct {
	Path   string
	Head   string
	Branch string
}

// ListWorktrees returns all worktrees of the repository. Errors yield an
// empty list.
func ListWorktrees(repoPath string) []Worktree {
	out, err := runGit(repoPath, longTimeout, "worktree", "list", "--porcelain")
	if err != nil {
		return nil
	}
	return parseWorktrees(out)
}

func parseWorktrees(porcelain string) []Worktree {
	var worktrees []Worktree
	var current Worktree

	flush := func() {
		if current.Path != "" {
			worktrees = append(worktrees, current)
			current = Worktree{}
		}
	}

	for _, line := range strings.Split(porcelain, "\n") {
		switch {
		case strings.HasPrefix(line, "worktree "):
			flush()
			current.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "HEAD "):
			current.Head = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch refs/heads/"):
			current.Branch = strings.TrimPrefix(line, "branch refs/heads/")
		case line == "":
			flush()
		}
	}
	flush()

	return worktrees
}

// CreateWorktree creates a new worktree with a new branch and returns its
// path. baseBranch may be empty to branch from the current HEAD.
func CreateWorktree(repoPath, branchName, baseBranch string) (string, error) {
	gitRoot := Root(repoPath)
	if gitRoot == "" {
		return "", fmt.Errorf("not a git repository: %s", repoPath)
	}

	worktreePath := WorktreePath(gitRoot, branchName)
	if err := os.MkdirAll(filepath.Dir(worktreePath), 0o755); err != nil {
		return "", fmt.Errorf("create worktrees directory: %w", err)
	}

	args := []string{"worktree", "add", "-b", branchName, worktreePath}
	if baseBranch != "" {
		args = append(args, baseBranch)
	}

	if _, err := runGit(repoPath, longTimeout, args...); err != nil {
		return "", err
	}
	return worktreePath, nil
}

// RemoveWorktree removes a worktree checkout. A path that no longer exists is
// treated as already removed.
func RemoveWorktree(worktreePath string, force bool) error {
	expanded := expandHome(worktreePath)

	if _, err := os.Stat(expanded); os.IsNotExist(err) {
		return nil
	}

	gitRoot := Root(expanded)
	if gitRoot == "" {
		return fmt.Errorf("not a git worktree: %s", worktreePath)
	}

	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, expanded)

	_, err := runGit(gitRoot, longTimeout, args...)
	return err
}

// DeleteBranch deletes a branch, forcing when it is unmerged.
func DeleteBranch(repoPath, branchName string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	_, err := runGit(repoPath, shortTimeout, "branch", flag, branchName)
	return err
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
