package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var (
	// ErrNotRepository is returned when the directory is not inside a git work tree.
	ErrNotRepository = errors.New("not a git repository")

	// ErrGitNotFound is returned when the git binary is not installed.
	ErrGitNotFound = errors.New("git executable not found")
)

// Runner executes git with args in dir and returns its standard output.
// A non-zero exit status is reported as an error wrapping a value with an
// ExitCode() int method, such as *exec.ExitError.
type Runner func(ctx context.Context, dir string, args ...string) (string, error)

// ExecRunner runs the real git binary.
func ExecRunner(ctx context.Context, dir string, args ...string) (string, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return "", ErrGitNotFound
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return stdout.String(), fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
		}
		return stdout.String(), fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), msg, err)
	}
	return stdout.String(), nil
}

// Git operates on the repository containing Dir.
type Git struct {
	// Dir is the working directory for git commands.
	Dir string

	// UserName and UserEmail, when set, are written to the repository
	// config before committing.
	UserName  string
	UserEmail string

	// Run executes git; nil means ExecRunner.
	Run Runner
}

// SyncResult describes what Sync did.
type SyncResult struct {
	// Changed is true if the staged diff was non-empty.
	Changed bool `json:"changed"`

	// Committed is true if a commit was created.
	Committed bool `json:"committed"`

	// Pushed is true if the push succeeded.
	Pushed bool `json:"pushed"`
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	run := g.Run
	if run == nil {
		run = ExecRunner
	}
	return run(ctx, g.Dir, args...)
}

// IsRepository reports whether Dir is inside a git work tree.
func (g *Git) IsRepository(ctx context.Context) bool {
	out, err := g.run(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

// ListFiles returns the paths of all tracked files, relative to Dir.
func (g *Git) ListFiles(ctx context.Context) ([]string, error) {
	if !g.IsRepository(ctx) {
		return nil, ErrNotRepository
	}
	out, err := g.run(ctx, "ls-files", "-z")
	if err != nil {
		return nil, err
	}
	files := make([]string, 0)
	for _, f := range strings.Split(out, "\x00") {
		if f != "" {
			files = append(files, f)
		}
	}
	return files, nil
}

// Sync stages path, commits it with message if anything changed, and
// pushes when push is true. The returned result is valid even when an
// error is returned, and tells how far the sync got.
func (g *Git) Sync(ctx context.Context, path, message string, push bool) (SyncResult, error) {
	var result SyncResult

	if g.UserName != "" {
		if _, err := g.run(ctx, "config", "user.name", g.UserName); err != nil {
			return result, err
		}
	}
	if g.UserEmail != "" {
		if _, err := g.run(ctx, "config", "user.email", g.UserEmail); err != nil {
			return result, err
		}
	}

	// -A also stages deletions of artifacts removed by a reset.
	if _, err := g.run(ctx, "add", "-A", "--", path); err != nil {
		return result, err
	}

	changed, err := g.hasStagedChanges(ctx)
	if err != nil {
		return result, err
	}
	result.Changed = changed
	if !changed {
		return result, nil
	}

	if _, err := g.run(ctx, "commit", "-m", message); err != nil {
		return result, err
	}
	result.Committed = true

	if !push {
		return result, nil
	}
	if _, err := g.run(ctx, "push"); err != nil {
		return result, err
	}
	result.Pushed = true
	return result, nil
}

// hasStagedChanges runs "git diff --cached --quiet", which exits 1 when
// the index differs from HEAD.
func (g *Git) hasStagedChanges(ctx context.Context) (bool, error) {
	_, err := g.run(ctx, "diff", "--cached", "--quiet")
	if err == nil {
		return false, nil
	}
	var exitErr interface{ ExitCode() int }
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return true, nil
	}
	return false, err
}
