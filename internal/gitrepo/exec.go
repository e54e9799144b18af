package gitrepo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/waabox/opsdeck/internal/domain"
)

const system = "git"

// CommandError describes a git invocation that exited unsuccessfully.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s: exit %d", strings.Join(e.Args, " "), e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// run executes git in dir and returns trimmed stdout. Failures come back as a
// *domain.RemoteError wrapping a *CommandError, classified from stderr.
func run(ctx context.Context, dir, op string, args ...string) (string, error) {
	full := args
	if dir != "" {
		full = append([]string{"-C", dir}, args...)
	}
	cmd := exec.CommandContext(ctx, "git", full...)
	// Never block on a credential prompt.
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		ce := &CommandError{
			Args:     args,
			ExitCode: code,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
		detail := ce.Stderr
		if detail == "" {
			detail = strings.TrimSpace(stdout.String())
		}
		return "", &domain.RemoteError{
			System: system,
			Op:     op,
			Kind:   classify(ce),
			Detail: detail,
			Err:    ce,
		}
	}
	return strings.TrimRight(stdout.String(), "\n"), nil
}

func classify(e *CommandError) domain.ErrorKind {
	if e.ExitCode < 0 {
		return domain.KindTransient
	}
	s := strings.ToLower(e.Stderr)
	switch {
	case containsAny(s, "not found", "does not exist", "unknown revision", "did not match any",
		"not a valid", "no such remote", "no stash entries", "not a git repository"):
		return domain.KindNotFound
	case containsAny(s, "permission denied", "authentication failed", "could not read username", "403"):
		return domain.KindDenied
	case containsAny(s, "already exists", "rejected", "conflict", "non-fast-forward",
		"would be overwritten", "not fully merged", "unmerged"):
		return domain.KindConflict
	case containsAny(s, "could not resolve host", "unable to access", "connection", "timed out"):
		return domain.KindTransient
	}
	return domain.KindInvalid
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func lines(out string) []string {
	if out == "" {
		return []string{}
	}
	return strings.Split(out, "\n")
}
