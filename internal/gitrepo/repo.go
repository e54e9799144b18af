// Package gitrepo drives a local git repository through the git CLI.
//
// Reads return (value, error). Mutations return a domain.Outcome whose OK view
// is the legacy boolean; the git stderr stays available through Err.
package gitrepo

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/waabox/opsdeck/internal/domain"
	"github.com/waabox/opsdeck/internal/telemetry"
)

// Repo is an opened work tree.
type Repo struct {
	dir string
	rec telemetry.Recorder
}

// Commit is the metadata of a single commit.
type Commit struct {
	SHA         string    `json:"sha"`
	Author      string    `json:"author"`
	AuthorEmail string    `json:"author_email"`
	Date        time.Time `json:"date"`
	Parents     []string  `json:"parents"`
	Message     string    `json:"message"`
}

// Status is the parsed porcelain status of the work tree.
type Status struct {
	Branch    string   `json:"branch"`
	Clean     bool     `json:"clean"`
	Staged    []string `json:"staged"`
	Modified  []string `json:"modified"`
	Untracked []string `json:"untracked"`
}

// Open verifies that path is inside a git work tree and returns a handle on it.
func Open(ctx context.Context, path string, rec telemetry.Recorder) (*Repo, error) {
	top, err := run(ctx, path, "open", "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("opening repository %s: %w", path, err)
	}
	return &Repo{dir: top, rec: rec}, nil
}

// Clone clones url into dest. It is the only operation that needs no open repository.
func Clone(ctx context.Context, url, dest string, rec telemetry.Recorder) domain.Outcome[*Repo] {
	start := time.Now()
	_, err := run(ctx, "", "clone", "clone", "--", url, dest)
	rec.Done("clone", start, err)
	if err != nil {
		return domain.Fail[*Repo](err)
	}
	repo, err := Open(ctx, dest, rec)
	return domain.From(repo, err)
}

// Dir returns the absolute path of the work tree root.
func (r *Repo) Dir() string {
	return r.dir
}

func (r *Repo) git(ctx context.Context, op string, args ...string) (out string, err error) {
	start := time.Now()
	defer func() { r.rec.Done(op, start, err) }()
	return run(ctx, r.dir, op, args...)
}

func (r *Repo) mutate(ctx context.Context, op string, args ...string) domain.Outcome[struct{}] {
	_, err := r.git(ctx, op, args...)
	return domain.From(struct{}{}, err)
}

// Branches lists local branch names.
func (r *Repo) Branches(ctx context.Context) ([]string, error) {
	out, err := r.git(ctx, "list branches", "for-each-ref", "--format=%(refname:short)", "refs/heads")
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

// Tags lists tag names.
func (r *Repo) Tags(ctx context.Context) ([]string, error) {
	out, err := r.git(ctx, "list tags", "for-each-ref", "--format=%(refname:short)", "refs/tags")
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

// CurrentBranch returns the checked out branch. A detached HEAD is an error.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	return r.git(ctx, "current branch", "symbolic-ref", "--short", "HEAD")
}

const commitFormat = "%H%x1f%an%x1f%ae%x1f%aI%x1f%P%x1f%B"

// Commit returns the metadata of rev.
func (r *Repo) Commit(ctx context.Context, rev string) (Commit, error) {
	out, err := r.git(ctx, "get commit", "show", "-s", "--format="+commitFormat, rev, "--")
	if err != nil {
		return Commit{}, err
	}
	fields := strings.SplitN(out, "\x1f", 6)
	if len(fields) != 6 {
		return Commit{}, fmt.Errorf("unexpected git show output for %s", rev)
	}
	date, _ := time.Parse(time.RFC3339, fields[3])
	var parents []string
	if fields[4] != "" {
		parents = strings.Fields(fields[4])
	}
	return Commit{
		SHA:         fields[0],
		Author:      fields[1],
		AuthorEmail: fields[2],
		Date:        date,
		Parents:     parents,
		Message:     strings.TrimSpace(fields[5]),
	}, nil
}

// Commits returns the SHAs reachable from branch, newest first.
// limit <= 0 means no limit.
func (r *Repo) Commits(ctx context.Context, branch string, limit int) ([]string, error) {
	args := []string{"rev-list"}
	if limit > 0 {
		args = append(args, "--max-count="+strconv.Itoa(limit))
	}
	args = append(args, branch, "--")
	out, err := r.git(ctx, "list commits", args...)
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

// Diff returns the textual diff between refA and refB, or between refA and
// the work tree when refB is empty.
func (r *Repo) Diff(ctx context.Context, refA, refB string) (string, error) {
	args := []string{"diff", refA}
	if refB != "" {
		args = append(args, refB)
	}
	return r.git(ctx, "diff", append(args, "--")...)
}

// Status returns the parsed work tree status. A file staged and then edited
// again is listed as both staged and modified. Renames and copies list the
// new path.
func (r *Repo) Status(ctx context.Context) (Status, error) {
	out, err := r.git(ctx, "status", "status", "--porcelain=v1", "--branch", "-z")
	if err != nil {
		return Status{}, err
	}
	st := Status{Clean: true}
	entries := strings.Split(out, "\x00")
	for i := 0; i < len(entries); i++ {
		entry := entries[i]
		if strings.HasPrefix(entry, "## ") {
			branch := strings.TrimPrefix(entry, "## ")
			if j := strings.Index(branch, "..."); j >= 0 {
				branch = branch[:j]
			}
			st.Branch = strings.TrimPrefix(branch, "No commits yet on ")
			continue
		}
		if len(entry) < 4 {
			continue
		}
		st.Clean = false
		code, file := entry[:2], entry[3:]
		if code == "??" {
			st.Untracked = append(st.Untracked, file)
			continue
		}
		// The source path of a rename or copy follows as its own entry.
		if code[0] == 'R' || code[0] == 'C' {
			i++
		}
		if code[0] != ' ' {
			st.Staged = append(st.Staged, file)
		}
		if code[1] != ' ' {
			st.Modified = append(st.Modified, file)
		}
	}
	return st, nil
}

// Blame returns the blame output of a file at HEAD.
func (r *Repo) Blame(ctx context.Context, file string) (string, error) {
	return r.git(ctx, "blame", "blame", "HEAD", "--", file)
}

// RemoteURL returns the fetch URL of remote.
func (r *Repo) RemoteURL(ctx context.Context, remote string) (string, error) {
	return r.git(ctx, "remote url", "remote", "get-url", remote)
}

// GitHubRepository parses the URL of remote into an owner/name pair.
func (r *Repo) GitHubRepository(ctx context.Context, remote string) (domain.Repository, error) {
	url, err := r.RemoteURL(ctx, remote)
	if err != nil {
		return domain.Repository{}, err
	}
	return ParseRemoteURL(url)
}

// AddFiles stages paths.
func (r *Repo) AddFiles(ctx context.Context, paths ...string) error {
	_, err := r.git(ctx, "add files", append([]string{"add", "--"}, paths...)...)
	return err
}

// CommitChanges commits the index, even when it matches HEAD, and returns the new SHA.
func (r *Repo) CommitChanges(ctx context.Context, message string) (string, error) {
	if _, err := r.git(ctx, "commit", "commit", "--allow-empty", "-m", message); err != nil {
		return "", err
	}
	return r.git(ctx, "commit", "rev-parse", "HEAD")
}

// CreateBranch creates name at base without checking it out. An empty base means HEAD.
func (r *Repo) CreateBranch(ctx context.Context, name, base string) domain.Outcome[struct{}] {
	if base == "" {
		base = "HEAD"
	}
	return r.mutate(ctx, "create branch", "branch", name, base)
}

// DeleteBranch deletes a fully merged branch.
func (r *Repo) DeleteBranch(ctx context.Context, name string) domain.Outcome[struct{}] {
	return r.mutate(ctx, "delete branch", "branch", "-d", name)
}

// RenameBranch renames oldName to newName.
func (r *Repo) RenameBranch(ctx context.Context, oldName, newName string) domain.Outcome[struct{}] {
	return r.mutate(ctx, "rename branch", "branch", "-m", oldName, newName)
}

// Checkout switches the work tree to ref.
func (r *Repo) Checkout(ctx context.Context, ref string) domain.Outcome[struct{}] {
	return r.mutate(ctx, "checkout", "checkout", ref, "--")
}

// Push pushes branch to remote.
func (r *Repo) Push(ctx context.Context, remote, branch string) domain.Outcome[struct{}] {
	return r.mutate(ctx, "push", "push", remote, "refs/heads/"+branch)
}

// Pull fetches branch from remote and merges it into the current branch.
func (r *Repo) Pull(ctx context.Context, remote, branch string) domain.Outcome[struct{}] {
	return r.mutate(ctx, "pull", "pull", "--no-rebase", "--no-edit", remote, branch)
}

// Fetch updates the remote-tracking refs of remote.
func (r *Repo) Fetch(ctx context.Context, remote string) domain.Outcome[struct{}] {
	return r.mutate(ctx, "fetch", "fetch", remote)
}

// Merge merges branch into the current branch. An empty message keeps git's default.
func (r *Repo) Merge(ctx context.Context, branch, message string) domain.Outcome[struct{}] {
	args := []string{"merge", "--no-edit"}
	if message != "" {
		args = append(args, "-m", message)
	}
	return r.mutate(ctx, "merge", append(args, branch)...)
}

// ResetHard resets index and work tree to ref. An empty ref means HEAD.
func (r *Repo) ResetHard(ctx context.Context, ref string) domain.Outcome[struct{}] {
	if ref == "" {
		ref = "HEAD"
	}
	return r.mutate(ctx, "reset", "reset", "--hard", ref)
}

// AddRemote registers a new remote.
func (r *Repo) AddRemote(ctx context.Context, name, url string) domain.Outcome[struct{}] {
	return r.mutate(ctx, "add remote", "remote", "add", name, url)
}

// RemoveRemote deletes a remote and its tracking refs.
func (r *Repo) RemoveRemote(ctx context.Context, name string) domain.Outcome[struct{}] {
	return r.mutate(ctx, "remove remote", "remote", "remove", name)
}

// Stash saves and reverts local modifications.
func (r *Repo) Stash(ctx context.Context) domain.Outcome[struct{}] {
	return r.mutate(ctx, "stash", "stash", "push")
}

// ApplyStash applies the latest stash entry without dropping it.
func (r *Repo) ApplyStash(ctx context.Context) domain.Outcome[struct{}] {
	return r.mutate(ctx, "apply stash", "stash", "apply")
}
