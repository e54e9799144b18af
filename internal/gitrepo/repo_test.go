package gitrepo_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/waabox/opsdeck/internal/domain"
	"github.com/waabox/opsdeck/internal/gitrepo"
	"github.com/waabox/opsdeck/internal/telemetry"
)

// gitCmd runs git in dir for test setup.
func gitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
	return strings.TrimSpace(string(out))
}

// newRepo creates a repository on branch main with one commit.
func newRepo(t *testing.T) (*gitrepo.Repo, string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	gitCmd(t, dir, "init", "-q")
	gitCmd(t, dir, "symbolic-ref", "HEAD", "refs/heads/main")
	gitCmd(t, dir, "config", "user.email", "dev@example.com")
	gitCmd(t, dir, "config", "user.name", "Dev")
	gitCmd(t, dir, "config", "commit.gpgsign", "false")
	writeFile(t, dir, "README.md", "hello\n")
	gitCmd(t, dir, "add", "README.md")
	gitCmd(t, dir, "commit", "-q", "-m", "initial commit")

	repo, err := gitrepo.Open(context.Background(), dir, telemetry.NopRecorder("git"))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	return repo, dir
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestOpen_FailsOutsideWorkTree(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	_, err := gitrepo.Open(context.Background(), t.TempDir(), telemetry.NopRecorder("git"))
	if err == nil {
		t.Fatal("expected error for a directory that is not a repository")
	}
	var ce *gitrepo.CommandError
	if !errors.As(err, &ce) {
		t.Errorf("expected CommandError in chain, got %T", err)
	}
}

func TestReads_BranchesTagsCurrentBranch(t *testing.T) {
	repo, dir := newRepo(t)
	ctx := context.Background()
	gitCmd(t, dir, "tag", "v1.0.0")

	branch, err := repo.CurrentBranch(ctx)
	if err != nil || branch != "main" {
		t.Fatalf("expected main, got %q (%v)", branch, err)
	}
	tags, err := repo.Tags(ctx)
	if err != nil || len(tags) != 1 || tags[0] != "v1.0.0" {
		t.Errorf("unexpected tags %v (%v)", tags, err)
	}
	branches, err := repo.Branches(ctx)
	if err != nil || len(branches) != 1 {
		t.Errorf("unexpected branches %v (%v)", branches, err)
	}
}

func TestCreateBranch_FromBaseAndDuplicateFails(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	if !repo.CreateBranch(ctx, "feature", "main").OK() {
		t.Fatal("expected branch creation to succeed")
	}
	dup := repo.CreateBranch(ctx, "feature", "")
	if dup.OK() {
		t.Fatal("expected duplicate branch creation to fail")
	}
	if domain.KindOf(dup.Err()) != domain.KindConflict {
		t.Errorf("expected conflict kind, got %s (%v)", domain.KindOf(dup.Err()), dup.Err())
	}
	branches, _ := repo.Branches(ctx)
	if strings.Join(branches, ",") != "feature,main" {
		t.Errorf("unexpected branches %v", branches)
	}
}

func TestDeleteAndRenameBranch(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	repo.CreateBranch(ctx, "old", "")

	if !repo.RenameBranch(ctx, "old", "new").OK() {
		t.Fatal("expected rename to succeed")
	}
	if !repo.DeleteBranch(ctx, "new").OK() {
		t.Fatal("expected delete to succeed")
	}
	if repo.DeleteBranch(ctx, "missing").OK() {
		t.Error("expected delete of a missing branch to be false")
	}
}

func TestCommitChanges_AddFilesAndHistory(t *testing.T) {
	repo, dir := newRepo(t)
	ctx := context.Background()
	writeFile(t, dir, "main.go", "package main\n")

	if err := repo.AddFiles(ctx, "main.go"); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	sha, err := repo.CommitChanges(ctx, "add main\n\nwith body")
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	c, err := repo.Commit(ctx, sha)
	if err != nil {
		t.Fatalf("get commit failed: %v", err)
	}
	if c.SHA != sha || c.Author != "Dev" || c.Message != "add main\n\nwith body" || len(c.Parents) != 1 {
		t.Errorf("unexpected commit %+v", c)
	}

	all, err := repo.Commits(ctx, "main", 0)
	if err != nil || len(all) != 2 || all[0] != sha {
		t.Errorf("unexpected history %v (%v)", all, err)
	}
	limited, _ := repo.Commits(ctx, "main", 1)
	if len(limited) != 1 {
		t.Errorf("expected limit to apply, got %v", limited)
	}
}

func TestReads_PropagateFailures(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	if _, err := repo.Commit(ctx, "deadbeef"); err == nil {
		t.Error("expected error for unknown commit")
	}
	if _, err := repo.Blame(ctx, "missing.txt"); err == nil {
		t.Error("expected error for blame of missing file")
	}
	if _, err := repo.RemoteURL(ctx, "origin"); err == nil {
		t.Error("expected error for missing remote")
	}
}

func TestStatusDiffAndBlame(t *testing.T) {
	repo, dir := newRepo(t)
	ctx := context.Background()
	writeFile(t, dir, "README.md", "hello\nworld\n")
	writeFile(t, dir, "new.txt", "x")

	st, err := repo.Status(ctx)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if st.Clean || st.Branch != "main" {
		t.Errorf("unexpected status %+v", st)
	}
	if len(st.Modified) != 1 || st.Modified[0] != "README.md" {
		t.Errorf("expected README.md modified, got %v", st.Modified)
	}
	if len(st.Untracked) != 1 || st.Untracked[0] != "new.txt" {
		t.Errorf("expected new.txt untracked, got %v", st.Untracked)
	}

	diff, err := repo.Diff(ctx, "HEAD", "")
	if err != nil || !strings.Contains(diff, "+world") {
		t.Errorf("unexpected diff %q (%v)", diff, err)
	}
	blame, err := repo.Blame(ctx, "README.md")
	if err != nil || !strings.Contains(blame, "hello") {
		t.Errorf("unexpected blame %q (%v)", blame, err)
	}
}

func TestStatus_StagedAndModifiedRenamesAndSpaces(t *testing.T) {
	repo, dir := newRepo(t)
	ctx := context.Background()
	writeFile(t, dir, "notes.txt", "one\n")
	gitCmd(t, dir, "add", "notes.txt")
	gitCmd(t, dir, "commit", "-q", "-m", "add notes")

	writeFile(t, dir, "README.md", "hello\nstaged\n")
	gitCmd(t, dir, "add", "README.md")
	writeFile(t, dir, "README.md", "hello\nstaged\nunstaged\n")
	gitCmd(t, dir, "mv", "notes.txt", "docs notes.txt")

	st, err := repo.Status(ctx)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if strings.Join(st.Staged, ",") != "README.md,docs notes.txt" {
		t.Errorf("unexpected staged files %q", st.Staged)
	}
	if strings.Join(st.Modified, ",") != "README.md" {
		t.Errorf("unexpected modified files %q", st.Modified)
	}
	if len(st.Untracked) != 0 || st.Clean {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestBlame_ReadsCommittedContent(t *testing.T) {
	repo, dir := newRepo(t)
	writeFile(t, dir, "README.md", "hello\nuncommitted\n")

	blame, err := repo.Blame(context.Background(), "README.md")
	if err != nil {
		t.Fatalf("blame failed: %v", err)
	}
	if !strings.Contains(blame, "hello") || strings.Contains(blame, "uncommitted") {
		t.Errorf("expected blame of the committed file, got %q", blame)
	}
}

func TestStashAndApplyStash(t *testing.T) {
	repo, dir := newRepo(t)
	ctx := context.Background()

	if repo.ApplyStash(ctx).OK() {
		t.Error("expected apply with no stash entries to fail")
	}
	writeFile(t, dir, "README.md", "changed\n")
	if !repo.Stash(ctx).OK() {
		t.Fatal("expected stash to succeed")
	}
	if st, _ := repo.Status(ctx); !st.Clean {
		t.Errorf("expected clean tree after stash, got %+v", st)
	}
	if !repo.ApplyStash(ctx).OK() {
		t.Fatal("expected apply stash to succeed")
	}
	if data, _ := os.ReadFile(filepath.Join(dir, "README.md")); string(data) != "changed\n" {
		t.Errorf("expected stashed content back, got %q", data)
	}
}

func TestCheckoutMergeAndReset(t *testing.T) {
	repo, dir := newRepo(t)
	ctx := context.Background()

	repo.CreateBranch(ctx, "topic", "")
	if !repo.Checkout(ctx, "topic").OK() {
		t.Fatal("expected checkout to succeed")
	}
	writeFile(t, dir, "topic.txt", "t")
	repo.AddFiles(ctx, "topic.txt")
	repo.CommitChanges(ctx, "topic work")

	repo.Checkout(ctx, "main")
	if !repo.Merge(ctx, "topic", "merge topic").OK() {
		t.Fatal("expected merge to succeed")
	}
	if _, err := os.Stat(filepath.Join(dir, "topic.txt")); err != nil {
		t.Errorf("expected merged file: %v", err)
	}

	writeFile(t, dir, "README.md", "dirty\n")
	if !repo.ResetHard(ctx, "").OK() {
		t.Fatal("expected reset to succeed")
	}
	if data, _ := os.ReadFile(filepath.Join(dir, "README.md")); string(data) != "hello\n" {
		t.Errorf("expected reset content, got %q", data)
	}
	if repo.Checkout(ctx, "no-such-branch").OK() {
		t.Error("expected checkout of unknown ref to fail")
	}
}

func TestRemotes_PushPullFetchAndClone(t *testing.T) {
	repo, dir := newRepo(t)
	ctx := context.Background()
	bare := filepath.Join(t.TempDir(), "remote.git")
	gitCmd(t, filepath.Dir(bare), "init", "-q", "--bare", bare)
	gitCmd(t, bare, "symbolic-ref", "HEAD", "refs/heads/main")

	if !repo.AddRemote(ctx, "origin", bare).OK() {
		t.Fatal("expected add remote to succeed")
	}
	if repo.AddRemote(ctx, "origin", bare).OK() {
		t.Error("expected duplicate remote to fail")
	}
	if url, err := repo.RemoteURL(ctx, "origin"); err != nil || url != bare {
		t.Errorf("unexpected remote url %q (%v)", url, err)
	}
	if !repo.Push(ctx, "origin", "main").OK() {
		t.Fatal("expected push to succeed")
	}

	dest := filepath.Join(t.TempDir(), "clone")
	cloned := gitrepo.Clone(ctx, bare, dest, telemetry.NopRecorder("git"))
	if !cloned.OK() {
		t.Fatalf("expected clone to succeed: %v", cloned.Err())
	}
	other := cloned.OrEmpty()
	gitCmd(t, other.Dir(), "config", "user.email", "other@example.com")
	gitCmd(t, other.Dir(), "config", "user.name", "Other")
	writeFile(t, other.Dir(), "other.txt", "o")
	other.AddFiles(ctx, "other.txt")
	other.CommitChanges(ctx, "from clone")
	if !other.Push(ctx, "origin", "main").OK() {
		t.Fatal("expected push from clone to succeed")
	}

	if !repo.Fetch(ctx, "origin").OK() {
		t.Fatal("expected fetch to succeed")
	}
	if !repo.Pull(ctx, "origin", "main").OK() {
		t.Fatal("expected pull to succeed")
	}
	if _, err := os.Stat(filepath.Join(dir, "other.txt")); err != nil {
		t.Errorf("expected pulled file: %v", err)
	}

	if !repo.RemoveRemote(ctx, "origin").OK() {
		t.Fatal("expected remove remote to succeed")
	}
	if repo.Fetch(ctx, "origin").OK() {
		t.Error("expected fetch from removed remote to fail")
	}
	if gitrepo.Clone(ctx, filepath.Join(t.TempDir(), "missing.git"), filepath.Join(t.TempDir(), "x"), telemetry.NopRecorder("git")).OK() {
		t.Error("expected clone of missing repository to fail")
	}
}

func TestGitHubRepository_ParsesRemote(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	repo.AddRemote(ctx, "upstream", "git@github.com:waabox/opsdeck.git")

	gh, err := repo.GitHubRepository(ctx, "upstream")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gh.Owner != "waabox" || gh.Name != "opsdeck" {
		t.Errorf("unexpected repository %+v", gh)
	}
}
