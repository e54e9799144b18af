package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/waabox/opsdeck/internal/gitrepo"
)

func newGitCommand(a *app) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "git",
		Short: "Operations on the local git repository",
		Long: `Inspect and change the local repository through the git CLI.

Reads print their result or fail. Changes print true or false.`,
	}
	cmd.PersistentFlags().StringVar(&path, "path", "", "repository path (default: git.path from config, then the current directory)")

	open := func(ctx context.Context) (*gitrepo.Repo, error) {
		dir := path
		if dir == "" {
			dir = a.cfg.Git.Path
		}
		if dir == "" {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("getting current directory: %w", err)
			}
			dir = cwd
		}
		return gitrepo.Open(ctx, dir, a.recorder("git"))
	}

	// read wires a command whose result is printed as-is.
	read := func(use, short string, args cobra.PositionalArgs, fn func(context.Context, *gitrepo.Repo, []string) (any, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  args,
			RunE: func(cmd *cobra.Command, args []string) error {
				r, err := open(cmd.Context())
				if err != nil {
					return err
				}
				v, err := fn(cmd.Context(), r, args)
				if err != nil {
					return err
				}
				return a.printValue(cmd.OutOrStdout(), v)
			},
		}
	}

	cmd.AddCommand(read("branches", "List local branches", cobra.NoArgs,
		func(ctx context.Context, r *gitrepo.Repo, _ []string) (any, error) { return r.Branches(ctx) }))
	cmd.AddCommand(read("tags", "List tags", cobra.NoArgs,
		func(ctx context.Context, r *gitrepo.Repo, _ []string) (any, error) { return r.Tags(ctx) }))
	cmd.AddCommand(read("current-branch", "Print the checked out branch", cobra.NoArgs,
		func(ctx context.Context, r *gitrepo.Repo, _ []string) (any, error) { return r.CurrentBranch(ctx) }))
	cmd.AddCommand(read("show [rev]", "Show commit metadata", cobra.MaximumNArgs(1),
		func(ctx context.Context, r *gitrepo.Repo, args []string) (any, error) {
			rev := "HEAD"
			if len(args) == 1 {
				rev = args[0]
			}
			return r.Commit(ctx, rev)
		}))
	cmd.AddCommand(read("diff <ref> [ref]", "Diff two refs, or a ref against the work tree", cobra.RangeArgs(1, 2),
		func(ctx context.Context, r *gitrepo.Repo, args []string) (any, error) {
			other := ""
			if len(args) == 2 {
				other = args[1]
			}
			return r.Diff(ctx, args[0], other)
		}))
	cmd.AddCommand(read("status", "Show work tree status", cobra.NoArgs,
		func(ctx context.Context, r *gitrepo.Repo, _ []string) (any, error) { return r.Status(ctx) }))
	cmd.AddCommand(read("blame <file>", "Show blame of a file", cobra.ExactArgs(1),
		func(ctx context.Context, r *gitrepo.Repo, args []string) (any, error) { return r.Blame(ctx, args[0]) }))
	cmd.AddCommand(read("remote-url [remote]", "Print the URL of a remote", cobra.MaximumNArgs(1),
		func(ctx context.Context, r *gitrepo.Repo, args []string) (any, error) {
			return r.RemoteURL(ctx, argOr(args, 0, a.cfg.Git.RemoteOrDefault()))
		}))
	cmd.AddCommand(read("add <path>...", "Stage files", cobra.MinimumNArgs(1),
		func(ctx context.Context, r *gitrepo.Repo, args []string) (any, error) {
			return true, r.AddFiles(ctx, args...)
		}))
	cmd.AddCommand(read("commit <message>", "Commit the index and print the new SHA", cobra.ExactArgs(1),
		func(ctx context.Context, r *gitrepo.Repo, args []string) (any, error) {
			return r.CommitChanges(ctx, args[0])
		}))

	var limit int
	commits := read("commits [branch]", "List commit SHAs of a branch", cobra.MaximumNArgs(1),
		func(ctx context.Context, r *gitrepo.Repo, args []string) (any, error) {
			return r.Commits(ctx, argOr(args, 0, a.cfg.Git.BranchOrDefault()), limit)
		})
	commits.Flags().IntVar(&limit, "limit", 0, "maximum number of commits (0 means all)")
	cmd.AddCommand(commits)

	// mutate wires a booleanized command.
	mutate := func(use, short string, args cobra.PositionalArgs, fn func(context.Context, *gitrepo.Repo, []string) booleanized) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  args,
			RunE: func(cmd *cobra.Command, args []string) error {
				r, err := open(cmd.Context())
				if err != nil {
					return err
				}
				ok := fn(cmd.Context(), r, args).OK()
				fmt.Fprintln(cmd.OutOrStdout(), ok)
				if !ok {
					return fmt.Errorf("git %s failed", cmd.Name())
				}
				return nil
			},
		}
	}

	cmd.AddCommand(mutate("create-branch <name> [base]", "Create a branch without checking it out", cobra.RangeArgs(1, 2),
		func(ctx context.Context, r *gitrepo.Repo, args []string) booleanized {
			return r.CreateBranch(ctx, args[0], argOr(args, 1, ""))
		}))
	cmd.AddCommand(mutate("delete-branch <name>", "Delete a merged branch", cobra.ExactArgs(1),
		func(ctx context.Context, r *gitrepo.Repo, args []string) booleanized {
			return r.DeleteBranch(ctx, args[0])
		}))
	cmd.AddCommand(mutate("rename-branch <old> <new>", "Rename a branch", cobra.ExactArgs(2),
		func(ctx context.Context, r *gitrepo.Repo, args []string) booleanized {
			return r.RenameBranch(ctx, args[0], args[1])
		}))
	cmd.AddCommand(mutate("checkout <ref>", "Switch the work tree to ref", cobra.ExactArgs(1),
		func(ctx context.Context, r *gitrepo.Repo, args []string) booleanized {
			return r.Checkout(ctx, args[0])
		}))
	cmd.AddCommand(mutate("push [remote] [branch]", "Push a branch", cobra.MaximumNArgs(2),
		func(ctx context.Context, r *gitrepo.Repo, args []string) booleanized {
			return r.Push(ctx, argOr(args, 0, a.cfg.Git.RemoteOrDefault()), argOr(args, 1, a.cfg.Git.BranchOrDefault()))
		}))
	cmd.AddCommand(mutate("pull [remote] [branch]", "Pull a branch into the current one", cobra.MaximumNArgs(2),
		func(ctx context.Context, r *gitrepo.Repo, args []string) booleanized {
			return r.Pull(ctx, argOr(args, 0, a.cfg.Git.RemoteOrDefault()), argOr(args, 1, a.cfg.Git.BranchOrDefault()))
		}))
	cmd.AddCommand(mutate("fetch [remote]", "Fetch a remote", cobra.MaximumNArgs(1),
		func(ctx context.Context, r *gitrepo.Repo, args []string) booleanized {
			return r.Fetch(ctx, argOr(args, 0, a.cfg.Git.RemoteOrDefault()))
		}))
	cmd.AddCommand(mutate("merge <branch> [message]", "Merge a branch into the current one", cobra.RangeArgs(1, 2),
		func(ctx context.Context, r *gitrepo.Repo, args []string) booleanized {
			return r.Merge(ctx, args[0], argOr(args, 1, ""))
		}))
	cmd.AddCommand(mutate("reset [ref]", "Hard reset to ref", cobra.MaximumNArgs(1),
		func(ctx context.Context, r *gitrepo.Repo, args []string) booleanized {
			return r.ResetHard(ctx, argOr(args, 0, ""))
		}))
	cmd.AddCommand(mutate("add-remote <name> <url>", "Add a remote", cobra.ExactArgs(2),
		func(ctx context.Context, r *gitrepo.Repo, args []string) booleanized {
			return r.AddRemote(ctx, args[0], args[1])
		}))
	cmd.AddCommand(mutate("remove-remote <name>", "Remove a remote", cobra.ExactArgs(1),
		func(ctx context.Context, r *gitrepo.Repo, args []string) booleanized {
			return r.RemoveRemote(ctx, args[0])
		}))
	cmd.AddCommand(mutate("stash", "Stash local modifications", cobra.NoArgs,
		func(ctx context.Context, r *gitrepo.Repo, _ []string) booleanized {
			return r.Stash(ctx)
		}))
	cmd.AddCommand(mutate("stash-apply", "Apply the latest stash", cobra.NoArgs,
		func(ctx context.Context, r *gitrepo.Repo, _ []string) booleanized {
			return r.ApplyStash(ctx)
		}))

	cmd.AddCommand(&cobra.Command{
		Use:   "clone <url> <dest>",
		Short: "Clone a repository",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printOK(cmd, "git clone", gitrepo.Clone(cmd.Context(), args[0], args[1], a.recorder("git")))
		},
	})

	return cmd
}

// booleanized is the view every git mutation is reported through.
type booleanized interface{ OK() bool }

// argOr returns args[i], or def when it was not given.
func argOr(args []string, i int, def string) string {
	if i < len(args) && args[i] != "" {
		return args[i]
	}
	return def
}
