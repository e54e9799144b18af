package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/waabox/opsdeck/internal/actions"
	"github.com/waabox/opsdeck/internal/domain"
	"github.com/waabox/opsdeck/internal/gitrepo"
)

func newActionsCommand(a *app) *cobra.Command {
	var owner, repo string

	cmd := &cobra.Command{
		Use:   "actions",
		Short: "GitHub Actions workflows, runs, logs and artifacts",
		Long: `Work with the GitHub Actions API of one repository.

The repository is taken from --owner/--repo, then from the [github] section of
the config, then from the origin remote of the current directory.`,
	}
	cmd.PersistentFlags().StringVar(&owner, "owner", "", "repository owner")
	cmd.PersistentFlags().StringVar(&repo, "repo", "", "repository name")

	connect := func(ctx context.Context) (*actions.Client, error) {
		return a.actionsClient(ctx, owner, repo)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "workflows",
		Short: "List workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			return a.printValue(cmd.OutOrStdout(), c.ListWorkflows(cmd.Context()).OrEmpty())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "resolve <workflow-path>",
		Short: "Print the ID of the workflow whose path matches exactly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			id := c.ResolveWorkflowID(cmd.Context(), args[0])
			if !id.OK() {
				return fmt.Errorf("no workflow with path %s", args[0])
			}
			return a.printValue(cmd.OutOrStdout(), id.OrEmpty())
		},
	})

	var ref string
	var inputs map[string]string
	dispatch := &cobra.Command{
		Use:     "dispatch <workflow>",
		Short:   "Trigger a workflow_dispatch event",
		Example: `  opsdeck actions dispatch deploy.yml --ref main --input env=staging`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			o := c.Dispatch(cmd.Context(), args[0], ref, inputs)
			return printMessage(cmd, actions.DispatchMessage(o), o)
		},
	}
	dispatch.Flags().StringVar(&ref, "ref", "main", "git ref to run the workflow on")
	dispatch.Flags().StringToStringVar(&inputs, "input", nil, "workflow input as key=value (repeatable)")
	cmd.AddCommand(dispatch)

	var limit int
	runs := &cobra.Command{
		Use:   "runs [workflow-id]",
		Short: "List runs of a workflow, or the latest runs of the repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) == 1 {
				return a.printValue(cmd.OutOrStdout(), c.ListRuns(cmd.Context(), args[0]).OrEmpty())
			}
			return a.printValue(cmd.OutOrStdout(), c.ListRecentRuns(cmd.Context(), limit).OrEmpty())
		},
	}
	runs.Flags().IntVar(&limit, "limit", 10, "number of recent runs")
	cmd.AddCommand(runs)

	cmd.AddCommand(&cobra.Command{
		Use:   "jobs <run-id>",
		Short: "List the jobs of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			return a.printValue(cmd.OutOrStdout(), c.ListRunJobs(cmd.Context(), args[0]).OrEmpty())
		},
	})

	var jobID string
	logs := &cobra.Command{
		Use:   "logs <run-id>",
		Short: "Print the logs of a run, or of one of its jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			if jobID != "" {
				o := c.JobLogs(cmd.Context(), args[0], jobID)
				return printMessage(cmd, actions.JobLogsMessage(args[0], jobID, o), o)
			}
			o := c.RunLogs(cmd.Context(), args[0])
			return printMessage(cmd, actions.RunLogsMessage(args[0], o), o)
		},
	}
	logs.Flags().StringVar(&jobID, "job", "", "job ID within the run")
	cmd.AddCommand(logs)

	cmd.AddCommand(&cobra.Command{
		Use:   "artifacts <run-id>",
		Short: "List the artifacts of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			return a.printValue(cmd.OutOrStdout(), c.ListArtifacts(cmd.Context(), args[0]).OrEmpty())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "download <artifact-id> <dest>",
		Short: "Download an artifact zip to dest",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			o := c.DownloadArtifact(cmd.Context(), args[0], args[1])
			return printMessage(cmd, actions.DownloadMessage(args[0], o), o)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "cancel <run-id>",
		Short: "Cancel a workflow run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			o := c.CancelRun(cmd.Context(), args[0])
			return printMessage(cmd, actions.CancelMessage(args[0], o), o)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rerun <run-id>",
		Short: "Rerun a workflow run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			o := c.RerunRun(cmd.Context(), args[0])
			return printMessage(cmd, actions.RerunMessage(args[0], o), o)
		},
	})

	return cmd
}

// actionsClient resolves the target repository and connects to it.
func (a *app) actionsClient(ctx context.Context, owner, repo string) (*actions.Client, error) {
	if owner == "" {
		owner = a.cfg.GitHub.Owner
	}
	if repo == "" {
		repo = a.cfg.GitHub.Repo
	}
	if owner == "" || repo == "" {
		detected, err := a.detectGitHubRepository(ctx)
		if err != nil {
			return nil, err
		}
		owner, repo = detected.Owner, detected.Name
	}
	return actions.New(ctx, actions.Config{
		Token:    a.cfg.GitHub.Token,
		Owner:    owner,
		Repo:     repo,
		BaseURL:  a.cfg.GitHub.APIURL,
		Recorder: a.recorder("github"),
	})
}

// detectGitHubRepository reads owner/name from the configured remote of the
// repository in the current directory.
func (a *app) detectGitHubRepository(ctx context.Context) (domain.Repository, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return domain.Repository{}, fmt.Errorf("getting current directory: %w", err)
	}
	r, err := gitrepo.Open(ctx, cwd, a.recorder("git"))
	if err != nil {
		return domain.Repository{}, fmt.Errorf("no repository given and %w", err)
	}
	repo, err := r.GitHubRepository(ctx, a.cfg.Git.RemoteOrDefault())
	if err != nil {
		return domain.Repository{}, fmt.Errorf("detecting repository from remote: %w", err)
	}
	return repo, nil
}
