package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/waabox/opsdeck/internal/actions"
	"github.com/waabox/opsdeck/internal/auth"
	"github.com/waabox/opsdeck/internal/buildserver"
	"github.com/waabox/opsdeck/internal/domain"
	"github.com/waabox/opsdeck/internal/gitrepo"
	"github.com/waabox/opsdeck/internal/provider"
	"github.com/waabox/opsdeck/internal/tui"
)

func newBrowseCommand(a *app) *cobra.Command {
	var jenkinsJob string

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse pipelines in an interactive terminal UI",
		Long: `Open the pipeline browser for the repository in the current directory.

GitHub remotes show GitHub Actions runs. Any other remote, or --jenkins-job,
shows the builds of a Jenkins job instead. An expired GitHub token starts
the device flow from inside the browser when github.client_id is set.`,
		Example: `  # Workflow runs of the current repository
  opsdeck browse

  # Builds of a Jenkins job
  opsdeck browse --jenkins-job team/service/deploy`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if jenkinsJob != "" {
				source, err := a.jenkinsSource(ctx, jenkinsJob)
				if err != nil {
					return err
				}
				m := tui.NewAppModel(domain.Repository{Name: jenkinsJob}, source, tui.WithSource("Jenkins"))
				return tui.Run(ctx, m)
			}
			return a.browseRepository(ctx)
		},
	}
	cmd.Flags().StringVar(&jenkinsJob, "jenkins-job", "", "browse the builds of this Jenkins job")

	return cmd
}

func (a *app) browseRepository(ctx context.Context) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}
	local, err := gitrepo.Open(ctx, cwd, a.recorder("git"))
	if err != nil {
		return err
	}
	remoteURL, err := local.RemoteURL(ctx, a.cfg.Git.RemoteOrDefault())
	if err != nil {
		return fmt.Errorf("reading remote: %w", err)
	}

	registry := provider.NewRegistry()
	var github *actions.Client
	if repo, err := gitrepo.ParseRemoteURL(remoteURL); err == nil && provider.Host(remoteURL) == "github.com" {
		if a.cfg.GitHub.Token == "" {
			fmt.Fprintln(os.Stderr, "No GitHub token found. Starting OAuth authentication...")
			if err := a.loginGitHub(ctx); err != nil {
				return err
			}
		}
		github, err = a.actionsClient(ctx, repo.Owner, repo.Name)
		if err != nil {
			return err
		}
		source := actions.NewPipelineSource(github, a.cfg.PipelineLimitOrDefault())
		registry.Register("github.com", provider.NewAuthGuard(source, "github"))
	}
	if a.cfg.Jenkins.URL != "" {
		jobName := a.cfg.Jenkins.Job
		source, err := a.jenkinsSource(ctx, jobName)
		if err != nil {
			return err
		}
		registry.SetFallback(source)
	}

	source, err := registry.Detect(remoteURL)
	if err != nil {
		return fmt.Errorf("detecting CI provider: %w", err)
	}
	repo, err := gitrepo.ParseRemoteURL(remoteURL)
	if err != nil {
		return err
	}
	repo.RemoteURL = remoteURL

	opts := []tui.Option{tui.WithSource("Jenkins")}
	if github != nil {
		opts = []tui.Option{tui.WithSource("GitHub Actions")}
		if a.cfg.GitHub.ClientID != "" {
			opts = append(opts, tui.WithReAuth(a.gitHubReAuth(github)))
		}
	}
	return tui.Run(ctx, tui.NewAppModel(repo, source, opts...))
}

// gitHubReAuth lets the browser run the device flow itself when the token
// is rejected mid-session.
func (a *app) gitHubReAuth(github *actions.Client) tui.ReAuth {
	flow := auth.NewGitHubDeviceFlow(a.cfg.GitHub.ClientID, "")
	return tui.ReAuth{
		RequestCode: flow.RequestCode,
		PollToken:   flow.PollToken,
		Completed: func(resp auth.TokenResponse) {
			github.SetToken(resp.AccessToken)
			a.storeGitHubToken(resp.AccessToken)
		},
	}
}

func (a *app) jenkinsSource(ctx context.Context, job string) (domain.PipelineProvider, error) {
	client, err := buildserver.New(ctx, buildserver.Config{
		URL:      a.cfg.Jenkins.URL,
		Username: a.cfg.Jenkins.Username,
		Token:    a.cfg.Jenkins.Token,
		Recorder: a.recorder("jenkins"),
	})
	if err != nil {
		return nil, err
	}
	return buildserver.NewPipelineSource(client, job, a.cfg.PipelineLimitOrDefault()), nil
}
