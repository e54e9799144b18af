package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/waabox/opsdeck/internal/auth"
	"github.com/waabox/opsdeck/internal/config"
)

func newAuthCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Log in to remote systems",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "github",
		Short: "Log in to GitHub with the device flow and store the token",
		Long: `Start the GitHub OAuth device flow using github.client_id from the config.

The granted token is written to the config file, which is created with 0600
permissions when missing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.loginGitHub(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Authenticated. Token saved to %s\n", a.configPath)
			return nil
		},
	})

	return cmd
}

// loginGitHub runs the device flow interactively and persists the token.
// Prompts go to stderr so stdout stays clean for piping.
func (a *app) loginGitHub(ctx context.Context) error {
	if a.cfg.GitHub.ClientID == "" {
		return fmt.Errorf("github.client_id is not set: add it to %s", a.configPath)
	}
	flow := auth.NewGitHubDeviceFlow(a.cfg.GitHub.ClientID, "")
	token, err := flow.Login(ctx, func(code auth.DeviceCodeResponse) {
		fmt.Fprintf(os.Stderr, "Visit:      %s\n", code.VerificationURI)
		fmt.Fprintf(os.Stderr, "Enter code: %s\n", code.UserCode)
		fmt.Fprintf(os.Stderr, "Waiting for authorization...\n")
	})
	if err != nil {
		return fmt.Errorf("github authentication failed: %w", err)
	}
	a.storeGitHubToken(token.AccessToken)
	return nil
}

// storeGitHubToken keeps the token for this run and writes it to the config
// file. A failed write only costs a new login next time, so it is logged.
func (a *app) storeGitHubToken(token string) {
	a.cfg.GitHub.Token = token
	if err := config.Save(a.configPath, a.cfg); err != nil {
		a.log.Warn().Err(err).Str("path", a.configPath).Msg("could not save token; you will need to log in again next run")
	}
}
