package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"offlinetasks/internal/config"
	"offlinetasks/internal/credentials"
	"offlinetasks/internal/utils"
)

func newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage the remote API token",
		Long: `Securely manage the bearer token used to reach the remote.

The token is looked up in this order:
  1. Environment variable OFFLINETASKS_REMOTE_TOKEN (good for CI/CD)
  2. System keyring, keyed by the remote host (recommended)
  3. Password part of remote.url (legacy - least secure)

Examples:
  # Store the token in the keyring (interactive prompt)
  offlinetasks credentials set --prompt

  # Check which source is used
  offlinetasks credentials get

  # Remove the token from the keyring
  offlinetasks credentials delete`,
	}

	cmd.AddCommand(newCredentialsSetCmd())
	cmd.AddCommand(newCredentialsGetCmd())
	cmd.AddCommand(newCredentialsDeleteCmd())

	return cmd
}

// remoteAccount returns the keyring account for --url or the configured remote.
func remoteAccount(remoteURL string) (string, error) {
	if remoteURL == "" {
		if env := credentials.GetRemoteURL(); env != "" {
			remoteURL = env
		} else {
			cfg, err := config.GetConfig()
			if err != nil {
				return "", err
			}
			remoteURL = cfg.Remote.URL
		}
	}
	if remoteURL == "" {
		return "", utils.ErrSyncNotConfigured()
	}
	return credentials.Account(remoteURL)
}

func newCredentialsSetCmd() *cobra.Command {
	var promptToken bool
	var remoteURL string

	cmd := &cobra.Command{
		Use:   "set [token]",
		Short: "Store the remote token in the system keyring",
		Long: `Store the remote token securely in the system keyring.

If --prompt is specified, the token is read without echo (recommended, the
token stays out of the shell history).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := remoteAccount(remoteURL)
			if err != nil {
				return err
			}

			var token string
			if promptToken {
				token, err = utils.PromptSecret(fmt.Sprintf("Enter token for %s: ", account))
				if err != nil {
					return err
				}
			} else if len(args) == 1 {
				token = args[0]
			} else {
				return fmt.Errorf("token is required (use --prompt for interactive input)")
			}
			if token == "" {
				return fmt.Errorf("token cannot be empty")
			}

			if err := credentials.Set(account, token); err != nil {
				if !credentials.IsAvailable() {
					return utils.WrapWithSuggestion(
						fmt.Errorf("system keyring is not available"),
						fmt.Sprintf("Use the environment instead: export %sREMOTE_TOKEN=<token>", credentials.EnvPrefix))
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Token stored in keyring for %s\n", account)
			return nil
		},
	}

	cmd.Flags().BoolVar(&promptToken, "prompt", false, "read the token interactively")
	cmd.Flags().StringVar(&remoteURL, "url", "", "remote URL (default: remote.url from config)")
	return cmd
}

func newCredentialsGetCmd() *cobra.Command {
	var remoteURL string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show where the remote token comes from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if remoteURL == "" {
				cfg, err := config.GetConfig()
				if err != nil {
					return err
				}
				remoteURL = cfg.Remote.URL
			}

			creds, err := credentials.NewResolver().Resolve(remoteURL)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Remote: %s\n", creds.URL)
			fmt.Fprintf(out, "Source: %s\n", creds.Source)
			fmt.Fprintf(out, "Token:  %s\n", maskToken(creds.Token))
			return nil
		},
	}

	cmd.Flags().StringVar(&remoteURL, "url", "", "remote URL (default: remote.url from config)")
	return cmd
}

func newCredentialsDeleteCmd() *cobra.Command {
	var remoteURL string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove the remote token from the system keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := remoteAccount(remoteURL)
			if err != nil {
				return err
			}
			if err := credentials.Delete(account); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Token removed from keyring for %s\n", account)
			return nil
		},
	}

	cmd.Flags().StringVar(&remoteURL, "url", "", "remote URL (default: remote.url from config)")
	return cmd
}

// maskToken keeps the last four characters.
func maskToken(token string) string {
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", len(token)-4) + token[len(token)-4:]
}
