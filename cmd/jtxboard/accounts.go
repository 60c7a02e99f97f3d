package main

import (
	"fmt"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"jtxboard/internal/accounts"
	"jtxboard/internal/config"
	"jtxboard/internal/utils"
)

func newAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage sync accounts and their credentials",
	}

	cmd.AddCommand(newAccountsListCmd())
	cmd.AddCommand(newCredentialsCmd())
	return cmd
}

func newAccountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := newRegistry()
			for _, a := range registry.Accounts() {
				fmt.Printf("%-24s %s\n", a.Name, a.Type)
			}
			return nil
		},
	}
}

func newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage account credentials",
		Long: `Securely manage account credentials using the system keyring.

Credentials are resolved in priority order:
  1. System keyring (most secure) - recommended
  2. Environment variables (JTXBOARD_<ACCOUNT>_USERNAME / _PASSWORD)

Examples:
  # Store credentials in keyring (interactive password prompt)
  jtxboard accounts credentials set dav-home myuser --prompt

  # Check if credentials exist
  jtxboard accounts credentials get dav-home myuser

  # Remove credentials from keyring
  jtxboard accounts credentials delete dav-home myuser`,
	}

	cmd.AddCommand(newCredentialsSetCmd())
	cmd.AddCommand(newCredentialsGetCmd())
	cmd.AddCommand(newCredentialsDeleteCmd())
	return cmd
}

// accountUsername resolves the username argument, falling back to the
// configured account.
func accountUsername(accountName, arg string) (string, error) {
	if arg != "" {
		return arg, nil
	}
	if account, ok := config.GetConfig().Accounts[accountName]; ok && account.Username != "" {
		return account.Username, nil
	}
	return "", fmt.Errorf("no username given and none configured for account %q", accountName)
}

func newCredentialsSetCmd() *cobra.Command {
	var promptPassword bool

	cmd := &cobra.Command{
		Use:   "set <account> [username] [password]",
		Short: "Store credentials in the system keyring",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountName := args[0]

			var usernameArg string
			if len(args) > 1 {
				usernameArg = args[1]
			}
			username, err := accountUsername(accountName, usernameArg)
			if err != nil {
				return err
			}

			var password string
			if len(args) > 2 {
				password = args[2]
			}

			if promptPassword || password == "" {
				fmt.Printf("Password for %s@%s: ", username, accountName)
				raw, err := term.ReadPassword(int(syscall.Stdin))
				fmt.Println()
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
				password = strings.TrimSpace(string(raw))
			}

			if err := accounts.SetCredentials(accountName, username, password); err != nil {
				return err
			}
			fmt.Printf("Credentials stored for %s@%s\n", username, accountName)
			return nil
		},
	}

	cmd.Flags().BoolVar(&promptPassword, "prompt", false, "prompt for the password interactively")
	return cmd
}

func newCredentialsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <account> [username]",
		Short: "Check whether credentials exist in the keyring",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountName := args[0]

			var usernameArg string
			if len(args) > 1 {
				usernameArg = args[1]
			}
			username, err := accountUsername(accountName, usernameArg)
			if err != nil {
				return err
			}

			creds, err := accounts.ResolveCredentials(accountName, username)
			if err != nil {
				return err
			}
			if creds.Source == accounts.SourceNone {
				return utils.ErrCredentialsNotFound(accountName)
			}
			fmt.Printf("Credentials for %s@%s found (source: %s)\n",
				creds.Username, accountName, creds.Source)
			return nil
		},
	}
}

func newCredentialsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <account> [username]",
		Short: "Remove credentials from the keyring",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountName := args[0]

			var usernameArg string
			if len(args) > 1 {
				usernameArg = args[1]
			}
			username, err := accountUsername(accountName, usernameArg)
			if err != nil {
				return err
			}

			if err := accounts.DeleteCredentials(accountName, username); err != nil {
				return err
			}
			fmt.Printf("Credentials deleted for %s@%s\n", username, accountName)
			return nil
		},
	}
}
