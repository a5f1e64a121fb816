package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newKeysCmd() *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys (issue, list, rename, revoke)",
		Long: `The 'keys' command group works directly on the configured store, with
the same rules as the admin HTTP routes.`,
	}

	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a new API key and print its token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			issued, err := a.keys.Issue(cmd.Context(), name)
			if err != nil {
				return fmt.Errorf("failed to issue key: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "token: %s\n", issued.Token)
			fmt.Fprintf(out, "jti:   %s\n", issued.JTI)
			fmt.Fprintf(out, "name:  %s\n", issued.Name)
			return nil
		},
	}
	issueCmd.Flags().String("name", "", "display name (default \"New API Key\")")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List active API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			showTokens, _ := cmd.Flags().GetBool("tokens")

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			keys, err := a.keys.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list keys: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(keys) == 0 {
				fmt.Fprintln(out, "No keys found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			if showTokens {
				fmt.Fprintln(w, "JTI\tNAME\tISSUED\tLIMIT\tTIMEFRAME\tTOKEN")
			} else {
				fmt.Fprintln(w, "JTI\tNAME\tISSUED\tLIMIT\tTIMEFRAME")
			}
			for _, k := range keys {
				d := k.Details
				issued := time.Unix(d.IssuedAt, 0).UTC().Format(time.RFC3339)
				if showTokens {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n", d.JTI, d.Name, issued, d.Limit, d.Timeframe, k.Token)
				} else {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", d.JTI, d.Name, issued, d.Limit, d.Timeframe)
				}
			}
			return w.Flush()
		},
	}
	listCmd.Flags().Bool("tokens", false, "include the full tokens")

	renameCmd := &cobra.Command{
		Use:   "rename <token> <name>",
		Short: "Change the display name of a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			existed, err := a.keys.Rename(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to rename key: %w", err)
			}
			if existed {
				fmt.Fprintln(cmd.OutOrStdout(), "Key renamed.")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Key name set.")
			}
			return nil
		},
	}

	revokeCmd := &cobra.Command{
		Use:   "revoke <token-or-jti>",
		Short: "Revoke a key by token or jti",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			done, err := a.keys.Revoke(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to revoke key: %w", err)
			}
			if !done {
				return fmt.Errorf("key %s was not fully revoked; it may not exist", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Key revoked.")
			return nil
		},
	}

	keysCmd.AddCommand(issueCmd, listCmd, renameCmd, revokeCmd)
	return keysCmd
}
