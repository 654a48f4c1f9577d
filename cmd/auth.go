package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/talentwire/mailscope/internal/google"
)

func newAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth [authorization-code]",
		Short: "Authorize a user token for local scans",
		Long: `Authorize mailscope to scan your own mailbox with a cached user token.

Without arguments, prints the Google authorization URL. Visit it, grant
read-only access, and run the command again with the authorization code.

Requires GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET. Deployments scanning
arbitrary mailboxes should use a service account with domain-wide
delegation (GOOGLE_SERVICE_ACCOUNT_FILE) instead; no auth step is needed
there.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				url, err := google.AuthURL()
				if err != nil {
					return err
				}
				fmt.Printf(`Visit this URL in your browser and grant access:

  %s

Then complete authorization with:

  mailscope auth <authorization-code>
`, url)
				return nil
			}

			if err := google.SaveToken(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("Token saved.")
			return nil
		},
	}
}
