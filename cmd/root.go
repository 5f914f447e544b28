package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the photoauth command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photoauth",
		Short: "Photo check-in kiosk",
		Long: `photoauth captures a photo of an attendee, stores it in the event's
object store and asks the recognition service who it shows.

Settings are read from PHOTOAUTH_* environment variables; a .env file in
the working directory is loaded first when present.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newAuthenticateCmd())

	return cmd
}
