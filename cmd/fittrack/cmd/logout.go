package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and remove the stored credential",
	Long: `Remove the stored credential and clear the local session.

Logging out while already signed out is harmless. If removing the
credential file fails, the local session is still cleared and the
failure is reported.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}

		if err := a.session.Logout(ctx); err != nil {
			return fmt.Errorf("signed out locally, but removing the stored credential failed: %w", err)
		}
		fmt.Println("Signed out")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
