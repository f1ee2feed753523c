package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"fittrack/internal/session"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session state and backend health",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}

		snap := a.session.Current()
		fmt.Printf("Backend:  %s\n", a.cfg.API.BaseURL)
		fmt.Printf("Session:  %s\n", snap.Status)
		if snap.Status == session.StatusAuthenticated {
			fmt.Printf("User:     %s (%s)\n", snap.User.Username, snap.User.Email)
		}

		if err := a.client.Health(ctx); err != nil {
			fmt.Printf("Health:   unreachable (%v)\n", err)
		} else {
			fmt.Println("Health:   ok")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
