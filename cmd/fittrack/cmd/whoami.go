package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"fittrack/internal/api"
	"fittrack/internal/config"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current user's profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}
		if _, err := a.requireAuth(); err != nil {
			return err
		}

		printProfile(a.session.CurrentUser(), a.cfg.Goals)
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-fetch the profile from the backend",
	Long: `Re-fetch the current user's profile. A refresh that fails leaves the
cached profile in place; it never signs you out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}
		if _, err := a.requireAuth(); err != nil {
			return err
		}

		a.session.RefreshUser(ctx)
		printProfile(a.session.CurrentUser(), a.cfg.Goals)
		return nil
	},
}

// printProfile renders a profile, substituting configured defaults for
// goal fields the server left unset.
func printProfile(u *api.UserProfile, goals config.GoalsConfig) {
	fmt.Printf("User:           %s\n", u.Username)
	fmt.Printf("Email:          %s\n", u.Email)
	fmt.Printf("Calorie goal:   %d kcal\n", orDefault(u.DailyCalorieGoal, goals.DailyCalories))
	fmt.Printf("Protein goal:   %d g\n", orDefault(u.ProteinGoal, goals.Protein))
	fmt.Printf("Carbs goal:     %d g\n", orDefault(u.CarbsGoal, goals.Carbs))
	fmt.Printf("Fiber goal:     %d g\n", orDefault(u.FiberGoal, goals.Fiber))
	fmt.Printf("Workout streak: %d days\n", u.WorkoutStreak)
	if u.CreatedAt != "" {
		fmt.Printf("Member since:   %s\n", u.CreatedAt)
	}
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(refreshCmd)
}
