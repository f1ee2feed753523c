package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var registerUsername string
var registerEmail string
var registerPassword string
var registerCalorieGoal int

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	Long: `Create a Workout Planner account. Registration returns a credential
directly, so a successful sign-up leaves you signed in.

Example:
  fittrack register --username alex --email a@x.com --calorie-goal 2200`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}

		password := registerPassword
		if password == "" {
			password, err = promptSecret("Password: ")
			if err != nil {
				return err
			}
		}

		goal := registerCalorieGoal
		if goal == 0 {
			goal = a.cfg.Goals.DailyCalories
		}

		if err := a.session.Register(ctx, registerUsername, registerEmail, password, goal); err != nil {
			return renderAuthError("register", err)
		}

		user := a.session.CurrentUser()
		fmt.Printf("Welcome, %s! Signed in as %s\n", user.Username, user.Email)
		return nil
	},
}

func init() {
	registerCmd.Flags().StringVar(&registerUsername, "username", "", "display name")
	registerCmd.Flags().StringVar(&registerEmail, "email", "", "account email")
	registerCmd.Flags().StringVar(&registerPassword, "password", "", "account password (prompted if omitted)")
	registerCmd.Flags().IntVar(&registerCalorieGoal, "calorie-goal", 0, "daily calorie goal in kcal (default from config)")
	_ = registerCmd.MarkFlagRequired("username")
	_ = registerCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(registerCmd)
}
