// Package cmd provides the CLI commands for fittrack.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fittrack/internal/config"
)

var cfgFile string
var dataDirFlag string

var rootCmd = &cobra.Command{
	Use:   "fittrack",
	Short: "fittrack - Workout Planner command-line client",
	Long: `fittrack is a command-line client for the Workout Planner backend.

It keeps a signed-in session on this machine: log in once and every
command reuses the stored credential until you log out or the backend
rejects it.

Quick start:
  1. fittrack register --username alex --email a@x.com
  2. fittrack workout log --exercise squat --sets 3 --reps 8 --weight 80
  3. fittrack history today

Configuration:
  Config is loaded from fittrack.yaml in the current directory or
  $HOME/.fittrack/. Environment variables can override config values
  with the FITTRACK_ prefix.
  Example: FITTRACK_API_BASE_URL=https://api.example.com

Commands:
  login       Sign in with email and password
  register    Create an account and sign in
  logout      Sign out and remove the stored credential
  whoami      Show the current user's profile
  refresh     Re-fetch the profile from the backend
  workout     Log and export workouts
  scan        Recognize a meal photo
  history     Show daily workouts and nutrition
  status      Show session state and backend health
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./fittrack.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "data directory (default: $HOME/.fittrack)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
