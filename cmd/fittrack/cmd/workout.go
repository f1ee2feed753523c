package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"fittrack/internal/api"
)

var workoutCmd = &cobra.Command{
	Use:   "workout",
	Short: "Log and export workouts",
}

var (
	workoutExercise string
	workoutSets     int
	workoutReps     int
	workoutWeight   float64
	workoutDuration int
)

var workoutLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Log a workout under today's date",
	Long: `Log a workout entry. The backend files it under today's daily log.

Example:
  fittrack workout log --exercise squat --sets 3 --reps 8 --weight 80 --duration 25`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}
		token, err := a.requireAuth()
		if err != nil {
			return err
		}

		result, err := a.client.LogWorkout(ctx, token, api.WorkoutEntry{
			Exercise: workoutExercise,
			Sets:     workoutSets,
			Reps:     workoutReps,
			Weight:   workoutWeight,
			Duration: workoutDuration,
		})
		if err != nil {
			return renderAuthError("workout log", err)
		}

		fmt.Printf("Logged %s for %s (entry %s)\n", workoutExercise, result.Date, result.WorkoutID)
		return nil
	},
}

var (
	exportStart  string
	exportEnd    string
	exportFormat string
)

var workoutExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export logged history for a date range",
	Long: `Fetch daily logs for an inclusive date range and write them to stdout
as YAML (default) or JSON.

Example:
  fittrack workout export --start 2026-08-01 --end 2026-08-31 --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}
		token, err := a.requireAuth()
		if err != nil {
			return err
		}

		days, err := a.client.HistoryRange(ctx, token, exportStart, exportEnd)
		if err != nil {
			return renderAuthError("export", err)
		}

		switch exportFormat {
		case "yaml":
			enc := yaml.NewEncoder(os.Stdout)
			defer enc.Close()
			return enc.Encode(days)
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(days)
		default:
			return fmt.Errorf("unknown format %q, want yaml or json", exportFormat)
		}
	},
}

func init() {
	workoutLogCmd.Flags().StringVar(&workoutExercise, "exercise", "", "exercise name")
	workoutLogCmd.Flags().IntVar(&workoutSets, "sets", 1, "number of sets")
	workoutLogCmd.Flags().IntVar(&workoutReps, "reps", 1, "repetitions per set")
	workoutLogCmd.Flags().Float64Var(&workoutWeight, "weight", 0, "weight in kg")
	workoutLogCmd.Flags().IntVar(&workoutDuration, "duration", 0, "duration in minutes")
	_ = workoutLogCmd.MarkFlagRequired("exercise")

	workoutExportCmd.Flags().StringVar(&exportStart, "start", "", "start date (YYYY-MM-DD)")
	workoutExportCmd.Flags().StringVar(&exportEnd, "end", "", "end date (YYYY-MM-DD)")
	workoutExportCmd.Flags().StringVar(&exportFormat, "format", "yaml", "output format: yaml or json")
	_ = workoutExportCmd.MarkFlagRequired("start")
	_ = workoutExportCmd.MarkFlagRequired("end")

	workoutCmd.AddCommand(workoutLogCmd)
	workoutCmd.AddCommand(workoutExportCmd)
	rootCmd.AddCommand(workoutCmd)
}
