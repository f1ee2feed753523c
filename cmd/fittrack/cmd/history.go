package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fittrack/internal/api"
	"fittrack/internal/histcache"
)

var historyCmd = &cobra.Command{
	Use:   "history [date]",
	Short: "Show daily workouts and nutrition",
	Long: `Show one day's workouts and nutrition. The date is YYYY-MM-DD, or
"today". Fetched days are cached locally; when the backend is
unreachable the last cached copy is shown instead.

Example:
  fittrack history 2026-08-30
  fittrack history today`,
	Args: cobra.MaximumNArgs(1),
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

		date := "today"
		if len(args) == 1 {
			date = args[0]
		}
		if date == "today" {
			date = time.Now().UTC().Format("2006-01-02")
		}
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return fmt.Errorf("invalid date %q, want YYYY-MM-DD", date)
		}

		cache := a.openCache(ctx)
		if cache != nil {
			defer cache.Close()
		}

		day, err := a.client.DailyHistory(ctx, token, date)
		if err != nil {
			if cached := lookupCachedDay(ctx, a, cache, date, err); cached != nil {
				fmt.Println("(backend unreachable, showing cached data)")
				printDay(cached)
				return nil
			}
			return renderAuthError("history", err)
		}

		if cache != nil {
			if err := cache.PutDaily(ctx, *day); err != nil {
				a.logger.Warn("failed to cache daily history", "date", date, "error", err)
			}
		}
		printDay(day)
		return nil
	},
}

// lookupCachedDay returns the cached day only when the live fetch
// failed for connectivity reasons; an auth rejection must surface.
func lookupCachedDay(ctx context.Context, a *app, cache *histcache.Cache, date string, fetchErr error) *api.DailyHistory {
	if cache == nil {
		return nil
	}
	if !errors.Is(fetchErr, api.ErrUnreachable) && !errors.Is(fetchErr, api.ErrTimeout) {
		return nil
	}
	day, err := cache.GetDaily(ctx, date)
	if err != nil {
		a.logger.Warn("history cache read failed", "date", date, "error", err)
		return nil
	}
	return day
}

func printDay(day *api.DailyHistory) {
	fmt.Printf("Date: %s\n", day.Date)
	if len(day.Workouts) == 0 {
		fmt.Println("Workouts: none")
	} else {
		fmt.Println("Workouts:")
		for _, w := range day.Workouts {
			fmt.Printf("  %-20s %dx%d  %.1f kg  %d min\n",
				w.Exercise, w.Sets, w.Reps, w.Weight, w.Duration)
		}
	}
	fmt.Printf("Calories: %.0f kcal", day.Nutrition.TotalCalories)
	if len(day.Nutrition.Items) > 0 {
		fmt.Println()
		for _, item := range day.Nutrition.Items {
			fmt.Printf("  %-20s %.0f kcal\n", item.FoodItem, item.Calories)
		}
	} else {
		fmt.Println(" (no food logged)")
	}
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
