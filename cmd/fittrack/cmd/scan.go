package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"fittrack/internal/api"
	"fittrack/internal/histcache"
)

var scanForce bool

var scanCmd = &cobra.Command{
	Use:   "scan <image-file>",
	Short: "Recognize a meal photo",
	Long: `Upload a meal photo and print the recognized food with its
nutritional estimate. Results are cached by image content, so scanning
the same photo twice does not re-upload it; use --force to bypass the
cache.

Example:
  fittrack scan lunch.jpg`,
	Args: cobra.ExactArgs(1),
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

		imagePath := args[0]
		data, err := os.ReadFile(imagePath)
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		digest := histcache.ImageDigest(data)

		cache := a.openCache(ctx)
		if cache != nil {
			defer cache.Close()
		}

		if cache != nil && !scanForce {
			cached, err := cache.LookupScan(ctx, digest)
			if err != nil {
				a.logger.Warn("scan cache read failed", "error", err)
			} else if cached != nil {
				fmt.Println("(previously scanned, showing cached result)")
				printPrediction(cached)
				return nil
			}
		}

		pred, err := a.client.ScanFood(ctx, token, filepath.Base(imagePath), bytes.NewReader(data))
		if err != nil {
			return renderAuthError("scan", err)
		}

		if cache != nil {
			if err := cache.RecordScan(ctx, digest, *pred); err != nil {
				a.logger.Warn("failed to cache scan result", "error", err)
			}
		}
		printPrediction(pred)
		return nil
	},
}

func printPrediction(pred *api.FoodPrediction) {
	fmt.Printf("Food:       %s (%.0f%% confidence)\n", pred.FoodItem, pred.Confidence*100)
	fmt.Printf("Calories:   %.0f kcal\n", pred.Calories)
	fmt.Printf("Protein:    %.1f g\n", pred.Protein)
	fmt.Printf("Carbs:      %.1f g\n", pred.Carbs)
	fmt.Printf("Fat:        %.1f g\n", pred.Fat)
	fmt.Printf("Fiber:      %.1f g\n", pred.Fiber)
}

func init() {
	scanCmd.Flags().BoolVar(&scanForce, "force", false, "re-upload even if this image was scanned before")
	rootCmd.AddCommand(scanCmd)
}
