package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/shiftsleep-backend/internal/app"
	"github.com/yungbote/shiftsleep-backend/internal/jobs/cacherefresh"
)

var (
	refreshUser     string
	refreshTemporal bool
)

func init() {
	refreshCmd.Flags().StringVar(&refreshUser, "user", "", "warm a single user instead of every active user")
	refreshCmd.Flags().BoolVar(&refreshTemporal, "temporal", false, "start the refresh as a Temporal workflow instead of in this process")
	rootCmd.AddCommand(refreshCmd)
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Warm cached engine results once",
	Long: `Run one cache refresh pass and print its report.

Examples:
  # Warm every user active in the last REFRESH_ACTIVE_DAYS days
  shiftsleep refresh

  # Warm one user
  shiftsleep refresh --user u-123

  # Hand the run to the Temporal worker
  shiftsleep refresh --temporal`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), runRefresh)
	},
}

func runRefresh(ctx context.Context, a *app.App) error {
	r := a.Services.Refresher
	switch {
	case refreshTemporal:
		if a.Services.Temporal == nil {
			return fmt.Errorf("--temporal requires TEMPORAL_ADDRESS")
		}
		id, err := a.Services.Temporal.TriggerNow(ctx, cacherefresh.TriggerManual)
		if err != nil {
			return err
		}
		return printJSON(map[string]string{"runId": id})
	case refreshUser != "":
		outcome, dates := r.PreloadUser(ctx, refreshUser)
		return printJSON(map[string]any{"targetDates": dates, "outcome": outcome})
	default:
		rep, err := r.Run(ctx, cacherefresh.TriggerManual)
		if err != nil {
			return err
		}
		return printJSON(rep)
	}
}
