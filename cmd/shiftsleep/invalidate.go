package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/shiftsleep-backend/internal/app"
	"github.com/yungbote/shiftsleep-backend/internal/cache"
	types "github.com/yungbote/shiftsleep-backend/internal/domain"
	"github.com/yungbote/shiftsleep-backend/internal/platform/timeutil"
)

var (
	invalidateUser   string
	invalidateDate   string
	invalidateEngine string
	invalidateAll    bool
)

func init() {
	invalidateCmd.Flags().StringVar(&invalidateUser, "user", "", "user whose cached results are dropped (required)")
	invalidateCmd.Flags().StringVar(&invalidateDate, "date", "", "schedule date that changed (YYYY-MM-DD)")
	invalidateCmd.Flags().StringVar(&invalidateEngine, "engine", "", "limit to one engine when used with --all")
	invalidateCmd.Flags().BoolVar(&invalidateAll, "all", false, "drop every cached result for the user")
	_ = invalidateCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(invalidateCmd)
}

var invalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Drop cached engine results for a user",
	Long: `Drop cached engine results for a user.

With --date the change is treated as a schedule edit: results for that day
and the following 7 days are dropped for every engine, and other processes
are told to do the same.

Examples:
  shiftsleep invalidate --user u-123 --date 2024-01-10
  shiftsleep invalidate --user u-123 --all --engine fatigue_risk`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), runInvalidate)
	},
}

func runInvalidate(ctx context.Context, a *app.App) error {
	if err := cache.ValidateUserID(invalidateUser); err != nil {
		return err
	}
	switch {
	case invalidateDate != "" && invalidateAll:
		return fmt.Errorf("--date and --all are mutually exclusive")
	case invalidateDate != "":
		if _, err := timeutil.ParseDate(invalidateDate); err != nil {
			return err
		}
		n, err := a.Services.Refresher.PropagateScheduleChange(ctx, invalidateUser, invalidateDate)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"userId": invalidateUser, "from": invalidateDate, "deletedKeys": n})
	case invalidateAll:
		var f cache.Filter
		if invalidateEngine != "" {
			e, ok := types.ParseEngineType(invalidateEngine)
			if !ok {
				return fmt.Errorf("unknown engine %q", invalidateEngine)
			}
			f.Engines = []types.EngineType{e}
		}
		n, err := a.Services.Cache.Invalidate(ctx, invalidateUser, f)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"userId": invalidateUser, "deletedKeys": n})
	default:
		return fmt.Errorf("one of --date or --all is required")
	}
}
