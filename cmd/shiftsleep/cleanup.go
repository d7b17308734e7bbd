package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yungbote/shiftsleep-backend/internal/app"
)

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove cache metadata whose value has expired",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			n, err := a.Services.Cache.Cleanup(ctx)
			if err != nil {
				return err
			}
			a.Log.Info("Cache cleanup finished", "orphans_removed", n)
			return printJSON(map[string]int{"orphansRemoved": n})
		})
	},
}
