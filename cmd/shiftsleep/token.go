package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/shiftsleep-backend/internal/app"
)

var (
	tokenUser string
	tokenTTL  time.Duration
)

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "subject of the token (required)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(tokenCmd)
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign an access token for local testing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			tok, err := a.Services.Auth.IssueToken(tokenUser, tokenTTL)
			if err != nil {
				return err
			}
			return printJSON(map[string]string{"accessToken": tok})
		})
	},
}
