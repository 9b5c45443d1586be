package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/prospector/internal/server/middleware"
)

var (
	tokenUser string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the prospects API",
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "User id to put in the token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not configured")
	}
	token, err := middleware.NewHMACTokens(cfg.Auth.JWTSecret).IssueToken(tokenUser, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
