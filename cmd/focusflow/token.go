package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/focusflow/internal/auth"
	"github.com/hyperengineering/focusflow/internal/config"
)

var (
	tokenUser string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a signed session token for a user",
	Long:  "Issue an HS256 token signed with FOCUSFLOW_JWT_SECRET, for POST /api/v1/session.",
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "User id placed in the token subject (required)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
}

func runToken(cmd *cobra.Command, args []string) error {
	if tokenUser == "" {
		return errors.New("--user is required")
	}
	if tokenTTL <= 0 {
		return errors.New("--ttl must be positive")
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	token, err := auth.IssueToken([]byte(cfg.Auth.JWTSecret), tokenUser, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
