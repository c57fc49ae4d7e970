package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"market_chat/pkg/jwt"
)

var (
	tokenUserID string
	tokenEmail  string
	tokenTTL    time.Duration
)

// tokenCmd выпускает токен так же, как сервис идентификации.
// Только для локальной разработки, в production отказывает.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a development access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Environment == "production" {
			return errors.New("token minting is disabled in production")
		}
		token, err := jwt.GenerateAccessToken(tokenUserID, tokenEmail, cfg.JWT.AccessSecret, cfg.JWT.Issuer, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user", "", "user id claim")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
}
