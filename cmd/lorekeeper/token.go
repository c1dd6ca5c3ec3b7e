package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lorekeeper/internal/auth"
	"lorekeeper/internal/config"
)

func tokenCmd() *cobra.Command {
	var username string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a campaign owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(username) == "" {
				return fmt.Errorf("--user is required")
			}
			return runToken(username, ttl)
		},
	}
	cmd.Flags().StringVar(&username, "user", "", "Username the token identifies")
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "How long the token stays valid")
	return cmd
}

func runToken(username string, ttl time.Duration) error {
	cfg, err := config.LoadProjectConfig(configFile)
	if err != nil {
		return err
	}

	secret := cfg.Auth.JWTSecret()
	if secret == "" {
		return fmt.Errorf("%s is not set", cfg.Auth.JWTSecretEnv)
	}
	verifier, err := auth.NewJWTVerifier(secret)
	if err != nil {
		return err
	}

	token, err := verifier.Sign(username, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, token)
	return nil
}
