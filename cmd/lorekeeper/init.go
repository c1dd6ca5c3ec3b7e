package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"lorekeeper/internal/config"
)

func initCmd() *cobra.Command {
	var projectName string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new lorekeeper project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(projectName) == "" {
				return fmt.Errorf("--name is required")
			}
			return runInit(projectName)
		},
	}
	cmd.Flags().StringVar(&projectName, "name", "", "Project name")
	return cmd
}

func runInit(projectName string) error {
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("%s already exists", configFile)
	}

	cfg := config.Default(projectName)
	contents, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("rendering config: %w", err)
	}
	if err := os.WriteFile(configFile, contents, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", configFile, err)
	}

	// Opening the store once creates the database schema up front.
	db, err := openStore(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	if err := db.Close(context.Background()); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Wrote %s for project %q.\n", configFile, projectName)
	fmt.Fprintf(os.Stdout, "Set %s to enable caller authentication before serving.\n", cfg.Auth.JWTSecretEnv)
	return nil
}
