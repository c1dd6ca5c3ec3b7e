package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lorekeeper/internal/config"
)

func queryCampaignsCmd() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "campaigns",
		Short: "List campaigns for an owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(owner) == "" {
				return fmt.Errorf("--owner is required")
			}
			return runQueryCampaigns(owner)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Owner username")
	return cmd
}

func runQueryCampaigns(owner string) error {
	ctx := context.Background()

	cfg, err := config.LoadProjectConfig(configFile)
	if err != nil {
		return err
	}

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	campaigns, err := db.ListCampaigns(ctx, owner)
	if err != nil {
		return err
	}
	if len(campaigns) == 0 {
		fmt.Fprintln(os.Stdout, "No campaigns found.")
		return nil
	}

	for _, c := range campaigns {
		line := fmt.Sprintf("%s  %s", c.ID, c.Name)
		if c.System != "" {
			line += fmt.Sprintf(" (%s)", c.System)
		}
		fmt.Fprintln(os.Stdout, line)
	}
	return nil
}
