package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lorekeeper/internal/config"
)

func queryShardsCmd() *cobra.Command {
	var campaignID string
	var status string
	cmd := &cobra.Command{
		Use:   "shards",
		Short: "List captured shards",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(campaignID) == "" {
				return fmt.Errorf("--campaign is required")
			}
			return runQueryShards(campaignID, status)
		},
	}
	cmd.Flags().StringVar(&campaignID, "campaign", "", "Campaign to inspect")
	cmd.Flags().StringVar(&status, "status", "", "Approval state to filter (pending, approved, rejected)")
	return cmd
}

func runQueryShards(campaignID, status string) error {
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

	shards, err := db.ListShards(ctx, campaignID, status)
	if err != nil {
		return err
	}
	if len(shards) == 0 {
		fmt.Fprintln(os.Stdout, "No shards found.")
		return nil
	}

	for _, s := range shards {
		fmt.Fprintf(os.Stdout, "%s  [%s] %s (%s, confidence %.2f)\n", s.ID, s.Status, s.Title, s.Type, s.Confidence)
	}
	return nil
}
