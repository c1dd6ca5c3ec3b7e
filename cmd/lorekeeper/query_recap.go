package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lorekeeper/internal/config"
	"lorekeeper/internal/recap"
	"lorekeeper/internal/tasks"
	"lorekeeper/internal/worldstate"
)

func queryRecapCmd() *cobra.Command {
	var campaignID string
	var since string
	cmd := &cobra.Command{
		Use:   "recap",
		Short: "Print a campaign recap",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(campaignID) == "" {
				return fmt.Errorf("--campaign is required")
			}
			return runQueryRecap(campaignID, since)
		},
	}
	cmd.Flags().StringVar(&campaignID, "campaign", "", "Campaign to summarize")
	cmd.Flags().StringVar(&since, "since", "", "Include world changes after this RFC3339 time")
	return cmd
}

func runQueryRecap(campaignID, since string) error {
	ctx := context.Background()

	var from time.Time
	if since != "" {
		parsed, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return fmt.Errorf("--since must be an RFC3339 timestamp: %w", err)
		}
		from = parsed
	}

	cfg, err := config.LoadProjectConfig(configFile)
	if err != nil {
		return err
	}

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	worldSvc := worldstate.NewService(db, nil)
	taskSvc := tasks.NewService(db, tasks.KeywordScorer{}, cfg.Linker.MinScore, nil)
	recapSvc := recap.NewService(db, worldSvc, taskSvc, cfg.Recap.DigestCount, nil)

	summary, err := recapSvc.Build(ctx, campaignID, from)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, summary.Narrative)
	return nil
}
