package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lorekeeper/internal/config"
	"lorekeeper/internal/similarity"
)

func querySearchCmd() *cobra.Command {
	var campaignID string
	var topN int
	var recent bool
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Search captured campaign content",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(campaignID) == "" {
				return fmt.Errorf("--campaign is required")
			}
			return runQuerySearch(campaignID, strings.Join(args, " "), topN, recent)
		},
	}
	cmd.Flags().StringVar(&campaignID, "campaign", "", "Campaign to search")
	cmd.Flags().IntVar(&topN, "top", similarity.DefaultTopN, "Maximum results")
	cmd.Flags().BoolVar(&recent, "recent", false, "Weight results toward recently captured content")
	return cmd
}

func runQuerySearch(campaignID, query string, topN int, recent bool) error {
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

	oracle, err := buildOracle(cfg, db)
	if err != nil {
		return err
	}

	matches, err := oracle.Search(ctx, campaignID, query, topN, recent)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Fprintln(os.Stdout, "No matches found.")
		return nil
	}

	for _, match := range matches {
		fmt.Fprintf(os.Stdout, "%.2f  %s  %s\n", match.Score, match.DocID, firstLine(match.Content))
	}
	return nil
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	const max = 100
	if len(text) > max {
		return text[:max] + "..."
	}
	return text
}
