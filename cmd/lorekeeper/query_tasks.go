package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lorekeeper/internal/config"
)

func queryTasksCmd() *cobra.Command {
	var campaignID string
	var statuses []string
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List planning tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(campaignID) == "" {
				return fmt.Errorf("--campaign is required")
			}
			return runQueryTasks(campaignID, statuses)
		},
	}
	cmd.Flags().StringVar(&campaignID, "campaign", "", "Campaign to inspect")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Task states to filter (pending, in_progress, completed)")
	return cmd
}

func runQueryTasks(campaignID string, statuses []string) error {
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

	tasks, err := db.ListTasks(ctx, campaignID, statuses...)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Fprintln(os.Stdout, "No tasks found.")
		return nil
	}

	for _, t := range tasks {
		line := fmt.Sprintf("%s  [%s] %s", t.ID, t.Status, t.Title)
		if t.LinkedContentID != "" {
			line += fmt.Sprintf(" -> %s", t.LinkedContentID)
		}
		fmt.Fprintln(os.Stdout, line)
	}
	return nil
}
