package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lorekeeper/internal/config"
	"lorekeeper/internal/store"
)

func queryEntitiesCmd() *cobra.Command {
	var campaignID string
	var entityType string
	cmd := &cobra.Command{
		Use:   "entities",
		Short: "List entities in the campaign graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(campaignID) == "" {
				return fmt.Errorf("--campaign is required")
			}
			return runQueryEntities(campaignID, entityType)
		},
	}
	cmd.Flags().StringVar(&campaignID, "campaign", "", "Campaign to inspect")
	cmd.Flags().StringVar(&entityType, "type", "", "Entity type to filter")
	return cmd
}

func runQueryEntities(campaignID, entityType string) error {
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

	var entities []store.Entity
	if entityType != "" {
		entities, err = db.ListEntitiesByType(ctx, campaignID, entityType)
	} else {
		entities, err = db.ListEntities(ctx, campaignID)
	}
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		fmt.Fprintln(os.Stdout, "No entities found.")
		return nil
	}

	for _, e := range entities {
		line := fmt.Sprintf("%s  %s (%s)", e.ID, e.Name, e.Type)
		if e.Status != "" {
			line += fmt.Sprintf(" [%s]", e.Status)
		}
		if e.Placeholder {
			line += " placeholder"
		}
		fmt.Fprintln(os.Stdout, line)
	}
	return nil
}
