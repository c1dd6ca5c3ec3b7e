package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"lorekeeper/internal/config"
	"lorekeeper/internal/worldstate"
)

func queryStateCmd() *cobra.Command {
	var campaignID string
	cmd := &cobra.Command{
		Use:   "state <entity-id>",
		Short: "Replay the changelog for one entity",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(campaignID) == "" {
				return fmt.Errorf("--campaign is required")
			}
			return runQueryState(campaignID, args[0])
		},
	}
	cmd.Flags().StringVar(&campaignID, "campaign", "", "Campaign to inspect")
	return cmd
}

func runQueryState(campaignID, entityID string) error {
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

	state, err := worldstate.NewService(db, nil).EntityState(ctx, campaignID, entityID)
	if err != nil {
		return err
	}
	if state == nil {
		fmt.Fprintf(os.Stdout, "No recorded state for entity %q.\n", entityID)
		return nil
	}

	if state.Name != "" {
		fmt.Fprintf(os.Stdout, "Name: %s\n", state.Name)
	}
	if state.Type != "" {
		fmt.Fprintf(os.Stdout, "Type: %s\n", state.Type)
	}
	if state.Status != "" {
		fmt.Fprintf(os.Stdout, "Status: %s\n", state.Status)
	}
	if state.Description != "" {
		fmt.Fprintf(os.Stdout, "Description: %s\n", state.Description)
	}
	if len(state.Metadata) > 0 {
		keys := make([]string, 0, len(state.Metadata))
		for key := range state.Metadata {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		fmt.Fprintln(os.Stdout, "Metadata:")
		for _, key := range keys {
			fmt.Fprintf(os.Stdout, "  %s: %v\n", key, state.Metadata[key])
		}
	}
	fmt.Fprintf(os.Stdout, "Last changed: session %d, %s\n", state.SessionNumber, state.UpdatedAt.Format("2006-01-02 15:04"))
	return nil
}
