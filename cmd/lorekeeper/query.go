package main

import "github.com/spf13/cobra"

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Inspect stored campaign data from the CLI",
	}
	cmd.AddCommand(queryCampaignsCmd())
	cmd.AddCommand(queryEntitiesCmd())
	cmd.AddCommand(queryShardsCmd())
	cmd.AddCommand(queryTasksCmd())
	cmd.AddCommand(queryStateCmd())
	cmd.AddCommand(querySearchCmd())
	cmd.AddCommand(queryRecapCmd())
	return cmd
}
