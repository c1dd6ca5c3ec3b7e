package main

import (
	"os"

	"github.com/spf13/cobra"
)

// configFile is the project configuration read from the working
// directory, the same place init writes it.
const configFile = "lorekeeper.yaml"

func main() {
	root := &cobra.Command{
		Use:   "lorekeeper",
		Short: "Campaign knowledge and session planning engine",
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.AddCommand(serveCmd())
	root.AddCommand(initCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(queryCmd())
	root.AddCommand(tokenCmd())
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
