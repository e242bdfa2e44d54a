package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/finchsec/magpie/cmd"
)

var rootCmd = &cobra.Command{
	Use:   "magpie",
	Short: "Magpie - A CLI for harvesting API credentials into an encrypted vault.",
	Long: `Magpie collects API credentials from the CLI tools you already use and
stores them in a sops-encrypted vault.

Features:
  - Harvest credentials from installed CLI tools (gh, aws, stripe, ...)
  - Store secrets in a sops-encrypted vault with automatic backups
  - Import and export .env files
  - Discover which services support automated harvesting

Usage:
  magpie <command> [flags]

Available Commands:
  harvest        Harvest a credential from one service
  harvest-batch  Harvest credentials from many services at once
  discover       List harvestable services
  info           Show catalog details for a service
  status         Show vault and automation status
  vault          Manage the encrypted vault

Run 'magpie help <command>' for more details on a specific command.
`,
	Run: func(c *cobra.Command, args []string) {
		fmt.Println("Welcome to Magpie! Run 'magpie --help' to see available commands.")
	},
}

func main() {
	rootCmd.AddCommand(cmd.HarvestCmd)
	rootCmd.AddCommand(cmd.HarvestBatchCmd)
	rootCmd.AddCommand(cmd.DiscoverCmd)
	rootCmd.AddCommand(cmd.InfoCmd)
	rootCmd.AddCommand(cmd.StatusCmd)
	rootCmd.AddCommand(cmd.VaultCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
