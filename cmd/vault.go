package cmd

import (
	"github.com/spf13/cobra"
)

var VaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage the encrypted secrets vault",
	Long:  `Provides initialization, listing, manual entry, env-file import and export, and key rotation for the sops-encrypted vault.`,
}

func init() {
	bindCommonFlags(VaultCmd)

	VaultCmd.AddCommand(vaultInitCmd)
	VaultCmd.AddCommand(vaultListCmd)
	VaultCmd.AddCommand(vaultAddCmd)
	VaultCmd.AddCommand(vaultRemoveCmd)
	VaultCmd.AddCommand(vaultImportCmd)
	VaultCmd.AddCommand(vaultExportCmd)
	VaultCmd.AddCommand(vaultRotateCmd)
}

// GetVaultCmd returns the VaultCmd for testing.
func GetVaultCmd() *cobra.Command {
	return VaultCmd
}
