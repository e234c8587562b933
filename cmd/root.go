package cmd

import (
	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/impactsmiles/smiles-wallet/internal/signing"
)

var rootCmd = &cobra.Command{
	Use:   "smiles-wallet",
	Short: "Custodial Smiles token wallets and proof ledger",
	Run: func(cmd *cobra.Command, args []string) {
		err := cmd.Help()
		if err != nil {
			log.Fatalf("Error calling help command: %s", err.Error())
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		log.Fatalf("Error executing root command: %s", err.Error())
	}
}

func init() {
	log.DefaultLogger = log.New()

	rootCmd.AddCommand((&serveCmd{}).Command())
	rootCmd.AddCommand((&migrateCmd{}).Command())
	rootCmd.AddCommand((&platformAccountCmd{role: signing.OperatorRole}).Command())
	rootCmd.AddCommand((&platformAccountCmd{role: signing.IssuerRole}).Command())
	rootCmd.AddCommand((&walletCmd{}).Command())
	rootCmd.AddCommand((&reconcileCmd{}).Command())
	rootCmd.AddCommand((&proofsCmd{}).Command())
}
