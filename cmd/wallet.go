package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/serve"
)

type walletCmd struct{}

func (c *walletCmd) Command() *cobra.Command {
	cfg := &servicesConfig{}
	cfgOpts := cfg.options()

	cmd := &cobra.Command{
		Use:               "wallet",
		Short:             "Manage custodial wallets",
		PersistentPreRunE: cfg.servicesPreRunE(cfgOpts),
	}

	var ownerKind, ownerID string
	ownerFlags := func(sub *cobra.Command) {
		sub.Flags().StringVar(&ownerKind, "owner-kind", string(entities.OwnerKindUser), "Wallet owner kind: user or community")
		sub.Flags().StringVar(&ownerID, "owner-id", "", "Identifier of the user or community that owns the wallet")
		_ = sub.MarkFlagRequired("owner-id")
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create, fund and associate a wallet, or return the existing one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			kind, err := entities.ParseOwnerKind(ownerKind)
			if err != nil {
				return fmt.Errorf("parsing --owner-kind: %w", err)
			}
			return cfg.withContainer(ctx, func(container serve.ServiceContainer) error {
				w, err := container.GetWalletManagers()[kind].GetOrCreateWallet(ctx, ownerID)
				if err != nil {
					return fmt.Errorf("creating %s wallet: %w", kind, err)
				}
				log.Ctx(ctx).Infof("Wallet %s ready for %s %s", w.AccountID, kind, ownerID)
				return printJSON(cmd, w)
			})
		},
	}
	ownerFlags(createCmd)

	balanceCmd := &cobra.Command{
		Use:   "balance",
		Short: "Read the live native and token balance of a wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			kind, err := entities.ParseOwnerKind(ownerKind)
			if err != nil {
				return fmt.Errorf("parsing --owner-kind: %w", err)
			}
			return cfg.withContainer(ctx, func(container serve.ServiceContainer) error {
				balance, err := container.GetWalletManagers()[kind].GetLiveBalance(ctx, ownerID)
				if err != nil {
					return fmt.Errorf("reading %s balance: %w", kind, err)
				}
				return printJSON(cmd, balance)
			})
		},
	}
	ownerFlags(balanceCmd)

	deactivateCmd := &cobra.Command{
		Use:   "deactivate",
		Short: "Retire the active wallet so that the next request provisions a new one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			kind, err := entities.ParseOwnerKind(ownerKind)
			if err != nil {
				return fmt.Errorf("parsing --owner-kind: %w", err)
			}
			return cfg.withContainer(ctx, func(container serve.ServiceContainer) error {
				if err := container.GetWalletManagers()[kind].DeactivateWallet(ctx, ownerID); err != nil {
					return fmt.Errorf("deactivating %s wallet: %w", kind, err)
				}
				log.Ctx(ctx).Infof("Deactivated the wallet of %s %s", kind, ownerID)
				return nil
			})
		},
	}
	ownerFlags(deactivateCmd)

	cmd.AddCommand(createCmd, balanceCmd, deactivateCmd)

	if err := cfgOpts.Init(cmd); err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}
