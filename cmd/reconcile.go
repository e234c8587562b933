package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/impactsmiles/smiles-wallet/internal/serve"
	"github.com/impactsmiles/smiles-wallet/internal/wallet"
)

type reconcileCmd struct{}

func (c *reconcileCmd) Command() *cobra.Command {
	cfg := &servicesConfig{}
	cfgOpts := cfg.options()

	cmd := &cobra.Command{
		Use:               "reconcile",
		Short:             "Repair token operations that did not settle",
		PersistentPreRunE: cfg.servicesPreRunE(cfgOpts),
	}

	var (
		limit  int
		minAge time.Duration
	)
	sweepCmd := func(use, short string, sweep func(*wallet.Reconciler, context.Context, int) (wallet.SweepResult, error)) *cobra.Command {
		sub := &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx := cmd.Context()
				return cfg.withContainer(ctx, func(container serve.ServiceContainer) error {
					reconciler := container.GetReconciler()
					reconciler.MinAge = minAge

					result, err := sweep(reconciler, ctx, limit)
					if err != nil {
						return fmt.Errorf("sweeping %s operations: %w", use, err)
					}
					log.Ctx(ctx).Infof("Reconciled %d of %d %s operations (%d failed, %d skipped, %d unresolved)",
						result.Reconciled, result.Examined, use, result.Failed, result.Skipped, result.StillStranded)
					return printJSON(cmd, result)
				})
			},
		}
		sub.Flags().IntVar(&limit, "limit", 50, "Maximum number of operations to examine")
		sub.Flags().DurationVar(&minAge, "min-age", wallet.DefaultStrandedMinAge, "Skip operations updated more recently than this")
		return sub
	}

	cmd.AddCommand(
		sweepCmd("stranded", "Deliver minted tokens that are still held by the operator after a failed transfer", (*wallet.Reconciler).SweepStranded),
		sweepCmd("unconfirmed", "Look up mints whose receipt never arrived, delivering the ones that landed", (*wallet.Reconciler).SweepUnconfirmed),
	)

	if err := cfgOpts.Init(cmd); err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}
