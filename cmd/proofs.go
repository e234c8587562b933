package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/impactsmiles/smiles-wallet/internal/entities"
	"github.com/impactsmiles/smiles-wallet/internal/serve"
)

type proofsCmd struct{}

func (c *proofsCmd) Command() *cobra.Command {
	cfg := &servicesConfig{}
	cfgOpts := cfg.options()

	cmd := &cobra.Command{
		Use:               "proofs",
		Short:             "Inspect and repair the proof ledger",
		PersistentPreRunE: cfg.servicesPreRunE(cfgOpts),
	}

	var limit int
	retryCmd := &cobra.Command{
		Use:   "retry",
		Short: "Re-submit proof events that were recorded but never anchored on the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return cfg.withContainer(ctx, func(container serve.ServiceContainer) error {
				anchored, err := container.GetProofLedger().RetryPending(ctx, limit)
				if err != nil {
					return fmt.Errorf("retrying pending proofs: %w", err)
				}
				log.Ctx(ctx).Infof("Anchored %d pending proof events", anchored)
				return nil
			})
		},
	}
	retryCmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of pending proof events to retry")

	var kind, proofHash string
	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Check whether a proof hash is anchored under a proof kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			proofKind, err := entities.ParseProofKind(kind)
			if err != nil {
				return fmt.Errorf("parsing --kind: %w", err)
			}
			return cfg.withContainer(ctx, func(container serve.ServiceContainer) error {
				anchored, err := container.GetProofLedger().Verify(ctx, proofKind, proofHash)
				if err != nil {
					return fmt.Errorf("verifying proof: %w", err)
				}
				return printJSON(cmd, map[string]any{"kind": proofKind, "proofHash": proofHash, "anchored": anchored})
			})
		},
	}
	verifyCmd.Flags().StringVar(&kind, "kind", "", "Proof kind: mission_completion, donation or badge_award")
	verifyCmd.Flags().StringVar(&proofHash, "hash", "", "Hex encoded SHA-256 proof hash")
	_ = verifyCmd.MarkFlagRequired("kind")
	_ = verifyCmd.MarkFlagRequired("hash")

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Summarize every proof event logged under a proof kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			proofKind, err := entities.ParseProofKind(kind)
			if err != nil {
				return fmt.Errorf("parsing --kind: %w", err)
			}
			return cfg.withContainer(ctx, func(container serve.ServiceContainer) error {
				aggregate, err := container.GetProofLedger().Aggregate(ctx, proofKind)
				if err != nil {
					return fmt.Errorf("aggregating proofs: %w", err)
				}
				return printJSON(cmd, aggregate)
			})
		},
	}
	aggregateCmd.Flags().StringVar(&kind, "kind", "", "Proof kind: mission_completion, donation or badge_award")
	_ = aggregateCmd.MarkFlagRequired("kind")

	cmd.AddCommand(retryCmd, verifyCmd, aggregateCmd)

	if err := cfgOpts.Init(cmd); err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}

