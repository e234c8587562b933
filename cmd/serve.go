package cmd

import (
	"fmt"
	"go/types"
	"time"

	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/impactsmiles/smiles-wallet/cmd/utils"
	"github.com/impactsmiles/smiles-wallet/internal/serve"
)

type serveCmd struct{}

func (c *serveCmd) Command() *cobra.Command {
	cfg := servicesConfig{}

	var clientAuthMaxTimeoutSeconds, rateLimitPerSecond int
	cfgOpts := cfg.options()
	cfgOpts = append(cfgOpts,
		&config.ConfigOption{
			Name:        "port",
			Usage:       "Port to listen and serve on",
			OptType:     types.Int,
			ConfigKey:   &cfg.Port,
			FlagDefault: 8001,
			Required:    false,
		},
		&config.ConfigOption{
			Name:           "client-auth-public-keys",
			Usage:          "The PEM encoded ES256 public keys of the services allowed to call this server. If not provided or empty, authentication is disabled.",
			OptType:        types.String,
			CustomSetValue: utils.SetConfigOptionPEMList,
			ConfigKey:      &cfg.ClientAuthPublicKeys,
			Required:       false,
		},
		&config.ConfigOption{
			Name:        "client-auth-max-timeout-seconds",
			Usage:       "The maximum lifetime of a client JWT.",
			OptType:     types.Int,
			ConfigKey:   &clientAuthMaxTimeoutSeconds,
			FlagDefault: 15,
			Required:    true,
		},
		&config.ConfigOption{
			Name:        "rate-limit-per-second",
			Usage:       "Requests per second allowed per caller. 0 disables rate limiting.",
			OptType:     types.Int,
			ConfigKey:   &rateLimitPerSecond,
			FlagDefault: 20,
			Required:    false,
		},
		&config.ConfigOption{
			Name:        "rate-limit-burst",
			Usage:       "Requests a caller may burst above its rate.",
			OptType:     types.Int,
			ConfigKey:   &cfg.RateLimitBurst,
			FlagDefault: 40,
			Required:    false,
		},
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Smiles Wallet API server",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := utils.DefaultPersistentPreRunE(cfgOpts)(cmd, args); err != nil {
				return err
			}
			cfg.ClientAuthMaxTimeout = time.Duration(clientAuthMaxTimeoutSeconds) * time.Second
			cfg.RateLimitPerSecond = float64(rateLimitPerSecond)
			return cfg.resolve(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer cfg.close()
			return c.Run(cmd, cfg.Configs)
		},
	}

	if err := cfgOpts.Init(cmd); err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}

func (c *serveCmd) Run(cmd *cobra.Command, cfg serve.Configs) error {
	err := serve.Serve(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("running serve: %w", err)
	}
	return nil
}
