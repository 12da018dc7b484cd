package cmd

import (
	"github.com/michaelpento.lv/liquidator/chain"
	"github.com/michaelpento.lv/liquidator/cmd/bot"
	"github.com/michaelpento.lv/liquidator/config"
	"github.com/michaelpento.lv/liquidator/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	deploymentFlag    string
	bidPercentageFlag uint64
	directFlag        bool
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the liquidator",
	Run: func(cmd *cobra.Command, args []string) {
		log := utils.GetLogger()
		defer utils.CleanupLogger()

		cfg, err := loadConfig(cmd)
		if err != nil {
			log.Fatal("Failed to load config", zap.Error(err))
		}

		ctx := cmd.Context()

		client, err := chain.Dial(ctx, cfg.RPCEndpoint, cfg.NetworkTimeout)
		if err != nil {
			log.Fatal("Failed to connect to Ethereum node", zap.Error(err))
		}
		defer client.Close()

		liquidator, err := bot.Assemble(ctx, cfg, client, nil, log)
		if err != nil {
			log.Fatal("Failed to create liquidator", zap.Error(err))
		}

		if err := liquidator.Start(ctx); err != nil {
			log.Fatal("Failed to start liquidator", zap.Error(err))
		}

		<-ctx.Done()
		log.Info("Shutting down gracefully...")
		liquidator.Stop()
	},
}

// loadConfig layers flags over the config file and environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("deployment") {
		cfg.Deployment = deploymentFlag
	}
	if flags.Changed("bid-percentage") {
		cfg.BidPercentage = bidPercentageFlag
	}
	if flags.Changed("direct") {
		cfg.UseAaveLiquidator = directFlag
	}

	if err := cfg.ValidateConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func init() {
	rootCmd.AddCommand(startCmd)
	startCmd.Flags().StringVar(&deploymentFlag, "deployment", "", "protocol deployment to watch (overrides "+config.EnvDeployment+")")
	startCmd.Flags().Uint64Var(&bidPercentageFlag, "bid-percentage", config.DefaultBidPercentage, "share of expected profit spent on gas (overrides "+config.EnvBidPercentage+")")
	startCmd.Flags().BoolVar(&directFlag, "direct", false, "call the pool directly instead of the helper contract (overrides "+config.EnvUseAaveLiquidator+")")
}
