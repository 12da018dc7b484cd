package cmd

import (
	"context"

	"github.com/michaelpento.lv/liquidator/utils"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "liquidator",
	Short: "A liquidation agent for Aave v3 deployments",
	Long: `A liquidation agent that rebuilds borrower positions from pool events,
finds underwater accounts and submits the most profitable liquidation
through the pool or a helper contract.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.liquidator.json)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func initConfig() {
	utils.InitLogger(debug)
}
