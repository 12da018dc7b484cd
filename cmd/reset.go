package cmd

import (
	"github.com/michaelpento.lv/liquidator/config"
	"github.com/michaelpento.lv/liquidator/state"
	"github.com/michaelpento.lv/liquidator/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the borrower state cache so the next start re-syncs from the creation block",
	Run: func(cmd *cobra.Command, args []string) {
		log := utils.GetLogger()
		defer utils.CleanupLogger()

		if err := config.LoadEnv(); err != nil {
			log.Fatal("Failed to load environment", zap.Error(err))
		}
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatal("Failed to load config", zap.Error(err))
		}

		store := state.NewStore(cfg.StateCacheFile)
		if err := store.Remove(); err != nil {
			log.Fatal("Failed to remove state cache", zap.Error(err), zap.String("path", store.Path()))
		}
		log.Info("State cache removed", zap.String("path", store.Path()))
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
