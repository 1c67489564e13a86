package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go.keploy.io/tcxchain/config"
	"go.keploy.io/tcxchain/utils"
)

func init() {
	Register("config", Config)
}

func Config(_ context.Context, logger *zap.Logger, conf *config.Config) *cobra.Command {
	var generate, force bool
	var cmd = &cobra.Command{
		Use:     "config",
		Short:   "manage the tcxchain configuration file",
		Example: `tcxchain config --generate --configPath .`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !generate {
				return cmd.Help()
			}
			path := filepath.Join(conf.ConfigPath, configName+".yaml")
			if _, err := os.Stat(path); err == nil && !force {
				err := fmt.Errorf("config file %s already exists", path)
				utils.LogError(logger, err, "refusing to overwrite, use --force")
				return err
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := os.WriteFile(path, []byte(config.GetDefaultConfig()), 0o644); err != nil {
				utils.LogError(logger, err, "failed to write the config file", zap.String("path", path))
				return err
			}
			logger.Info("config file generated", zap.String("path", path))
			return nil
		},
	}
	cmd.Flags().BoolVar(&generate, "generate", false, "Generate a new config file")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}
