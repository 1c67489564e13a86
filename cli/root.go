package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"go.keploy.io/tcxchain/config"
	"go.keploy.io/tcxchain/utils"
	"go.keploy.io/tcxchain/utils/log"
)

const configName = "tcxchain"

var rootExamples = `
  Attach the first/last classifiers to eth0 ingress:
	sudo tcxchain attach --iface eth0

  Attach and expose prometheus metrics:
	sudo tcxchain attach --iface eth0 --metricsAddr :9090

  Run the chain model over a capture:
	tcxchain replay --pcap ./icmp.pcap

  Generate-Config:
	tcxchain config --generate --configPath .
`

func SetFlags(logger *zap.Logger, cmd *cobra.Command, conf *config.Config) error {
	cmd.PersistentFlags().Bool("debug", conf.Debug, "Run in debug mode")
	cmd.PersistentFlags().String("configPath", conf.ConfigPath, "Path to the local directory where the tcxchain configuration file is stored")

	err := viper.BindPFlags(cmd.PersistentFlags())
	if err != nil {
		logger.Error("failed to bind flags to config", zap.Error(err))
		return err
	}
	return nil
}

// CheckPersistent merges the config file, bound flags and defaults into conf
// and validates the result.
func CheckPersistent(logger *zap.Logger, conf *config.Config, cmd *cobra.Command) error {
	configPath := viper.GetString("configPath")
	if configPath != "" {
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configPath)
		if err := viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				utils.LogError(logger, err, "failed to read the config file", zap.String("path", filepath.Join(configPath, configName+".yaml")))
				return err
			}
		}
	}

	// mapstructure decodes a list element by element into the existing slice,
	// so entries from the file would inherit fields of the default instances.
	if viper.IsSet("instances") {
		conf.Instances = nil
	}

	if err := viper.Unmarshal(conf); err != nil {
		utils.LogError(logger, err, "failed to unmarshal the config")
		return err
	}

	if conf.Debug {
		debugLogger, err := log.ChangeLogLevel(zap.DebugLevel)
		if err != nil {
			utils.LogError(logger, err, "failed to change the log level")
			return err
		}
		*logger = *debugLogger
	}

	if err := conf.Validate(); err != nil {
		utils.LogError(logger, err, "invalid configuration")
		return err
	}

	logger.Debug("initialized with configuration", zap.Any("conf", conf))
	return nil
}

func Root(ctx context.Context, logger *zap.Logger) *cobra.Command {
	conf := config.New()

	var rootCmd = &cobra.Command{
		Use:           "tcxchain",
		Short:         "Ordered ICMP classifiers on a TCX ingress hook",
		Example:       rootExamples,
		Version:       utils.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return CheckPersistent(logger, conf, cmd)
		},
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate(`{{with .Version}}{{printf "tcxchain %s" .}}{{end}}{{"\n"}}`)

	err := SetFlags(logger, rootCmd, conf)
	if err != nil {
		logger.Error("failed to set flags", zap.Error(err))
		return nil
	}

	names := make([]string, 0, len(Registered))
	for name := range Registered {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := Registered[name](ctx, logger, conf)
		if c == nil {
			logger.Error(fmt.Sprintf("failed to build the %s command", name))
			continue
		}
		rootCmd.AddCommand(c)
	}
	return rootCmd
}
