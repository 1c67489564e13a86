package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"go.keploy.io/tcxchain/cli"
	"go.keploy.io/tcxchain/utils"
	"go.keploy.io/tcxchain/utils/log"
)

// version is injected during build by ldflags
var version string

func main() {
	setVersion()
	os.Exit(start())
}

func setVersion() {
	if version == "" {
		version = "dev"
	}
	utils.Version = version
}

func start() int {
	logger, err := log.New()
	if err != nil {
		fmt.Println("Failed to start the logger for the CLI", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()
	defer utils.Recover(logger)

	ctx, cancel := utils.NewCtx(logger)
	defer cancel()

	rootCmd := cli.Root(ctx, logger)
	if rootCmd == nil {
		return 1
	}
	if err := rootCmd.Execute(); err != nil {
		logger.Debug("command failed", zap.Error(err))
		return 1
	}
	return 0
}
