package cli

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"go.keploy.io/tcxchain/config"
	"go.keploy.io/tcxchain/pkg/agent/hooks/tcx"
	"go.keploy.io/tcxchain/utils"
)

func init() {
	Register("attach", Attach)
}

func Attach(ctx context.Context, logger *zap.Logger, conf *config.Config) *cobra.Command {
	var cmd = &cobra.Command{
		Use:     "attach",
		Short:   "load the classifiers and chain them on the interface's ingress hook until interrupted",
		Example: `sudo tcxchain attach --iface eth0`,
		RunE: func(_ *cobra.Command, _ []string) error {
			o, err := tcx.New(logger, conf, tcx.NewMetrics())
			if err != nil {
				utils.LogError(logger, err, "failed to set up the classifier chain")
				return err
			}
			if err := o.Run(ctx); err != nil {
				utils.LogError(logger, err, "failed to run the classifier chain", zap.String("iface", conf.Interface))
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringP("iface", "i", conf.Interface, "Network interface whose ingress hook the classifiers attach to")
	cmd.Flags().String("object", conf.ObjectPath, "Compiled BPF object providing the classifier programs instead of the built-in ones")
	cmd.Flags().String("metricsAddr", conf.MetricsAddr, "Address to serve prometheus metrics on, disabled when empty")
	cmd.Flags().Uint32("ringBufSize", conf.RingBufSize, "Size in bytes of the diagnostics ring buffer")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		utils.LogError(logger, err, "failed to bind attach flags")
		return nil
	}
	return cmd
}
