package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"go.keploy.io/tcxchain/config"
	"go.keploy.io/tcxchain/pkg/classifier"
	"go.keploy.io/tcxchain/pkg/service/replay"
	"go.keploy.io/tcxchain/utils"
)

func init() {
	Register("replay", Replay)
}

func Replay(ctx context.Context, logger *zap.Logger, conf *config.Config) *cobra.Command {
	var cmd = &cobra.Command{
		Use:     "replay",
		Short:   "run the configured chain over the packets of a pcap file without touching the kernel",
		Example: `tcxchain replay --pcap ./icmp.pcap`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if conf.Replay.PcapPath == "" {
				err := errors.New("missing required --pcap flag or replay.pcap in config file")
				utils.LogError(logger, err, "nothing to replay")
				return err
			}
			specs, err := conf.InstanceSpecs()
			if err != nil {
				return err
			}
			chain, err := classifier.NewChain(specs)
			if err != nil {
				utils.LogError(logger, err, "failed to build the classifier chain")
				return err
			}

			f, err := os.Open(conf.Replay.PcapPath)
			if err != nil {
				utils.LogError(logger, err, "failed to open the capture", zap.String("pcap", conf.Replay.PcapPath))
				return err
			}
			defer f.Close()

			s, err := replay.NewReplayer(logger, chain).Replay(ctx, f)
			if err != nil {
				utils.LogError(logger, err, "failed to replay the capture", zap.String("pcap", conf.Replay.PcapPath))
				return err
			}
			logger.Debug("replay finished", zap.Strings("chain", chain.Names()), zap.Uint64("packets", s.Packets))
			return s.Render(cmd.OutOrStdout(), chain.Names())
		},
	}

	cmd.Flags().String("pcap", conf.Replay.PcapPath, "Ethernet pcap file to replay")
	if err := viper.BindPFlag("replay.pcap", cmd.Flags().Lookup("pcap")); err != nil {
		utils.LogError(logger, err, "failed to bind replay flags")
		return nil
	}
	return cmd
}
