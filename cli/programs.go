package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go.keploy.io/tcxchain/config"
	"go.keploy.io/tcxchain/pkg/agent/hooks/tcx"
	"go.keploy.io/tcxchain/utils"
)

func init() {
	Register("programs", Programs)
}

func Programs(_ context.Context, logger *zap.Logger, conf *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "programs",
		Short: "print the instructions of the built-in classifier programs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			specs, err := conf.InstanceSpecs()
			if err != nil {
				return err
			}
			coll, err := tcx.NewCollectionSpec(specs, conf.RingBufSize)
			if err != nil {
				utils.LogError(logger, err, "failed to assemble the classifiers")
				return err
			}
			names := make([]string, 0, len(coll.Programs))
			for name := range coll.Programs {
				names = append(names, name)
			}
			sort.Strings(names)
			paint := color.New(color.FgCyan).SprintFunc()
			for _, name := range names {
				prog := coll.Programs[name]
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %s):\n%v\n", paint(prog.Name), prog.Type, prog.AttachType, prog.Instructions)
			}
			return nil
		},
	}
}
