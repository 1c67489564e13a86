//go:build !linux

package tcx

import (
	"context"
	"errors"

	"github.com/cilium/ebpf"
	"go.uber.org/zap"

	"go.keploy.io/tcxchain/config"
	"go.keploy.io/tcxchain/pkg/models"
)

// Orchestrator is unimplemented on these platforms, see tcx_linux.go.
type Orchestrator struct{}

func New(logger *zap.Logger, cfg *config.Config, metrics *Metrics) (*Orchestrator, error) {
	return nil, errors.New("tcx is unimplemented on this GOOS")
}

func (o *Orchestrator) Load(ctx context.Context) error {
	return errors.New("tcx is unimplemented on this GOOS")
}

func (o *Orchestrator) Run(ctx context.Context) error {
	return errors.New("tcx is unimplemented on this GOOS")
}

func (o *Orchestrator) Close() error {
	return nil
}

func WatchDiagnostics(ctx context.Context, logger *zap.Logger, events *ebpf.Map, names map[uint32]string) (<-chan models.Diagnostic, error) {
	return nil, errors.New("tcx is unimplemented on this GOOS")
}
