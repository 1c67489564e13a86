// Package cli wires the tcxchain commands into a cobra command tree.
package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go.keploy.io/tcxchain/config"
)

type HookFunc func(context.Context, *zap.Logger, *config.Config) *cobra.Command

// Registered holds the registered command hooks
var Registered map[string]HookFunc

func Register(name string, f HookFunc) {
	if Registered == nil {
		Registered = make(map[string]HookFunc)
	}
	Registered[name] = f
}
