// Package utils provides utility functions for the tcxchain application.
package utils

import (
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"
)

// Version is injected at build time through ldflags.
var Version = "dev"

// LogError logs err with msg. A nil err is still logged so that callers can
// report conditions that have no underlying error value.
func LogError(logger *zap.Logger, err error, msg string, fields ...zap.Field) {
	if logger == nil {
		return
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	logger.Error(msg, fields...)
}

// Recover logs a panic of the calling goroutine together with its stack
// instead of letting it take the process down. Use it as a deferred call.
func Recover(logger *zap.Logger) {
	if logger == nil {
		return
	}
	if r := recover(); r != nil {
		logger.Error("recovered from panic", zap.String("panic", fmt.Sprint(r)), zap.String("stack", string(debug.Stack())))
	}
}
