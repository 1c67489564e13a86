//go:build linux

package tcx

import (
	"context"
	"errors"
	"time"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/ringbuf"
	"go.uber.org/zap"

	"go.keploy.io/tcxchain/pkg/models"
	"go.keploy.io/tcxchain/utils"
)

const (
	maxReadErrors   = 5
	readBackoffBase = 10 * time.Millisecond
	readBackoffMax  = time.Second
)

// recordReader is the part of *ringbuf.Reader the watcher uses.
type recordReader interface {
	Read() (ringbuf.Record, error)
	Close() error
}

// WatchDiagnostics streams the records written by the classifiers. The
// channel is closed once ctx is done.
func WatchDiagnostics(ctx context.Context, logger *zap.Logger, events *ebpf.Map, names map[uint32]string) (<-chan models.Diagnostic, error) {
	rb, err := ringbuf.NewReader(events)
	if err != nil {
		return nil, err
	}
	return watch(ctx, logger, rb, names), nil
}

func watch(ctx context.Context, logger *zap.Logger, rb recordReader, names map[uint32]string) <-chan models.Diagnostic {
	diagChan := make(chan models.Diagnostic, 100)
	stopped := make(chan struct{})

	// Read blocks until a record arrives, closing the reader unblocks it.
	go func() {
		select {
		case <-ctx.Done():
		case <-stopped:
		}
		rb.Close()
	}()

	go func() {
		defer close(diagChan)
		defer close(stopped)

		failures := 0
		backoff := readBackoffBase
		for {
			rec, err := rb.Read()
			if err != nil {
				if errors.Is(err, ringbuf.ErrClosed) {
					return
				}
				failures++
				if failures >= maxReadErrors {
					utils.LogError(logger, err, "giving up on the diagnostics ring buffer", zap.Int("failures", failures))
					return
				}
				logger.Debug("failed to read from the diagnostics ring buffer", zap.Error(err), zap.Duration("retryIn", backoff))
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff):
				}
				backoff = min(2*backoff, readBackoffMax)
				continue
			}
			failures = 0
			backoff = readBackoffBase

			d, err := decodeDiagnostic(rec.RawSample, names)
			if err != nil {
				utils.LogError(logger, err, "failed to decode classifier diagnostic")
				continue
			}
			select {
			case <-ctx.Done():
				return
			case diagChan <- d:
			}
		}
	}()
	return diagChan
}
