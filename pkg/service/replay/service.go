package replay

import (
	"context"
	"io"
)

// Service replays a packet capture through the configured chain.
type Service interface {
	Replay(ctx context.Context, capture io.Reader) (*Summary, error)
}

// Summary counts how each replayed packet left the chain.
type Summary struct {
	Packets uint64
	// Matches counts diagnostics per instance.
	Matches map[string]uint64
	// TerminatedBy counts the instance that returned pass.
	TerminatedBy map[string]uint64
	// FellThrough counts packets every instance handed to the next program.
	FellThrough uint64
}
