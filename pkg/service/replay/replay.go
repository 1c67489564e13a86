// Package replay runs packets from a capture file through the user-space
// model of the classifier chain.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"go.uber.org/zap"

	"go.keploy.io/tcxchain/pkg/classifier"
	"go.keploy.io/tcxchain/pkg/packet"
)

type replayer struct {
	logger *zap.Logger
	chain  *classifier.Chain
}

func NewReplayer(logger *zap.Logger, chain *classifier.Chain) Service {
	return &replayer{
		logger: logger,
		chain:  chain,
	}
}

// Replay reads an Ethernet pcap and walks the chain for every packet,
// logging each diagnostic the way the attached classifiers report them.
func (r *replayer) Replay(ctx context.Context, capture io.Reader) (*Summary, error) {
	rd, err := pcapgo.NewReader(capture)
	if err != nil {
		return nil, fmt.Errorf("failed to read pcap header: %w", err)
	}
	if rd.LinkType() != layers.LinkTypeEthernet {
		return nil, fmt.Errorf("unsupported link type %s, only ethernet captures can be replayed", rd.LinkType())
	}

	s := &Summary{
		Matches:      make(map[string]uint64),
		TerminatedBy: make(map[string]uint64),
	}
	for {
		if err := ctx.Err(); err != nil {
			return s, err
		}
		data, ci, err := rd.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return s, fmt.Errorf("failed to read packet %d: %w", s.Packets+1, err)
		}
		s.Packets++

		v := r.chain.Run(packet.NewBuffer(data))
		for _, d := range v.Diagnostics {
			s.Matches[d.Instance]++
			r.logger.Info("received a packet",
				zap.String("instance", d.Instance),
				zap.Uint64("packet", s.Packets),
				zap.Time("captured", ci.Timestamp),
				zap.Stringer("src", d.Src),
				zap.Stringer("dst", d.Dst),
			)
		}
		if v.TerminatedBy != "" {
			s.TerminatedBy[v.TerminatedBy]++
		} else {
			s.FellThrough++
		}
		r.logger.Debug("packet verdict", zap.Uint64("packet", s.Packets), zap.Stringer("action", v.Action), zap.Strings("invoked", v.Invoked))
	}
	return s, nil
}
