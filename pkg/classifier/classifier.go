// Package classifier holds the decision logic shared by every classifier
// instance on the hook, a user-space model of one instance, and a model of
// the ordered chain the kernel walks on each packet.
package classifier

import (
	"fmt"

	"go.keploy.io/tcxchain/pkg/models"
	"go.keploy.io/tcxchain/pkg/packet"
)

// Action is the value a classifier hands back to the TCX hook.
type Action int32

const (
	// ActionPass terminates the chain and lets the packet through (TCX_PASS).
	ActionPass Action = 0
	// ActionNext continues with the next program on the hook (TCX_NEXT).
	ActionNext Action = -1
)

func (a Action) String() string {
	switch a {
	case ActionPass:
		return "pass"
	case ActionNext:
		return "next"
	}
	return fmt.Sprintf("action(%d)", int32(a))
}

// Decide is the classification predicate: ICMP continues down the chain,
// everything else ends it.
func Decide(ip *packet.IPv4Hdr) Action {
	if ip != nil && ip.Protocol == packet.IPProtoICMP {
		return ActionNext
	}
	return ActionPass
}

// Instance is one named deployment of the shared decision logic.
type Instance struct {
	ID   uint32
	Name string
}

func NewInstance(spec models.InstanceSpec) Instance {
	return Instance{ID: spec.ID, Name: spec.Name}
}

// Classify runs one invocation. Parse failures of any kind fold into
// ActionPass. A diagnostic is returned only for a match, which is the only
// case where the result is ActionNext.
func (i Instance) Classify(b packet.Buffer) (Action, *models.Diagnostic) {
	hdrs, err := packet.Parse(b)
	if err != nil {
		return ActionPass, nil
	}
	if Decide(hdrs.IPv4) != ActionNext {
		return ActionPass, nil
	}
	return ActionNext, &models.Diagnostic{
		Instance: i.Name,
		Length:   uint32(b.Len()),
		Src:      hdrs.IPv4.SrcAddr(),
		Dst:      hdrs.IPv4.DstAddr(),
		Protocol: uint8(hdrs.IPv4.Protocol),
	}
}
