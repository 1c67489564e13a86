package classifier

import (
	"errors"
	"fmt"
	"slices"

	"go.keploy.io/tcxchain/pkg/models"
	"go.keploy.io/tcxchain/pkg/packet"
)

var (
	ErrDuplicateInstance = errors.New("instance already on the chain")
	ErrUnknownPeer       = errors.New("order refers to an instance not on the chain")
)

// Chain models the programs attached to one (interface, direction) hook in
// the order the kernel runs them.
type Chain struct {
	instances []Instance
}

// Insert places inst the way TCX resolves an attach anchor: first goes in
// front of everything, last behind everything, before/after next to the named
// peer.
func (c *Chain) Insert(inst Instance, order models.Order) error {
	if c.index(inst.Name) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateInstance, inst.Name)
	}
	var pos int
	switch order.Kind {
	case models.OrderFirst:
		pos = 0
	case models.OrderLast:
		pos = len(c.instances)
	case models.OrderBefore, models.OrderAfter:
		pos = c.index(order.Peer)
		if pos < 0 {
			return fmt.Errorf("%w: %s", ErrUnknownPeer, order.Peer)
		}
		if order.Kind == models.OrderAfter {
			pos++
		}
	default:
		return fmt.Errorf("%w: %v", models.ErrInvalidOrder, order)
	}
	c.instances = slices.Insert(c.instances, pos, inst)
	return nil
}

// Names returns the instance names in invocation order.
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.instances))
	for _, inst := range c.instances {
		names = append(names, inst.Name)
	}
	return names
}

func (c *Chain) Len() int {
	return len(c.instances)
}

func (c *Chain) index(name string) int {
	return slices.IndexFunc(c.instances, func(i Instance) bool { return i.Name == name })
}

// Verdict is the outcome of walking the chain for one packet.
type Verdict struct {
	// Action is the last action returned. ActionNext means every instance
	// asked to continue and the packet fell off the end of the chain.
	Action Action
	// TerminatedBy names the instance that returned ActionPass, if any.
	TerminatedBy string
	// Invoked lists the instances that ran, in order.
	Invoked     []string
	Diagnostics []models.Diagnostic
}

// Run invokes the instances in order until one returns ActionPass.
func (c *Chain) Run(b packet.Buffer) Verdict {
	v := Verdict{Action: ActionNext}
	for _, inst := range c.instances {
		v.Invoked = append(v.Invoked, inst.Name)
		action, diag := inst.Classify(b)
		if diag != nil {
			v.Diagnostics = append(v.Diagnostics, *diag)
		}
		v.Action = action
		if action == ActionPass {
			v.TerminatedBy = inst.Name
			break
		}
	}
	return v
}

// NewChain builds a chain from instance specs, inserting them in the given
// sequence. Relative orders must name an instance that appears earlier.
func NewChain(specs []models.InstanceSpec) (*Chain, error) {
	c := &Chain{}
	for _, spec := range specs {
		if err := c.Insert(NewInstance(spec), spec.Order); err != nil {
			return nil, err
		}
	}
	return c, nil
}
