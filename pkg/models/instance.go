package models

import "net/netip"

// InstanceSpec identifies one classifier on the hook. Name is the stable
// identity, Program the entry point looked up in the loaded bytecode.
type InstanceSpec struct {
	ID      uint32
	Name    string
	Program string
	Order   Order
}

// Diagnostic is emitted once per ICMP match by the instance that saw it.
type Diagnostic struct {
	Instance string
	Ifindex  uint32
	Length   uint32
	Src      netip.Addr
	Dst      netip.Addr
	Protocol uint8
}
