// Package tcx assembles the classifier programs, loads them into the kernel
// and chains them on a network interface's TCX ingress hook.
package tcx

import (
	"fmt"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/asm"

	"go.keploy.io/tcxchain/pkg/classifier"
	"go.keploy.io/tcxchain/pkg/models"
	"go.keploy.io/tcxchain/pkg/packet"
)

// EventsMap is the ring buffer the classifiers write their diagnostics to.
const EventsMap = "events"

// DefaultRingBufSize is used when the configuration leaves the size at zero.
const DefaultRingBufSize = 1 << 16

// __sk_buff field offsets
const (
	skbLen     = 0
	skbIfindex = 40
	skbData    = 76
	skbDataEnd = 80
)

// offsets inside the IPv4 header
const (
	ipProtoOff = 9
	ipSrcOff   = 12
	ipDstOff   = 16
)

const labelPass = "pass"

// Instructions returns the classifier body for one instance. All instances
// share it; only the id written into the diagnostic differs. Every packet load
// is preceded by a data_end comparison covering the whole header.
func Instructions(name string, id uint32) asm.Instructions {
	return asm.Instructions{
		asm.Mov.Reg(asm.R6, asm.R1).WithSymbol(name),
		asm.LoadMem(asm.R2, asm.R6, skbData, asm.Word),
		asm.LoadMem(asm.R3, asm.R6, skbDataEnd, asm.Word),

		// link layer
		asm.Mov.Reg(asm.R4, asm.R2),
		asm.Add.Imm(asm.R4, packet.EthHdrLen),
		asm.JGT.Reg(asm.R4, asm.R3, labelPass),
		asm.LoadMem(asm.R5, asm.R2, packet.EthHdrLen-2, asm.Half),
		asm.HostTo(asm.BE, asm.R5, asm.Half),
		asm.JNE.Imm(asm.R5, int32(packet.EtherTypeIPv4), labelPass),

		// network layer
		asm.Mov.Reg(asm.R4, asm.R2),
		asm.Add.Imm(asm.R4, packet.EthHdrLen+packet.IPv4HdrLen),
		asm.JGT.Reg(asm.R4, asm.R3, labelPass),
		asm.LoadMem(asm.R5, asm.R2, packet.EthHdrLen+ipProtoOff, asm.Byte),
		asm.JNE.Imm(asm.R5, int32(packet.IPProtoICMP), labelPass),

		// diagnostic record on the stack, laid out as diagnosticEvent
		asm.StoreImm(asm.RFP, -diagnosticSize, int64(id), asm.Word),
		asm.LoadMem(asm.R7, asm.R6, skbIfindex, asm.Word),
		asm.StoreMem(asm.RFP, -diagnosticSize+4, asm.R7, asm.Word),
		asm.LoadMem(asm.R7, asm.R6, skbLen, asm.Word),
		asm.StoreMem(asm.RFP, -diagnosticSize+8, asm.R7, asm.Word),
		asm.LoadMem(asm.R7, asm.R2, packet.EthHdrLen+ipSrcOff, asm.Word),
		asm.StoreMem(asm.RFP, -diagnosticSize+12, asm.R7, asm.Word),
		asm.LoadMem(asm.R7, asm.R2, packet.EthHdrLen+ipDstOff, asm.Word),
		asm.StoreMem(asm.RFP, -diagnosticSize+16, asm.R7, asm.Word),
		asm.StoreImm(asm.RFP, -diagnosticSize+20, 0, asm.Word),
		asm.StoreMem(asm.RFP, -diagnosticSize+20, asm.R5, asm.Byte),

		asm.LoadMapPtr(asm.R1, 0).WithReference(EventsMap),
		asm.Mov.Reg(asm.R2, asm.RFP),
		asm.Add.Imm(asm.R2, -diagnosticSize),
		asm.Mov.Imm(asm.R3, diagnosticSize),
		asm.Mov.Imm(asm.R4, 0),
		asm.FnRingbufOutput.Call(),

		asm.Mov.Imm(asm.R0, int32(classifier.ActionNext)),
		asm.Return(),

		asm.Mov.Imm(asm.R0, int32(classifier.ActionPass)).WithSymbol(labelPass),
		asm.Return(),
	}
}

// ProgramName is the kernel-visible name of an instance's program.
func ProgramName(instance string) string {
	return "tcx_" + instance
}

// NewCollectionSpec assembles the bytecode image: the diagnostics ring buffer
// and one ingress classifier per instance, keyed by the instance's program
// name.
func NewCollectionSpec(instances []models.InstanceSpec, ringSize uint32) (*ebpf.CollectionSpec, error) {
	if ringSize == 0 {
		ringSize = DefaultRingBufSize
	}
	spec := &ebpf.CollectionSpec{
		Maps: map[string]*ebpf.MapSpec{
			EventsMap: {
				Name:       EventsMap,
				Type:       ebpf.RingBuf,
				MaxEntries: ringSize,
			},
		},
		Programs: make(map[string]*ebpf.ProgramSpec, len(instances)),
	}
	for _, inst := range instances {
		if _, ok := spec.Programs[inst.Program]; ok {
			return nil, fmt.Errorf("program %q is used by more than one instance", inst.Program)
		}
		spec.Programs[inst.Program] = &ebpf.ProgramSpec{
			Name:         ProgramName(inst.Name),
			Type:         ebpf.SchedCLS,
			AttachType:   ebpf.AttachTCXIngress,
			Instructions: Instructions(ProgramName(inst.Name), inst.ID),
			License:      "Dual MIT/GPL",
		}
	}
	return spec, nil
}
