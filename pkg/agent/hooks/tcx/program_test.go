package tcx

import (
	"bytes"
	"encoding/binary"
	"net/netip"
	"testing"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/asm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.keploy.io/tcxchain/pkg/classifier"
	"go.keploy.io/tcxchain/pkg/models"
)

func defaultInstances() []models.InstanceSpec {
	return []models.InstanceSpec{
		{ID: 0, Name: "first", Program: "first", Order: models.First},
		{ID: 1, Name: "last", Program: "last", Order: models.Last},
	}
}

// Every load through the packet pointer must be covered by an earlier
// data_end comparison, otherwise the verifier rejects the program.
func TestInstructions_LoadsAreBoundsChecked(t *testing.T) {
	insns := Instructions("tcx_first", 0)

	var added, checked int64
	packetLoads := 0
	for i, ins := range insns {
		switch {
		case ins.OpCode.ALUOp() == asm.Add && ins.Dst == asm.R4 && ins.OpCode.Source() == asm.ImmSource:
			added = ins.Constant
		case ins.OpCode.JumpOp() == asm.JGT && ins.Dst == asm.R4 && ins.Src == asm.R3:
			assert.Equal(t, labelPass, ins.Reference(), "instruction %d", i)
			checked = added
		case ins.OpCode.Class().IsLoad() && ins.OpCode.Mode() == asm.MemMode && ins.Src == asm.R2:
			packetLoads++
			end := int64(ins.Offset) + int64(ins.OpCode.Size().Sizeof())
			assert.LessOrEqual(t, end, checked, "instruction %d reads past the checked range: %v", i, ins)
		}
	}
	assert.Equal(t, 4, packetLoads)
	assert.Equal(t, int64(34), checked)
}

func TestInstructions_Shape(t *testing.T) {
	insns := Instructions("tcx_last", 7)

	assert.Equal(t, "tcx_last", insns[0].Symbol())

	var refs []string
	for _, ins := range insns {
		if ref := ins.Reference(); ref != "" && ref != labelPass {
			refs = append(refs, ref)
		}
	}
	assert.Equal(t, []string{EventsMap}, refs)

	var idStore bool
	for _, ins := range insns {
		if ins.OpCode.Class() == asm.StClass && ins.Offset == -diagnosticSize {
			idStore = ins.Constant == 7
		}
	}
	assert.True(t, idStore, "instance id is not written into the record")

	var swaps []asm.Instruction
	for _, ins := range insns {
		if ins.OpCode.ALUOp() == asm.Swap {
			swaps = append(swaps, ins)
		}
	}
	require.Len(t, swaps, 1, "EtherType must be converted from network order exactly once")
	assert.Equal(t, asm.HostTo(asm.BE, asm.R5, asm.Half), swaps[0])

	n := len(insns)
	assert.Equal(t, labelPass, insns[n-2].Symbol())
	assert.Equal(t, int64(classifier.ActionPass), insns[n-2].Constant)
	assert.Equal(t, int64(classifier.ActionNext), insns[n-4].Constant)
	assert.Equal(t, asm.Return(), insns[n-1])
	assert.Equal(t, asm.Return(), insns[n-3])
}

func TestInstructions_SharedBody(t *testing.T) {
	a := Instructions("tcx_a", 0)
	b := Instructions("tcx_b", 1)
	require.Len(t, b, len(a))
	diff := 0
	for i := range a {
		if a[i].OpCode != b[i].OpCode || a[i].Constant != b[i].Constant {
			diff++
		}
	}
	assert.Equal(t, 1, diff)
}

func TestNewCollectionSpec(t *testing.T) {
	spec, err := NewCollectionSpec(defaultInstances(), 0)
	require.NoError(t, err)

	require.Contains(t, spec.Maps, EventsMap)
	assert.Equal(t, ebpf.RingBuf, spec.Maps[EventsMap].Type)
	assert.Equal(t, uint32(DefaultRingBufSize), spec.Maps[EventsMap].MaxEntries)

	require.Len(t, spec.Programs, 2)
	for _, inst := range defaultInstances() {
		prog := spec.Programs[inst.Program]
		require.NotNil(t, prog, inst.Program)
		assert.Equal(t, ProgramName(inst.Name), prog.Name)
		assert.Equal(t, ebpf.SchedCLS, prog.Type)
		assert.Equal(t, ebpf.AttachTCXIngress, prog.AttachType)
	}
}

func TestNewCollectionSpec_DuplicateProgram(t *testing.T) {
	instances := defaultInstances()
	instances[1].Program = "first"
	_, err := NewCollectionSpec(instances, 1<<14)
	assert.Error(t, err)
}

func TestDecodeDiagnostic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.NativeEndian, diagnosticEvent{
		Instance: 1,
		Ifindex:  3,
		Len:      98,
		Saddr:    [4]byte{10, 0, 0, 1},
		Daddr:    [4]byte{10, 0, 0, 2},
		Protocol: 1,
	}))
	require.Equal(t, diagnosticSize, buf.Len())

	names := instanceNames(defaultInstances())
	d, err := decodeDiagnostic(buf.Bytes(), names)
	require.NoError(t, err)
	assert.Equal(t, models.Diagnostic{
		Instance: "last",
		Ifindex:  3,
		Length:   98,
		Src:      netip.MustParseAddr("10.0.0.1"),
		Dst:      netip.MustParseAddr("10.0.0.2"),
		Protocol: 1,
	}, d)

	d, err = decodeDiagnostic(buf.Bytes(), map[uint32]string{})
	require.NoError(t, err)
	assert.Equal(t, "instance-1", d.Instance)

	_, err = decodeDiagnostic(buf.Bytes()[:diagnosticSize-1], names)
	assert.Error(t, err)
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.observe(models.Diagnostic{Instance: "first"})
	m.observe(models.Diagnostic{Instance: "first"})
	m.setAttached(defaultInstances()[1], true)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				values[f.GetName()] += c.GetValue()
			}
			if g := metric.GetGauge(); g != nil {
				values[f.GetName()] += g.GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, values["tcxchain_classifier_matches_total"])
	assert.Equal(t, 1.0, values["tcxchain_classifier_attached"])
}
