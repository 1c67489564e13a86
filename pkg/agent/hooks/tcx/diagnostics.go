package tcx

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net/netip"

	"go.keploy.io/tcxchain/pkg/models"
)

const diagnosticSize = 24

// diagnosticEvent mirrors the record the classifier program writes into the
// ring buffer.
type diagnosticEvent struct {
	Instance uint32
	Ifindex  uint32
	Len      uint32
	Saddr    [4]byte
	Daddr    [4]byte
	Protocol uint8
	_        [3]byte
}

// decodeDiagnostic turns a raw ring buffer sample into a Diagnostic, mapping
// the numeric instance id back to its name.
func decodeDiagnostic(raw []byte, names map[uint32]string) (models.Diagnostic, error) {
	if len(raw) < diagnosticSize {
		return models.Diagnostic{}, fmt.Errorf("short diagnostic record: %d bytes", len(raw))
	}
	var e diagnosticEvent
	if err := binary.Read(bytes.NewReader(raw[:diagnosticSize]), binary.NativeEndian, &e); err != nil {
		return models.Diagnostic{}, err
	}
	name, ok := names[e.Instance]
	if !ok {
		name = fmt.Sprintf("instance-%d", e.Instance)
	}
	return models.Diagnostic{
		Instance: name,
		Ifindex:  e.Ifindex,
		Length:   e.Len,
		Src:      netip.AddrFrom4(e.Saddr),
		Dst:      netip.AddrFrom4(e.Daddr),
		Protocol: e.Protocol,
	}, nil
}

func instanceNames(instances []models.InstanceSpec) map[uint32]string {
	names := make(map[uint32]string, len(instances))
	for _, inst := range instances {
		names[inst.ID] = inst.Name
	}
	return names
}
