package packet

import (
	"errors"
	"fmt"
	"net/netip"
)

// ErrNotApplicable means the link layer carries something other than IPv4.
var ErrNotApplicable = errors.New("next protocol is not IPv4")

const (
	EthHdrLen  = 14
	IPv4HdrLen = 20
)

type EtherType uint16

const (
	EtherTypeIPv4 EtherType = 0x0800
	EtherTypeARP  EtherType = 0x0806
	EtherTypeIPv6 EtherType = 0x86DD
)

func (e EtherType) String() string {
	switch e {
	case EtherTypeIPv4:
		return "IPv4"
	case EtherTypeARP:
		return "ARP"
	case EtherTypeIPv6:
		return "IPv6"
	}
	return fmt.Sprintf("0x%04x", uint16(e))
}

type IPProto uint8

const (
	IPProtoICMP IPProto = 1
	IPProtoTCP  IPProto = 6
	IPProtoUDP  IPProto = 17
)

func (p IPProto) String() string {
	switch p {
	case IPProtoICMP:
		return "ICMP"
	case IPProtoTCP:
		return "TCP"
	case IPProtoUDP:
		return "UDP"
	}
	return fmt.Sprintf("proto(%d)", uint8(p))
}

// EthHdr is the Ethernet II header found at offset 0.
type EthHdr struct {
	Dst       [6]byte
	Src       [6]byte
	EtherType EtherType
}

// IPv4Hdr is the fixed part of the IPv4 header. Options are never read.
type IPv4Hdr struct {
	VersionIHL uint8
	TOS        uint8
	TotalLen   uint16
	ID         uint16
	FragOff    uint16
	TTL        uint8
	Protocol   IPProto
	Checksum   uint16
	Src        [4]byte
	Dst        [4]byte
}

func (h *IPv4Hdr) SrcAddr() netip.Addr { return netip.AddrFrom4(h.Src) }

func (h *IPv4Hdr) DstAddr() netip.Addr { return netip.AddrFrom4(h.Dst) }

// Headers holds whatever Parse managed to decode.
type Headers struct {
	Eth  *EthHdr
	IPv4 *IPv4Hdr
}

// Parse decodes the Ethernet header and, only when it announces IPv4, the IPv4
// header right behind it. Each stage decodes just enough to pick the next
// offset and tag.
func Parse(b Buffer) (*Headers, error) {
	eth, err := At[EthHdr](b, 0)
	if err != nil {
		return nil, err
	}
	hdrs := &Headers{Eth: eth}
	if eth.EtherType != EtherTypeIPv4 {
		return hdrs, ErrNotApplicable
	}
	ip, err := At[IPv4Hdr](b, EthHdrLen)
	if err != nil {
		return hdrs, err
	}
	hdrs.IPv4 = ip
	return hdrs, nil
}
