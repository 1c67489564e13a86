// Package packet provides a bounds-checked, read-only view over raw packet
// bytes and the decoders for the link and network headers the classifier
// inspects.
package packet

import (
	"encoding/binary"
	"errors"
)

// ErrShortPacket is returned whenever a requested header does not fit inside
// the buffer.
var ErrShortPacket = errors.New("insufficient packet data")

// Header lists the fixed-size header layouts that can be read out of a Buffer.
type Header interface {
	EthHdr | IPv4Hdr
}

// Buffer is the byte range of a single packet. It is only ever read.
type Buffer struct {
	data []byte
}

func NewBuffer(data []byte) Buffer {
	return Buffer{data: data}
}

// Len returns the distance between the start and the end of the packet.
func (b Buffer) Len() int {
	return len(b.data)
}

// At decodes a T located at offset. The whole range [offset, offset+size(T))
// is checked against the end of the buffer before a single byte is read.
func At[T Header](b Buffer, offset int) (*T, error) {
	var hdr T
	size := binary.Size(&hdr)
	if offset < 0 || size < 0 || offset > len(b.data)-size {
		return nil, ErrShortPacket
	}
	if _, err := binary.Decode(b.data[offset:offset+size], binary.BigEndian, &hdr); err != nil {
		return nil, ErrShortPacket
	}
	return &hdr, nil
}
