package comm

import (
	"io"
)

// Sync characters opening every frame.
const (
	SyncS byte = 's'
	SyncN byte = 'n'
	SyncP byte = 'p'
)

// MaxDataLength is the payload capacity of a single packet.
const MaxDataLength = 64

// MaxBatchLength is the largest batch length encodable in PacketType.
const MaxBatchLength = 15

const syncSum = uint16(SyncS) + uint16(SyncN) + uint16(SyncP)

// PacketType is the bit-packed packet type byte.
type PacketType byte

// Packet type bits.
const (
	TypeHasData       PacketType = 0x80
	TypeIsBatch       PacketType = 0x40
	TypeBatchMask     PacketType = 0x3c
	TypeIsHidden      PacketType = 0x02
	TypeCommandFailed PacketType = 0x01
)

// HasData indicates the packet carries a payload.
func (t PacketType) HasData() bool { return t&TypeHasData != 0 }

// IsBatch indicates the payload spans several consecutive registers.
func (t PacketType) IsBatch() bool { return t&TypeIsBatch != 0 }

// BatchLength is the number of registers in a batch.
func (t PacketType) BatchLength() int { return int(t&TypeBatchMask) >> 2 }

// IsHidden indicates a hidden register is addressed.
func (t PacketType) IsHidden() bool { return t&TypeIsHidden != 0 }

// CommandFailed is set by the sensor when it rejects a command.
func (t PacketType) CommandFailed() bool { return t&TypeCommandFailed != 0 }

// DataLength calculates the payload length in bytes.
func (t PacketType) DataLength() int {
	switch {
	case !t.HasData():
		return 0
	case t.IsBatch():
		return 4 * t.BatchLength()
	default:
		return 4
	}
}

// Packet contains the information of a parsed packet.
type Packet struct {
	Type    PacketType
	Address byte
	Data    []byte
	// Checksum is the transmitted checksum, high byte first on the wire.
	Checksum uint16
}

// NewPacket creates a packet for address with the type bits derived
// from the payload length. Payloads must be whole 4-byte registers.
func NewPacket(address byte, data []byte) (*Packet, error) {
	pkt := &Packet{Address: address, Data: data}
	switch n := len(data); {
	case n == 0:
	case n%4 != 0 || n > MaxBatchLength*4:
		return nil, ErrPayloadTooLarge
	case n == 4:
		pkt.Type = TypeHasData
	default:
		pkt.Type = TypeHasData | TypeIsBatch | PacketType(n/4)<<2
	}
	pkt.Checksum = pkt.ComputeChecksum()
	return pkt, nil
}

// Checksum computes the 16-bit frame checksum over type, address and data.
func Checksum(typ PacketType, address byte, data []byte) uint16 {
	sum := syncSum + uint16(typ) + uint16(address)
	for _, b := range data {
		sum += uint16(b)
	}
	return sum
}

// DataLength returns the payload length declared by the packet type.
func (p *Packet) DataLength() int {
	return p.Type.DataLength()
}

// ComputeChecksum calculates the checksum the packet should carry.
func (p *Packet) ComputeChecksum() uint16 {
	return Checksum(p.Type, p.Address, p.Data)
}

// ChecksumOK verifies the transmitted checksum.
func (p *Packet) ChecksumOK() bool {
	return p.Checksum == p.ComputeChecksum()
}

// Bytes returns the encoded frame carrying the packet's Checksum.
func (p *Packet) Bytes() []byte {
	b := make([]byte, 0, len(p.Data)+7)
	b = append(b, SyncS, SyncN, SyncP, byte(p.Type), p.Address)
	b = append(b, p.Data...)
	return append(b, byte(p.Checksum>>8), byte(p.Checksum))
}

// WriteTo writes the encoded frame.
func (p *Packet) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(p.Bytes())
	return int64(n), err
}
