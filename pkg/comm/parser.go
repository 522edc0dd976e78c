package comm

import "fmt"

// State is the state of the frame parser.
type State int

// Parser states, each named after what has been consumed so far.
const (
	StateZero      State = iota // waiting for 's'
	StateSyncS                  // waiting for 'n'
	StateSyncSN                 // waiting for 'p'
	StateSyncSNP                // waiting for packet type
	StateType                   // waiting for address
	StatePayload                // receiving payload
	StateCheckHigh              // waiting for checksum high byte
	StateCheckLow               // waiting for checksum low byte
)

var stateNames = [...]string{
	StateZero:      "ZERO",
	StateSyncS:     "SYNC_S",
	StateSyncSN:    "SYNC_SN",
	StateSyncSNP:   "SYNC_SNP",
	StateType:      "TYPE",
	StatePayload:   "PAYLOAD",
	StateCheckHigh: "CHECK_HIGH",
	StateCheckLow:  "CHECK_LOW",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ParseResult indicates the result after one parsing step.
type ParseResult struct {
	State State
	// Packet is set only on the step which completes a frame.
	Packet *Packet
	// Err is a *ChecksumError when Packet failed verification.
	Err error
}

// Done indicates a complete frame was consumed, valid or not.
func (r ParseResult) Done() bool {
	return r.Packet != nil
}

// OK indicates a complete frame passed verification.
func (r ParseResult) OK() bool {
	return r.Packet != nil && r.Err == nil
}

// Parser parses bytes received. The zero value is ready to use.
type Parser struct {
	state   State
	packet  *Packet
	dataLen int
}

// State gets the current parser state.
func (p *Parser) State() State {
	return p.state
}

// Reset drops any partial frame and waits for sync again.
func (p *Parser) Reset() {
	p.state, p.packet, p.dataLen = StateZero, nil, 0
}

// Parse consumes one byte.
func (p *Parser) Parse(b byte) (pr ParseResult) {
	switch p.state {
	case StateZero:
		p.onZero(b)
	case StateSyncS:
		p.onSync(b, SyncN, StateSyncSN)
	case StateSyncSN:
		p.onSync(b, SyncP, StateSyncSNP)
	case StateSyncSNP:
		p.onPacketType(b)
	case StateType:
		p.onAddress(b)
	case StatePayload:
		p.onPayload(b)
	case StateCheckHigh:
		p.onCheckHigh(b)
	case StateCheckLow:
		pr = p.onCheckLow(b)
	}
	pr.State = p.state
	return
}

func (p *Parser) onZero(b byte) {
	if b == SyncS {
		p.state = StateSyncS
	}
}

func (p *Parser) onSync(b, expect byte, next State) {
	if b != expect {
		p.Reset()
		return
	}
	p.state = next
}

func (p *Parser) onPacketType(b byte) {
	typ := PacketType(b)
	n := typ.DataLength()
	if n > MaxDataLength {
		p.Reset()
		return
	}
	p.packet, p.dataLen = &Packet{Type: typ}, n
	p.state = StateType
}

func (p *Parser) onAddress(b byte) {
	p.packet.Address = b
	if p.dataLen == 0 {
		p.state = StateCheckHigh
		return
	}
	p.packet.Data = make([]byte, 0, p.dataLen)
	p.state = StatePayload
}

func (p *Parser) onPayload(b byte) {
	p.packet.Data = append(p.packet.Data, b)
	if len(p.packet.Data) >= p.dataLen {
		p.state = StateCheckHigh
	}
}

func (p *Parser) onCheckHigh(b byte) {
	p.packet.Checksum = uint16(b) << 8
	p.state = StateCheckLow
}

func (p *Parser) onCheckLow(b byte) (pr ParseResult) {
	pkt := p.packet
	pkt.Checksum |= uint16(b)
	p.Reset()
	pr.Packet = pkt
	if computed := pkt.ComputeChecksum(); computed != pkt.Checksum {
		pr.Err = &ChecksumError{Address: pkt.Address, Computed: computed, Received: pkt.Checksum}
	}
	return
}
