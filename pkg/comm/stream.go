package comm

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
)

// PacketHandler is called when a verified packet is received.
type PacketHandler interface {
	HandlePacket(context.Context, *Packet)
}

// HandlePacketFunc is func type of PacketHandler.
type HandlePacketFunc func(context.Context, *Packet)

// HandlePacket implements PacketHandler.
func (f HandlePacketFunc) HandlePacket(ctx context.Context, pkt *Packet) {
	f(ctx, pkt)
}

// Stats counts frames seen by a Stream.
type Stats struct {
	Accepted uint64
	Rejected uint64
}

// DefaultIdleBackoff is the pause after a read returning no data.
const DefaultIdleBackoff = time.Millisecond

// Stream sends commands and receives packets over a byte stream.
// Receive must not be called concurrently; Send may be.
type Stream struct {
	ReadWriter io.ReadWriter
	Handler    PacketHandler
	// IdleBackoff is the pause before reading again after a read
	// returned no data, e.g. a serial port with a zero read timeout.
	IdleBackoff time.Duration

	reader    io.ByteReader
	parser    Parser
	writeLock sync.Mutex
	accepted  uint64
	rejected  uint64
}

// NewStream creates a Stream.
func NewStream(rw io.ReadWriter) *Stream {
	s := &Stream{ReadWriter: rw, IdleBackoff: DefaultIdleBackoff}
	if br, ok := rw.(io.ByteReader); ok {
		s.reader = br
	} else {
		s.reader = &byteReader{r: rw}
	}
	return s
}

// ParserState gets the state of the underlying parser.
func (s *Stream) ParserState() State {
	return s.parser.State()
}

// Stats returns frame counters.
func (s *Stream) Stats() Stats {
	return Stats{
		Accepted: atomic.LoadUint64(&s.accepted),
		Rejected: atomic.LoadUint64(&s.rejected),
	}
}

// Send writes a command frame.
func (s *Stream) Send(cmd Command) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	glog.V(2).Infof("SND %s", cmd)
	_, err := cmd.WriteTo(s.ReadWriter)
	return err
}

// Receive consumes bytes until exactly one frame is complete.
// A verified packet is passed to Handler and returned. A frame failing
// verification is returned together with a *ChecksumError and never
// reaches Handler. Transport errors are returned as-is and leave the
// parser where it was, so a later call continues the same frame.
func (s *Stream) Receive(ctx context.Context) (*Packet, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := s.reader.ReadByte()
		if err == errNoData {
			if err := s.idle(ctx); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		pr := s.parser.Parse(b)
		if !pr.Done() {
			continue
		}
		if pr.Err != nil {
			atomic.AddUint64(&s.rejected, 1)
			glog.V(2).Infof("RCV rejected: %v", pr.Err)
			return pr.Packet, pr.Err
		}
		atomic.AddUint64(&s.accepted, 1)
		glog.V(4).Infof("RCV reg=0x%02x type=0x%02x len=%d", pr.Packet.Address, byte(pr.Packet.Type), len(pr.Packet.Data))
		if h := s.Handler; h != nil {
			h.HandlePacket(ctx, pr.Packet)
		}
		return pr.Packet, nil
	}
}

func (s *Stream) idle(ctx context.Context) error {
	if s.IdleBackoff <= 0 {
		return nil
	}
	timer := time.NewTimer(s.IdleBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run receives packets until the context is done or the transport fails.
// Rejected frames are skipped.
func (s *Stream) Run(ctx context.Context) error {
	for {
		_, err := s.Receive(ctx)
		if err != nil && !IsChecksumError(err) {
			return err
		}
	}
}

// errNoData is reported when a read returns nothing, e.g. a serial
// port with a read timeout.
var errNoData = errors.New("no data")

// byteReader reads one byte at a time without read-ahead.
type byteReader struct {
	r   io.Reader
	buf [1]byte
}

func (r *byteReader) ReadByte() (byte, error) {
	n, err := r.r.Read(r.buf[:])
	if n == 1 {
		return r.buf[0], nil
	}
	if err == nil {
		err = errNoData
	}
	return 0, err
}
