package comm

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testConn struct {
	in  io.Reader
	out bytes.Buffer
}

func (c *testConn) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c *testConn) Write(p []byte) (int, error) { return c.out.Write(p) }

// idleReader returns no data until its budget is used, then EOF.
type idleReader struct {
	reads int
}

func (r *idleReader) Read(p []byte) (int, error) {
	if r.reads == 0 {
		return 0, io.EOF
	}
	r.reads--
	return 0, nil
}

func newTestConn(in ...[]byte) *testConn {
	return &testConn{in: bytes.NewReader(concat(in...))}
}

func TestStreamReceive(t *testing.T) {
	bad := testFrame(t, 0x55, 0, 0, 0, 1)
	bad[len(bad)-2]++
	conn := newTestConn(
		[]byte{'x'},
		testFrame(t, 0x70, 0x00, 0x64, 0x01, 0x2c),
		bad,
		testFrame(t, 0x55, 0, 0, 0, 2),
	)

	var handled []*Packet
	s := NewStream(conn)
	s.Handler = HandlePacketFunc(func(_ context.Context, pkt *Packet) {
		handled = append(handled, pkt)
	})
	ctx := context.Background()

	pkt, err := s.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, byte(0x70), pkt.Address)

	pkt, err = s.Receive(ctx)
	require.Error(t, err)
	require.True(t, IsChecksumError(err))
	require.Equal(t, byte(0x55), pkt.Address)
	require.Equal(t, StateZero, s.ParserState())

	pkt, err = s.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 2}, pkt.Data)

	_, err = s.Receive(ctx)
	require.Equal(t, io.EOF, err)

	require.Len(t, handled, 2)
	require.Equal(t, byte(0x70), handled[0].Address)
	require.Equal(t, byte(0x55), handled[1].Address)
	require.Equal(t, Stats{Accepted: 2, Rejected: 1}, s.Stats())
}

func TestStreamByteReader(t *testing.T) {
	buf := bytes.NewBuffer(testFrame(t, 0x61, 0, 0, 0xc0, 0x3f))
	s := NewStream(buf)
	pkt, err := s.Receive(context.Background())
	require.NoError(t, err)
	require.Equal(t, byte(0x61), pkt.Address)
}

func TestStreamResumesAfterTransportError(t *testing.T) {
	frame := testFrame(t, 0x55, 0, 0, 0, 1)
	first, second := frame[:6], frame[6:]
	conn := newTestConn(first)
	s := NewStream(conn)
	_, err := s.Receive(context.Background())
	require.Equal(t, io.EOF, err)
	require.Equal(t, StatePayload, s.ParserState())

	conn.in = bytes.NewReader(second)
	pkt, err := s.Receive(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 1}, pkt.Data)
}

func TestStreamIdleReads(t *testing.T) {
	s := NewStream(&testConn{in: &idleReader{reads: 3}})
	_, err := s.Receive(context.Background())
	require.Equal(t, io.EOF, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s = NewStream(&testConn{in: &idleReader{reads: 1000}})
	_, err = s.Receive(ctx)
	require.Equal(t, context.Canceled, err)
}

func TestStreamIdleBackoff(t *testing.T) {
	const budget = 1000000
	r := &idleReader{reads: budget}
	s := NewStream(&testConn{in: r})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := s.Receive(ctx)
	require.Equal(t, context.DeadlineExceeded, err)
	require.True(t, budget-r.reads < 1000, "reads %d", budget-r.reads)
}

func TestStreamRun(t *testing.T) {
	bad := testFrame(t, 0x55, 0, 0, 0, 1)
	bad[len(bad)-1]++
	conn := newTestConn(
		testFrame(t, 0x55, 0, 0, 0, 1),
		bad,
		testFrame(t, 0x70, 0x00, 0x64, 0x01, 0x2c),
	)
	var count int
	s := NewStream(conn)
	s.Handler = HandlePacketFunc(func(context.Context, *Packet) { count++ })
	require.Equal(t, io.EOF, s.Run(context.Background()))
	require.Equal(t, 2, count)
	require.Equal(t, uint64(1), s.Stats().Rejected)
}

func TestStreamSend(t *testing.T) {
	conn := newTestConn()
	s := NewStream(conn)
	require.NoError(t, s.Send(CmdZeroGyros))
	require.NoError(t, s.Send(CmdResetEKF))
	require.Equal(t, concat(CmdZeroGyros.Bytes(), CmdResetEKF.Bytes()), conn.out.Bytes())
}
