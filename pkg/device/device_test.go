package device

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/um7.go/pkg/comm"
)

type testConn struct {
	in  bytes.Buffer
	out bytes.Buffer
}

func (c *testConn) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c *testConn) Write(p []byte) (int, error) { return c.out.Write(p) }

func (c *testConn) inject(t *testing.T, address byte, data ...byte) {
	pkt, err := comm.NewPacket(address, data)
	require.NoError(t, err)
	c.in.Write(pkt.Bytes())
}

func TestDeviceReceive(t *testing.T) {
	conn := &testConn{}
	conn.in.WriteString("xx")
	conn.inject(t, comm.RegEulerPhiTheta, 0x00, 0x64, 0x01, 0x2c)
	conn.inject(t, comm.RegGyroProcX, 0x00, 0x00, 0xc0, 0x3f)

	dev := New(conn)
	ctx := context.Background()
	require.NoError(t, dev.Receive(ctx))
	require.NoError(t, dev.Receive(ctx))
	require.Equal(t, io.EOF, dev.Receive(ctx))

	s := dev.State()
	require.InDelta(t, 1.0985, s.Roll, 1e-3)
	require.InDelta(t, 3.2956, s.Pitch, 1e-3)
	require.Equal(t, float32(1.5), s.GyroX)
}

func TestDeviceReceiveChecksumError(t *testing.T) {
	conn := &testConn{}
	pkt, err := comm.NewPacket(comm.RegHealth, []byte{0, 0, 0, 4})
	require.NoError(t, err)
	pkt.Checksum++
	conn.in.Write(pkt.Bytes())
	conn.inject(t, comm.RegHealth, 0, 0, 0, 8)

	dev := New(conn)
	err = dev.Receive(context.Background())
	require.True(t, comm.IsChecksumError(err))
	require.Equal(t, Health(0), dev.State().Health)
	require.NoError(t, dev.Receive(context.Background()))
	require.Equal(t, FaultAccelInit, Fault(dev.State().Health))
}

func TestDeviceRun(t *testing.T) {
	conn := &testConn{}
	conn.inject(t, comm.RegHealth, 0, 0, 0, 4)
	conn.in.Write([]byte{'s', 'n', 'p', 0x80, 0x55, 0, 0, 0, 0, 0, 0})
	conn.inject(t, comm.RegFirmwareRevision, 'U', '7', '1', 'C')
	dev := New(conn)
	require.Equal(t, io.EOF, dev.Run(context.Background()))
	s := dev.State()
	require.Equal(t, Health(4), s.Health)
	require.Equal(t, "U71C", s.Firmware)
	require.Equal(t, comm.Stats{Accepted: 2, Rejected: 1}, dev.Stream.Stats())
}

func TestDeviceCommands(t *testing.T) {
	conn := &testConn{}
	dev := New(conn)
	require.NoError(t, dev.RequestFirmwareVersion())
	require.NoError(t, dev.ZeroGyros())
	require.NoError(t, dev.ResetEKF())
	require.NoError(t, dev.SetMagneticReference())

	var expect []byte
	for _, cmd := range []comm.Command{
		comm.CmdGetFirmwareRevision,
		comm.CmdZeroGyros,
		comm.CmdResetEKF,
		comm.CmdSetMagReference,
	} {
		expect = append(expect, cmd.Bytes()...)
	}
	require.Equal(t, expect, conn.out.Bytes())
}

func TestDeviceCheckStatus(t *testing.T) {
	conn := &testConn{}
	conn.inject(t, comm.RegFirmwareRevision, 'U', '7', '1', 'C')
	conn.inject(t, comm.RegHealth, 0, 0, 0, 0x14)
	dev := New(conn)
	require.Equal(t, io.EOF, dev.Run(context.Background()))

	var out bytes.Buffer
	require.NoError(t, dev.CheckStatus(&out))
	require.Equal(t, "U71C\n"+
		"Acceleration much larger than 1 G. Orientation estimate not reliable.\n"+
		"Gyro failed to initialize on startup.\n", out.String())

	out.Reset()
	require.NoError(t, dev.CheckStatus(&out))
	require.Equal(t, "Acceleration much larger than 1 G. Orientation estimate not reliable.\n"+
		"Gyro failed to initialize on startup.\n", out.String())
}
