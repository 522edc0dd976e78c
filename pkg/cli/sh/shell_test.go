package sh

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/um7.go/pkg/comm"
	"github.com/robotalks/um7.go/pkg/device"
)

func TestFormatState(t *testing.T) {
	out := formatState(device.State{
		Roll:     1.5,
		Health:   device.Health(device.FaultOverflow | device.FaultMagInit),
		Firmware: "U7AC",
	})
	require.Contains(t, out, "roll=   1.500")
	require.Contains(t, out, "health 0x00000102 OVF MAG\n")
	require.Contains(t, out, "fw     U7AC\n")

	out = formatState(device.State{})
	require.Contains(t, out, "health 0x00000000\n")
	require.NotContains(t, out, "fw")
}

func TestWaitFirmware(t *testing.T) {
	dev := device.New(&bytes.Buffer{})
	conn := newConn("test", dev)
	s := &Shell{ReplyTimeout: time.Second}

	go func() {
		time.Sleep(20 * time.Millisecond)
		dev.Store.Update(context.Background(), comm.RegHealth, func(*device.State) {})
		dev.Store.Update(context.Background(), comm.RegFirmwareRevision, func(st *device.State) {
			st.Firmware, st.NewFirmware = "U7AC", true
		})
	}()
	fw, err := s.WaitFirmware(conn)
	require.NoError(t, err)
	require.Equal(t, "U7AC", fw)
	require.False(t, dev.State().NewFirmware)
}

func TestConnFirmwareNotification(t *testing.T) {
	dev := device.New(&bytes.Buffer{})
	conn := newConn("test", dev)
	ctx := context.Background()

	dev.Store.Update(ctx, comm.RegHealth, func(*device.State) {})
	require.Len(t, conn.firmware, 0)
	dev.Store.Update(ctx, comm.RegFirmwareRevision, func(*device.State) {})
	dev.Store.Update(ctx, comm.RegFirmwareRevision, func(*device.State) {})
	require.Len(t, conn.firmware, 1)
}

func TestWaitFirmwareTimeout(t *testing.T) {
	dev := device.New(&bytes.Buffer{})
	s := &Shell{ReplyTimeout: 30 * time.Millisecond}
	_, err := s.WaitFirmware(newConn("test", dev))
	require.Error(t, err)
}
