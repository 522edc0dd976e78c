package telemetry

import (
	"reflect"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/um7.go/pkg/device"
)

func TestSampleEncoding(t *testing.T) {
	ts := time.Date(2019, 6, 1, 12, 0, 0, 500, time.UTC)
	s := device.State{
		Roll: 1.5, Pitch: -2.25, Yaw: 180,
		RollRate: 0.5, PitchRate: -0.5, YawRate: 3,
		GyroX: 1.5, GyroY: -1, GyroZ: 10,
		Health:   device.Health(device.FaultOverflow),
		Firmware: "U71C",
		Updated:  ts,
	}
	sample := SampleFrom("um7/abc", s)
	data, err := sample.Encode()
	require.NoError(t, err)

	decoded, err := DecodeSample(data)
	require.NoError(t, err)
	require.Equal(t, "um7/abc", decoded.Device)
	require.True(t, ts.Equal(decoded.Time()))
	require.Equal(t, float32(-2.25), decoded.Pitch)
	require.Equal(t, float32(3), decoded.YawRate)
	require.Equal(t, float32(10), decoded.GyroZ)
	require.Equal(t, "U71C", decoded.Firmware)
	require.Equal(t, []device.Fault{device.FaultOverflow}, decoded.Faults())
	require.Contains(t, decoded.String(), `firmware:"U71C"`)
}

func TestDecodeSampleError(t *testing.T) {
	_, err := DecodeSample([]byte{0x0a, 0xff})
	require.Error(t, err)
}

func TestSampleWireFormat(t *testing.T) {
	require.Equal(t, reflect.TypeOf((*Sample)(nil)), proto.MessageType(SampleMessageName))

	data, err := (&Sample{Device: "a", Roll: 1.5, Health: 2}).Encode()
	require.NoError(t, err)
	require.Equal(t, []byte{
		0x0a, 0x01, 'a', // device = 1
		0x1d, 0x00, 0x00, 0xc0, 0x3f, // roll = 3, fixed32
		0x60, 0x02, // health = 12
	}, data)
}
