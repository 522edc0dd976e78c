// Package telemetry publishes decoded sensor state.
package telemetry

import (
	"time"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/um7.go/pkg/device"
)

// SampleMessageName is the full protobuf name of Sample.
const SampleMessageName = "um7.telemetry.v1.Sample"

// Sample is the Go form of um7.telemetry.v1.Sample. It is maintained by
// hand: field tags must follow sample.proto.
type Sample struct {
	Device               string   `protobuf:"bytes,1,opt,name=device,proto3" json:"device,omitempty"`
	Timestamp            int64    `protobuf:"varint,2,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
	Roll                 float32  `protobuf:"fixed32,3,opt,name=roll,proto3" json:"roll,omitempty"`
	Pitch                float32  `protobuf:"fixed32,4,opt,name=pitch,proto3" json:"pitch,omitempty"`
	Yaw                  float32  `protobuf:"fixed32,5,opt,name=yaw,proto3" json:"yaw,omitempty"`
	RollRate             float32  `protobuf:"fixed32,6,opt,name=roll_rate,json=rollRate,proto3" json:"roll_rate,omitempty"`
	PitchRate            float32  `protobuf:"fixed32,7,opt,name=pitch_rate,json=pitchRate,proto3" json:"pitch_rate,omitempty"`
	YawRate              float32  `protobuf:"fixed32,8,opt,name=yaw_rate,json=yawRate,proto3" json:"yaw_rate,omitempty"`
	GyroX                float32  `protobuf:"fixed32,9,opt,name=gyro_x,json=gyroX,proto3" json:"gyro_x,omitempty"`
	GyroY                float32  `protobuf:"fixed32,10,opt,name=gyro_y,json=gyroY,proto3" json:"gyro_y,omitempty"`
	GyroZ                float32  `protobuf:"fixed32,11,opt,name=gyro_z,json=gyroZ,proto3" json:"gyro_z,omitempty"`
	Health               uint32   `protobuf:"varint,12,opt,name=health,proto3" json:"health,omitempty"`
	Firmware             string   `protobuf:"bytes,13,opt,name=firmware,proto3" json:"firmware,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func init() {
	proto.RegisterType((*Sample)(nil), SampleMessageName)
}

// Reset implements proto.Message.
func (m *Sample) Reset() { *m = Sample{} }

// String implements proto.Message.
func (m *Sample) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*Sample) ProtoMessage() {}

// SampleFrom creates a Sample from a device state.
func SampleFrom(name string, s device.State) *Sample {
	return &Sample{
		Device:    name,
		Timestamp: s.Updated.UnixNano(),
		Roll:      s.Roll,
		Pitch:     s.Pitch,
		Yaw:       s.Yaw,
		RollRate:  s.RollRate,
		PitchRate: s.PitchRate,
		YawRate:   s.YawRate,
		GyroX:     s.GyroX,
		GyroY:     s.GyroY,
		GyroZ:     s.GyroZ,
		Health:    uint32(s.Health),
		Firmware:  s.Firmware,
	}
}

// Time returns Timestamp as time.
func (m *Sample) Time() time.Time {
	return time.Unix(0, m.Timestamp)
}

// Faults lists the health faults carried by the sample.
func (m *Sample) Faults() []device.Fault {
	return device.Health(m.Health).Faults()
}

// Encode encodes the Sample to bytes.
func (m *Sample) Encode() ([]byte, error) {
	return proto.Marshal(m)
}

// DecodeSample decodes bytes into Sample.
func DecodeSample(data []byte) (*Sample, error) {
	var m Sample
	if err := proto.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
