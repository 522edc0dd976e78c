package device

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/golang/glog"

	"github.com/robotalks/um7.go/pkg/comm"
)

// EulerScale converts raw Euler register values to degrees (or degrees
// per second for rates). The division is done in float64 and narrowed
// afterwards.
const EulerScale = 91.02222

// registerSize is the size of one register in a payload.
const registerSize = 4

type fieldDecoder func(s *State, addr byte, data []byte)

var fieldDecoders = map[byte]fieldDecoder{
	comm.RegFirmwareRevision: decodeFirmware,
	comm.RegHealth:           decodeHealth,
	comm.RegEulerPhiTheta:    decodeEuler,
	comm.RegGyroProcX:        decodeGyro,
	comm.RegGyroProcY:        decodeGyro,
	comm.RegGyroProcZ:        decodeGyro,
}

// Decoder applies verified packets to a Store.
type Decoder struct {
	Store *Store
}

// HandlePacket implements comm.PacketHandler.
func (d *Decoder) HandlePacket(ctx context.Context, pkt *comm.Packet) {
	if pkt.Type.CommandFailed() {
		glog.Warningf("sensor reports failure on register 0x%02x", pkt.Address)
	}
	decode, ok := fieldDecoders[pkt.Address]
	if !ok {
		glog.V(4).Infof("ignore register 0x%02x", pkt.Address)
		return
	}
	// command acknowledgements reuse the register address without payload
	if len(pkt.Data) < registerSize {
		glog.V(4).Infof("register 0x%02x without data", pkt.Address)
		return
	}
	d.Store.Update(ctx, pkt.Address, func(s *State) {
		decode(s, pkt.Address, pkt.Data)
	})
}

func decodeFirmware(s *State, _ byte, data []byte) {
	s.Firmware = string(data[:4])
	s.NewFirmware = true
}

func decodeHealth(s *State, _ byte, data []byte) {
	s.Health = Health(binary.BigEndian.Uint32(data))
}

func decodeEuler(s *State, _ byte, data []byte) {
	s.Roll = eulerAt(data, 0)
	s.Pitch = eulerAt(data, 2)
	if len(data) > 4 {
		s.Yaw = eulerAt(data, 4)
	}
	if len(data) > 8 {
		s.RollRate = eulerAt(data, 8)
		s.PitchRate = eulerAt(data, 10)
	}
	if len(data) > 12 {
		s.YawRate = eulerAt(data, 12)
	}
}

func eulerAt(data []byte, offset int) float32 {
	return float32(float64(int16(binary.BigEndian.Uint16(data[offset:]))) / EulerScale)
}

// decodeGyro fills gyro axes starting from the addressed one.
func decodeGyro(s *State, addr byte, data []byte) {
	axes := []*float32{&s.GyroX, &s.GyroY, &s.GyroZ}[addr-comm.RegGyroProcX:]
	for n, axis := range axes {
		offset := n * registerSize
		if offset+registerSize > len(data) {
			break
		}
		*axis = floatAt(data, offset)
	}
}

// floatAt assembles an IEEE-754 single from 4 bytes, least significant first.
func floatAt(data []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(data[offset:]))
}
