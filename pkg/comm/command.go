package comm

import (
	"fmt"
	"io"
)

// Command is the address of a command register.
type Command byte

// Commands understood by the sensor.
const (
	CmdGetFirmwareRevision Command = 0xaa
	CmdSetMagReference     Command = 0xb0
	CmdResetEKF            Command = 0xb3
	CmdZeroGyros           Command = 0xad
)

// CommandFrameSize is the size of an encoded command frame.
const CommandFrameSize = 7

var commandNames = map[Command]string{
	CmdGetFirmwareRevision: "get-fw-revision",
	CmdSetMagReference:     "set-mag-reference",
	CmdResetEKF:            "reset-ekf",
	CmdZeroGyros:           "zero-gyros",
}

// String implements fmt.Stringer.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("cmd(0x%02x)", byte(c))
}

// Bytes returns the encoded command frame. Commands never carry a payload
// and always use packet type 0.
func (c Command) Bytes() []byte {
	sum := Checksum(0, byte(c), nil)
	return []byte{SyncS, SyncN, SyncP, 0, byte(c), byte(sum >> 8), byte(sum)}
}

// WriteTo writes the encoded command frame.
func (c Command) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(c.Bytes())
	return int64(n), err
}
