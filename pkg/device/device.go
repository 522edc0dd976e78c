package device

import (
	"context"
	"fmt"
	"io"

	"github.com/robotalks/um7.go/pkg/comm"
)

// Device is a UM7 attached to a byte stream.
type Device struct {
	Stream *comm.Stream
	Store  *Store
}

// New creates a Device over rw.
func New(rw io.ReadWriter) *Device {
	d := &Device{
		Stream: comm.NewStream(rw),
		Store:  &Store{},
	}
	d.Stream.Handler = &Decoder{Store: d.Store}
	return d
}

// Receive reads exactly one frame and decodes it when verified.
// A frame failing verification yields a *comm.ChecksumError; calling
// Receive again resumes with the next frame.
func (d *Device) Receive(ctx context.Context) error {
	_, err := d.Stream.Receive(ctx)
	return err
}

// Run receives and decodes packets until the context is done or the
// transport fails.
func (d *Device) Run(ctx context.Context) error {
	return d.Stream.Run(ctx)
}

// State returns a snapshot of the latest readings.
func (d *Device) State() State {
	return d.Store.Snapshot()
}

// RequestFirmwareVersion asks the sensor to report its firmware revision.
func (d *Device) RequestFirmwareVersion() error {
	return d.Stream.Send(comm.CmdGetFirmwareRevision)
}

// ZeroGyros starts gyro bias calibration. The sensor must be still.
func (d *Device) ZeroGyros() error {
	return d.Stream.Send(comm.CmdZeroGyros)
}

// ResetEKF resets the orientation filter.
func (d *Device) ResetEKF() error {
	return d.Stream.Send(comm.CmdResetEKF)
}

// SetMagneticReference takes the current magnetic field as reference.
func (d *Device) SetMagneticReference() error {
	return d.Stream.Send(comm.CmdSetMagReference)
}

// CheckStatus writes the firmware revision if a new one arrived, then
// one line per health fault.
func (d *Device) CheckStatus(w io.Writer) error {
	if fw, ok := d.Store.TakeFirmware(); ok {
		if _, err := fmt.Fprintln(w, fw); err != nil {
			return err
		}
	}
	for _, f := range d.Store.Snapshot().Health.Faults() {
		if _, err := fmt.Fprintln(w, f); err != nil {
			return err
		}
	}
	return nil
}
