package device

import "fmt"

// Health is the health register bitmask.
type Health uint32

// Fault is a single health bit.
type Fault uint32

// Faults reported by the health register.
const (
	FaultMagInit   Fault = 1 << 1
	FaultGyroInit  Fault = 1 << 2
	FaultAccelInit Fault = 1 << 3
	FaultAccelNorm Fault = 1 << 4
	FaultMagNorm   Fault = 1 << 5
	FaultOverflow  Fault = 1 << 8
)

// AllFaults lists known faults in reporting order.
var AllFaults = []Fault{
	FaultOverflow,
	FaultMagNorm,
	FaultAccelNorm,
	FaultAccelInit,
	FaultGyroInit,
	FaultMagInit,
}

var faultInfo = map[Fault]struct{ name, desc string }{
	FaultOverflow:  {"OVF", "Data overflow on serial port."},
	FaultMagNorm:   {"MG_N", "Magnetometer signal larger than expected. Orientation estimate not reliable."},
	FaultAccelNorm: {"ACC_N", "Acceleration much larger than 1 G. Orientation estimate not reliable."},
	FaultAccelInit: {"ACCEL", "Accelerometer failed to initialize on startup."},
	FaultGyroInit:  {"GYRO", "Gyro failed to initialize on startup."},
	FaultMagInit:   {"MAG", "Magnetometer failed to initialize on startup."},
}

// Name is the short name of the fault.
func (f Fault) Name() string {
	if info, ok := faultInfo[f]; ok {
		return info.name
	}
	return fmt.Sprintf("BIT%d", bitIndex(uint32(f)))
}

// String implements fmt.Stringer.
func (f Fault) String() string {
	if info, ok := faultInfo[f]; ok {
		return info.desc
	}
	return fmt.Sprintf("Unknown fault 0x%08x.", uint32(f))
}

// Has checks a single fault.
func (h Health) Has(f Fault) bool {
	return uint32(h)&uint32(f) != 0
}

// Faults returns the known faults which are set, in reporting order.
func (h Health) Faults() []Fault {
	var faults []Fault
	for _, f := range AllFaults {
		if h.Has(f) {
			faults = append(faults, f)
		}
	}
	return faults
}

// OK indicates no known fault is set.
func (h Health) OK() bool {
	return len(h.Faults()) == 0
}

func bitIndex(v uint32) int {
	for i := 0; i < 32; i++ {
		if v == 1<<uint(i) {
			return i
		}
	}
	return -1
}
