package device

import (
	"context"
	"sync"
	"time"
)

// State is the latest decoded readings of a sensor.
type State struct {
	// Euler angles in degrees.
	Roll, Pitch, Yaw float32
	// Euler angle rates in degrees per second.
	RollRate, PitchRate, YawRate float32
	// Processed gyro readings as transmitted.
	GyroX, GyroY, GyroZ float32

	Health Health

	// Firmware is the 4-character firmware revision.
	Firmware string
	// NewFirmware is set when Firmware was decoded and not yet taken.
	NewFirmware bool

	// Updated is the time of the last applied packet.
	Updated time.Time
}

// StateNotifier is called after a packet has been applied to a Store.
type StateNotifier interface {
	StateChanged(ctx context.Context, register byte, state State)
}

// StateChangedFunc is func type of StateNotifier.
type StateChangedFunc func(context.Context, byte, State)

// StateChanged implements StateNotifier.
func (f StateChangedFunc) StateChanged(ctx context.Context, register byte, state State) {
	f(ctx, register, state)
}

// Store holds the State of one device. It has a single writer (the
// Decoder) and any number of readers.
type Store struct {
	// Now is the clock stamping updates, time.Now if nil.
	Now func() time.Time

	lock      sync.RWMutex
	state     State
	notifiers []StateNotifier
}

// AddNotifier registers a notifier. Notifiers run on the writer's
// goroutine after the lock is released.
func (s *Store) AddNotifier(n StateNotifier) {
	s.lock.Lock()
	s.notifiers = append(s.notifiers, n)
	s.lock.Unlock()
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state
}

// TakeFirmware returns the firmware revision and clears NewFirmware.
// ok is false if no new revision arrived since the last call.
func (s *Store) TakeFirmware() (fw string, ok bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.state.NewFirmware {
		return s.state.Firmware, false
	}
	s.state.NewFirmware = false
	return s.state.Firmware, true
}

// Update applies fn to the state as one critical section.
func (s *Store) Update(ctx context.Context, register byte, fn func(*State)) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	s.lock.Lock()
	fn(&s.state)
	s.state.Updated = now()
	state, notifiers := s.state, s.notifiers
	s.lock.Unlock()

	for _, n := range notifiers {
		n.StateChanged(ctx, register, state)
	}
}
