package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
)

// MachineID retrieves an ID identifying the host, hashed per application
// so it is safe to publish. Falls back to the host name.
func MachineID() string {
	id, err := machineid.ProtectedID("um7")
	if err == nil {
		return id[:12]
	}
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return "unknown"
}
