// Package comm provides the UM7 binary packet protocol.
package comm

// The UM7 streams packets over a serial line, each framed as
//
//	's' 'n' 'p' <type> <address> <payload 0..60> <checksum hi> <checksum lo>
//
// The checksum is the 16-bit sum of every byte before it, including
// the sync characters. There is no escaping, so the parser resyncs on
// the first literal "snp" it sees after a rejected or garbled frame.
//
// Producer: UM7 firmware
// Consumer: host driver
