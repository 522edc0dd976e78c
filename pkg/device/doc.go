// Package device decodes UM7 packets into sensor readings.
//
// A Device owns one connection: its comm.Stream feeds verified packets to
// a Decoder, which is the only writer of the Store. Each packet is applied
// in a single critical section, so a Snapshot never observes half of one
// register update. Registers update independently and at their own rates;
// there is no commit spanning several registers.
package device
