// Package canhack implements cycle-accurate bit-banged CAN and CAN FD
// transmission and observation on a single TX/RX pin pair: frame encoding
// (stuff bits, CRC, FSBs), a bit-timing transmit/receive engine, and a
// small set of protocol-level attacks built on top of it.
//
// The package is not a CAN controller: there is no FIFO, no filtering, no
// message objects, and no thread-safety beyond the single cooperative
// cancellation counter. It is meant to run on a single dedicated CPU with
// interrupts gated around the time-critical calls.
package canhack

// Level is a single bit on the wire: Dominant (0) or Recessive (1). The
// numeric value matches the wire encoding directly, so a Level can be used
// as the literal bit value anywhere the protocol treats 0/1 arithmetically
// (DLC bits, CRC bits, Gray-coded stuff count, parity).
type Level uint8

const (
	Dominant  Level = 0
	Recessive Level = 1
)

// MaxBits bounds the encoded bitstream length: worst case is a CAN FD frame
// with 64 data bytes, an 18-bit extended identifier, CRC21, and stuff bits
// throughout the arbitration/control/data/CRC region. 1024 leaves generous
// headroom over that worst case.
const MaxBits = 1024

// levelOf maps a boolean protocol flag onto the wire level it asserts when
// true (used for RTR/SRR/IDE/FDF-style single-bit fields).
func levelOf(asserted bool) Level {
	if asserted {
		return Recessive
	}
	return Dominant
}

// bitAt extracts bit pos (0 = LSB) of v as a Level. Because Level's numeric
// values already match the wire sense (1 = recessive), this is a direct
// cast: no polarity inversion is needed.
func bitAt(v uint32, pos uint) Level {
	return Level((v >> pos) & 1)
}
