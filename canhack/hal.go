package canhack

// Ticks is a monotonic counter in CPU cycles or fixed sub-bit ticks, read
// from the host's free-running timer. Arithmetic on Ticks must tolerate
// wraparound: advance and reached compare via signed difference rather than
// an absolute ordering, so a single step may never exceed half the range of
// the underlying counter (one bit time, in practice).
type Ticks int32

// advance returns t moved forward by dt ticks, tolerating wraparound of the
// underlying counter.
func advance(t, dt Ticks) Ticks {
	return t + dt
}

// reached reports whether now has reached or passed t, using a signed
// difference so that it keeps working across a wraparound of the counter.
func reached(now, t Ticks) bool {
	return int32(now-t) >= 0
}

// Clock is the host's monotonic time source. now() and reset_clock() in
// spec.md §6.
type Clock interface {
	// Now returns the current tick count.
	Now() Ticks
	// ResetClock zeroes (or pre-loads) the counter, used for hard-sync
	// realignment on a recessive-to-dominant edge.
	ResetClock(offset Ticks)
}

// Pins is the host's digital I/O abstraction for the TX/RX pin pair plus an
// optional debug pin. set_can_tx / get_can_rx / set_debug in spec.md §6.
type Pins interface {
	SetCANTx(level Level)
	SetCANTxDominant()
	SetCANTxRecessive()
	GetCANRx() Level
	SetDebug(level Level)
}

// Timing carries the bit-time and sample-point constants a host must
// provide (spec.md §6). BitTimeFD and SamplePointOffsetFD are only
// consulted for CAN FD frames with BRS active. SampleToBitEndFD also enters
// the bit-end arithmetic at the end of the CRC field of every FD frame in
// sendBits, and of every frame in sendJanusBits.
type Timing struct {
	BitTime   Ticks
	BitTimeFD Ticks

	SamplePointOffset   Ticks
	SamplePointOffsetFD Ticks

	SampleToBitEnd   Ticks
	SampleToBitEndFD Ticks

	// FallingEdgeRecalibrate is the clock offset ResetClock is given on a
	// hard-sync edge detected mid-operation (as opposed to the offset 0
	// used at the start of SOF detection).
	FallingEdgeRecalibrate Ticks
}
