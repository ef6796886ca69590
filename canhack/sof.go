package canhack

// idleMask/idlePattern implement the SOF detector: an 11-bit rolling shift
// register is fed one sampled bit at a time; (bitstream & idleMask) ==
// idlePattern matches ten recessive bits followed by either a dominant bit
// (an observed SOF) or another recessive bit (still idle).
const (
	idleMask    = 0x7FE
	idlePattern = 0x7FE
)

// SendFrame transmits the frame in slot (Frame1 unless second is true),
// waiting for bus idle first. On arbitration loss it retries from SOF up to
// retries times before giving up. Returns true if the frame was
// transmitted, false on timeout or on exhausting the retry budget.
func (e *Engine) SendFrame(retries uint32, second bool) bool {
	slot := Frame1
	if second {
		slot = Frame2
	}
	frame := &e.frames[slot]

	var prevRx Level = Dominant
	e.clock.ResetClock(0)
	var bitstream uint32
	samplePoint := e.timing.SamplePointOffset

	for {
		rx := e.pins.GetCANRx()
		now := e.clock.Now()

		switch {
		case prevRx == Recessive && rx == Dominant:
			// Hard sync: a falling edge realigns the clock origin.
			e.clock.ResetClock(0)
			samplePoint = e.timing.SamplePointOffset

		case reached(now, samplePoint):
			bitEnd := advance(samplePoint, e.timing.SampleToBitEnd)
			samplePoint = advance(now, e.timing.BitTime)

			bitstream = (bitstream << 1) | uint32(rx)
			if bitstream&idleMask == idlePattern {
				// 11 bits seen: either 10 recessive + dominant (SOF), or
				// 11 recessive (still idle). If the last bit was
				// recessive we will drive our own SOF at index 0;
				// otherwise another node already asserted SOF, so we
				// start at index 1 to follow it.
				txIndex := int(rx ^ 1)
				if e.sendBits(bitEnd, samplePoint, frame, txIndex) {
					if retries > 0 {
						retries--
						bitstream = 0
						// prevRx is refreshed to the bit just sampled before
						// looping back to SOF detection; the original's
						// `goto SOF` left prev_rx at its prior-iteration
						// value instead. bitstream is cleared either way, so
						// this only affects whether the very next iteration
						// can see a (spurious) edge against a stale prevRx —
						// behaviorally negligible, kept as an intentional
						// divergence for clarity over literal fidelity here.
						prevRx = rx
						continue
					}
					return false
				}
				return e.sent
			}
		}

		prevRx = rx
		if e.timedOut() {
			e.pins.SetCANTxRecessive()
			return false
		}
	}
}

// SendJanusFrame transmits frame 1 and frame 2 simultaneously using the
// Janus three-phase bit, waiting for bus idle first. A mismatch during the
// transmission aborts with no retry: sendJanusBits never signals retry, so
// the retries budget is accepted but never spent, and the result is
// e.sent as sendJanusBits left it. sync_time/split_time (and their FD
// counterparts) are the offsets, from the start of a bit, at which frame
// 1's and frame 2's values are asserted.
func (e *Engine) SendJanusFrame(syncTime, splitTime, syncTimeFD, splitTimeFD Ticks, retries uint32) bool {
	var prevRx Level = Dominant
	e.clock.ResetClock(0)
	var bitstream uint32
	now := e.clock.Now()
	samplePoint := advance(now, e.timing.SamplePointOffset)

	for {
		rx := e.pins.GetCANRx()
		now = e.clock.Now()

		switch {
		case prevRx == Recessive && rx == Dominant:
			e.clock.ResetClock(0)
			samplePoint = e.timing.SamplePointOffset

		case reached(now, samplePoint):
			bitstream = (bitstream << 1) | uint32(rx)
			bitEnd := advance(samplePoint, e.timing.SampleToBitEnd)
			samplePoint = advance(samplePoint, e.timing.BitTime)

			if bitstream&idleMask == idlePattern {
				txIndex := int(rx ^ 1)
				// sendJanusBits never actually reports "retry" (see its
				// doc comment); this branch is structured the same way
				// canhack_send_janus_frame's was, dead code included,
				// rather than collapsed away.
				if e.sendJanusBits(bitEnd, syncTime, splitTime, syncTimeFD, splitTimeFD, txIndex) {
					if retries > 0 {
						retries--
						bitstream = 0
						// prevRx is refreshed to the bit just sampled before
						// looping back to SOF detection; the original's
						// `goto SOF` left prev_rx at its prior-iteration
						// value instead. bitstream is cleared either way, so
						// this only affects whether the very next iteration
						// can see a (spurious) edge against a stale prevRx —
						// behaviorally negligible, kept as an intentional
						// divergence for clarity over literal fidelity here.
						prevRx = rx
						continue
					}
					return false
				}
				return e.sent
			}
		}

		prevRx = rx
		if e.timedOut() {
			e.pins.SetCANTxRecessive()
			return false
		}
	}
}
