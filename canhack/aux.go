package canhack

// SendSquareWave drives a fixed 160-bit-time square wave on TX: useful for
// verifying bit-time calibration on a scope before attempting anything
// timing-sensitive. It ignores RX entirely.
func (e *Engine) SendSquareWave() {
	e.clock.ResetClock(0)
	bitEnd := e.timing.BitTime
	var tx Level = Dominant

	e.SetTimeout(160)
	for {
		now := e.clock.Now()
		if reached(now, bitEnd) {
			e.pins.SetCANTx(tx)
			bitEnd = advance(now, e.timing.BitTime)
			tx ^= 1
			// The countdown is spent once per bit, so the 160 armed
			// above bounds the wave to 160 bit times.
			if e.timedOut() {
				e.pins.SetCANTxRecessive()
				return
			}
		}
	}
}

// Loopback waits for a falling edge on RX and then mirrors RX onto the
// debug pin for a fixed number of bit times (enough to cover one full
// frame), so a scope on the debug pin shows a clean copy of whatever
// frame triggered it. fd selects the longer window needed when the frame
// being observed may be a non-BRS FD frame (which has no faster phase to
// shorten it).
func (e *Engine) Loopback(fd bool) {
	var prevRx, rx Level = Recessive, Recessive

	for {
		prevRx = rx
		rx = e.pins.GetCANRx()
		if prevRx == Recessive && rx == Dominant {
			break
		}
		if e.timedOut() {
			e.pins.SetCANTxRecessive()
			return
		}
	}

	bits := uint32(160)
	if fd {
		bits = 700
	}

	e.clock.ResetClock(0)
	bitEnd := e.timing.BitTime
	for bits > 0 {
		e.pins.SetDebug(e.pins.GetCANRx())
		now := e.clock.Now()
		if reached(now, bitEnd) {
			bitEnd = advance(now, e.timing.BitTime)
			bits--
		}
		if e.timedOut() {
			e.pins.SetCANTxRecessive()
			return
		}
	}
	e.pins.SetCANTxRecessive()
}
