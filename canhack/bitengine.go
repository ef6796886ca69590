package canhack

// sendBits drives one frame, starting at f.TxBitstream[txIndex], until it
// either finishes, detects arbitration loss / a bus error, or times out.
//
// It returns retry=true when the sampled RX bit disagreed with the bit we
// just drove (arbitration lost, or a bus error) — the caller should return
// to SOF and, budget permitting, try again. It returns retry=false both on
// a clean finish (in which case e.sent is latched true) and on a timeout
// (in which case e.sent is left untouched) — this two-signal convention
// is the same one canhack_send_frame uses in the original source (spec.md
// §9): callers must consult e.sent to tell the two apart, not the bool
// alone.
//
// TX is always released recessive before returning, on every path.
func (e *Engine) sendBits(bitEnd, samplePoint Ticks, f *Frame, txIndex int) (retry bool) {
	tx := f.TxBitstream[txIndex]
	txIndex++
	curTx := tx
	curBitTime := e.timing.BitTime

	for {
		now := e.clock.Now()

		// Bit end is checked first: it is the more time-critical of the
		// two deadlines.
		if reached(now, bitEnd) {
			e.pins.SetCANTx(tx)
			bitEnd = advance(bitEnd, curBitTime)

			if f.FD {
				// tx is read, not just compared, so this has to stay a
				// plain logical AND (spec.md §9): both operands here are
				// side-effect free, so it reads the same as the bitwise
				// AND in the original, but is the correct idiom in Go.
				if txIndex == f.BRSBit+1 && tx == Recessive {
					curBitTime = e.timing.BitTimeFD
					bitEnd -= e.timing.SampleToBitEndFD
					samplePoint = bitEnd - e.timing.SampleToBitEndFD
				}
				if txIndex == f.LastCRCBit+2 {
					curBitTime = e.timing.BitTime
					bitEnd = bitEnd - e.timing.SampleToBitEndFD + e.timing.SampleToBitEnd
					samplePoint = bitEnd - e.timing.SampleToBitEnd
				}
			}

			// The next bit is prepared only after the time-critical I/O
			// has happened.
			curTx = tx
			tx = f.TxBitstream[txIndex]
			txIndex++

			if txIndex >= f.LastEOFBit+3 {
				e.pins.SetCANTxRecessive()
				e.sent = true
				return false
			}
		}

		if reached(now, samplePoint) {
			rx := e.pins.GetCANRx()
			if rx != curTx {
				// Either we lost arbitration, or a bus error occurred;
				// either way, give up and let the caller retry from SOF.
				e.pins.SetCANTxRecessive()
				return true
			}
			samplePoint = advance(samplePoint, curBitTime)
		}

		if e.timedOut() {
			e.pins.SetCANTxRecessive()
			return false
		}
	}
}

// sendJanusBits drives two bitstreams in the same bit time: a dominant
// sync phase forces a resync edge on every victim controller, then frame 1's
// bit is asserted, then (after sampling RX against it) frame 2's bit is
// asserted. Both frames are driven for max(len(frame1), len(frame2)) bits.
//
// Unlike sendBits, there is no retry signal here: a mismatch during the
// phase-3 sample aborts immediately with no retry (spec.md §7), exactly
// like a timeout — both return false and leave e.sent untouched. A clean
// finish also returns false, with e.sent latched true. The caller
// discriminates success from failure via e.sent, the same two-signal
// convention sendBits uses (spec.md §9).
func (e *Engine) sendJanusBits(bitEnd Ticks, syncTime, splitTime, syncTimeFD, splitTimeFD Ticks, txIndex int) bool {
	f1 := &e.frames[Frame1]
	f2 := &e.frames[Frame2]

	txBits := f1.TxBits
	if f2.TxBits > txBits {
		txBits = f2.TxBits
	}
	curBitTime := e.timing.BitTime

	syncEnd := advance(bitEnd, syncTime)
	splitEnd := advance(bitEnd, splitTime)

	for {
		var tx1, tx2 Level

		// Phase 1: force a dominant resync edge, then prepare frame 1's
		// bit for phase 2.
		for {
			now := e.clock.Now()
			if reached(now, bitEnd) {
				e.pins.SetCANTxDominant()
				tx1 = f1.TxBitstream[txIndex]
				bitEnd = advance(bitEnd, curBitTime)
				break
			}
			if e.timedOut() {
				e.pins.SetCANTxRecessive()
				return false
			}
		}

		// Phase 2: assert frame 1's bit, prepare frame 2's bit.
		for {
			now := e.clock.Now()
			if reached(now, syncEnd) {
				e.pins.SetCANTx(tx1)
				tx2 = f2.TxBitstream[txIndex]
				txIndex++

				if txIndex >= txBits {
					e.pins.SetCANTxRecessive()
					e.sent = true
					return false
				}

				syncEnd = advance(syncEnd, curBitTime)
				if txIndex == f1.BRSBit+1 && tx1 == Recessive {
					curBitTime = e.timing.BitTimeFD
					bitEnd -= e.timing.SampleToBitEndFD
					syncEnd = advance(bitEnd, syncTimeFD)
				}
				if txIndex == f1.LastCRCBit+2 {
					curBitTime = e.timing.BitTime
					bitEnd = bitEnd - e.timing.SampleToBitEndFD + e.timing.SampleToBitEnd
					syncEnd = advance(bitEnd, syncTime)
				}
				break
			}
			if e.timedOut() {
				e.pins.SetCANTxRecessive()
				return false
			}
		}

		// Phase 3: sample RX against frame 1's bit, then assert frame
		// 2's bit.
		for {
			now := e.clock.Now()
			if reached(now, splitEnd) {
				rx := e.pins.GetCANRx()
				e.pins.SetCANTx(tx2)
				splitEnd = advance(splitEnd, curBitTime)

				if txIndex == f2.BRSBit+1 && tx2 == Recessive {
					splitEnd = advance(bitEnd, splitTimeFD)
				}
				if txIndex == f2.LastCRCBit+2 {
					splitEnd = advance(bitEnd, splitTime)
				}

				if rx != tx1 {
					e.pins.SetCANTxRecessive()
					return false
				}
				break
			}
			if e.timedOut() {
				e.pins.SetCANTxRecessive()
				return false
			}
		}
	}
}
