// Package gpiocdev implements canhack.Pins and canhack.Clock on top of
// two Linux GPIO character-device lines (TX and RX), plus an optional
// third line for a debug/scope probe. It is a reference HAL for running
// the canhack engine against a real transceiver on a Raspberry Pi or
// similar SBC; it is not fast enough to hit the same bit rates the
// original microcontroller firmware reaches, since every call crosses
// into the kernel, but it is adequate for low bit-rate testing and for
// exercising the protocol logic against a real bus.
package gpiocdev

import (
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/canislabs/gocanhack/canhack"
)

// HAL drives a CAN TX/RX pin pair (and an optional debug pin) through
// /dev/gpiochipN via go-gpiocdev. Its Now/ResetClock pair is backed by
// time.Now(), so canhack.Ticks here count nanoseconds since the last
// reset rather than hardware timer ticks; callers must size a Timing
// value accordingly (see config.Timing.ToEngineTiming).
type HAL struct {
	chip *gpiocdev.Chip
	tx   *gpiocdev.Line
	rx   *gpiocdev.Line
	dbg  *gpiocdev.Line

	origin time.Time
}

// Open requests the tx, rx, and (if >= 0) debug line offsets on the named
// GPIO chip (e.g. "gpiochip0") and returns a ready HAL. The RX line is
// requested with both edges watched is unnecessary here since canhack
// polls it directly; it is simply requested as an input.
func Open(chipName string, txLine, rxLine, debugLine int) (*HAL, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, err
	}

	tx, err := chip.RequestLine(txLine, gpiocdev.AsOutput(1))
	if err != nil {
		chip.Close()
		return nil, err
	}

	rx, err := chip.RequestLine(rxLine, gpiocdev.AsInput)
	if err != nil {
		tx.Close()
		chip.Close()
		return nil, err
	}

	h := &HAL{chip: chip, tx: tx, rx: rx, origin: time.Now()}

	if debugLine >= 0 {
		dbg, err := chip.RequestLine(debugLine, gpiocdev.AsOutput(0))
		if err != nil {
			rx.Close()
			tx.Close()
			chip.Close()
			return nil, err
		}
		h.dbg = dbg
	}

	return h, nil
}

// Close releases the underlying GPIO lines and chip handle.
func (h *HAL) Close() error {
	if h.dbg != nil {
		h.dbg.Close()
	}
	h.rx.Close()
	h.tx.Close()
	return h.chip.Close()
}

// Now reports elapsed nanoseconds since the last ResetClock call.
func (h *HAL) Now() canhack.Ticks {
	return canhack.Ticks(time.Since(h.origin).Nanoseconds())
}

// ResetClock sets the clock origin so that Now() next returns offset.
func (h *HAL) ResetClock(offset canhack.Ticks) {
	h.origin = time.Now().Add(-time.Duration(offset))
}

// recessive on a real transceiver line is idle-high; asserting it here
// sets the output line to 1.
func (h *HAL) SetCANTx(level canhack.Level) {
	if level == canhack.Dominant {
		h.tx.SetValue(0)
	} else {
		h.tx.SetValue(1)
	}
}

func (h *HAL) SetCANTxDominant() { h.tx.SetValue(0) }

func (h *HAL) SetCANTxRecessive() { h.tx.SetValue(1) }

func (h *HAL) GetCANRx() canhack.Level {
	v, err := h.rx.Value()
	if err != nil || v != 0 {
		return canhack.Recessive
	}
	return canhack.Dominant
}

func (h *HAL) SetDebug(level canhack.Level) {
	if h.dbg == nil {
		return
	}
	if level == canhack.Dominant {
		h.dbg.SetValue(0)
	} else {
		h.dbg.SetValue(1)
	}
}

var _ canhack.Clock = (*HAL)(nil)
var _ canhack.Pins = (*HAL)(nil)
