// Package sim provides a software CAN bus for deterministic testing of
// the canhack engine: a shared wired-AND signal line, a free-running
// tick counter standing in for the hardware timer, and the Clock/Pins
// interfaces the engine needs to drive it.
package sim

import "github.com/canislabs/gocanhack/canhack"

// Bus is a single wired-AND CAN signal shared by any number of Node
// drivers: the line reads dominant if any node is currently driving it
// dominant, recessive otherwise — the same behavior a real differential
// CAN bus has.
type Bus struct {
	drivers []*bool
	debug   canhack.Level
}

// NewBus returns an idle (all-recessive) bus.
func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) register() *bool {
	dominant := false
	b.drivers = append(b.drivers, &dominant)
	return &dominant
}

// Level reads the current wired-AND state of the bus.
func (b *Bus) Level() canhack.Level {
	for _, d := range b.drivers {
		if *d {
			return canhack.Dominant
		}
	}
	return canhack.Recessive
}

// Node is one device's view of a Bus: its own drive state, plus a private
// tick counter implementing canhack.Clock. Every Node on the same Bus
// shares the same tick rate (they all call Clock.Now() against their own
// counter, but the test driving them is expected to advance all of them
// in lockstep — see (*Node).Tick).
type Node struct {
	bus      *Bus
	driving  *bool
	now      canhack.Ticks
	debugLvl canhack.Level

	// autoAdvance, when true, makes every Now() call advance the clock by
	// one tick before returning, so a single-goroutine caller (no test
	// harness driving Tick from outside) still makes progress. Used by
	// the demo command and by every test in package canhack.
	autoAdvance bool

	// mismatchAt, when non-negative, forces GetCANRx to report the
	// opposite of the true bus level on the mismatchAt'th call — used to
	// simulate arbitration loss or a bit error without a second Node.
	mismatchAt int
	rxCalls    int

	// script, when non-nil, overrides the first len(script) calls to
	// GetCANRx with a pre-recorded level sequence (one entry per call,
	// 0-indexed) instead of the real bus level — used to play back an
	// external bit pattern (e.g. a victim's arbitration field) deterministically
	// without a second driving Node. Calls past the end of script fall
	// back to the real bus level.
	script []canhack.Level
}

// NewNode registers a new driver on bus and returns a Node for it.
func NewNode(bus *Bus) *Node {
	n := &Node{bus: bus, mismatchAt: -1}
	n.driving = bus.register()
	return n
}

// SetAutoAdvance enables or disables the free-running clock mode (see the
// autoAdvance field comment).
func (n *Node) SetAutoAdvance(on bool) {
	n.autoAdvance = on
}

// Tick advances this Node's clock by dt ticks. Tests drive every Node on
// a shared Bus with the same Tick calls to keep them synchronized, the
// same way every real controller on a bus shares one wall-clock time
// even though each free-runs its own oscillator-derived counter.
func (n *Node) Tick(dt canhack.Ticks) {
	n.now += dt
}

// ForceMismatchOnSample arranges for the n'th call (0-indexed) to
// GetCANRx to return the opposite of the bus's true level, simulating a
// lost-arbitration or corrupted bit at a specific sample point.
func (n *Node) ForceMismatchOnSample(nth int) {
	n.mismatchAt = nth
}

// SetScript arranges for the first len(levels) calls to GetCANRx to return
// levels[i] on the i'th call (0-indexed) rather than the real bus level.
// Calls beyond len(levels) read the bus as usual.
func (n *Node) SetScript(levels []canhack.Level) {
	n.script = levels
}

func (n *Node) Now() canhack.Ticks {
	if n.autoAdvance {
		n.now++
	}
	return n.now
}

func (n *Node) ResetClock(offset canhack.Ticks) { n.now = offset }

func (n *Node) SetCANTx(level canhack.Level) {
	*n.driving = level == canhack.Dominant
}

func (n *Node) SetCANTxDominant() { *n.driving = true }

func (n *Node) SetCANTxRecessive() { *n.driving = false }

func (n *Node) GetCANRx() canhack.Level {
	var lvl canhack.Level
	if n.rxCalls < len(n.script) {
		lvl = n.script[n.rxCalls]
	} else {
		lvl = n.bus.Level()
	}
	if n.rxCalls == n.mismatchAt {
		if lvl == canhack.Dominant {
			lvl = canhack.Recessive
		} else {
			lvl = canhack.Dominant
		}
	}
	n.rxCalls++
	return lvl
}

func (n *Node) SetDebug(level canhack.Level) { n.debugLvl = level }

// DebugLevel returns the last level passed to SetDebug, for tests that
// assert on what a component mirrored there (canhack.Loopback's target).
func (n *Node) DebugLevel() canhack.Level { return n.debugLvl }

var _ canhack.Clock = (*Node)(nil)
var _ canhack.Pins = (*Node)(nil)
