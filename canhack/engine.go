package canhack

import "sync/atomic"

// FrameSlot selects one of the two frame buffers an Engine holds. Two
// slots exist because the Janus attack drives frame 1 and frame 2
// simultaneously; plain sends normally use Frame1, with Frame2 available
// for callers that want to stage a second frame ahead of time (e.g. the
// "second" flag on SendFrame).
type FrameSlot int

const (
	Frame1 FrameSlot = iota
	Frame2
)

// attackParameters is the bus-prefix matcher state derived by
// SetAttackMasks from frame 1's arbitration field: a mask/match pair
// tested against a rolling bitstream register, so that a spoof or error
// attack can recognize "frame 1's target has just started arbitrating"
// without re-deriving it on every sampled bit.
type attackParameters struct {
	bitstreamMask   uint64
	bitstreamMatch  uint64
	nFrameMatchBits uint32
}

// Engine is the transmit/receive timing core: one clock, one pin pair,
// one timing profile, and the two frame buffers and attack-matcher state
// the send/attack routines of this package operate on. All of its exported methods
// are expected to run with interrupts/preemption disabled on real
// hardware, since they busy-poll a monotonic clock against deadlines
// measured in single-digit microseconds; nothing here is safe to call
// concurrently from multiple goroutines against the same Engine.
type Engine struct {
	clock  Clock
	pins   Pins
	timing Timing

	frames [2]Frame
	attack attackParameters

	// sent is latched true by a clean finish in sendBits/sendJanusBits
	// and is the only way to distinguish "finished" from "timed out"
	// when a send function's own bool return is false (spec.md §9) —
	// by design it is never reset to false by SendFrame/SendJanusFrame,
	// matching the original source exactly: a stale true from a prior
	// successful call is left in place across a later timeout.
	sent bool

	// canhackTimeout is the cooperative cancellation countdown: written
	// by SetTimeout/Stop (possibly from another goroutine), read and
	// decremented by timedOut on every iteration of every polling loop
	// in this package (once per bit in SendSquareWave). An atomic, rather than a plain field guarded by a
	// mutex, matches the single-word tear-free read/modify/write the
	// original counter relied on without introducing lock contention on
	// a path that runs once per bit.
	canhackTimeout atomic.Uint32
}

// New constructs an Engine bound to the given clock, pin, and timing
// implementations. The returned Engine has no frames loaded; call SetFrame
// before any send operation.
func New(clock Clock, pins Pins, timing Timing) *Engine {
	return &Engine{clock: clock, pins: pins, timing: timing}
}

// Init marks both frame slots empty. Safe to call on a zero-value Engine
// reused across a test run; New already starts with both slots unset, so
// Init only matters when an Engine is being recycled.
func (e *Engine) Init() {
	e.frames[Frame1].FrameSet = false
	e.frames[Frame2].FrameSet = false
}

// SetFrame encodes a frame into the given slot via BuildFrame, so later
// calls to SendFrame/SendJanusFrame/SpoofFrame*/ErrorAttack can reference
// it.
func (e *Engine) SetFrame(slot FrameSlot, idA, idB uint32, rtr, ide bool, dlc uint32, data []byte, fd, brs, esi bool) {
	BuildFrame(&e.frames[slot], idA, idB, rtr, ide, dlc, data, fd, brs, esi)
}

// GetFrame returns a copy of the encoded frame in the given slot. The
// caller cannot mutate the Engine's internal copy through the result.
func (e *Engine) GetFrame(slot FrameSlot) Frame {
	return e.frames[slot]
}

// SetAttackMasks derives the bus-prefix matcher used by SpoofFrame,
// SpoofFrameErrorPassive, and ErrorAttack from frame 1's arbitration
// field: it matches 10 recessive idle bits, an SOF, every arbitration bit
// up to and including frame 1's last arbitration bit (RTR, or SRR/RTR for
// extended addressing), and the one bit after it (IDE for a standard
// frame). Call this only after
// SetFrame(Frame1, ...) — it reads the frame's encoded bitstream and its
// LastArbitrationBit index.
func (e *Engine) SetAttackMasks() {
	f1 := &e.frames[Frame1]
	n := uint32(f1.LastArbitrationBit + 2)
	e.attack.nFrameMatchBits = n
	e.attack.bitstreamMask = (uint64(1) << (n + 10)) - 1

	match := uint64(0x3ff)
	for i := uint32(0); i < n; i++ {
		match <<= 1
		match |= uint64(f1.TxBitstream[i])
	}
	e.attack.bitstreamMatch = match
}

// SetTimeout arms the cooperative cancellation countdown consulted by
// timedOut: every tight polling loop in this package decrements it once
// per iteration (SendSquareWave once per bit) and bails out once it
// underflows past zero. SendSquareWave arms its own countdown; every other
// send and attack operation runs on whatever value was last set here.
func (e *Engine) SetTimeout(timeout uint32) {
	e.canhackTimeout.Store(timeout)
}

// Stop cancels whatever operation is currently polling this Engine, from
// another goroutine or an interrupt handler: the next iteration of its
// loop will observe the countdown at zero and return.
func (e *Engine) Stop() {
	e.canhackTimeout.Store(0)
}

// timedOut reports whether the countdown was already at zero, then
// decrements it (wrapping on uint32 underflow, same as the original's
// unsigned post-decrement). Matches `canhack_timeout-- == 0` literally:
// the comparison reads the pre-decrement value, so a timeout of N takes
// N+1 polling iterations to fire, not N.
func (e *Engine) timedOut() bool {
	old := e.canhackTimeout.Add(^uint32(0)) + 1
	return old == 0
}
