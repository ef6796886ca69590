package canhack_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/canislabs/gocanhack/canhack"
	"github.com/canislabs/gocanhack/hal/sim"
)

// Test_SpoofFrame_transmitsOnPrefixMatch is the S6 scenario: drive exactly
// the bit sequence SpoofFrame's prefix matcher expects (ten recessive idle
// bits followed by frame 1's own arbitration field) and confirm the match
// fires and transmission begins, rather than only exercising the timeout
// branch the way Test_SpoofFrame_timesOutAgainstAnIdleBus does.
//
// The sequence is played back via sim.Node.SetScript, one entry per
// GetCANRx call. A naive one-entry-per-bit script would desync the
// engine's own edge-triggered resync (prevRx==Recessive && rx==Dominant
// hard-syncs on every recessive-to-dominant transition, not just the
// first), so each bit's value is held from SampleToBitEnd ticks after the
// previous sample through the next one — exactly where sendBits itself
// would move the transmitted signal. Because SamplePointOffset+
// SampleToBitEnd==BitTime for any sane profile, a resync triggered there
// lands on the same absolute tick the static schedule would have sampled
// anyway, so it never perturbs which bit ends up in the window.
func Test_SpoofFrame_transmitsOnPrefixMatch(t *testing.T) {
	engine, node := newEngine(t)
	engine.SetFrame(canhack.Frame1, 0x123, 0, false, false, 0, nil, false, false, false)
	engine.SetAttackMasks()

	f1 := engine.GetFrame(canhack.Frame1)
	n := f1.LastArbitrationBit + 2

	seq := make([]canhack.Level, 10+n)
	for i := 0; i < 10; i++ {
		seq[i] = canhack.Recessive
	}
	for i := 0; i < n; i++ {
		seq[10+i] = f1.TxBitstream[i]
	}

	bitTime := int(testTiming.BitTime)
	offset := int(testTiming.SamplePointOffset)
	lastTick := offset + (len(seq)-1)*bitTime

	script := make([]canhack.Level, lastTick)
	segStart := 0
	cur := seq[0]
	for k := 2; k <= len(seq); k++ {
		idx := (k-1)*bitTime - 1
		for i := segStart; i < idx; i++ {
			script[i] = cur
		}
		segStart = idx
		cur = seq[k-1]
	}
	for i := segStart; i < len(script); i++ {
		script[i] = cur
	}
	node.SetScript(script)

	engine.SetTimeout(1 << 16)
	ok := engine.SpoofFrame(false, 0, 0, 0, 0, 0)
	assert.True(t, ok)
}

func Test_SpoofFrameErrorPassive_timesOutWithNoPrefixMatch(t *testing.T) {
	bus := sim.NewBus()
	node := sim.NewNode(bus)
	node.SetAutoAdvance(true)
	engine := canhack.New(node, node, testTiming)
	engine.SetFrame(canhack.Frame1, 0x123, 0, false, false, 0, nil, false, false, false)
	engine.SetAttackMasks()
	engine.SetTimeout(50)

	ok := engine.SpoofFrameErrorPassive(0)
	assert.False(t, ok)
}

func Test_ErrorAttack_timesOutWithNoPrefixMatch(t *testing.T) {
	bus := sim.NewBus()
	node := sim.NewNode(bus)
	node.SetAutoAdvance(true)
	engine := canhack.New(node, node, testTiming)
	engine.SetFrame(canhack.Frame1, 0x123, 0, false, false, 0, nil, false, false, false)
	engine.SetAttackMasks()
	engine.SetTimeout(50)

	ok := engine.ErrorAttack(1, true, 0x7F, 0x00)
	assert.False(t, ok)
}

