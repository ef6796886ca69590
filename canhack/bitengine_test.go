package canhack_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canislabs/gocanhack/canhack"
	"github.com/canislabs/gocanhack/hal/sim"
)

// testTiming is a simple, round-number bit-timing profile: easy to reason
// about in assertions, not meant to represent a real bit rate.
var testTiming = canhack.Timing{
	BitTime:                20,
	BitTimeFD:               10,
	SamplePointOffset:       14,
	SamplePointOffsetFD:     7,
	SampleToBitEnd:          6,
	SampleToBitEndFD:        3,
	FallingEdgeRecalibrate:  2,
}

func newEngine(t *testing.T) (*canhack.Engine, *sim.Node) {
	t.Helper()
	bus := sim.NewBus()
	node := sim.NewNode(bus)
	node.SetAutoAdvance(true)
	return canhack.New(node, node, testTiming), node
}

func Test_SendFrame_uncontendedBusSucceeds(t *testing.T) {
	engine, _ := newEngine(t)
	engine.SetFrame(canhack.Frame1, 0x123, 0, false, false, 8, make([]byte, 8), false, false, false)
	engine.SetTimeout(1 << 16)

	ok := engine.SendFrame(0, false)
	require.True(t, ok)

	f := engine.GetFrame(canhack.Frame1)
	assert.Greater(t, f.TxBits, 0)
}

func Test_SendFrame_timesOutWithNoSOF(t *testing.T) {
	bus := sim.NewBus()
	node := sim.NewNode(bus)
	node.SetAutoAdvance(true)
	engine := canhack.New(node, node, testTiming)
	engine.SetFrame(canhack.Frame1, 0x123, 0, false, false, 0, nil, false, false, false)

	// A countdown of 50 expires long before the idle detector has its 11
	// recessive samples (the 11th lands at tick 214 with testTiming), so
	// SendFrame must give up without ever driving its own SOF.
	engine.SetTimeout(50)
	ok := engine.SendFrame(0, false)
	assert.False(t, ok)
}

func Test_SendFrame_fdFrameAlsoSucceeds(t *testing.T) {
	engine, _ := newEngine(t)
	data := make([]byte, 24)
	for i := range data {
		data[i] = byte(i * 7)
	}
	engine.SetFrame(canhack.Frame1, 0x1FF, 0, false, true, 12, data, true, true, false)
	engine.SetTimeout(1 << 16)

	ok := engine.SendFrame(0, false)
	require.True(t, ok)
}

// Test_SendFrame_arbitrationLossIsFatalWithoutRetryBudget and
// Test_SendFrame_arbitrationLossSucceedsOnRetry exercise the S4 scenario:
// sendBits detecting a lost arbitration bit and SendFrame's retry-from-SOF
// loop (sof.go). Both force the mismatch on the very first bit sendBits
// samples back — the self-driven SOF bit — using sim.Node.ForceMismatchOnSample.
//
// With testTiming's 11-sample idle detector (SamplePointOffset=14,
// BitTime=20) sampling at tick 14+k*20, the 11th and matching sample lands
// at tick 214; SendFrame hands off to sendBits in that same iteration with
// a fresh samplePoint 20 ticks later, i.e. tick 234. sendBits makes no
// GetCANRx call of its own until then, so that first sample is the 215th
// GetCANRx call ever made on the node — 0-indexed call 214, matching
// ForceMismatchOnSample's own 0-indexed convention.
const arbitrationLossOnFirstBit = 214

func Test_SendFrame_arbitrationLossIsFatalWithoutRetryBudget(t *testing.T) {
	engine, node := newEngine(t)
	engine.SetFrame(canhack.Frame1, 0x123, 0, false, false, 8, make([]byte, 8), false, false, false)
	engine.SetTimeout(1 << 16)
	node.ForceMismatchOnSample(arbitrationLossOnFirstBit)

	ok := engine.SendFrame(0, false)
	assert.False(t, ok)
}

func Test_SendFrame_arbitrationLossSucceedsOnRetry(t *testing.T) {
	engine, node := newEngine(t)
	engine.SetFrame(canhack.Frame1, 0x123, 0, false, false, 8, make([]byte, 8), false, false, false)
	engine.SetTimeout(1 << 16)
	node.ForceMismatchOnSample(arbitrationLossOnFirstBit)

	ok := engine.SendFrame(1, false)
	require.True(t, ok)
}

func Test_SpoofFrame_timesOutAgainstAnIdleBus(t *testing.T) {
	// Against a permanently idle bus, the prefix match never occurs, so
	// this exercises the timeout path of the attack loop itself (not
	// just the SendFrame it would eventually call).
	bus := sim.NewBus()
	node := sim.NewNode(bus)
	node.SetAutoAdvance(true)
	engine := canhack.New(node, node, testTiming)
	engine.SetFrame(canhack.Frame1, 0x123, 0, false, false, 0, nil, false, false, false)
	engine.SetAttackMasks()
	engine.SetTimeout(50)

	ok := engine.SpoofFrame(false, 0, 0, 0, 0, 0)
	assert.False(t, ok)
}
