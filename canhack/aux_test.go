package canhack_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/canislabs/gocanhack/canhack"
	"github.com/canislabs/gocanhack/hal/sim"
)

func Test_SendSquareWave_stopsOnItsOwnTimeout(t *testing.T) {
	bus := sim.NewBus()
	node := sim.NewNode(bus)
	node.SetAutoAdvance(true)
	engine := canhack.New(node, node, testTiming)

	// SendSquareWave arms its own timeout (160); this just checks it
	// returns instead of looping forever, and releases TX recessive.
	engine.SendSquareWave()
	assert.Equal(t, canhack.Recessive, node.GetCANRx())
}

func Test_Loopback_timesOutWithNoFallingEdge(t *testing.T) {
	bus := sim.NewBus()
	node := sim.NewNode(bus)
	node.SetAutoAdvance(true)
	engine := canhack.New(node, node, testTiming)
	engine.SetTimeout(50)

	engine.Loopback(false)
	assert.Equal(t, canhack.Recessive, node.GetCANRx())
}
