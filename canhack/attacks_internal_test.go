package canhack

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_SetAttackMasks_matchesFrame1Prefix(t *testing.T) {
	e := &Engine{timing: Timing{}}
	BuildFrame(&e.frames[Frame1], 0x123, 0, false, false, 0, nil, false, false, false)
	e.SetAttackMasks()

	f1 := &e.frames[Frame1]
	n := uint32(f1.LastArbitrationBit + 2)

	expectedMatch := uint64(0x3ff)
	for i := uint32(0); i < n; i++ {
		expectedMatch <<= 1
		expectedMatch |= uint64(f1.TxBitstream[i])
	}
	expectedMask := (uint64(1) << (n + 10)) - 1

	assert.Equal(t, expectedMatch, e.attack.bitstreamMatch)
	assert.Equal(t, expectedMask, e.attack.bitstreamMask)
}

// widenEOFMaskForBRS reproduces the original source's ambiguous
// `eof_mask_brs =- 1;` literally: whatever the shift loop computes is
// discarded by the same-statement assignment of -1. Both outputs are
// expected to always be all-ones in uint64, regardless of input.
func Test_widenEOFMaskForBRS_alwaysAllOnes(t *testing.T) {
	cases := []struct{ mask, match uint32 }{
		{0, 0},
		{0xFFFFFFFF, 0xFFFFFFFF},
		{0x0000FFFF, 0x00001234},
		{1, 1},
	}
	for _, c := range cases {
		gotMask, gotMatch := widenEOFMaskForBRS(c.mask, c.match)
		assert.Equal(t, ^uint64(0), gotMask)
		assert.Equal(t, ^uint64(0), gotMatch)
	}
}
