package canhack

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// crcOf feeds a bit slice (MSB-first) through the given step function
// starting from a register with only its top bit set (the CAN FD preload;
// BuildFrame starts the CAN 2.0 CRC15 register from 0 instead).
func crcOf(step func(reg uint32, bit Level) uint32, width uint, bits []Level) uint32 {
	reg := uint32(1) << (width - 1)
	for _, b := range bits {
		reg = step(reg, b)
	}
	return reg
}

func bitsFromByte(b byte) []Level {
	out := make([]Level, 8)
	for i := 0; i < 8; i++ {
		out[i] = Level((b >> (7 - i)) & 1)
	}
	return out
}

func Test_crc15Step_allZeroPayload(t *testing.T) {
	var bits []Level
	for i := 0; i < 8; i++ {
		bits = append(bits, bitsFromByte(0)...)
	}
	reg := crcOf(crc15Step, crc15Width, bits)
	assert.LessOrEqual(t, reg, uint32(crc15Mask))
}

func Test_crc15Step_deterministic(t *testing.T) {
	bits := bitsFromByte(0xA5)
	reg1 := crcOf(crc15Step, crc15Width, bits)
	reg2 := crcOf(crc15Step, crc15Width, bits)
	assert.Equal(t, reg1, reg2)
}

func Test_crcSteps_stayWithinMask(t *testing.T) {
	bits := bitsFromByte(0xFF)
	bits = append(bits, bitsFromByte(0x00)...)

	assert.LessOrEqual(t, crcOf(crc15Step, crc15Width, bits), uint32(crc15Mask))
	assert.LessOrEqual(t, crcOf(crc17Step, crc17Width, bits), uint32(crc17Mask))
	assert.LessOrEqual(t, crcOf(crc21Step, crc21Width, bits), uint32(crc21Mask))
}

// Differing in a single bit should (overwhelmingly likely) change the
// final register: this isn't a proof the polynomial is correct, but it
// catches a step function that silently ignores its bit argument.
func Test_crcStep_sensitiveToASingleFlippedBit(t *testing.T) {
	base := bitsFromByte(0x3C)
	flipped := append([]Level(nil), base...)
	flipped[3] ^= 1

	assert.NotEqual(t, crcOf(crc15Step, crc15Width, base), crcOf(crc15Step, crc15Width, flipped))
}
