package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryDefaultsZero(t *testing.T) {
	assert := assert.New(t)

	var m Memory
	assert.Equal(byte(0), m.Read8(0))
	assert.Equal(uint32(0), m.Read32(0xdeadbeef))
}

func TestMemoryLittleEndian(t *testing.T) {
	assert := assert.New(t)

	var m Memory
	m.Write32(0x1000, 0x11223344)

	assert.Equal(byte(0x44), m.Read8(0x1000))
	assert.Equal(byte(0x33), m.Read8(0x1001))
	assert.Equal(byte(0x22), m.Read8(0x1002))
	assert.Equal(byte(0x11), m.Read8(0x1003))
	assert.Equal(uint32(0x11223344), m.Read32(0x1000))
}

func TestMemoryPageCrossing(t *testing.T) {
	assert := assert.New(t)

	var m Memory
	m.Write32(pageSize-2, 0xaabbccdd)
	assert.Equal(uint32(0xaabbccdd), m.Read32(pageSize-2))
}

func TestMemoryReset(t *testing.T) {
	assert := assert.New(t)

	var m Memory
	m.Write8(0x10, 0xff)
	m.Reset()
	assert.Equal(byte(0), m.Read8(0x10))
}
