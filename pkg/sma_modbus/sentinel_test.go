package sma_modbus

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUint16(t *testing.T) {
	_, ok := NormalizeUint16(0xFFFF)
	assert.False(t, ok)

	v, ok := NormalizeUint16(0xFFFE)
	assert.True(t, ok)
	assert.Equal(t, uint16(0xFFFE), v)

	v, ok = NormalizeUint16(0)
	assert.True(t, ok)
	assert.Equal(t, uint16(0), v)
}

func TestNormalizeInt16(t *testing.T) {
	_, ok := NormalizeInt16(math.MinInt16)
	assert.False(t, ok)

	v, ok := NormalizeInt16(-2)
	assert.True(t, ok)
	assert.Equal(t, int16(-2), v)
}

func TestNormalizeUint32(t *testing.T) {
	_, ok := NormalizeUint32(0xFFFFFFFF)
	assert.False(t, ok)

	_, ok = NormalizeUint32(0x80000000)
	assert.False(t, ok)

	v, ok := NormalizeUint32(0x7FFFFFFF)
	assert.True(t, ok)
	assert.Equal(t, uint32(0x7FFFFFFF), v)
}

func TestNormalizeInt32(t *testing.T) {
	_, ok := NormalizeInt32(-1)
	assert.False(t, ok)

	_, ok = NormalizeInt32(math.MinInt32)
	assert.False(t, ok)

	v, ok := NormalizeInt32(-2)
	assert.True(t, ok)
	assert.Equal(t, int32(-2), v)

	v, ok = NormalizeInt32(0)
	assert.True(t, ok)
	assert.Equal(t, int32(0), v)
}

func TestNormalizeFloat32(t *testing.T) {
	_, ok := NormalizeFloat32(float32(math.NaN()))
	assert.False(t, ok)

	v, ok := NormalizeFloat32(49.97)
	assert.True(t, ok)
	assert.Equal(t, float32(49.97), v)
}
