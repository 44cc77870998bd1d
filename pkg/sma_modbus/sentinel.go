package sma_modbus

import "math"

// SMA devices report "value not available" with fixed per-width bit patterns
// instead of a protocol-level error. Normalization happens right after
// decode, before any arithmetic; substituting defaults is the job of whoever
// builds the outbound payload, never of the reader.

const (
	sentinelUint16 = 0xFFFF
	sentinelInt16  = math.MinInt16
	sentinelUint32 = 0xFFFFFFFF
	sentinelNaN32  = 0x80000000
	sentinelInt32  = math.MinInt32
)

func NormalizeUint16(raw uint16) (uint16, bool) {
	if raw == sentinelUint16 {
		return 0, false
	}
	return raw, true
}

func NormalizeInt16(raw int16) (int16, bool) {
	if raw == sentinelInt16 {
		return 0, false
	}
	return raw, true
}

func NormalizeUint32(raw uint32) (uint32, bool) {
	if raw == sentinelUint32 || raw == sentinelNaN32 {
		return 0, false
	}
	return raw, true
}

func NormalizeInt32(raw int32) (int32, bool) {
	if raw == -1 || raw == sentinelInt32 {
		return 0, false
	}
	return raw, true
}

func NormalizeFloat32(raw float32) (float32, bool) {
	if math.IsNaN(float64(raw)) {
		return 0, false
	}
	return raw, true
}
