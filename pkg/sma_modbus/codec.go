package sma_modbus

import (
	"errors"
	"math"
)

// ByteOrder selects how the two bytes inside a single 16-bit register are
// laid out. WordOrder selects which of two registers is most significant
// when a pair forms a 32-bit value. Both must match on the encode and the
// decode path.
type ByteOrder uint8

const (
	ByteOrderBig ByteOrder = iota
	ByteOrderLittle
)

type WordOrder uint8

const (
	WordOrderBig WordOrder = iota
	WordOrderLittle
)

// ErrBufferUnderflow is returned when a decode would run past the end of the
// register block. The requested register count did not match the decoded
// fields; the read must fail, never return a truncated or zero value.
var ErrBufferUnderflow = errors.New("sma_modbus: decode past end of register block")

// Decoder walks a register block with a byte cursor. Blocks are produced by
// a single device read and consumed exactly once.
type Decoder struct {
	buf       []byte
	pos       int
	byteOrder ByteOrder
	wordOrder WordOrder
}

func NewDecoder(regs []uint16, byteOrder ByteOrder, wordOrder WordOrder) *Decoder {
	buf := make([]byte, 0, len(regs)*2)
	for _, reg := range regs {
		buf = append(buf, byte(reg>>8), byte(reg))
	}
	return &Decoder{
		buf:       buf,
		byteOrder: byteOrder,
		wordOrder: wordOrder,
	}
}

func (d *Decoder) take(n int) ([]byte, error) {
	if d.pos+n > len(d.buf) {
		return nil, ErrBufferUnderflow
	}
	chunk := d.buf[d.pos : d.pos+n]
	d.pos += n
	return chunk, nil
}

// Skip advances the cursor without decoding, clamped to the end of the
// block. Used to walk past irrelevant registers inside a multi-field block.
func (d *Decoder) Skip(nBytes int) {
	d.pos = min(len(d.buf), d.pos+nBytes)
}

// Remaining returns the number of undecoded bytes left in the block.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

func (d *Decoder) word(b []byte) uint16 {
	if d.byteOrder == ByteOrderLittle {
		return uint16(b[1])<<8 | uint16(b[0])
	}
	return uint16(b[0])<<8 | uint16(b[1])
}

func (d *Decoder) Uint16() (uint16, error) {
	b, err := d.take(2)
	if err != nil {
		return 0, err
	}
	return d.word(b), nil
}

func (d *Decoder) Int16() (int16, error) {
	v, err := d.Uint16()
	return int16(v), err
}

func (d *Decoder) Uint32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	msw, lsw := d.word(b[0:2]), d.word(b[2:4])
	if d.wordOrder == WordOrderLittle {
		msw, lsw = lsw, msw
	}
	return uint32(msw)<<16 | uint32(lsw), nil
}

func (d *Decoder) Int32() (int32, error) {
	v, err := d.Uint32()
	return int32(v), err
}

func (d *Decoder) Float32() (float32, error) {
	v, err := d.Uint32()
	return math.Float32frombits(v), err
}

// Encoders. Each is the exact inverse of the matching decode for the same
// (byteOrder, wordOrder) pair.

func EncodeUint16(value uint16, byteOrder ByteOrder) []uint16 {
	return []uint16{encodeWord(value, byteOrder)}
}

func EncodeInt16(value int16, byteOrder ByteOrder) []uint16 {
	return EncodeUint16(uint16(value), byteOrder)
}

func EncodeUint32(value uint32, byteOrder ByteOrder, wordOrder WordOrder) []uint16 {
	msw := encodeWord(uint16(value>>16), byteOrder)
	lsw := encodeWord(uint16(value), byteOrder)
	if wordOrder == WordOrderLittle {
		return []uint16{lsw, msw}
	}
	return []uint16{msw, lsw}
}

func EncodeInt32(value int32, byteOrder ByteOrder, wordOrder WordOrder) []uint16 {
	return EncodeUint32(uint32(value), byteOrder, wordOrder)
}

func EncodeFloat32(value float32, byteOrder ByteOrder, wordOrder WordOrder) []uint16 {
	return EncodeUint32(math.Float32bits(value), byteOrder, wordOrder)
}

func encodeWord(value uint16, byteOrder ByteOrder) uint16 {
	if byteOrder == ByteOrderLittle {
		return value<<8 | value>>8
	}
	return value
}
