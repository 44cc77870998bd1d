package sma_modbus

import (
	"errors"
	"fmt"
)

// fakeBus scripts register reads per (kind, address) and records writes.
// Unscripted addresses fail the way a device rejects an unmapped request.
type fakeBus struct {
	reads     map[string][]uint16
	readErrs  map[string]error
	writeErrs map[uint16]error

	readCalls []string
	writes    []busWrite
}

type busWrite struct {
	addr   uint16
	values []uint16
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		reads:     map[string][]uint16{},
		readErrs:  map[string]error{},
		writeErrs: map[uint16]error{},
	}
}

func busKey(kind RegisterKind, addr uint16) string {
	return fmt.Sprintf("%s/%d", kind, addr)
}

func (b *fakeBus) stub(kind RegisterKind, addr uint16, regs []uint16) {
	b.reads[busKey(kind, addr)] = regs
}

func (b *fakeBus) ReadRegisters(addr uint16, quantity uint16, kind RegisterKind) ([]uint16, error) {
	key := busKey(kind, addr)
	b.readCalls = append(b.readCalls, key)
	if err, ok := b.readErrs[key]; ok {
		return nil, err
	}
	regs, ok := b.reads[key]
	if !ok {
		return nil, errors.New("illegal data address")
	}
	if int(quantity) != len(regs) {
		return nil, fmt.Errorf("stub at %s has %d registers, read asked for %d", key, len(regs), quantity)
	}
	return regs, nil
}

func (b *fakeBus) WriteRegisters(addr uint16, values []uint16) error {
	b.writes = append(b.writes, busWrite{addr: addr, values: values})
	return b.writeErrs[addr]
}
