package sma_modbus

import (
	"fmt"
	"strings"
)

type RegisterKind uint8

const (
	RegisterKindInput RegisterKind = iota
	RegisterKindHolding
)

func (k RegisterKind) String() string {
	switch k {
	case RegisterKindInput:
		return "input"
	case RegisterKindHolding:
		return "holding"
	default:
		return "unknown"
	}
}

// RegisterBus is the register-level view of a Modbus connection. It exists
// so the resolver and the inverter clients can be exercised against fakes.
type RegisterBus interface {
	ReadRegisters(addr uint16, quantity uint16, kind RegisterKind) ([]uint16, error)
	WriteRegisters(addr uint16, values []uint16) error
}

// AddressCandidate maps a logical SMA register number to a wire address:
// addr = logical + BaseOffset, read as Kind.
type AddressCandidate struct {
	Kind       RegisterKind
	BaseOffset int
}

func (c AddressCandidate) String() string {
	return fmt.Sprintf("%s%+d", c.Kind, c.BaseOffset)
}

// DefaultCandidates is the ranked probe order for SMA firmware variants.
// Older stacks expose the documented register numbers shifted by the
// protocol base, current firmware serves them raw as holding registers.
func DefaultCandidates() []AddressCandidate {
	return []AddressCandidate{
		{RegisterKindInput, -30001},
		{RegisterKindInput, -30000},
		{RegisterKindHolding, -40001},
		{RegisterKindHolding, -40000},
		{RegisterKindHolding, 0},
	}
}

// RegisterNotFoundError reports that no candidate produced a usable block
// for a logical register.
type RegisterNotFoundError struct {
	Register uint32
	Attempts []AddressCandidate
}

func (e *RegisterNotFoundError) Error() string {
	tried := make([]string, 0, len(e.Attempts))
	for _, c := range e.Attempts {
		tried = append(tried, c.String())
	}
	return fmt.Sprintf("sma_modbus: register %d not found, tried %s",
		e.Register, strings.Join(tried, ", "))
}

// ResolveRead probes candidates in order and returns the first block that
// reads without a protocol error and is not entirely 0xFFFF. An all-0xFFFF
// block means the device answered a mapping it does not actually serve.
// Nothing is cached; every read resolves again.
func ResolveRead(bus RegisterBus, logical uint32, quantity uint16, candidates []AddressCandidate) ([]uint16, error) {
	attempted := make([]AddressCandidate, 0, len(candidates))
	for _, cand := range candidates {
		addr := int(logical) + cand.BaseOffset
		if addr < 0 || addr > 0xFFFF {
			continue
		}
		attempted = append(attempted, cand)
		regs, err := bus.ReadRegisters(uint16(addr), quantity, cand.Kind)
		if err != nil {
			continue
		}
		if allSentinel(regs) {
			continue
		}
		return regs, nil
	}
	return nil, &RegisterNotFoundError{Register: logical, Attempts: attempted}
}

func allSentinel(regs []uint16) bool {
	for _, r := range regs {
		if r != sentinelUint16 {
			return false
		}
	}
	return true
}
