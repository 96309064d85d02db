// Package trace holds the command model of a PIM trace and its text encoding.
//
// A trace is one command per line:
//
//	PIM_MACAB 0x00000040
//	PIM_BARRIER 0x100000000
//
// Addresses are lowercase hex, zero padded to at least eight digits.
package trace

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownOpcode = errors.New("unknown trace opcode")
	ErrMalformedLine = errors.New("malformed trace line")
)

// Opcode is a PIM command understood by the simulator.
type Opcode uint8

const (
	// MACAB is an all-bank multiply-accumulate at a bank-local address.
	MACAB Opcode = iota
	// Barrier waits for every earlier command on the addressed channel.
	Barrier
)

func (o Opcode) String() string {
	switch o {
	case MACAB:
		return "PIM_MACAB"
	case Barrier:
		return "PIM_BARRIER"
	default:
		return fmt.Sprintf("Opcode(%d)", uint8(o))
	}
}

// ParseOpcode maps a trace mnemonic back to its Opcode.
func ParseOpcode(s string) (Opcode, error) {
	switch s {
	case "PIM_MACAB":
		return MACAB, nil
	case "PIM_BARRIER":
		return Barrier, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownOpcode, s)
	}
}

// Command is a single addressed trace entry.
type Command struct {
	Op   Opcode
	Addr uint64
}

func (c Command) String() string {
	return string(appendCommand(nil, c))
}

// Stats summarises a command sequence.
type Stats struct {
	Total    int    `json:"total"`
	MACAB    int    `json:"macab"`
	Barriers int    `json:"barriers"`
	MinAddr  uint64 `json:"min_addr"`
	MaxAddr  uint64 `json:"max_addr"`
}

// Summarize counts commands per opcode and tracks the address range.
func Summarize(cmds []Command) Stats {
	var s Stats
	for i, c := range cmds {
		switch c.Op {
		case MACAB:
			s.MACAB++
		case Barrier:
			s.Barriers++
		}
		if i == 0 || c.Addr < s.MinAddr {
			s.MinAddr = c.Addr
		}
		if c.Addr > s.MaxAddr {
			s.MaxAddr = c.Addr
		}
	}
	s.Total = len(cmds)
	return s
}
