package pim

import (
	"errors"
	"fmt"

	"github.com/samcharles93/agentx/internal/topology"
)

var ErrCapacityExceeded = errors.New("decode working set exceeds channel capacity")

// CapacityError reports where the running offset first crossed the
// per-channel capacity and how far it got by the end of the run.
type CapacityError struct {
	Pass        string
	PassOffset  uint64
	FinalOffset uint64
	Capacity    uint64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%v: offset %#x after %s (final %#x) > channel capacity %#x",
		ErrCapacityExceeded, e.PassOffset, e.Pass, e.FinalOffset, e.Capacity)
}

func (e *CapacityError) Unwrap() error {
	return ErrCapacityExceeded
}

// Allocator maps tiles to byte addresses. The base offset only grows.
type Allocator struct {
	column   uint64
	channel  uint64
	base     uint64
	pending  uint64
	overflow *CapacityError
}

func NewAllocator(topo topology.Topology) *Allocator {
	return &Allocator{
		column:  topo.Granularity(topology.Column),
		channel: topo.Granularity(topology.Channel),
	}
}

// Address returns the byte address of a tile in the current pass.
func (a *Allocator) Address(t Tile) uint64 {
	return a.base + uint64(t.Channel)*a.channel + uint64(t.Linear)*a.column
}

// BarrierAddress is the base address of a channel.
func (a *Allocator) BarrierAddress(channel int) uint64 {
	return uint64(channel) * a.channel
}

// Commit accounts for the commands a pass emitted. Unless carry is set the
// base advances one column per command.
func (a *Allocator) Commit(pass string, commands int, carry bool) {
	a.pending += uint64(commands)
	if carry {
		return
	}
	a.advance(pass)
}

func (a *Allocator) advance(pass string) {
	a.base += a.pending * a.column
	a.pending = 0
	if a.base > a.channel && a.overflow == nil {
		a.overflow = &CapacityError{Pass: pass, PassOffset: a.base, Capacity: a.channel}
	}
}

// Offset is the current base offset.
func (a *Allocator) Offset() uint64 {
	return a.base
}

// Capacity is the byte size of one channel.
func (a *Allocator) Capacity() uint64 {
	return a.channel
}

// Finish flushes carried commands and checks the capacity invariant.
func (a *Allocator) Finish(lastPass string) error {
	if a.pending > 0 {
		a.advance(lastPass)
	}
	if a.base <= a.channel {
		return nil
	}
	err := *a.overflow
	err.FinalOffset = a.base
	return &err
}
