package pim

import "github.com/samcharles93/agentx/internal/trace"

// emitter accumulates the command stream of one run. Barriers are inserted
// lazily when a block emits its first command after an earlier non-empty
// block, so empty blocks never produce a barrier and nothing trails the
// last block.
type emitter struct {
	alloc    *Allocator
	channels int
	cmds     []trace.Command
	emitted  bool
	inBlock  bool
	barriers int
}

func newEmitter(alloc *Allocator, channels, sizeHint int) *emitter {
	return &emitter{
		alloc:    alloc,
		channels: channels,
		cmds:     make([]trace.Command, 0, sizeHint),
	}
}

func (e *emitter) beginBlock() {
	e.inBlock = false
}

func (e *emitter) compute(t Tile) {
	if !e.inBlock {
		if e.emitted {
			e.barrier()
		}
		e.inBlock = true
		e.emitted = true
	}
	e.cmds = append(e.cmds, trace.Command{Op: trace.MACAB, Addr: e.alloc.Address(t)})
}

func (e *emitter) barrier() {
	for ch := range e.channels {
		e.cmds = append(e.cmds, trace.Command{Op: trace.Barrier, Addr: e.alloc.BarrierAddress(ch)})
	}
	e.barriers += e.channels
}
