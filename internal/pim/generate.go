// Package pim maps the matmuls of a transformer decode step onto the banks
// of an LPDDR-PIM system and emits the resulting command trace.
//
// Generation is a pure function of the decode shapes and the topology:
// identical inputs always produce the same command sequence.
package pim

import (
	"context"
	"fmt"

	"github.com/samcharles93/agentx/internal/profile"
	"github.com/samcharles93/agentx/internal/topology"
	"github.com/samcharles93/agentx/internal/trace"
)

// DefaultElementBytes is the fp16/bf16 weight width.
const DefaultElementBytes = 2

// maxSizeHint bounds the up-front command slice allocation.
const maxSizeHint = 1 << 22

// Config holds the hardware side of a run.
type Config struct {
	Topology     topology.Topology
	ElementBytes int
}

// DefaultConfig is the default topology with 2-byte elements.
func DefaultConfig() Config {
	return Config{Topology: topology.Default(), ElementBytes: DefaultElementBytes}
}

// PassSummary describes one tiled weight matrix.
type PassSummary struct {
	Tensor           string       `json:"tensor"`
	Kind             string       `json:"kind"`
	Weight           profile.Dims `json:"weight"`
	OutputTiles      int          `json:"output_tiles"`
	ContractionTiles int          `json:"contraction_tiles"`
	RowPitch         int          `json:"row_pitch"`
	Commands         int          `json:"commands"`
	BaseOffset       uint64       `json:"base_offset"`
}

// BlockSummary groups the passes emitted between two barriers.
type BlockSummary struct {
	Name     string        `json:"name"`
	Commands int           `json:"commands"`
	Passes   []PassSummary `json:"passes"`
}

// Program is the output of one generation run.
type Program struct {
	Commands     []trace.Command      `json:"-"`
	Blocks       []BlockSummary       `json:"blocks"`
	Parallelism  topology.Parallelism `json:"parallelism"`
	Barriers     int                  `json:"barriers"`
	FinalOffset  uint64               `json:"final_offset"`
	Capacity     uint64               `json:"capacity"`
	AddressSpace uint64               `json:"address_space"`
}

// Compute returns the number of MACAB commands.
func (p *Program) Compute() int {
	return len(p.Commands) - p.Barriers
}

// Generate builds the command trace for one decode step. It returns an
// error wrapping ErrCapacityExceeded when the stages do not fit in one
// channel; no partial program is returned in that case.
func Generate(ctx context.Context, decode profile.Decode, cfg Config) (*Program, error) {
	par, err := cfg.Topology.Parallelism(cfg.ElementBytes)
	if err != nil {
		return nil, err
	}
	catalog := Catalog()

	// Plan everything first so shape errors surface before any emission.
	plans := make([][]Tiling, len(catalog))
	total := 0
	for i, block := range catalog {
		for _, pass := range block.Passes {
			shape, ok := decode.Tensor(pass.Tensor)
			if !ok {
				return nil, fmt.Errorf("%w: missing tensor %s", ErrMalformedShape, pass.Tensor)
			}
			tiling, err := Plan(pass, shape, par, decode.Profile.KVHeads)
			if err != nil {
				return nil, err
			}
			plans[i] = append(plans[i], tiling)
			total += tiling.Commands()
		}
	}

	// Offsets depend only on the planned counts, so overflow is known
	// before anything is allocated or emitted.
	if err := checkCapacity(cfg.Topology, plans); err != nil {
		return nil, err
	}

	alloc := NewAllocator(cfg.Topology)
	em := newEmitter(alloc, par.Channels, min(total+par.Channels*(len(catalog)-1), maxSizeHint))
	blocks := make([]BlockSummary, len(catalog))
	lastPass := ""
	for i, block := range catalog {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		em.beginBlock()
		summary := BlockSummary{Name: block.Name}
		for _, tiling := range plans[i] {
			ps := PassSummary{
				Tensor:           tiling.Pass.Tensor,
				Kind:             tiling.Pass.Kind.String(),
				Weight:           tiling.Weight,
				OutputTiles:      tiling.OutputTiles,
				ContractionTiles: tiling.ContractionTiles,
				RowPitch:         tiling.RowPitch,
				Commands:         tiling.Commands(),
				BaseOffset:       alloc.Offset(),
			}
			for tile := range tiling.Tiles() {
				em.compute(tile)
			}
			alloc.Commit(tiling.Pass.Tensor, ps.Commands, tiling.Pass.Carry)
			lastPass = tiling.Pass.Tensor
			summary.Commands += ps.Commands
			summary.Passes = append(summary.Passes, ps)
		}
		blocks[i] = summary
	}
	if err := alloc.Finish(lastPass); err != nil {
		return nil, err
	}

	return &Program{
		Commands:     em.cmds,
		Blocks:       blocks,
		Parallelism:  par,
		Barriers:     em.barriers,
		FinalOffset:  alloc.Offset(),
		Capacity:     alloc.Capacity(),
		AddressSpace: cfg.Topology.AddressSpace(),
	}, nil
}

// checkCapacity replays the allocator over the planned command counts.
func checkCapacity(topo topology.Topology, plans [][]Tiling) error {
	alloc := NewAllocator(topo)
	lastPass := ""
	for _, block := range plans {
		for _, tiling := range block {
			alloc.Commit(tiling.Pass.Tensor, tiling.Commands(), tiling.Pass.Carry)
			lastPass = tiling.Pass.Tensor
		}
	}
	return alloc.Finish(lastPass)
}
