package pim

import (
	"errors"
	"fmt"
	"iter"

	"github.com/samcharles93/agentx/internal/profile"
	"github.com/samcharles93/agentx/internal/topology"
)

var ErrMalformedShape = errors.New("malformed tensor shape")

// Tile is one unit of bank-level work. Linear is the column index of the
// tile inside its pass, shared by every channel.
type Tile struct {
	Output      int
	Contraction int
	Channel     int
	Linear      int
}

// Tiling is the tile grid of one pass.
type Tiling struct {
	Pass             Pass
	Weight           profile.Dims
	OutputTiles      int
	ContractionTiles int
	// RowPitch is the linear distance between consecutive output tiles.
	RowPitch int
	Channels int
}

// Plan computes the tile grid for a pass. kvHeads is only used by
// attention passes.
func Plan(pass Pass, shape profile.TensorShape, par topology.Parallelism, kvHeads int) (Tiling, error) {
	if !shape.Weight.Positive() {
		return Tiling{}, fmt.Errorf("%w: %s weight %v", ErrMalformedShape, shape.Name, shape.Weight)
	}
	if par.Channels <= 0 || par.MACWidth <= 0 || par.Packages <= 0 || par.BankParallelism() <= 0 {
		return Tiling{}, fmt.Errorf("%w: %s: non-positive parallelism %+v", ErrMalformedShape, shape.Name, par)
	}
	n, k := pass.split(shape.Weight)
	t := Tiling{Pass: pass, Weight: shape.Weight, Channels: par.Channels}

	switch pass.Kind {
	case Projection:
		t.OutputTiles = ceilDiv(n, par.Channels)
		t.ContractionTiles = ceilDiv(k, par.BankParallelism()*par.MACWidth*par.Packages)
		t.RowPitch = t.ContractionTiles
	case Attention:
		if kvHeads <= 0 {
			return Tiling{}, fmt.Errorf("%w: %s: kv heads must be positive, got %d", ErrMalformedShape, shape.Name, kvHeads)
		}
		headsPerChannel := ceilDiv(kvHeads, par.Channels)
		t.OutputTiles = ceilDiv(n*headsPerChannel, par.MACWidth)
		t.ContractionTiles = ceilDiv(k, par.BankParallelism()*par.Packages)
		// Rows are laid out for a single package even though the
		// contraction is split across all of them.
		t.RowPitch = ceilDiv(k, par.BankParallelism())
	default:
		return Tiling{}, fmt.Errorf("%w: %s: unknown pass kind %d", ErrMalformedShape, shape.Name, pass.Kind)
	}
	return t, nil
}

// Commands is the number of compute commands the pass emits.
func (t Tiling) Commands() int {
	return t.OutputTiles * t.ContractionTiles * t.Channels
}

// Tiles yields tiles with the channel varying fastest, then the
// contraction index, then the output index.
func (t Tiling) Tiles() iter.Seq[Tile] {
	return func(yield func(Tile) bool) {
		for out := range t.OutputTiles {
			for kIdx := range t.ContractionTiles {
				linear := out*t.RowPitch + kIdx
				for ch := range t.Channels {
					if !yield(Tile{Output: out, Contraction: kIdx, Channel: ch, Linear: linear}) {
						return
					}
				}
			}
		}
	}
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
