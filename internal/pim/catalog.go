package pim

import "github.com/samcharles93/agentx/internal/profile"

// Axis selects a dimension of a [contraction, output] weight matrix.
type Axis int

const (
	AxisRows Axis = iota
	AxisCols
)

// Kind chooses the tiling rule for a pass.
type Kind int

const (
	// Projection spreads output columns over channels and the contraction
	// over every bank, MAC lane and package.
	Projection Kind = iota
	// Attention folds the heads resident on a channel into the output and
	// spreads the context over banks and packages.
	Attention
)

func (k Kind) String() string {
	switch k {
	case Projection:
		return "projection"
	case Attention:
		return "attention"
	default:
		return "unknown"
	}
}

// Pass is one weight matrix streamed through the PIM units.
type Pass struct {
	Tensor string
	Kind   Kind
	// Output is the weight axis distributed as output tiles; the other
	// axis is the contraction.
	Output Axis
	// Carry leaves the address offset where it is after the pass; the
	// commands are accounted for when the next pass advances it.
	Carry bool
}

// Block is a group of passes executed between two barriers.
type Block struct {
	Name   string
	Passes []Pass
}

// Catalog returns the decode-step blocks in execution order. The order
// fixes both the address layout and the trace order.
func Catalog() []Block {
	return []Block{
		{Name: "qkv", Passes: []Pass{
			{Tensor: profile.QProj, Kind: Projection, Output: AxisCols},
			{Tensor: profile.KProj, Kind: Projection, Output: AxisCols},
			{Tensor: profile.VProj, Kind: Projection, Output: AxisCols},
		}},
		{Name: "score", Passes: []Pass{
			{Tensor: profile.AttnQK, Kind: Attention, Output: AxisRows},
		}},
		{Name: "context", Passes: []Pass{
			{Tensor: profile.AttnAV, Kind: Attention, Output: AxisCols},
		}},
		{Name: "oproj", Passes: []Pass{
			{Tensor: profile.OProj, Kind: Projection, Output: AxisCols, Carry: true},
		}},
		{Name: "ffn1", Passes: []Pass{
			{Tensor: profile.GateProj, Kind: Projection, Output: AxisCols},
		}},
		{Name: "ffn2", Passes: []Pass{
			{Tensor: profile.UpProj, Kind: Projection, Output: AxisCols},
		}},
		// down_proj tiles its rows as outputs, unlike the other projections.
		{Name: "ffn3", Passes: []Pass{
			{Tensor: profile.DownProj, Kind: Projection, Output: AxisRows},
		}},
	}
}

// split returns (output, contraction) extents of a weight for the pass.
func (p Pass) split(w profile.Dims) (n, k int) {
	if p.Output == AxisRows {
		return w.Rows, w.Cols
	}
	return w.Cols, w.Rows
}
