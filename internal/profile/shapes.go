package profile

import "fmt"

// Tensor names produced by DecodeShapes.
const (
	QProj    = "q_proj"
	KProj    = "k_proj"
	VProj    = "v_proj"
	AttnQK   = "attn_qk"
	AttnAV   = "attn_av"
	OProj    = "o_proj"
	GateProj = "gate_proj"
	UpProj   = "up_proj"
	DownProj = "down_proj"
)

// Dims is a (rows, cols) pair.
type Dims struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

func (d Dims) String() string {
	return fmt.Sprintf("[%d, %d]", d.Rows, d.Cols)
}

// Positive reports whether both dimensions are at least one.
func (d Dims) Positive() bool {
	return d.Rows > 0 && d.Cols > 0
}

// TensorShape is one matmul of a decode step. Weight is [contraction, output].
type TensorShape struct {
	Name   string `json:"name"`
	Input  Dims   `json:"input"`
	Weight Dims   `json:"weight"`
	Output Dims   `json:"output"`
}

// Params are the per-run inputs that shape a decode step.
type Params struct {
	BatchSize  int `json:"batch_size"`
	ContextLen int `json:"context_len"`
	// MaxLen bounds ContextLen; it does not change any shape.
	MaxLen int `json:"max_len"`
}

// DefaultMaxLen is the longest context the simulator configuration supports.
const DefaultMaxLen = 32768

func (p Params) Validate() error {
	if p.BatchSize < 1 {
		return fmt.Errorf("%w: batch size must be >= 1, got %d", ErrInvalidParams, p.BatchSize)
	}
	if p.ContextLen < 1 {
		return fmt.Errorf("%w: context length must be >= 1, got %d", ErrInvalidParams, p.ContextLen)
	}
	if p.MaxLen > 0 && p.ContextLen > p.MaxLen {
		return fmt.Errorf("%w: context length %d exceeds max length %d", ErrInvalidParams, p.ContextLen, p.MaxLen)
	}
	return nil
}

// Decode is the full set of decode-step tensors for one profile and batch.
type Decode struct {
	Profile Profile       `json:"profile"`
	Params  Params        `json:"params"`
	Tensors []TensorShape `json:"tensors"`
}

// Tensor returns the named tensor.
func (d Decode) Tensor(name string) (TensorShape, bool) {
	for _, t := range d.Tensors {
		if t.Name == name {
			return t, true
		}
	}
	return TensorShape{}, false
}

// DecodeShapes derives the decode-step tensor shapes for the labelled profile.
func DecodeShapes(label string, params Params) (Decode, error) {
	p, err := Lookup(label)
	if err != nil {
		return Decode{}, err
	}
	return ShapesFor(p, params)
}

// ShapesFor derives decode-step shapes from an explicit profile.
func ShapesFor(p Profile, params Params) (Decode, error) {
	if err := params.Validate(); err != nil {
		return Decode{}, err
	}
	b, l := params.BatchSize, params.ContextLen
	qDim := p.Heads * p.DHead
	kvDim := p.KVHeads * p.DHead

	tensors := []TensorShape{
		{Name: QProj, Input: Dims{b, p.DModel}, Weight: Dims{p.DModel, qDim}, Output: Dims{b, qDim}},
		{Name: KProj, Input: Dims{b, p.DModel}, Weight: Dims{p.DModel, kvDim}, Output: Dims{b, kvDim}},
		{Name: VProj, Input: Dims{b, p.DModel}, Weight: Dims{p.DModel, kvDim}, Output: Dims{b, kvDim}},
		// The KV cache plays the weight role in both attention matmuls.
		{Name: AttnQK, Input: Dims{b, p.DHead}, Weight: Dims{b * p.DHead, l}, Output: Dims{b, l}},
		{Name: AttnAV, Input: Dims{b, l}, Weight: Dims{l, b * p.DHead}, Output: Dims{b, p.DHead}},
		{Name: OProj, Input: Dims{b, qDim}, Weight: Dims{qDim, p.DModel}, Output: Dims{b, p.DModel}},
		{Name: GateProj, Input: Dims{b, p.DModel}, Weight: Dims{p.DModel, p.DFF}, Output: Dims{b, p.DFF}},
		{Name: UpProj, Input: Dims{b, p.DModel}, Weight: Dims{p.DModel, p.DFF}, Output: Dims{b, p.DFF}},
		{Name: DownProj, Input: Dims{b, p.DFF}, Weight: Dims{p.DFF, p.DModel}, Output: Dims{b, p.DModel}},
	}
	return Decode{Profile: p, Params: params, Tensors: tensors}, nil
}
