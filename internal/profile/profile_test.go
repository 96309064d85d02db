package profile

import (
	"errors"
	"testing"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		label     string
		wantLabel string
		wantError bool
	}{
		{label: "8B", wantLabel: "8B"},
		{label: "32b", wantLabel: "32B"},
		{label: " 70B ", wantLabel: "70B"},
		{label: "13B", wantError: true},
		{label: "", wantError: true},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			p, err := Lookup(tt.label)
			if tt.wantError {
				if !errors.Is(err, ErrUnknownProfile) {
					t.Fatalf("expected ErrUnknownProfile, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Label != tt.wantLabel {
				t.Fatalf("label mismatch: want %q, got %q", tt.wantLabel, p.Label)
			}
		})
	}
}

func TestAllReturnsCopy(t *testing.T) {
	all := All()
	all[0].Layers = 0
	p, err := Lookup("8B")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if p.Layers != 36 {
		t.Fatalf("catalog mutated through All(): layers=%d", p.Layers)
	}
}

func TestDecodeShapes8B(t *testing.T) {
	d, err := DecodeShapes("8B", Params{BatchSize: 1, ContextLen: 8192, MaxLen: DefaultMaxLen})
	if err != nil {
		t.Fatalf("DecodeShapes: %v", err)
	}
	want := map[string]Dims{
		QProj:    {4096, 4096},
		KProj:    {4096, 1024},
		VProj:    {4096, 1024},
		AttnQK:   {128, 8192},
		AttnAV:   {8192, 128},
		OProj:    {4096, 4096},
		GateProj: {4096, 12288},
		UpProj:   {4096, 12288},
		DownProj: {12288, 4096},
	}
	if len(d.Tensors) != len(want) {
		t.Fatalf("tensor count: want %d, got %d", len(want), len(d.Tensors))
	}
	for name, w := range want {
		ts, ok := d.Tensor(name)
		if !ok {
			t.Fatalf("missing tensor %s", name)
		}
		if ts.Weight != w {
			t.Fatalf("%s weight: want %v, got %v", name, w, ts.Weight)
		}
		if !ts.Input.Positive() || !ts.Output.Positive() {
			t.Fatalf("%s has non-positive input/output: %v %v", name, ts.Input, ts.Output)
		}
	}
	if _, ok := d.Tensor("lm_head"); ok {
		t.Fatalf("unexpected tensor lm_head")
	}
}

func TestDecodeShapesBatchScalesKVCache(t *testing.T) {
	d, err := DecodeShapes("14B", Params{BatchSize: 4, ContextLen: 2048})
	if err != nil {
		t.Fatalf("DecodeShapes: %v", err)
	}
	qk, _ := d.Tensor(AttnQK)
	if qk.Weight != (Dims{4 * 128, 2048}) {
		t.Fatalf("attn_qk weight: got %v", qk.Weight)
	}
	q, _ := d.Tensor(QProj)
	if q.Input.Rows != 4 || q.Weight != (Dims{5120, 40 * 128}) {
		t.Fatalf("q_proj: got input %v weight %v", q.Input, q.Weight)
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		ok     bool
	}{
		{name: "ok", params: Params{BatchSize: 1, ContextLen: 8192, MaxLen: 32768}, ok: true},
		{name: "no max", params: Params{BatchSize: 1, ContextLen: 1 << 20}, ok: true},
		{name: "at max", params: Params{BatchSize: 2, ContextLen: 32768, MaxLen: 32768}, ok: true},
		{name: "zero batch", params: Params{BatchSize: 0, ContextLen: 1}},
		{name: "zero context", params: Params{BatchSize: 1, ContextLen: 0}},
		{name: "over max", params: Params{BatchSize: 1, ContextLen: 32769, MaxLen: 32768}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidParams) {
				t.Fatalf("expected ErrInvalidParams, got %v", err)
			}
		})
	}
}

func TestDecodeShapesUnknownProfile(t *testing.T) {
	_, err := DecodeShapes("405B", Params{BatchSize: 1, ContextLen: 1})
	if !errors.Is(err, ErrUnknownProfile) {
		t.Fatalf("expected ErrUnknownProfile, got %v", err)
	}
}
