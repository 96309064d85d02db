package profile

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrUnknownProfile = errors.New("unknown model profile")
	ErrInvalidParams  = errors.New("invalid runtime parameters")
)

// Profile is the size description of one dense decoder-only model.
type Profile struct {
	Label   string `json:"label"`
	Layers  int    `json:"layers"`
	DModel  int    `json:"d_model"`
	DFF     int    `json:"d_ff"`
	Heads   int    `json:"n_heads"`
	KVHeads int    `json:"n_kv"`
	DHead   int    `json:"d_head"`
}

var profiles = []Profile{
	{Label: "8B", Layers: 36, DModel: 4096, DFF: 12288, Heads: 32, KVHeads: 8, DHead: 128},
	{Label: "14B", Layers: 40, DModel: 5120, DFF: 17408, Heads: 40, KVHeads: 8, DHead: 128},
	{Label: "32B", Layers: 64, DModel: 5120, DFF: 25600, Heads: 64, KVHeads: 8, DHead: 128},
	{Label: "70B", Layers: 80, DModel: 8192, DFF: 28672, Heads: 64, KVHeads: 8, DHead: 128},
}

// All returns the supported profiles ordered by size.
func All() []Profile {
	return slices.Clone(profiles)
}

// Lookup finds a profile by label, ignoring case ("32b" and "32B" match).
func Lookup(label string) (Profile, error) {
	want := strings.ToUpper(strings.TrimSpace(label))
	for _, p := range profiles {
		if p.Label == want {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownProfile, label, strings.Join(Labels(), ", "))
}

// Labels returns the supported profile labels.
func Labels() []string {
	out := make([]string, len(profiles))
	for i, p := range profiles {
		out[i] = p.Label
	}
	return out
}
