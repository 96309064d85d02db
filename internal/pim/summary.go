package pim

import (
	"github.com/samcharles93/agentx/internal/profile"
	"github.com/samcharles93/agentx/internal/trace"
)

// Summary is the reportable view of a generated trace.
type Summary struct {
	Model        string         `json:"model"`
	Params       profile.Params `json:"params"`
	ElementBytes int            `json:"dtype_bytes"`
	Stats        trace.Stats    `json:"stats"`
	Digest       string         `json:"sha256"`
	*Program
}

// Summarize reports counts, the digest and the per-block layout of p.
func Summarize(decode profile.Decode, cfg Config, p *Program) Summary {
	return Summary{
		Model:        decode.Profile.Label,
		Params:       decode.Params,
		ElementBytes: cfg.ElementBytes,
		Stats:        trace.Summarize(p.Commands),
		Digest:       trace.Digest(p.Commands),
		Program:      p,
	}
}
