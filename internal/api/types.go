package api

import (
	"github.com/samcharles93/agentx/internal/pim"
	"github.com/samcharles93/agentx/internal/profile"
)

type TraceRequest struct {
	Model      string `json:"model"`
	ContextLen int    `json:"context_len"`
	BatchSize  *int   `json:"batch_size,omitempty"`
	MaxLen     *int   `json:"max_len,omitempty"`
	DTypeBytes *int   `json:"dtype_bytes,omitempty"`
}

type TraceObject struct {
	ID        string      `json:"id"`
	Object    string      `json:"object"`
	CreatedAt int64       `json:"created_at"`
	Summary   pim.Summary `json:"summary"`
}

type ProfileList struct {
	Object string            `json:"object"`
	Data   []profile.Profile `json:"data"`
}

type DeleteResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}
