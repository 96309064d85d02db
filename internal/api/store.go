package api

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/agentx/internal/pim"
	"github.com/samcharles93/agentx/internal/trace"
)

// DefaultStoreLimit bounds how many generated traces are kept in memory.
const DefaultStoreLimit = 16

type traceRecord struct {
	ID        string
	CreatedAt time.Time
	Summary   pim.Summary
	Commands  []trace.Command
}

// TraceStore keeps recently generated traces. The oldest record is evicted
// once the limit is reached.
type TraceStore struct {
	mu     sync.Mutex
	limit  int
	order  []string
	traces map[string]*traceRecord
}

func NewTraceStore(limit int) *TraceStore {
	if limit <= 0 {
		limit = DefaultStoreLimit
	}
	return &TraceStore{
		limit:  limit,
		traces: make(map[string]*traceRecord),
	}
}

func (s *TraceStore) Put(summary pim.Summary, cmds []trace.Command, now time.Time) *traceRecord {
	rec := &traceRecord{
		ID:        newTraceID(),
		CreatedAt: now,
		Summary:   summary,
		Commands:  cmds,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.order) >= s.limit {
		delete(s.traces, s.order[0])
		s.order = s.order[1:]
	}
	s.traces[rec.ID] = rec
	s.order = append(s.order, rec.ID)
	return rec
}

func (s *TraceStore) Get(id string) (*traceRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.traces[id]
	return rec, ok
}

func (s *TraceStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.traces[id]; !ok {
		return false
	}
	delete(s.traces, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *TraceStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.traces)
}

func newTraceID() string {
	return "trace_" + uuid.NewString()
}
