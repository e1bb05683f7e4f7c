package memory

import (
	"sync"
	"sync/atomic"

	"design-analysis-be/internal/entity"

	"github.com/google/uuid"
)

// Store is the process-local backing for the memory storage driver and for tests.
// The knowledge corpus is copy-on-write: readers take an immutable snapshot,
// writers publish a new slice, so a search never observes a half-applied ingest.
type Store struct {
	corpus   atomic.Pointer[[]*entity.KnowledgeEntry]
	corpusMu sync.Mutex // serializes corpus writers

	mu        sync.RWMutex
	sessions  map[uuid.UUID]*entity.AnalysisSession
	stages    map[uuid.UUID][]*entity.StageResult
	syntheses map[uuid.UUID]*entity.SynthesisResult
	scores    map[uuid.UUID]*entity.MaturityScore
	sequence  int64
}

func NewStore() *Store {
	s := &Store{
		sessions:  make(map[uuid.UUID]*entity.AnalysisSession),
		stages:    make(map[uuid.UUID][]*entity.StageResult),
		syntheses: make(map[uuid.UUID]*entity.SynthesisResult),
		scores:    make(map[uuid.UUID]*entity.MaturityScore),
	}
	empty := []*entity.KnowledgeEntry{}
	s.corpus.Store(&empty)
	return s
}

func (s *Store) snapshot() []*entity.KnowledgeEntry {
	return *s.corpus.Load()
}

func (s *Store) publish(mutate func(current []*entity.KnowledgeEntry) []*entity.KnowledgeEntry) {
	s.corpusMu.Lock()
	defer s.corpusMu.Unlock()

	current := s.snapshot()
	next := mutate(append([]*entity.KnowledgeEntry(nil), current...))
	s.corpus.Store(&next)
}

func copySession(in *entity.AnalysisSession) *entity.AnalysisSession {
	if in == nil {
		return nil
	}
	out := *in
	out.ImageUrls = append([]string(nil), in.ImageUrls...)
	out.Personas = append([]string(nil), in.Personas...)
	out.Signals = append([]entity.Signal(nil), in.Signals...)
	if in.CancelRequestedAt != nil {
		t := *in.CancelRequestedAt
		out.CancelRequestedAt = &t
	}
	if in.CommittedAt != nil {
		t := *in.CommittedAt
		out.CommittedAt = &t
	}
	if in.CompletedAt != nil {
		t := *in.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

func copyStage(in *entity.StageResult) *entity.StageResult {
	out := *in
	out.Payload = append([]byte(nil), in.Payload...)
	return &out
}

func copyEntry(in *entity.KnowledgeEntry) *entity.KnowledgeEntry {
	out := *in
	out.Embedding = append([]float32(nil), in.Embedding...)
	return &out
}
