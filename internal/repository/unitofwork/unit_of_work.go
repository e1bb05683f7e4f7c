package unitofwork

import (
	"context"

	"design-analysis-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	KnowledgeEntryRepository() contract.KnowledgeEntryRepository
	AnalysisSessionRepository() contract.AnalysisSessionRepository
	StageResultRepository() contract.StageResultRepository
	SynthesisResultRepository() contract.SynthesisResultRepository
	MaturityScoreRepository() contract.MaturityScoreRepository
}
