package memory

import (
	"context"

	"design-analysis-be/internal/repository/contract"
	"design-analysis-be/internal/repository/unitofwork"
)

// UnitOfWork over a Store. Writes apply immediately; Begin/Commit/Rollback only
// track nesting, there is no rollback of applied writes.
type UnitOfWork struct {
	store  *Store
	active bool
}

type RepositoryFactory struct {
	store *Store
}

func NewRepositoryFactory(store *Store) unitofwork.RepositoryFactory {
	return &RepositoryFactory{store: store}
}

func (f *RepositoryFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &UnitOfWork{store: f.store}
}

func (u *UnitOfWork) Begin(ctx context.Context) error {
	u.active = true
	return nil
}

func (u *UnitOfWork) Commit() error {
	u.active = false
	return nil
}

func (u *UnitOfWork) Rollback() error {
	u.active = false
	return nil
}

func (u *UnitOfWork) KnowledgeEntryRepository() contract.KnowledgeEntryRepository {
	return NewKnowledgeEntryRepository(u.store)
}

func (u *UnitOfWork) AnalysisSessionRepository() contract.AnalysisSessionRepository {
	return NewAnalysisSessionRepository(u.store)
}

func (u *UnitOfWork) StageResultRepository() contract.StageResultRepository {
	return NewStageResultRepository(u.store)
}

func (u *UnitOfWork) SynthesisResultRepository() contract.SynthesisResultRepository {
	return NewSynthesisResultRepository(u.store)
}

func (u *UnitOfWork) MaturityScoreRepository() contract.MaturityScoreRepository {
	return NewMaturityScoreRepository(u.store)
}
