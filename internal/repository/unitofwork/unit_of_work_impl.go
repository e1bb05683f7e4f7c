package unitofwork

import (
	"context"
	"fmt"

	"design-analysis-be/internal/repository/contract"
	"design-analysis-be/internal/repository/implementation"

	"gorm.io/gorm"
)

type UnitOfWorkImpl struct {
	db *gorm.DB
	tx *gorm.DB // active transaction, nil outside Begin/Commit
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &UnitOfWorkImpl{
		db: db,
	}
}

func (u *UnitOfWorkImpl) getDB() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWorkImpl) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	u.tx = u.db.WithContext(ctx).Begin()
	return u.tx.Error
}

func (u *UnitOfWorkImpl) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

func (u *UnitOfWorkImpl) Rollback() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to rollback")
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

// Repository Accessors

func (u *UnitOfWorkImpl) KnowledgeEntryRepository() contract.KnowledgeEntryRepository {
	return implementation.NewKnowledgeEntryRepository(u.getDB())
}

func (u *UnitOfWorkImpl) AnalysisSessionRepository() contract.AnalysisSessionRepository {
	return implementation.NewAnalysisSessionRepository(u.getDB())
}

func (u *UnitOfWorkImpl) StageResultRepository() contract.StageResultRepository {
	return implementation.NewStageResultRepository(u.getDB())
}

func (u *UnitOfWorkImpl) SynthesisResultRepository() contract.SynthesisResultRepository {
	return implementation.NewSynthesisResultRepository(u.getDB())
}

func (u *UnitOfWorkImpl) MaturityScoreRepository() contract.MaturityScoreRepository {
	return implementation.NewMaturityScoreRepository(u.getDB())
}
