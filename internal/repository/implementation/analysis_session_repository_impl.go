package implementation

import (
	"context"
	"errors"
	"time"

	"design-analysis-be/internal/entity"
	"design-analysis-be/internal/mapper"
	"design-analysis-be/internal/model"
	"design-analysis-be/internal/repository/contract"
	"design-analysis-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AnalysisSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AnalysisMapper
}

func NewAnalysisSessionRepository(db *gorm.DB) contract.AnalysisSessionRepository {
	return &AnalysisSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewAnalysisMapper(),
	}
}

func (r *AnalysisSessionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *AnalysisSessionRepositoryImpl) Create(ctx context.Context, session *entity.AnalysisSession) error {
	m := r.mapper.SessionToModel(session)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	saved, err := r.mapper.SessionToEntity(m)
	if err != nil {
		return err
	}
	*session = *saved
	return nil
}

func (r *AnalysisSessionRepositoryImpl) FindById(ctx context.Context, id uuid.UUID) (*entity.AnalysisSession, error) {
	var m model.AnalysisSession
	query := r.applySpecifications(r.db.WithContext(ctx), specification.ByID{ID: id})
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.SessionToEntity(&m)
}

func (r *AnalysisSessionRepositoryImpl) FindByUser(ctx context.Context, userId uuid.UUID, limit, offset int) ([]*entity.AnalysisSession, error) {
	var models []*model.AnalysisSession
	query := r.applySpecifications(r.db.WithContext(ctx),
		specification.ByUserID{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: offset},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.toEntities(models)
}

func (r *AnalysisSessionRepositoryImpl) Transition(ctx context.Context, id uuid.UUID, from []entity.SessionStatus, patch contract.SessionPatch) (bool, error) {
	updates := map[string]interface{}{
		"status":     string(patch.Status),
		"updated_at": patch.UpdatedAt,
	}
	if patch.Attempt != nil {
		updates["attempt"] = *patch.Attempt
	}
	if patch.LastError != nil {
		updates["last_error"] = *patch.LastError
	}
	if patch.CompletedAt != nil {
		updates["completed_at"] = *patch.CompletedAt
	}
	if patch.ClearCancel {
		updates["cancel_requested_at"] = nil
	}
	if patch.ClearCommit {
		updates["committed_at"] = nil
	}

	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}

	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.AnalysisSession{}),
		specification.ByID{ID: id},
		specification.ByStatus{Statuses: statuses},
	)
	res := query.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *AnalysisSessionRepositoryImpl) RequestCancel(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.AnalysisSession{}),
		specification.ByID{ID: id},
		specification.ByStatus{Statuses: []string{string(entity.SessionProcessing)}},
		specification.NotCommitted{},
	)
	res := query.Update("cancel_requested_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *AnalysisSessionRepositoryImpl) Commit(ctx context.Context, id uuid.UUID, attempt int, at time.Time) (bool, error) {
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.AnalysisSession{}),
		specification.ByID{ID: id},
		specification.ByStatus{Statuses: []string{string(entity.SessionProcessing)}},
		specification.ByAttempt{Attempt: attempt},
		specification.CancelNotRequested{},
	)
	res := query.Updates(map[string]interface{}{"committed_at": at, "updated_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *AnalysisSessionRepositoryImpl) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.AnalysisSession{}),
		specification.ByID{ID: id},
		specification.ByStatus{Statuses: []string{string(entity.SessionProcessing)}},
	)
	return query.Update("updated_at", at).Error
}

func (r *AnalysisSessionRepositoryImpl) FindStuck(ctx context.Context, heartbeatBefore time.Time) ([]*entity.AnalysisSession, error) {
	var models []*model.AnalysisSession
	query := r.applySpecifications(r.db.WithContext(ctx),
		specification.ByStatus{Statuses: []string{string(entity.SessionProcessing)}},
		specification.UpdatedBefore{Cutoff: heartbeatBefore},
		specification.OrderBy{Field: "updated_at"},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.toEntities(models)
}

func (r *AnalysisSessionRepositoryImpl) FindCompletedWithoutScore(ctx context.Context, limit int) ([]*entity.AnalysisSession, error) {
	var models []*model.AnalysisSession
	query := r.db.WithContext(ctx).
		Model(&model.AnalysisSession{}).
		Joins("LEFT JOIN maturity_scores ON maturity_scores.session_id = analysis_sessions.id").
		Where("analysis_sessions.status = ?", string(entity.SessionCompleted)).
		Where("maturity_scores.id IS NULL").
		Order("analysis_sessions.created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.toEntities(models)
}

func (r *AnalysisSessionRepositoryImpl) toEntities(models []*model.AnalysisSession) ([]*entity.AnalysisSession, error) {
	entities := make([]*entity.AnalysisSession, len(models))
	for i, m := range models {
		e, err := r.mapper.SessionToEntity(m)
		if err != nil {
			return nil, err
		}
		entities[i] = e
	}
	return entities, nil
}
