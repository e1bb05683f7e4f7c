package implementation

import (
	"context"

	"design-analysis-be/internal/entity"
	"design-analysis-be/internal/mapper"
	"design-analysis-be/internal/model"
	"design-analysis-be/internal/repository/contract"
	"design-analysis-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type StageResultRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AnalysisMapper
}

func NewStageResultRepository(db *gorm.DB) contract.StageResultRepository {
	return &StageResultRepositoryImpl{
		db:     db,
		mapper: mapper.NewAnalysisMapper(),
	}
}

func (r *StageResultRepositoryImpl) Append(ctx context.Context, result *entity.StageResult) error {
	m := r.mapper.StageResultToModel(result)
	m.Sequence = 0 // assigned by the database
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*result = *r.mapper.StageResultToEntity(m)
	return nil
}

func (r *StageResultRepositoryImpl) Finalize(ctx context.Context, id uuid.UUID, outcome contract.StageOutcome) (bool, error) {
	updates := map[string]interface{}{
		"status":      string(outcome.Status),
		"duration_ms": outcome.DurationMs,
		"error_kind":  outcome.ErrorKind,
		"error_text":  outcome.ErrorText,
	}
	if len(outcome.Payload) > 0 {
		updates["payload"] = datatypes.JSON(outcome.Payload)
	}

	res := r.db.WithContext(ctx).
		Model(&model.StageResult{}).
		Where("id = ?", id).
		Where("status = ?", string(entity.StageRunning)).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *StageResultRepositoryImpl) FindBySession(ctx context.Context, sessionId uuid.UUID) ([]*entity.StageResult, error) {
	var models []*model.StageResult
	err := specification.OrderBy{Field: "sequence"}.
		Apply(specification.BySessionID{SessionID: sessionId}.Apply(r.db.WithContext(ctx))).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	entities := make([]*entity.StageResult, len(models))
	for i, m := range models {
		entities[i] = r.mapper.StageResultToEntity(m)
	}
	return entities, nil
}

func (r *StageResultRepositoryImpl) AbandonRunning(ctx context.Context, sessionId uuid.UUID, reason string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.StageResult{}).
		Where("session_id = ?", sessionId).
		Where("status = ?", string(entity.StageRunning)).
		Updates(map[string]interface{}{
			"status":     string(entity.StageError),
			"error_kind": "abandoned",
			"error_text": reason,
		})
	return res.RowsAffected, res.Error
}
