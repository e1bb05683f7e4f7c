package implementation

import (
	"context"
	"errors"

	"design-analysis-be/internal/entity"
	"design-analysis-be/internal/mapper"
	"design-analysis-be/internal/model"
	"design-analysis-be/internal/repository/contract"
	"design-analysis-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SynthesisResultRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AnalysisMapper
}

func NewSynthesisResultRepository(db *gorm.DB) contract.SynthesisResultRepository {
	return &SynthesisResultRepositoryImpl{
		db:     db,
		mapper: mapper.NewAnalysisMapper(),
	}
}

func (r *SynthesisResultRepositoryImpl) Save(ctx context.Context, result *entity.SynthesisResult) error {
	if result.Id == uuid.Nil {
		result.Id = uuid.New()
	}
	m := r.mapper.SynthesisToModel(result)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"summary", "persona_feedback", "priority_matrix", "annotations", "citations", "knowledge_sources_used",
			}),
		}).
		Create(m).Error
	if err != nil {
		return err
	}
	saved, err := r.mapper.SynthesisToEntity(m)
	if err != nil {
		return err
	}
	*result = *saved
	return nil
}

func (r *SynthesisResultRepositoryImpl) FindBySession(ctx context.Context, sessionId uuid.UUID) (*entity.SynthesisResult, error) {
	var m model.SynthesisResult
	query := specification.BySessionID{SessionID: sessionId}.Apply(r.db.WithContext(ctx))
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.SynthesisToEntity(&m)
}
