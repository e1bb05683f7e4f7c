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

type MaturityScoreRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AnalysisMapper
}

func NewMaturityScoreRepository(db *gorm.DB) contract.MaturityScoreRepository {
	return &MaturityScoreRepositoryImpl{
		db:     db,
		mapper: mapper.NewAnalysisMapper(),
	}
}

// CreateIfAbsent relies on the unique session_id index, so concurrent
// backfills cannot produce a second row.
func (r *MaturityScoreRepositoryImpl) CreateIfAbsent(ctx context.Context, score *entity.MaturityScore) (bool, error) {
	if score.Id == uuid.Nil {
		score.Id = uuid.New()
	}
	m := r.mapper.MaturityToModel(score)
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoNothing: true,
		}).
		Create(m)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	*score = *r.mapper.MaturityToEntity(m)
	return true, nil
}

func (r *MaturityScoreRepositoryImpl) FindBySession(ctx context.Context, sessionId uuid.UUID) (*entity.MaturityScore, error) {
	var m model.MaturityScore
	query := specification.BySessionID{SessionID: sessionId}.Apply(r.db.WithContext(ctx))
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.MaturityToEntity(&m), nil
}
