package integration

import (
	"context"
	"log"
	"os"
	"strconv"
	"testing"
	"time"

	"design-analysis-be/internal/entity"
	"design-analysis-be/internal/repository/contract"
	"design-analysis-be/internal/repository/unitofwork"
	"design-analysis-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a database prepared by cmd/migrate.
func TestGormRepositories(t *testing.T) {
	// Load .env from root
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}
	dims := 768
	if raw := os.Getenv("EMBEDDING_DIMENSIONS"); raw != "" {
		n, err := strconv.Atoi(raw)
		require.NoError(t, err)
		dims = n
	}

	gormDB, err := database.NewGormDBFromDSN(dsn, false)
	require.NoError(t, err)

	sqlDB, _ := gormDB.DB()
	require.NoError(t, sqlDB.Ping())

	ctx := context.Background()
	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	model := "integration-" + uuid.NewString()

	t.Run("Knowledge search honours threshold and order", func(t *testing.T) {
		uow := uowFactory.NewUnitOfWork(ctx)
		near := make([]float32, dims)
		near[0] = 1
		far := make([]float32, dims)
		far[1] = 1

		entries := []*entity.KnowledgeEntry{
			{Id: uuid.New(), Title: "Near", Content: "near", Category: "ux", Embedding: near, EmbeddingModel: model, FreshnessScore: 1},
			{Id: uuid.New(), Title: "Far", Content: "far", Category: "ux", Embedding: far, EmbeddingModel: model, FreshnessScore: 1},
		}
		require.NoError(t, uow.KnowledgeEntryRepository().CreateBulk(ctx, entries))
		t.Cleanup(func() {
			for _, e := range entries {
				_ = uowFactory.NewUnitOfWork(ctx).KnowledgeEntryRepository().Delete(ctx, e.Id)
			}
		})

		hits, err := uow.KnowledgeEntryRepository().SearchSimilar(ctx, contract.KnowledgeSearch{
			Embedding:      near,
			EmbeddingModel: model,
			Threshold:      0.5,
			Limit:          10,
		})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "Near", hits[0].Entry.Title)
		assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)

		count, err := uow.KnowledgeEntryRepository().Count(ctx, model)
		require.NoError(t, err)
		assert.EqualValues(t, 2, count)
	})

	t.Run("Session transitions and stage log", func(t *testing.T) {
		uow := uowFactory.NewUnitOfWork(ctx)
		session := &entity.AnalysisSession{
			Id:        uuid.New(),
			UserId:    uuid.New(),
			Status:    entity.SessionDraft,
			ImageUrls: []string{"https://example.com/a.png"},
			Personas:  []string{"usability"},
		}
		require.NoError(t, uow.AnalysisSessionRepository().Create(ctx, session))

		attempt := 1
		ok, err := uow.AnalysisSessionRepository().Transition(ctx, session.Id,
			[]entity.SessionStatus{entity.SessionDraft},
			contract.SessionPatch{Status: entity.SessionProcessing, Attempt: &attempt, UpdatedAt: time.Now()})
		require.NoError(t, err)
		assert.True(t, ok)

		// A second transition from draft no longer matches.
		ok, err = uow.AnalysisSessionRepository().Transition(ctx, session.Id,
			[]entity.SessionStatus{entity.SessionDraft},
			contract.SessionPatch{Status: entity.SessionProcessing, UpdatedAt: time.Now()})
		require.NoError(t, err)
		assert.False(t, ok)

		row := &entity.StageResult{
			Id:        uuid.New(),
			SessionId: session.Id,
			Attempt:   1,
			Stage:     entity.StagePromptBuilding,
			Status:    entity.StageRunning,
			StartedAt: time.Now(),
		}
		require.NoError(t, uow.StageResultRepository().Append(ctx, row))

		ok, err = uow.StageResultRepository().Finalize(ctx, row.Id, contract.StageOutcome{
			Status: entity.StageSuccess, DurationMs: 5, Payload: []byte(`{"ok":true}`),
		})
		require.NoError(t, err)
		assert.True(t, ok)

		// Finalized rows are never rewritten.
		ok, err = uow.StageResultRepository().Finalize(ctx, row.Id, contract.StageOutcome{Status: entity.StageError})
		require.NoError(t, err)
		assert.False(t, ok)

		rows, err := uow.StageResultRepository().FindBySession(ctx, session.Id)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, entity.StageSuccess, rows[0].Status)
		assert.JSONEq(t, `{"ok":true}`, string(rows[0].Payload))

		// Once committed, the attempt no longer accepts a cancel request.
		sessions := uow.AnalysisSessionRepository()
		ok, err = sessions.Commit(ctx, session.Id, attempt+1, time.Now())
		require.NoError(t, err)
		assert.False(t, ok)
		ok, err = sessions.Commit(ctx, session.Id, attempt, time.Now())
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = sessions.RequestCancel(ctx, session.Id, time.Now())
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
