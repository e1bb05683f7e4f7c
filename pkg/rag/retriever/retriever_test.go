package retriever

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"design-analysis-be/internal/entity"
	"design-analysis-be/internal/pkg/logger"
	"design-analysis-be/internal/repository/memory"
	"design-analysis-be/pkg/embedding"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture(t *testing.T, dims int) (*Retriever, *embedding.StaticProvider, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	provider := embedding.NewStaticProvider("test", dims)
	return NewRetriever(provider, memory.NewRepositoryFactory(store), logger.NewNopLogger()), provider, store
}

func seed(t *testing.T, store *memory.Store, model string, entries ...*entity.KnowledgeEntry) {
	t.Helper()
	for _, e := range entries {
		e.EmbeddingModel = model
	}
	require.NoError(t, memory.NewKnowledgeEntryRepository(store).CreateBulk(context.Background(), entries))
}

// unitAt returns a 2-d unit vector whose cosine with (1,0) is sim.
func unitAt(sim float64) []float32 {
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim))}
}

func TestSearch_ThresholdAndOrder(t *testing.T) {
	r, provider, store := newFixture(t, 2)

	sims := []float64{0.9, 0.7, 0.5, 0.3, 0.1}
	ids := make([]uuid.UUID, len(sims))
	entries := make([]*entity.KnowledgeEntry, len(sims))
	for i, s := range sims {
		ids[i] = uuid.New()
		entries[i] = &entity.KnowledgeEntry{Id: ids[i], Title: "entry", Category: "layout", Embedding: unitAt(s)}
	}
	// reverse insertion order so ranking cannot rely on it
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	seed(t, store, provider.ModelVersion(), entries...)

	matches, err := r.Search(context.Background(), []float32{1, 0}, Query{Threshold: 0.4, TopK: 10})
	require.NoError(t, err)
	require.Len(t, matches, 3)
	for i, m := range matches {
		assert.Equal(t, ids[i], m.Entry.Id)
		assert.InDelta(t, sims[i], m.Similarity, 1e-6)
	}
}

func TestSearch_TieBreakById(t *testing.T) {
	r, provider, store := newFixture(t, 2)

	a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b := uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	seed(t, store, provider.ModelVersion(),
		&entity.KnowledgeEntry{Id: b, Embedding: unitAt(0.8)},
		&entity.KnowledgeEntry{Id: a, Embedding: unitAt(0.8)},
	)

	matches, err := r.Search(context.Background(), []float32{1, 0}, Query{Threshold: 0, TopK: 5})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, a, matches[0].Entry.Id)
	assert.Equal(t, b, matches[1].Entry.Id)
}

func TestSearch_FiltersModelAndCategory(t *testing.T) {
	r, provider, store := newFixture(t, 2)

	keep := uuid.New()
	seed(t, store, provider.ModelVersion(),
		&entity.KnowledgeEntry{Id: keep, Category: "color", Embedding: unitAt(0.9)},
		&entity.KnowledgeEntry{Id: uuid.New(), Category: "typography", Embedding: unitAt(0.95)},
	)
	seed(t, store, "static/other-model",
		&entity.KnowledgeEntry{Id: uuid.New(), Category: "color", Embedding: unitAt(0.99)},
	)

	matches, err := r.Search(context.Background(), []float32{1, 0}, Query{Threshold: 0.1, TopK: 10, Category: "color"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, keep, matches[0].Entry.Id)
}

func TestSearch_Validation(t *testing.T) {
	r, _, _ := newFixture(t, 2)

	_, err := r.Search(context.Background(), []float32{1, 0}, Query{Threshold: 1.5, TopK: 10})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = r.Search(context.Background(), []float32{1, 0}, Query{Threshold: 0.4, TopK: 0})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = r.Search(context.Background(), []float32{1, 0, 0}, DefaultQuery())
	assert.ErrorIs(t, err, embedding.ErrDimensionMismatch)
}

func TestSearch_OrderingProperty(t *testing.T) {
	const dims = 8
	r, provider, store := newFixture(t, dims)
	rng := rand.New(rand.NewSource(42))

	randomVec := func() []float32 {
		v := make([]float32, dims)
		for i := range v {
			v[i] = float32(rng.NormFloat64())
		}
		return v
	}

	entries := make([]*entity.KnowledgeEntry, 200)
	for i := range entries {
		entries[i] = &entity.KnowledgeEntry{Id: uuid.New(), Embedding: randomVec()}
	}
	seed(t, store, provider.ModelVersion(), entries...)

	for i := 0; i < 50; i++ {
		q := Query{Threshold: rng.Float64() * 0.6, TopK: 1 + rng.Intn(25)}
		matches, err := r.Search(context.Background(), randomVec(), q)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(matches), q.TopK)
		for j, m := range matches {
			assert.GreaterOrEqual(t, m.Similarity, q.Threshold)
			if j > 0 {
				assert.LessOrEqual(t, m.Similarity, matches[j-1].Similarity)
			}
		}
	}
}

func TestRetrieve_EmptyCorpus(t *testing.T) {
	r, _, _ := newFixture(t, 4)

	res := r.Retrieve(context.Background(), "checkout flow hierarchy", DefaultQuery())
	assert.True(t, res.Empty)
	assert.False(t, res.Degraded)
	assert.Empty(t, res.Matches)
}

func TestRetrieve_DegradesWhenEmbeddingUnavailable(t *testing.T) {
	r, provider, store := newFixture(t, 2)
	seed(t, store, provider.ModelVersion(), &entity.KnowledgeEntry{Id: uuid.New(), Embedding: unitAt(0.9)})
	provider.Err = errors.New("connection refused")

	res := r.Retrieve(context.Background(), "anything", DefaultQuery())
	assert.True(t, res.Degraded)
	assert.Contains(t, res.DegradedReason, embedding.ErrEmbeddingUnavailable.Error())
	assert.Empty(t, res.Matches)
}

func TestRetrieve_Matches(t *testing.T) {
	r, provider, store := newFixture(t, 2)
	provider.Vectors["landing page contrast"] = []float32{1, 0}
	id := uuid.New()
	seed(t, store, provider.ModelVersion(), &entity.KnowledgeEntry{Id: id, Embedding: unitAt(0.8)})

	res := r.Retrieve(context.Background(), "landing page contrast", DefaultQuery())
	require.Len(t, res.Matches, 1)
	assert.Equal(t, id, res.Matches[0].Entry.Id)
	assert.False(t, res.Empty)
}
