package retriever

import (
	"context"
	"errors"
	"fmt"

	"design-analysis-be/internal/entity"
	"design-analysis-be/internal/pkg/logger"
	"design-analysis-be/internal/repository/contract"
	"design-analysis-be/internal/repository/unitofwork"
	"design-analysis-be/pkg/embedding"
	"design-analysis-be/pkg/vector"
)

const module = "retriever"

// ErrRetrievalEmpty marks an ungrounded run. It is reported in Result, never returned.
var ErrRetrievalEmpty = errors.New("no knowledge matched the query")

var ErrInvalidQuery = errors.New("invalid retrieval query")

// Query encapsulates search parameters
type Query struct {
	Threshold float64
	TopK      int
	Category  string
}

// DefaultQuery returns the default retrieval parameters.
func DefaultQuery() Query {
	return Query{
		Threshold: 0.4,
		TopK:      10,
	}
}

func (q Query) Validate() error {
	if q.Threshold < 0 || q.Threshold > 1 {
		return fmt.Errorf("%w: threshold %.3f outside [0,1]", ErrInvalidQuery, q.Threshold)
	}
	if q.TopK < 1 {
		return fmt.Errorf("%w: topK must be at least 1", ErrInvalidQuery)
	}
	return nil
}

type Match struct {
	Entry      *entity.KnowledgeEntry
	Similarity float64
}

// Result is the outcome of Retrieve. Degraded and Empty runs carry no matches
// and are not failures.
type Result struct {
	Matches        []Match
	Degraded       bool
	DegradedReason string
	Empty          bool
}

// Retriever handles vector search over the knowledge corpus
type Retriever struct {
	provider embedding.EmbeddingProvider
	repos    unitofwork.RepositoryFactory
	logger   logger.ILogger
}

func NewRetriever(provider embedding.EmbeddingProvider, repos unitofwork.RepositoryFactory, log logger.ILogger) *Retriever {
	return &Retriever{
		provider: provider,
		repos:    repos,
		logger:   log,
	}
}

// Search ranks corpus entries against queryEmbedding: similarity >= threshold,
// descending, ties by id ascending, at most TopK.
func (r *Retriever) Search(ctx context.Context, queryEmbedding []float32, q Query) ([]Match, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if dims := r.provider.Dimensions(); dims > 0 && len(queryEmbedding) != dims {
		return nil, fmt.Errorf("%w: query has %d values, corpus model %s uses %d",
			embedding.ErrDimensionMismatch, len(queryEmbedding), r.provider.ModelVersion(), dims)
	}

	uow := r.repos.NewUnitOfWork(ctx)
	scored, err := uow.KnowledgeEntryRepository().SearchSimilar(ctx, contract.KnowledgeSearch{
		Embedding:      queryEmbedding,
		EmbeddingModel: r.provider.ModelVersion(),
		Threshold:      q.Threshold,
		Limit:          q.TopK,
		Category:       q.Category,
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge search: %w", err)
	}

	candidates := make([]vector.Scored[*entity.KnowledgeEntry], 0, len(scored))
	for _, s := range scored {
		if s == nil || s.Entry == nil {
			continue
		}
		candidates = append(candidates, vector.Scored[*entity.KnowledgeEntry]{
			Item:  s.Entry,
			Key:   s.Entry.Id.String(),
			Score: s.Similarity,
		})
	}

	ranked := vector.TopK(candidates, q.Threshold, q.TopK)
	matches := make([]Match, len(ranked))
	for i, s := range ranked {
		matches[i] = Match{Entry: s.Item, Similarity: s.Score}
	}
	return matches, nil
}

// Retrieve embeds text and searches. Embedding or search failures degrade the
// run instead of failing it.
func (r *Retriever) Retrieve(ctx context.Context, text string, q Query) Result {
	res, err := r.provider.Generate(ctx, text, embedding.TaskRetrievalQuery)
	if err != nil {
		r.logger.Warn(module, "Embedding unavailable, continuing without research context", map[string]interface{}{
			"error": err.Error(),
			"model": r.provider.ModelVersion(),
		})
		return Result{Degraded: true, DegradedReason: err.Error()}
	}

	matches, err := r.Search(ctx, res.Embedding.Values, q)
	if err != nil {
		r.logger.Warn(module, "Knowledge search failed, continuing without research context", map[string]interface{}{
			"error": err.Error(),
		})
		return Result{Degraded: true, DegradedReason: err.Error()}
	}

	if len(matches) == 0 {
		r.logger.Info(module, ErrRetrievalEmpty.Error(), map[string]interface{}{
			"threshold": q.Threshold,
			"category":  q.Category,
		})
		return Result{Matches: []Match{}, Empty: true}
	}

	r.logger.Debug(module, "Knowledge retrieved", map[string]interface{}{
		"matches": len(matches),
		"top":     matches[0].Similarity,
	})
	return Result{Matches: matches}
}
