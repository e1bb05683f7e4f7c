package unitofwork

import "context"

// RepositoryFactory opens a unit of work over the analysis and knowledge
// tables. The gorm and in-memory backends both implement it.
type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}
