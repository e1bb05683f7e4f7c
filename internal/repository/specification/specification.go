package specification

import "gorm.io/gorm"

// Specification narrows a gorm query. Repositories apply them in order, so
// OrderBy and Pagination go last.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}
