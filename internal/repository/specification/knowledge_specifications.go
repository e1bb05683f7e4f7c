package specification

import "gorm.io/gorm"

type ByEmbeddingModel struct {
	Model string
}

func (s ByEmbeddingModel) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("embedding_model = ?", s.Model)
}

// ByCategory is a no-op for an empty category.
type ByCategory struct {
	Category string
}

func (s ByCategory) Apply(db *gorm.DB) *gorm.DB {
	if s.Category == "" {
		return db
	}
	return db.Where("category = ?", s.Category)
}
