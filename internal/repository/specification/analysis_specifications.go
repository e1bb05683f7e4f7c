package specification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByUserID struct {
	UserID uuid.UUID
}

func (s ByUserID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

type BySessionID struct {
	SessionID uuid.UUID
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

// ByStatus filters by one or more status values.
type ByStatus struct {
	Statuses []string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	if len(s.Statuses) == 1 {
		return db.Where("status = ?", s.Statuses[0])
	}
	return db.Where("status IN ?", s.Statuses)
}

// UpdatedBefore matches rows whose heartbeat is older than the cutoff.
type UpdatedBefore struct {
	Cutoff time.Time
}

func (s UpdatedBefore) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("updated_at < ?", s.Cutoff)
}

type ByAttempt struct {
	Attempt int
}

func (s ByAttempt) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("attempt = ?", s.Attempt)
}

// NotCommitted matches sessions whose current attempt has not passed the no-return stage.
type NotCommitted struct{}

func (NotCommitted) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("committed_at IS NULL")
}

type CancelNotRequested struct{}

func (CancelNotRequested) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("cancel_requested_at IS NULL")
}
