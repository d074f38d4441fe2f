package persistence

import (
	"errors"
	"fmt"

	"github.com/buildops/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgreSQL error codes the repositories translate
const (
	pgUniqueViolation      = "23505"
	pgLockNotAvailable     = "55P03"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// isLockContention reports whether err comes from a row-lock wait that hit
// lock_timeout, a serialization failure or a deadlock
func isLockContention(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgLockNotAvailable, pgSerializationFailure, pgDeadlockDetected:
		return true
	}
	return false
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// translateError maps driver errors to domain errors. Errors it does not
// recognize are returned unchanged.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case isUniqueViolation(err):
		return shared.NewDomainError(shared.ErrAlreadyExists.Code, fmt.Sprintf("Duplicate record: %v", err))
	case isLockContention(err):
		return shared.NewDomainError(shared.ErrConcurrencyConflict.Code, fmt.Sprintf("Row lock not acquired: %v", err))
	}
	return err
}

// saveAggregate inserts model or updates the stored row whose version is
// version-1. A row that exists at another version is a concurrent
// modification. Associations are never written.
func saveAggregate(db *gorm.DB, model any, id uuid.UUID, version int) error {
	result := db.Model(model).
		Where("id = ? AND version = ?", id, version-1).
		Select("*").
		Omit("id", "created_at", clause.Associations).
		Updates(model)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return translateError(err)
	}
	if count > 0 {
		return shared.ErrConcurrencyConflict
	}
	return translateError(db.Omit(clause.Associations).Create(model).Error)
}
