// Package pgerr translates PostgreSQL failures into the sentinel errors of
// package common.
package pgerr

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophmsg/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the repositories react to.
const (
	UniqueViolation      = "23505"
	ForeignKeyViolation  = "23503"
	SerializationFailure = "40001"
	DeadlockDetected     = "40P01"
)

// Code returns the SQLSTATE carried by err, or "" if err is not a
// PostgreSQL error.
func Code(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// Wrap maps err to a sentinel where one applies and otherwise wraps it as a
// db error. nil stays nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	switch Code(err) {
	case UniqueViolation:
		return common.ErrorAlreadyExists
	case SerializationFailure, DeadlockDetected:
		return fmt.Errorf("%w: %v", common.ErrorConflict, err)
	}
	return fmt.Errorf("db error: %w", err)
}
