// Package common defines the sentinel errors shared by the repositories,
// services and the request layer of gophmsg. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// ErrorConflict reports a failed multi-write transaction (serialization
	// failure, deadlock, or any other fault that forced a rollback).
	ErrorConflict = errors.New("conflict")

	// Domain outcomes.
	ErrorInvalidOperation = errors.New("invalid operation")
	ErrorNoRecipients     = errors.New("no recipients")

	// Both wrap ErrorNotFound.
	ErrorRecipientNotFound = fmt.Errorf("recipient %w", ErrorNotFound)
	ErrorMemberNotFound    = fmt.Errorf("member %w", ErrorNotFound)
)
