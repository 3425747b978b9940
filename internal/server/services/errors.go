package services

import (
	"errors"

	"github.com/dmitrijs2005/gophmsg/internal/common"
)

var domainErrors = []error{
	common.ErrorUnauthorized,
	common.ErrorNotFound,
	common.ErrorAlreadyExists,
	common.ErrorForbidden,
	common.ErrorInvalidOperation,
	common.ErrorNoRecipients,
}

func isDomainError(err error) bool {
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return true
		}
	}
	return false
}

// internalFault passes domain failures through and hides everything else
// behind common.ErrorInternal.
func internalFault(err error) error {
	if err == nil || isDomainError(err) {
		return err
	}
	if errors.Is(err, common.ErrorConflict) {
		return common.ErrorConflict
	}
	return common.ErrorInternal
}

// txFault is internalFault for multi-write transactions, where a persistence
// fault is reported as common.ErrorConflict.
func txFault(err error) error {
	if err == nil || isDomainError(err) {
		return err
	}
	return common.ErrorConflict
}
