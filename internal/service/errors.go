package service

import (
	"errors"

	"billing/pkg/apperror"

	"gorm.io/gorm"
)

// mapRepoErr converts a repository error into the domain taxonomy: a missing
// record becomes NotFound, anything else is an internal storage failure.
// Errors that already carry a domain kind pass through untouched.
func mapRepoErr(err error, what string) error {
	var ae *apperror.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("%s not found", what)
	}
	return apperror.Internal("database error", err)
}
