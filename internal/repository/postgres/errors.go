package postgres

import (
	"errors"

	"github.com/lib/pq"

	"gatherly/internal/domain"
)

const uniqueViolation = "23505"

// mapUniqueViolation converts a postgres unique constraint violation into the
// domain sentinel so callers can rely on errors.Is across storage backends.
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return domain.ErrAlreadyExists
	}
	return err
}
