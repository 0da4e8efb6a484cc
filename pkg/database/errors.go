package database

import (
	"github.com/lib/pq"
	"github.com/pharmadisti/pharmadisti-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with a meaningful message.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return errors.Validation(map[string]string{
			constraintColumn(pqErr): "violates " + pqErr.Constraint,
		})

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict("a record with the same " + constraintColumn(pqErr) + " already exists")

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		return errors.Validation(map[string]string{
			constraintColumn(pqErr): "must not be empty",
		})
	}

	return nil
}

func constraintColumn(pqErr *pq.Error) string {
	if pqErr.Column != "" {
		return pqErr.Column
	}
	if pqErr.Constraint != "" {
		return pqErr.Constraint
	}
	return "record"
}
