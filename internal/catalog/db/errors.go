package db

import (
	"errors"
	"fmt"

	e "github.com/gartstein/storemanagement/internal/catalog/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// translateError folds driver and GORM errors into the catalog taxonomy.
// Errors that already carry a catalog sentinel pass through untouched.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, e.ErrNotFound) || errors.Is(err, e.ErrDuplicateCode) ||
		errors.Is(err, e.ErrInvalidInput) || errors.Is(err, e.ErrStorage) {
		return err
	}

	var pgErr *pgconn.PgError
	isPg := errors.As(err, &pgErr)

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey), isPg && pgErr.Code == pgUniqueViolation:
		return fmt.Errorf("%w: %w", e.ErrDuplicateCode, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated), isPg && pgErr.Code == pgForeignKeyViolation:
		return fmt.Errorf("%w: parent reference does not exist: %w", e.ErrInvalidInput, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %w", e.ErrNotFound, err)
	default:
		return fmt.Errorf("%w: %w", e.ErrStorage, err)
	}
}
