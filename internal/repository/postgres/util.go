package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/NordCoder/Notewire/internal/domain/notification"
)

var (
	ErrNotFound   = notification.ErrNotFound
	ErrConflict   = notification.ErrConflict
	ErrForbidden  = notification.ErrForbidden
	ErrConstraint = errors.New("constraint violation")
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// mapErr turns driver errors into the domain sentinels. Anything it does
// not recognise is returned untouched so callers can wrap it.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return ErrConflict
		case codeForeignKeyViolation, codeCheckViolation:
			return ErrConstraint
		}
	}
	return err
}
