package service

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// PostgreSQL SQLSTATE codes, class 23: integrity constraint violation.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
)

type violation int

const (
	violationNone violation = iota
	violationUnique
	violationForeignKey
	violationCheck
	violationNotNull
)

// storeViolation inspects the structured error code reported by the database driver.
// The constraint name is only available from PostgreSQL.
func storeViolation(err error) (violation, string) {
	if err == nil {
		return violationNone, ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return violationUnique, pgErr.ConstraintName
		case pgForeignKeyViolation:
			return violationForeignKey, pgErr.ConstraintName
		case pgCheckViolation:
			return violationCheck, pgErr.ConstraintName
		case pgNotNullViolation:
			return violationNotNull, pgErr.ColumnName
		}
		return violationNone, ""
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return violationUnique, ""
		case sqlite3.ErrConstraintForeignKey:
			return violationForeignKey, ""
		case sqlite3.ErrConstraintCheck:
			return violationCheck, ""
		case sqlite3.ErrConstraintNotNull:
			return violationNotNull, ""
		}
	}

	return violationNone, ""
}

func isRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
