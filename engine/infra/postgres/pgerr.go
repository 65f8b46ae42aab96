package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	// UndefinedTableCode is raised when the demo table or schema is missing.
	UndefinedTableCode = "42P01"
	// InvalidSchemaNameCode is raised for an unknown schema.
	InvalidSchemaNameCode = "3F000"
	// DuplicateTableCode is raised by create table on an existing table.
	DuplicateTableCode = "42P07"
	// InvalidDatetimeFormatCode is raised when a timestamp literal cannot be parsed.
	InvalidDatetimeFormatCode = "22007"
)

func AsPgError(err error) (*pgconn.PgError, bool) {
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// SQLState returns the SQLSTATE carried by err, or "".
func SQLState(err error) string {
	if pe, ok := AsPgError(err); ok {
		return pe.Code
	}
	return ""
}
