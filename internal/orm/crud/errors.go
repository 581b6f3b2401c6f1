package crud

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Error categories returned by the engine. Every error an operation returns
// matches exactly one of them with errors.Is.
var (
	// ErrUnknownType is returned when a type token does not resolve
	ErrUnknownType = errors.New("unknown entity type")

	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrMalformedValue is returned when a scalar input cannot be coerced to its field type
	ErrMalformedValue = errors.New("malformed value")

	// ErrMalformedIDs is returned when relationship input is not a list of integer ids
	ErrMalformedIDs = errors.New("malformed ids")

	// ErrNotSearchable is returned when a type has no slug, name or title column
	ErrNotSearchable = errors.New("type is not searchable by name")

	// ErrNotHierarchical is returned when a type has no self-referencing parent_id column
	ErrNotHierarchical = errors.New("type is not hierarchical")

	// ErrDuplicateValue is returned when a unique constraint is violated
	ErrDuplicateValue = errors.New("duplicate value")

	// ErrInternal is returned for any other persistence fault
	ErrInternal = errors.New("internal error")
)

// FieldError is a categorized failure, optionally naming the offending
// field or attribute. It matches its Kind and its cause with errors.Is.
type FieldError struct {
	Kind    error
	Field   string
	Message string
	Err     error
}

// Error implements the error interface
func (e *FieldError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Field != "" {
		b.WriteString(": ")
		b.WriteString(e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Unwrap exposes both the category and the cause
func (e *FieldError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newFieldError(kind error, field string, err error) *FieldError {
	fe := &FieldError{Kind: kind, Field: field, Err: err}
	if err != nil {
		fe.Message = err.Error()
	}
	return fe
}

var codes = []struct {
	kind error
	code string
}{
	{ErrUnknownType, "unknown_type"},
	{ErrNotFound, "not_found"},
	{ErrMalformedValue, "malformed_value"},
	{ErrMalformedIDs, "malformed_ids"},
	{ErrNotSearchable, "not_searchable"},
	{ErrNotHierarchical, "not_hierarchical"},
	{ErrDuplicateValue, "duplicate_value"},
	{ErrInternal, "internal"},
}

// Code returns the stable machine-readable category of err. Errors that
// carry no category report "internal".
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.kind) {
			return c.code
		}
	}
	return "internal"
}

// FieldOf returns the field or attribute named by err, if any
func FieldOf(err error) string {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Field
	}
	return ""
}

// IsNotFound returns true if the error is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicate returns true if the error is ErrDuplicateValue
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateValue)
}

// IsUnknownType returns true if the error is ErrUnknownType
func IsUnknownType(err error) bool {
	return errors.Is(err, ErrUnknownType)
}

// IsValidation returns true if the error was raised while coercing input,
// before anything was written
func IsValidation(err error) bool {
	return errors.Is(err, ErrMalformedValue) || errors.Is(err, ErrMalformedIDs)
}

// pgKeyDetail matches the column list in "Key (name)=(Iron Sword) already exists."
var pgKeyDetail = regexp.MustCompile(`Key \(([^)]+)\)=`)

// ConvertDBError converts driver errors into the engine's categories.
// Errors that already carry a category are returned unchanged.
func ConvertDBError(err error) error {
	if err == nil {
		return nil
	}

	var fe *FieldError
	if errors.As(err, &fe) {
		return err
	}

	if errors.Is(err, sql.ErrNoRows) {
		return newFieldError(ErrNotFound, "", err)
	}

	// SQLite (mattn/go-sqlite3)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return newFieldError(ErrDuplicateValue, sqliteUniqueColumn(sqliteErr.Error()), err)
		}
		return newFieldError(ErrInternal, "", err)
	}

	// PostgreSQL (pgx)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" { // unique_violation
			return newFieldError(ErrDuplicateValue, postgresKeyColumn(pgErr.Detail, pgErr.ColumnName), err)
		}
		return newFieldError(ErrInternal, "", err)
	}

	// PostgreSQL (lib/pq)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == "23505" {
			return newFieldError(ErrDuplicateValue, postgresKeyColumn(pqErr.Detail, pqErr.Column), err)
		}
		return newFieldError(ErrInternal, "", err)
	}

	return newFieldError(ErrInternal, "", err)
}

// sqliteUniqueColumn extracts the first column from
// "UNIQUE constraint failed: magic_items.name"
func sqliteUniqueColumn(msg string) string {
	_, cols, ok := strings.Cut(msg, "failed: ")
	if !ok {
		return ""
	}
	first, _, _ := strings.Cut(cols, ",")
	first = strings.TrimSpace(first)
	if _, col, ok := strings.Cut(first, "."); ok {
		return col
	}
	return first
}

func postgresKeyColumn(detail, column string) string {
	if column != "" {
		return column
	}
	m := pgKeyDetail.FindStringSubmatch(detail)
	if m == nil {
		return ""
	}
	first, _, _ := strings.Cut(m[1], ",")
	return strings.TrimSpace(first)
}

func unknownType(name string) error {
	return &FieldError{Kind: ErrUnknownType, Message: fmt.Sprintf("%q is not a registered type", name)}
}

func notFound(entity string, id int64) error {
	return &FieldError{Kind: ErrNotFound, Message: fmt.Sprintf("%s %d does not exist", entity, id)}
}
