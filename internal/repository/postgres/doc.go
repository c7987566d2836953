// Package postgres implements persistence for the attribution platform
// against PostgreSQL. Repositories stick to plain database/sql with
// explicit column lists and upsert semantics; the schema lives in the
// migrations directory.
package postgres

import "errors"

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")
