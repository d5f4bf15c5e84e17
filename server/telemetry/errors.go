package telemetry

import (
	"errors"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// IsConstraintError reports whether err was caused by a sqlite constraint
// violation (duplicate or missing key). Everything else coming out of the
// store is treated as a connection-level storage fault.
func IsConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}
