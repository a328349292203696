package store

import "strings"

// IsSQLiteConflictError reports SQLITE_BUSY and "database is locked" errors,
// the two concurrency failures worth retrying.
func IsSQLiteConflictError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
