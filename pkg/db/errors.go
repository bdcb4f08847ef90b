package db

import "strings"

// IsUniqueViolation reports whether the provided error is a unique
// violation from Postgres or SQLite. When constraintName is provided the
// helper narrows the match to that constraint where the dialect names it;
// SQLite spells out table.column instead of the constraint name, so any
// duplicate error matches there.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	sqliteDup := strings.Contains(msg, "UNIQUE constraint failed")
	if !sqliteDup && !strings.Contains(msg, "duplicate key value") {
		return false
	}
	if constraintName == "" || strings.Contains(msg, constraintName) {
		return true
	}
	return sqliteDup
}
