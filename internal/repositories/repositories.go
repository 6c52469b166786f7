// package repositories provides the SQLite persistence layer for local client state.
package repositories

import (
	"database/sql"
	"fmt"
	"strconv"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
}

// Count returns the number of rows in table.
func Count(db Querier, table string) (int, error) {
	var n int
	if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

func formatBool(b bool) string { return strconv.FormatBool(b) }

func parseBool(s string) (bool, error) {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q: %w", s, err)
	}
	return b, nil
}
