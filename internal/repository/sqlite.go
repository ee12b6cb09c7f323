package repository

import (
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteTimeLayout matches the column default: fixed-width UTC text with milliseconds,
// so ordering and range filters compare correctly as strings.
const sqliteTimeLayout = "2006-01-02 15:04:05.000+00:00"

var sqliteDialect = dialect{
	driver: "sqlite3",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS metrics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			value REAL NOT NULL,
			timestamp DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f+00:00', 'now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_metrics_timestamp ON metrics(timestamp)`,
	},
	insert:      "INSERT INTO metrics(value) VALUES(?)",
	insertAt:    "INSERT INTO metrics(value, timestamp) VALUES(?, ?)",
	selectAll:   "SELECT id, value, timestamp FROM metrics ORDER BY timestamp ASC, id ASC",
	selectSince: "SELECT id, value, timestamp FROM metrics WHERE timestamp >= ? ORDER BY timestamp ASC, id ASC",
	truncate: []string{
		"DELETE FROM metrics",
		"DELETE FROM sqlite_sequence WHERE name = 'metrics'",
	},
	truncateTx: true,
	timeArg:    sqliteTime,
}

func sqliteTime(ts time.Time) interface{} {
	return ts.Format(sqliteTimeLayout)
}

// NewSQLiteStore returns a store backed by the sqlite file at path.
func NewSQLiteStore(path string) *SQLStore {
	return newSQLStore(sqliteDialect, fmt.Sprintf("file:%s?_busy_timeout=5000", path), defaultConnectTimeout)
}
