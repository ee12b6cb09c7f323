package repository

import (
	_ "github.com/lib/pq"
)

var postgresDialect = dialect{
	driver: "postgres",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS metrics (
			id BIGSERIAL PRIMARY KEY,
			value DOUBLE PRECISION NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_metrics_timestamp ON metrics(timestamp)`,
	},
	insert:      "INSERT INTO metrics (value) VALUES ($1) RETURNING id",
	insertAt:    "INSERT INTO metrics (value, timestamp) VALUES ($1, $2) RETURNING id",
	returningID: true,
	selectAll:   "SELECT id, value, timestamp FROM metrics ORDER BY timestamp ASC, id ASC",
	selectSince: "SELECT id, value, timestamp FROM metrics WHERE timestamp >= $1 ORDER BY timestamp ASC, id ASC",
	truncate:    []string{"TRUNCATE TABLE metrics RESTART IDENTITY"},
}
