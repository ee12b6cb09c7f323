package repository

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/go-sql-driver/mysql"
)

var mysqlDialect = dialect{
	driver: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS metrics (
			id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			value DOUBLE NOT NULL,
			timestamp TIMESTAMP(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
			INDEX idx_metrics_timestamp (timestamp)
		)`,
	},
	insert:      "INSERT INTO metrics (value) VALUES (?)",
	insertAt:    "INSERT INTO metrics (value, timestamp) VALUES (?, ?)",
	selectAll:   "SELECT id, value, timestamp FROM metrics ORDER BY timestamp ASC, id ASC",
	selectSince: "SELECT id, value, timestamp FROM metrics WHERE timestamp >= ? ORDER BY timestamp ASC, id ASC",
	truncate:    []string{"TRUNCATE TABLE metrics"},
}

// RegisterMySQLCA registers a TLS config named name that verifies the server against the
// PEM bundle in caFile. Reference it from the DSN with tls=<name>.
func RegisterMySQLCA(name, caFile string) error {
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return fmt.Errorf("error reading CA file: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return fmt.Errorf("no certificates found in %s", caFile)
	}

	if err := mysql.RegisterTLSConfig(name, &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}); err != nil {
		return fmt.Errorf("error registering TLS config: %w", err)
	}
	return nil
}
