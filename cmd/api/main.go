package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"metrics-dashboard/internal/config"
	"metrics-dashboard/internal/domain"
	"metrics-dashboard/internal/repository"
	"metrics-dashboard/internal/router"
	"metrics-dashboard/internal/telemetry"
	"metrics-dashboard/internal/util"
)

func LoggerInitialize(cfg *config.Config) (*util.MetricsLogger, error) {

	level, err := util.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	metricsLogger := &util.MetricsLogger{}
	if err := metricsLogger.Init(cfg.LogPath, cfg.LogFile, level, false); err != nil {
		return nil, err
	}

	metricsLogger.LogEvent(util.LOG_LEVEL_INFO, "Service started")

	currentTime := time.Now().Format(time.RFC3339)

	fmt.Fprintf(os.Stderr, "\n%s: metrics dashboard API started \n", currentTime)

	return metricsLogger, nil
}

func openStore(cfg *config.Config) (domain.MetricStore, error) {
	if cfg.DBDriver == config.DriverSQLite {
		util.CheckAndCreateLogFolder(filepath.Dir(cfg.DBPath))
	}

	if cfg.DBDriver == config.DriverMySQL && cfg.DBTLSCAFile != "" {
		if err := repository.RegisterMySQLCA(config.MySQLTLSConfigName, cfg.DBTLSCAFile); err != nil {
			return nil, err
		}
	}

	store, err := repository.NewSQLStore(cfg.DBDriver, cfg.DSN(), cfg.ConnectTimeout)
	if err != nil {
		return nil, err
	}
	if err := store.Init(); err != nil {
		return nil, err
	}
	return store, nil
}

func main() {
	os.Exit(run())
}

func run() int {

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		return 1
	}

	logger, err := LoggerInitialize(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error while initializing the logger..", err)
		return 1
	}
	defer logger.DeInit()

	metricStore, err := openStore(cfg)
	if err != nil {
		logger.LogEvent(util.LOG_LEVEL_ERROR, "Failed to initialize metric store:", err)
		fmt.Fprintln(os.Stderr, "Failed to initialize metric store:", err)
		return 1
	}
	defer metricStore.Close()

	logger.LogEvent(util.LOG_LEVEL_INFO, "Metric store initialized. driver -", cfg.DBDriver)

	if err := router.Run(metricStore, cfg, logger, telemetry.New()); err != nil {
		fmt.Fprintln(os.Stderr, "Server stopped with error:", err)
		return 1
	}
	return 0
}
