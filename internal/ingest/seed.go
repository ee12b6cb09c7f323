package ingest

import (
	"context"
	"time"

	"metrics-dashboard/internal/util"
)

// Seed posts one generated reading every step from start through end inclusive.
// Failed posts are logged and skipped. It returns the number of readings accepted.
func Seed(ctx context.Context, p Poster, logger *util.MetricsLogger, start, end time.Time, step time.Duration, gen func() float64) (int, error) {
	logger.LogEvent(util.LOG_LEVEL_INFO, "Ingesting data from", start.Format(time.RFC3339), "to", end.Format(time.RFC3339))

	accepted := 0
	for t := start; !t.After(end); t = t.Add(step) {
		if err := ctx.Err(); err != nil {
			return accepted, err
		}

		value := gen()
		if _, err := p.Post(ctx, value, t); err != nil {
			logger.LogEvent(util.LOG_LEVEL_ERROR, "Error inserting data for timestamp", t.Format(time.RFC3339), ":", err)
			continue
		}
		accepted++
	}

	logger.LogEvent(util.LOG_LEVEL_INFO, "Data ingestion complete. readings -", accepted)
	return accepted, nil
}
