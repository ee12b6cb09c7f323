package domain

import (
	"context"
	"time"
)

// TimestampLayout is the canonical text form of a reading's timestamp.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

type Metric struct {
	ID        int64     `json:"id"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// MetricView is the wire form of a Metric with its timestamp normalized.
type MetricView struct {
	ID        int64   `json:"id"`
	Value     float64 `json:"value"`
	Timestamp string  `json:"timestamp"`
}

func (m Metric) View() MetricView {
	return MetricView{
		ID:        m.ID,
		Value:     m.Value,
		Timestamp: FormatTimestamp(m.Timestamp),
	}
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

type MetricStore interface {
	Init() error
	// AddMetric inserts one reading. A zero Timestamp leaves it to the store default.
	AddMetric(ctx context.Context, metric Metric) (int64, error)
	// GetMetrics returns readings at or after since, oldest first. A nil since means all time.
	GetMetrics(ctx context.Context, since *time.Time) ([]Metric, error)
	Truncate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
