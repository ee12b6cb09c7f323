package endpoints

import (
	"net/http"
	"time"

	"metrics-dashboard/internal/config"
	"metrics-dashboard/internal/domain"
	"metrics-dashboard/internal/telemetry"
	"metrics-dashboard/internal/util"
)

type Metrics struct {
	logger *util.MetricsLogger
	store  domain.MetricStore
	stats  *telemetry.Metrics
	apiKey string
	now    func() time.Time
}

func (m *Metrics) Init(store domain.MetricStore, cfg *config.Config, webSlogger *util.MetricsLogger, stats *telemetry.Metrics) {
	m.store = store
	m.logger = webSlogger
	m.stats = stats
	m.apiKey = cfg.APIKey
	m.now = time.Now
}

// AddMetricHandler serves POST /metrics with form fields api_key, value and optional timestamp.
func (m *Metrics) AddMetricHandler(w http.ResponseWriter, r *http.Request) {

	if err := parseForm(w, r); err != nil {
		m.logger.LogEvent(util.LOG_LEVEL_ERROR, "While parsing form body. Err -", err)
		WriteErrorResponse(w, ErrInvalidRequestBody)
		return
	}

	if !Authorized(r.PostFormValue("api_key"), m.apiKey) {
		m.logger.LogEvent(util.LOG_LEVEL_WARN, "Rejected metric write with invalid api_key from", r.RemoteAddr)
		WriteErrorResponse(w, ErrUnauthorized)
		return
	}

	value, err := ParseValue(r.PostFormValue("value"))
	if err != nil {
		m.logger.LogEvent(util.LOG_LEVEL_ERROR, "Invalid metric value", r.PostFormValue("value"))
		WriteErrorResponse(w, err)
		return
	}

	timestamp, err := ParseTimestamp(r.PostFormValue("timestamp"))
	if err != nil {
		m.logger.LogEvent(util.LOG_LEVEL_ERROR, "Invalid metric timestamp", r.PostFormValue("timestamp"))
		WriteErrorResponse(w, err)
		return
	}

	id, err := m.store.AddMetric(r.Context(), domain.Metric{Value: value, Timestamp: timestamp})
	if err != nil {
		m.logger.LogEvent(util.LOG_LEVEL_ERROR, "Occured while AddMetric(). Err -", err)
		m.stats.RecordStoreError("create")
		WriteErrorResponse(w, ErrCreateFailed)
		return
	}

	m.stats.RecordIngested()
	m.logger.LogEvent(util.LOG_LEVEL_DEBUG, "Metric added. id -", id, "value -", value)
	WriteResultResponse(w, http.StatusCreated, CreatedBody{ID: id, Message: MsgMetricAdded})
}

// GetMetricsHandler serves GET /metrics?range=1h|5h|24h. Any other range means all time.
func (m *Metrics) GetMetricsHandler(w http.ResponseWriter, r *http.Request) {

	selector := r.URL.Query().Get("range")
	window := domain.ParseRange(selector)
	if selector != "" && window.IsAllTime() {
		m.logger.LogEvent(util.LOG_LEVEL_DEBUG, "Unrecognized range", selector, "- returning all readings")
	}

	fetchedMetrics, err := m.store.GetMetrics(r.Context(), window.Cutoff(m.now()))
	if err != nil {
		m.logger.LogEvent(util.LOG_LEVEL_ERROR, "Occured while GetMetrics(). Err -", err)
		m.stats.RecordStoreError("fetch")
		WriteErrorResponse(w, ErrFetchFailed)
		return
	}

	views := make([]domain.MetricView, 0, len(fetchedMetrics))
	for _, metric := range fetchedMetrics {
		views = append(views, metric.View())
	}

	WriteResultResponse(w, http.StatusOK, views)
}

// TruncateMetricsHandler serves POST /truncate-metrics. The credential is taken from an
// "Authorization: Bearer" header, or else from an api_key form field.
func (m *Metrics) TruncateMetricsHandler(w http.ResponseWriter, r *http.Request) {

	credential := bearerToken(r.Header.Get("Authorization"))
	if credential == "" {
		if err := parseForm(w, r); err == nil {
			credential = r.PostFormValue("api_key")
		}
	}

	if !Authorized(credential, m.apiKey) {
		m.logger.LogEvent(util.LOG_LEVEL_WARN, "Rejected metrics reset with invalid credential from", r.RemoteAddr)
		WriteErrorResponse(w, ErrUnauthorized)
		return
	}

	if err := m.store.Truncate(r.Context()); err != nil {
		m.logger.LogEvent(util.LOG_LEVEL_ERROR, "Occured while Truncate(). Err -", err)
		m.stats.RecordStoreError("reset")
		WriteErrorResponse(w, ErrResetFailed)
		return
	}

	m.stats.RecordReset()
	m.logger.LogEvent(util.LOG_LEVEL_WARN, "Metrics table reset by", r.RemoteAddr)
	WriteResultResponse(w, http.StatusOK, MessageBody{Message: MsgMetricsReset})
}

// HealthHandler serves GET /healthz.
func (m *Metrics) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if err := m.store.Ping(r.Context()); err != nil {
		m.logger.LogEvent(util.LOG_LEVEL_ERROR, "Store health check failed. Err -", err)
		m.stats.RecordStoreError("ping")
		WriteErrorResponse(w, ErrStoreUnavailable)
		return
	}
	WriteResultResponse(w, http.StatusOK, MessageBody{Message: MsgHealthy})
}
