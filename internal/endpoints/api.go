package endpoints

import (
	"encoding/json"
	"net/http"
)

const (
	MsgMetricAdded  = "Metric added successfully"
	MsgMetricsReset = "Metrics table reset successfully"
	MsgHealthy      = "ok"
)

type ErrorBody struct {
	Error string `json:"error"`
}

type MessageBody struct {
	Message string `json:"message"`
}

type CreatedBody struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	payload, err := json.Marshal(body)
	if err != nil {
		statusCode = http.StatusInternalServerError
		payload = []byte(`{"error":"internal error"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(statusCode)
	w.Write(payload)
}

// WriteErrorResponse writes err with the status GetStatusCode assigns to it.
func WriteErrorResponse(w http.ResponseWriter, err error) {
	WriteErrorResponseWithStatusCode(w, err, GetStatusCode(err))
}

func WriteErrorResponseWithStatusCode(w http.ResponseWriter, err error, StatusCode int) {
	writeJSON(w, StatusCode, ErrorBody{Error: err.Error()})
}

func WriteResultResponse(w http.ResponseWriter, StatusCode int, result interface{}) {
	writeJSON(w, StatusCode, result)
}
