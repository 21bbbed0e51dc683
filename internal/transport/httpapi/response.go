package httpapi

import (
	"encoding/json"
	"net/http"

	"pitstop/internal/types"
)

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":"internal_unexpected_error","message":"failed to marshal response"}}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code types.ErrorCode, message string) {
	writeJSON(w, status, errorResponse{Error: errorDetail{
		Code:      string(code),
		Message:   message,
		RequestID: types.GetRequestID(r.Context()),
	}})
}
