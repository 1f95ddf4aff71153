package api

import (
	"encoding/json"
	"net/http"

	"cpq-console/internal/common/errors"
)

type errorDetail struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   string            `json:"details,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Retryable bool              `json:"retryable"`
	RequestID string            `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, map[string]interface{}{"data": data})
}

// writeError renders err with the status its code maps to. Validation
// failures carry their per-field messages.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := errors.Normalize(err)
	detail := errorDetail{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		RequestID: requestIDFromContext(r.Context()),
	}
	if fields, ok := stdErr.Metadata["fields"].(map[string]string); ok {
		detail.Fields = fields
	}
	writeJSON(w, errors.HTTPStatus(stdErr.Code), map[string]interface{}{"error": detail})
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.NewValidationFailedError("invalid json body: "+err.Error(), nil)
	}
	return nil
}
