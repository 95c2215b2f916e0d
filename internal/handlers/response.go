package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/videotube/backend/internal/apperr"
	"github.com/videotube/backend/internal/logging"
)

type apiResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

type apiError struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

// respond writes the success envelope.
func respond(w http.ResponseWriter, r *http.Request, status int, data any, message string) {
	respondJSON(r.Context(), w, status, apiResponse{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

// respondError renders err as the error envelope. Errors that are not
// *apperr.Error are reported as opaque internal failures.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = &apperr.Error{Kind: apperr.KindInternal, Message: "something went wrong", Err: err}
	}
	status := appErr.Status()
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request error", "error", err)
	}
	respondJSON(r.Context(), w, status, apiError{
		StatusCode: status,
		Message:    appErr.ClientMessage(),
		Success:    false,
		Errors:     []string{},
	})
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}
