package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"stocktracker/pkg/stocktracker"
)

// ErrorResponse represents an error API response with structured information.
type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type errorMessageSetter interface {
	SetErrorMessage(message string)
}

// writeErrorResponse writes err with the HTTP status its error code maps to.
// Errors without a code use fallback.
func writeErrorResponse(w http.ResponseWriter, r *http.Request, fallback int, err error) {
	status := fallback
	response := ErrorResponse{Message: err.Error()}

	// error_code carries the code; keep it out of the message.
	var coded *stocktracker.Error
	if errors.As(err, &coded) {
		response.Message = coded.Detail()
		response.ErrorCode = string(coded.Code)
		status = mapErrorCodeToHTTPStatus(coded.Code)
	}
	response.Code = status
	if r != nil {
		response.RequestID = middleware.GetReqID(r.Context())
	}
	if lw, ok := w.(errorMessageSetter); ok {
		lw.SetErrorMessage(response.Message)
	}

	writeJSON(w, status, response)
}

// badRequest reports a malformed request body or parameter.
func badRequest(w http.ResponseWriter, r *http.Request, message string, err error) {
	writeErrorResponse(w, r, http.StatusBadRequest, stocktracker.WrapError(stocktracker.ErrCodeInvalidInput, message, err))
}

// mapErrorCodeToHTTPStatus maps business error codes to HTTP status codes.
func mapErrorCodeToHTTPStatus(code stocktracker.ErrorCode) int {
	switch code {
	case stocktracker.ErrCodeInvalidInput, stocktracker.ErrCodeInvalidTransaction:
		return http.StatusBadRequest
	case stocktracker.ErrCodeNotFound:
		return http.StatusNotFound
	case stocktracker.ErrCodeDataUnavailable:
		return http.StatusServiceUnavailable
	case stocktracker.ErrCodeDatabase, stocktracker.ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
