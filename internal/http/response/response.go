// Package response writes the API envelope for routes served outside huma:
// router fallbacks, panics and plain net/http handlers.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	domainerrors "github.com/recshelf/recshelf-server/internal/errors"
	"github.com/recshelf/recshelf-server/internal/store"
)

// Version is bumped whenever the envelope shape changes.
const Version = 1

// Envelope wraps every successful response and simple errors.
type Envelope struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ErrorEnvelope carries a coded error.
type ErrorEnvelope struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func write(w http.ResponseWriter, status int, body any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil && logger != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// JSON writes data in a success envelope. Success is false for statuses >= 400.
func JSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	write(w, status, Envelope{Version: Version, Success: status < 400, Data: data}, logger)
}

// Error writes a coded error envelope.
func Error(w http.ResponseWriter, status int, code domainerrors.Code, message string, logger *slog.Logger) {
	write(w, status, ErrorEnvelope{Version: Version, Code: string(code), Message: message}, logger)
}

// HandleError maps err to its envelope. Domain errors keep their code,
// store errors map to NOT_FOUND or ALREADY_EXISTS, anything else is a 500
// whose cause is logged but not sent.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		write(w, domainErr.HTTPStatus(), ErrorEnvelope{
			Version: Version,
			Code:    string(domainErr.Code),
			Message: domainErr.Message,
			Details: domainErr.Details,
		}, logger)
		return
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		Error(w, http.StatusNotFound, domainerrors.CodeNotFound, "not found", logger)
	case errors.Is(err, store.ErrAlreadyExists):
		Error(w, http.StatusConflict, domainerrors.CodeAlreadyExists, "already exists", logger)
	default:
		if logger != nil {
			logger.Error("Unhandled error", "error", err)
		}
		Error(w, http.StatusInternalServerError, domainerrors.CodeInternal, "internal server error", logger)
	}
}

// NotFound is a router fallback for unknown paths.
func NotFound(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		Error(w, http.StatusNotFound, domainerrors.CodeNotFound, "no route for "+r.URL.Path, logger)
	}
}

// MethodNotAllowed is a router fallback for known paths hit with the wrong method.
func MethodNotAllowed(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		Error(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", r.Method+" not allowed on "+r.URL.Path, logger)
	}
}

// Recoverer turns a handler panic into a logged 500 envelope. The
// connection-abort sentinel is re-raised so net/http can handle it.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler { //nolint:errorlint // sentinel compared by identity
					panic(rec)
				}
				if logger != nil {
					logger.Error("Handler panic", "panic", rec, "method", r.Method, "path", r.URL.Path)
				}
				Error(w, http.StatusInternalServerError, domainerrors.CodeInternal, "internal server error", logger)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
