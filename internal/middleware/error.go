package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go-cookieconsent/internal/logger"
	"go-cookieconsent/internal/view"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// AppError represents a custom error type for the application.
type AppError struct {
	Error   error
	Message string
	Code    int
	Details interface{}
}

// AppHandler is a custom handler function type that returns an AppError.
type AppHandler func(http.ResponseWriter, *http.Request) *AppError

type errorBody struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteJSONError writes the {error, details} body used by every API error.
func WriteJSONError(w http.ResponseWriter, code int, message string, details interface{}) {
	WriteJSON(w, code, errorBody{Error: message, Details: details})
}

func logAppError(log logger.Logger, r *http.Request, appErr *AppError) {
	l := log.With(map[string]interface{}{
		"request_id": chimiddleware.GetReqID(r.Context()),
		"method":     r.Method,
		"path":       r.URL.Path,
		"status":     appErr.Code,
	})
	if appErr.Code >= http.StatusInternalServerError {
		err := appErr.Error
		if err == nil {
			err = fmt.Errorf("%s", appErr.Message)
		}
		l.Error(err, appErr.Message)
		return
	}
	l.Debug(appErr.Message)
}

func recoverPanic(log logger.Logger, r *http.Request, rec interface{}) {
	err, ok := rec.(error)
	if !ok {
		err = fmt.Errorf("%v", rec)
	}
	log.With(map[string]interface{}{
		"request_id": chimiddleware.GetReqID(r.Context()),
		"path":       r.URL.Path,
	}).Error(err, "Panic recovered")
}

// JSONError is a middleware that converts handler errors into JSON error
// responses. Server errors are logged; their internal text is never sent.
func JSONError(log logger.Logger) func(AppHandler) http.Handler {
	return func(next AppHandler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					recoverPanic(log, r, rec)
					WriteJSONError(w, http.StatusInternalServerError, "Internal server error", nil)
				}
			}()

			if appErr := next(w, r); appErr != nil {
				logAppError(log, r, appErr)
				WriteJSONError(w, appErr.Code, appErr.Message, appErr.Details)
			}
		})
	}
}

// Error is a middleware that converts handler errors into user-friendly error pages.
func Error(log logger.Logger, v *view.View) func(AppHandler) http.Handler {
	return func(next AppHandler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					recoverPanic(log, r, rec)
					renderErrorPage(log, v, w, r, http.StatusInternalServerError, "Internal Server Error")
				}
			}()

			if appErr := next(w, r); appErr != nil {
				logAppError(log, r, appErr)
				renderErrorPage(log, v, w, r, appErr.Code, appErr.Message)
			}
		})
	}
}

func renderErrorPage(log logger.Logger, v *view.View, w http.ResponseWriter, r *http.Request, code int, text string) {
	data := map[string]interface{}{
		"StatusCode": code,
		"StatusText": text,
		"Locale":     "en",
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := v.Render(w, r, "error.html", data); err != nil {
		log.Error(err, "Failed to render error page")
	}
}
