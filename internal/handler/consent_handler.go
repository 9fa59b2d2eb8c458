package handler

import (
	"errors"
	"io"
	"net/http"

	"go-cookieconsent/internal/logger"
	"go-cookieconsent/internal/middleware"
	"go-cookieconsent/internal/service"
)

// maxConsentBodyBytes bounds a consent submission body.
const maxConsentBodyBytes = 64 << 10

// ConsentHandler serves the consent intake endpoint.
type ConsentHandler struct {
	consents service.ConsentServicer
	log      logger.Logger
}

// NewConsentHandler creates a new ConsentHandler with the given dependencies.
func NewConsentHandler(cs service.ConsentServicer, log logger.Logger) *ConsentHandler {
	return &ConsentHandler{consents: cs, log: log}
}

type consentResponse struct {
	Record  interface{} `json:"record"`
	Success bool        `json:"success"`
}

// consentHandler is mounted for every method so that anything but POST gets a 405 body.
func (h *ConsentHandler) consentHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		return &middleware.AppError{Error: errors.New("method not allowed"), Message: "Method not allowed", Code: http.StatusMethodNotAllowed}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxConsentBodyBytes))
	if err != nil {
		return &middleware.AppError{
			Error:   err,
			Message: "Invalid request body",
			Code:    http.StatusBadRequest,
			Details: []service.FieldError{{Field: "body", Message: "could not be read"}},
		}
	}

	sub, err := service.ParseConsentSubmission(body)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			return &middleware.AppError{Error: err, Message: "Invalid request body", Code: http.StatusBadRequest, Details: verr.Fields}
		}
		return &middleware.AppError{Error: err, Message: "Internal server error", Code: http.StatusInternalServerError}
	}

	record, err := h.consents.Record(r.Context(), sub, service.RequestMeta{
		Headers:    r.Header,
		RemoteAddr: r.RemoteAddr,
		UserID:     middleware.GetUserInfo(r.Context()).UserID(),
	})
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Internal server error", Code: http.StatusInternalServerError}
	}

	middleware.WriteJSON(w, http.StatusOK, consentResponse{Record: record, Success: true})
	return nil
}
