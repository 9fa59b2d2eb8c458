package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go-cookieconsent/internal/bannerconfig"
	"go-cookieconsent/internal/data"
	"go-cookieconsent/internal/logger"
	"go-cookieconsent/internal/middleware"
	"go-cookieconsent/internal/service"
	"go-cookieconsent/internal/session"

	"github.com/go-chi/chi/v5"
)

// maxAdminBodyBytes bounds admin request bodies; settings carry script HTML.
const maxAdminBodyBytes = 1 << 20

// AdminHandler holds the dependencies for the admin API handlers.
type AdminHandler struct {
	admin    service.AdminServicer
	sessions session.Manager
	log      logger.Logger
}

// NewAdminHandler creates a new AdminHandler with the given dependencies.
func NewAdminHandler(as service.AdminServicer, sm session.Manager, log logger.Logger) *AdminHandler {
	return &AdminHandler{admin: as, sessions: sm, log: log}
}

type detail struct {
	Message string `json:"message"`
}

// adminError maps service errors onto API responses.
func adminError(err error) *middleware.AppError {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return &middleware.AppError{Error: err, Message: "Not found", Code: http.StatusNotFound}
	case errors.Is(err, data.ErrDeletionDisabled):
		return &middleware.AppError{Error: err, Message: "Consent records cannot be deleted", Code: http.StatusMethodNotAllowed}
	case errors.Is(err, data.ErrDuplicateCategory):
		return &middleware.AppError{Error: err, Message: "Category already exists", Code: http.StatusConflict, Details: []detail{{Message: err.Error()}}}
	case errors.Is(err, data.ErrInvalidCategory):
		return &middleware.AppError{Error: err, Message: "Invalid category", Code: http.StatusBadRequest, Details: []detail{{Message: err.Error()}}}
	case errors.Is(err, bannerconfig.ErrInvalidConfiguration):
		return &middleware.AppError{Error: err, Message: "Invalid settings", Code: http.StatusBadRequest, Details: []detail{{Message: err.Error()}}}
	default:
		return &middleware.AppError{Error: err, Message: "Internal server error", Code: http.StatusInternalServerError}
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) *middleware.AppError {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAdminBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &middleware.AppError{Error: err, Message: "Invalid request body", Code: http.StatusBadRequest, Details: []detail{{Message: err.Error()}}}
	}
	return nil
}

func (h *AdminHandler) listCategoriesHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	categories, err := h.admin.ListCategories(r.Context(), r.URL.Query().Get("locale"))
	if err != nil {
		return adminError(err)
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"docs": categories})
	return nil
}

func (h *AdminHandler) createCategoryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var c data.Category
	if appErr := decodeBody(w, r, &c); appErr != nil {
		return appErr
	}
	created, err := h.admin.CreateCategory(r.Context(), c)
	if err != nil {
		return adminError(err)
	}
	middleware.WriteJSON(w, http.StatusCreated, created)
	return nil
}

func (h *AdminHandler) updateCategoryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var c data.Category
	if appErr := decodeBody(w, r, &c); appErr != nil {
		return appErr
	}
	updated, err := h.admin.UpdateCategory(r.Context(), chi.URLParam(r, "id"), c)
	if err != nil {
		return adminError(err)
	}
	middleware.WriteJSON(w, http.StatusOK, updated)
	return nil
}

func isDraft(r *http.Request) bool {
	draft, _ := strconv.ParseBool(r.URL.Query().Get("draft"))
	return draft
}

func (h *AdminHandler) getSettingsHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	settings, err := h.admin.GetSettings(r.Context(), r.URL.Query().Get("locale"), isDraft(r))
	if err != nil {
		return adminError(err)
	}
	if settings == nil {
		settings = &data.Settings{}
	}
	middleware.WriteJSON(w, http.StatusOK, settings)
	return nil
}

func (h *AdminHandler) saveSettingsHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var s data.Settings
	if appErr := decodeBody(w, r, &s); appErr != nil {
		return appErr
	}
	saved, err := h.admin.SaveSettings(r.Context(), s, r.URL.Query().Get("locale"), isDraft(r))
	if err != nil {
		return adminError(err)
	}
	middleware.WriteJSON(w, http.StatusOK, saved)
	return nil
}

func (h *AdminHandler) republishHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	saved, err := h.admin.Republish(r.Context(), r.URL.Query().Get("locale"))
	if err != nil {
		return adminError(err)
	}
	middleware.WriteJSON(w, http.StatusOK, saved)
	return nil
}

type previewRequest struct {
	Enabled bool `json:"enabled"`
}

// previewHandler toggles preview mode for the caller's session.
func (h *AdminHandler) previewHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req previewRequest
	if appErr := decodeBody(w, r, &req); appErr != nil {
		return appErr
	}
	if req.Enabled {
		h.sessions.Put(r.Context(), session.PreviewKey, true)
	} else {
		h.sessions.Remove(r.Context(), session.PreviewKey)
	}
	middleware.WriteJSON(w, http.StatusOK, req)
	return nil
}

func (h *AdminHandler) listConsentRecordsHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return &middleware.AppError{Error: err, Message: "Invalid limit", Code: http.StatusBadRequest}
		}
		limit = n
	}
	records, err := h.admin.ListConsentRecords(r.Context(), limit)
	if err != nil {
		return adminError(err)
	}
	if records == nil {
		records = []data.ConsentRecord{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"docs": records})
	return nil
}

func (h *AdminHandler) getConsentRecordHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	record, err := h.admin.GetConsentRecord(r.Context(), chi.URLParam(r, "consentId"))
	if err != nil {
		return adminError(err)
	}
	middleware.WriteJSON(w, http.StatusOK, record)
	return nil
}

func (h *AdminHandler) deleteConsentRecordHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	err := h.admin.DeleteConsentRecord(r.Context(), chi.URLParam(r, "consentId"))
	if err == nil {
		err = data.ErrDeletionDisabled
	}
	w.Header().Set("Allow", "GET")
	return adminError(err)
}
