package settings

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/rollforge/tavernkeep/pkg/errors"
)

// Handle exposes global setting management over HTTP. Intended to be mounted
// behind admin authorization.
type Handle struct {
	service *Service
}

func NewHandle(service *Service) *Handle {
	return &Handle{service: service}
}

func (h *Handle) RegisterRoutes(r chi.Router) {
	r.Route("/settings", func(r chi.Router) {
		r.Get("/", h.ListSettings)
		r.Post("/", h.CreateSetting)
	})
}

type CreateSettingRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type SettingResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Value string    `json:"value"`
}

type ListSettingsResponse struct {
	Settings []SettingResponse `json:"settings"`
	Total    int               `json:"total"`
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	render.Status(r, errors.MapErrorCodeToHTTPStatus(code))
	render.JSON(w, r, map[string]interface{}{
		"code":    string(code),
		"fields":  errors.GetFields(err),
		"message": http.StatusText(errors.MapErrorCodeToHTTPStatus(code)),
	})
}

// ListSettings returns a page of global settings.
// (GET /settings)
func (h *Handle) ListSettings(w http.ResponseWriter, r *http.Request) {
	opts := GetAllOptions{Name: r.URL.Query().Get("name"), Page: 1, PageSize: 25}
	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && page > 0 {
		opts.Page = page
	}
	if size, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && size > 0 {
		opts.PageSize = size
	}
	if r.URL.Query().Get("sort_order") == "desc" {
		opts.SortOrder = SortDescending
	}

	results, err := h.service.GetAll(r.Context(), opts)
	if err != nil {
		renderError(w, r, err)
		return
	}
	total, err := h.service.GetCount(r.Context(), opts.Name)
	if err != nil {
		renderError(w, r, err)
		return
	}

	resp := ListSettingsResponse{Total: total, Settings: make([]SettingResponse, 0, len(results))}
	for _, setting := range results {
		resp.Settings = append(resp.Settings, SettingResponse{ID: setting.ID, Name: setting.Name, Value: setting.Value})
	}
	render.JSON(w, r, resp)
}

// CreateSetting stores a new global setting.
// (POST /settings)
func (h *Handle) CreateSetting(w http.ResponseWriter, r *http.Request) {
	var req CreateSettingRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, errors.Validation(errors.FieldError{Field: "body", Message: "invalid request body"}))
		return
	}

	setting := GlobalSetting{ID: uuid.New(), Name: req.Name, Value: req.Value}
	if err := h.service.CreateSetting(r.Context(), setting); err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, SettingResponse{ID: setting.ID, Name: setting.Name, Value: setting.Value})
}
