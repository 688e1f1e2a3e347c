package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/rollforge/tavernkeep/pkg/errors"
)

// Handle exposes authentication over HTTP.
type Handle struct {
	service *Service
}

func NewHandle(service *Service) *Handle {
	return &Handle{service: service}
}

func (h *Handle) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
	})
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login authenticates by username or email and returns a signed token.
// Unknown identifier and wrong password are indistinguishable to the caller.
// (POST /auth/login)
func (h *Handle) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"message": "invalid request body"})
		return
	}

	result, err := h.service.Login(r.Context(), req.Identifier, req.Password)
	switch {
	case err == nil:
	case errors.IsCode(err, errors.ErrCodeAccountNotActivated):
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, map[string]string{"message": "account not activated"})
		return
	case errors.IsCode(err, errors.ErrCodeAccountNotFound),
		errors.IsCode(err, errors.ErrCodeInvalidCredentials):
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, map[string]string{"message": "invalid credentials"})
		return
	default:
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"message": "login failed"})
		return
	}

	render.JSON(w, r, LoginResponse{Token: result.Token, ExpiresAt: result.ExpiresAt})
}
