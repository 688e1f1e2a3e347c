package account

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/rollforge/tavernkeep/pkg/errors"
)

// Handle exposes the account lifecycle over HTTP.
type Handle struct {
	service *Service
}

func NewHandle(service *Service) *Handle {
	return &Handle{service: service}
}

// RegisterRoutes mounts the public account routes.
func (h *Handle) RegisterRoutes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", h.CreateAccount)
		r.Get("/activate/{username}/{code}", h.ActivateAccount)
		r.Post("/activate/resend", h.ResendActivation)
		r.Post("/password/forgot", h.ForgotPassword)
		r.Post("/password/verify", h.VerifyResetCode)
		r.Post("/password/reset", h.ResetPassword)
	})
}

// RegisterAdminRoutes mounts the routes that require an admin token.
func (h *Handle) RegisterAdminRoutes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", h.ListAccounts)
		r.Get("/{id}", h.GetAccount)
		r.Put("/{id}", h.UpdateAccount)
		r.Delete("/{id}", h.DeleteAccount)
	})
}

type CreateAccountRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type UpdateAccountRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Status    Status `json:"status"`
	Role      Role   `json:"role"`
}

type ResendActivationRequest struct {
	Username string `json:"username"`
	Code     string `json:"code"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type VerifyResetCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type ResetPasswordRequest struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	Password string `json:"password"`
}

// AccountResponse is the public shape of an account. Credentials and pending
// codes never leave the service.
type AccountResponse struct {
	ID          uuid.UUID  `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Status      Status     `json:"status"`
	Role        Role       `json:"role"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
}

type ListAccountsResponse struct {
	Accounts []AccountResponse `json:"accounts"`
	Total    int               `json:"total"`
}

type ErrorResponse struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  []errors.FieldError `json:"fields,omitempty"`
}

func toAccountResponse(acct Account) AccountResponse {
	var resp AccountResponse
	if err := copier.Copy(&resp, &acct); err != nil {
		slog.Error("Failed to map account response", "err", err)
	}
	return resp
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	status := errors.MapErrorCodeToHTTPStatus(code)
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "path", r.URL.Path, "err", err)
	}
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{
		Code:    string(code),
		Message: http.StatusText(status),
		Fields:  errors.GetFields(err),
	})
}

// CreateAccount registers a new account and triggers the activation email.
// (POST /accounts)
func (h *Handle) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, errors.Validation(errors.FieldError{Field: "body", Message: "invalid request body"}))
		return
	}

	created, err := h.service.Create(r.Context(), Account{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toAccountResponse(*created))
}

// ActivateAccount redeems an activation code.
// (GET /accounts/activate/{username}/{code})
func (h *Handle) ActivateAccount(w http.ResponseWriter, r *http.Request) {
	activation := Activation{
		Username: chi.URLParam(r, "username"),
		Code:     chi.URLParam(r, "code"),
	}
	if err := h.service.Activate(r.Context(), activation); err != nil {
		renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// ResendActivation issues a fresh activation code for the holder of the
// current one.
// (POST /accounts/activate/resend)
func (h *Handle) ResendActivation(w http.ResponseWriter, r *http.Request) {
	var req ResendActivationRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, errors.Validation(errors.FieldError{Field: "body", Message: "invalid request body"}))
		return
	}
	if err := h.service.ResendActivation(r.Context(), req.Username, req.Code); err != nil {
		renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// ForgotPassword starts the reset flow. Always responds 204 so the endpoint
// cannot be used to probe for registered emails.
// (POST /accounts/password/forgot)
func (h *Handle) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, errors.Validation(errors.FieldError{Field: "body", Message: "invalid request body"}))
		return
	}
	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// VerifyResetCode checks a reset code without consuming it.
// (POST /accounts/password/verify)
func (h *Handle) VerifyResetCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyResetCodeRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, errors.Validation(errors.FieldError{Field: "body", Message: "invalid request body"}))
		return
	}
	if err := h.service.VerifyPasswordResetCode(r.Context(), req.Email, req.Code); err != nil {
		renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// ResetPassword consumes a reset code and replaces the password.
// (POST /accounts/password/reset)
func (h *Handle) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, errors.Validation(errors.FieldError{Field: "body", Message: "invalid request body"}))
		return
	}
	if err := h.service.ResetPassword(r.Context(), req.Email, req.Code, req.Password); err != nil {
		renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// ListAccounts returns a page of accounts.
// (GET /accounts)
func (h *Handle) ListAccounts(w http.ResponseWriter, r *http.Request) {
	opts := GetAllOptions{
		Username:  r.URL.Query().Get("username"),
		Status:    Status(r.URL.Query().Get("status")),
		Role:      Role(r.URL.Query().Get("role")),
		SortField: r.URL.Query().Get("sort_field"),
		Page:      1,
		PageSize:  25,
	}
	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && page > 0 {
		opts.Page = page
	}
	if size, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && size > 0 {
		opts.PageSize = size
	}
	if r.URL.Query().Get("sort_order") == "desc" {
		opts.SortOrder = SortDescending
	}

	accounts, err := h.service.GetAll(r.Context(), opts)
	if err != nil {
		renderError(w, r, err)
		return
	}
	total, err := h.service.GetCount(r.Context(), opts.Username)
	if err != nil {
		renderError(w, r, err)
		return
	}

	resp := ListAccountsResponse{Total: total, Accounts: make([]AccountResponse, 0, len(accounts))}
	for _, acct := range accounts {
		resp.Accounts = append(resp.Accounts, toAccountResponse(acct))
	}
	render.JSON(w, r, resp)
}

// GetAccount returns a single account by ID.
// (GET /accounts/{id})
func (h *Handle) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, errors.Validation(errors.FieldError{Field: "id", Message: "invalid account id"}))
		return
	}

	acct, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	if acct == nil {
		renderError(w, r, ErrAccountNotFound)
		return
	}
	render.JSON(w, r, toAccountResponse(*acct))
}

// UpdateAccount updates the mutable fields of an account.
// (PUT /accounts/{id})
func (h *Handle) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, errors.Validation(errors.FieldError{Field: "id", Message: "invalid account id"}))
		return
	}

	var req UpdateAccountRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, errors.Validation(errors.FieldError{Field: "body", Message: "invalid request body"}))
		return
	}

	updated, err := h.service.Update(r.Context(), Account{
		ID:        id,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Status:    req.Status,
		Role:      req.Role,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	if updated == nil {
		renderError(w, r, ErrAccountNotFound)
		return
	}
	render.JSON(w, r, toAccountResponse(*updated))
}

// DeleteAccount soft-deletes an account.
// (DELETE /accounts/{id})
func (h *Handle) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, errors.Validation(errors.FieldError{Field: "id", Message: "invalid account id"}))
		return
	}

	deleted, err := h.service.Delete(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	if !deleted {
		renderError(w, r, ErrAccountNotFound)
		return
	}
	render.NoContent(w, r)
}
