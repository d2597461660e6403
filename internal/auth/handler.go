package auth

import (
	"net/http"

	"github.com/socialagro/social-agro-backend/internal"
	"github.com/socialagro/social-agro-backend/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
	}
}

// RegisterAdmin handles POST /admin/register
func (h *Handler) RegisterAdmin(w http.ResponseWriter, r *http.Request) {
	var dto RegisterAdminDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	created, err := h.Service.RegisterAdmin(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, RegisterAdminResponse{Admin: NewAdminView(created)})
}

// LoginAdmin handles POST /admin/login
func (h *Handler) LoginAdmin(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	resp, err := h.Service.LoginAdmin(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

// LoginClient handles POST /client/login
func (h *Handler) LoginClient(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	resp, err := h.Service.LoginClient(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

// AuthMiddleware resolves the bearer token into an internal.Subject.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.HandleError(w, internal.ErrMissingToken)
			return
		}

		claims, err := h.Service.ValidateAccessToken(token)
		if err != nil {
			h.Logger.Debug("token validation failed", "error", err)
			h.HandleError(w, internal.ErrInvalidToken)
			return
		}

		subject, err := claims.ToSubject()
		if err != nil {
			h.HandleError(w, internal.ErrInvalidToken)
			return
		}

		ctx := internal.ContextWithSubject(r.Context(), subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
