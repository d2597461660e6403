package transport

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	errors "github.com/socialagro/social-agro-backend/internal"
	"github.com/socialagro/social-agro-backend/pkg/logger"
)

const maxBodyBytes = 1 << 20

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log().Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes the flat {"error": message} body every endpoint shares.
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	if status >= http.StatusInternalServerError {
		h.log().Error("http error", "status", status, "message", message)
	} else {
		h.log().Debug("http error", "status", status, "message", message)
	}
	h.WriteJSON(w, status, map[string]string{"error": message})
}

func (h *BaseHandler) HandleError(w http.ResponseWriter, appErr *errors.AppError) {
	if appErr.Cause != nil {
		h.log().Error("request failed", "code", appErr.Code, "error", appErr.Cause)
	}
	h.WriteError(w, appErr.StatusCode, appErr.GetDetailedMessage())
}

// HandleServiceError maps service errors to responses. Anything that is not
// an *AppError becomes a 500 without leaking its message.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, err error) {
	if appErr, ok := errors.IsAppError(err); ok {
		h.HandleError(w, appErr)
		return
	}
	h.log().Error("unexpected service error", "error", err)
	h.WriteError(w, http.StatusInternalServerError, "Erro interno do servidor")
}

// DecodeJSON reads a bounded JSON body into dst. An empty body leaves dst untouched.
func (h *BaseHandler) DecodeJSON(r *http.Request, dst interface{}) *errors.AppError {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && err != io.EOF {
		return errors.NewValidationError("JSON inválido", errors.ErrCodeValidationFailed)
	}
	return nil
}

// PathID parses a positive integer chi URL parameter.
func (h *BaseHandler) PathID(r *http.Request, name string) (int64, *errors.AppError) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewValidationError("ID inválido", errors.ErrCodeInvalidID)
	}
	return id, nil
}

// ExtractTokenFromHeader extracts Bearer token from Authorization header
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ""
	}

	return authHeader[7:]
}

func (h *BaseHandler) log() *slog.Logger {
	if h == nil || h.Logger == nil {
		return logger.LoggerWrapper()
	}
	return h.Logger
}
