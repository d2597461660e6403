package schedule

import (
	"net/http"

	"github.com/socialagro/social-agro-backend/internal"
	"github.com/socialagro/social-agro-backend/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// ListForClient handles GET /admin/clientes/{id}/programacoes
func (h *Handler) ListForClient(w http.ResponseWriter, r *http.Request) {
	clientID, appErr := h.PathID(r, "id")
	if appErr != nil {
		h.HandleError(w, appErr)
		return
	}
	h.list(w, r, clientID)
}

// Create handles POST /admin/clientes/{id}/programacoes
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	clientID, appErr := h.PathID(r, "id")
	if appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	var dto CreateScheduleDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	created, err := h.Service.Create(r.Context(), clientID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, ScheduleResponse{Schedule: created})
}

// ListOwn handles GET /client/programacoes
func (h *Handler) ListOwn(w http.ResponseWriter, r *http.Request) {
	subject, ok := internal.SubjectFromContext(r.Context())
	if !ok {
		h.HandleError(w, internal.ErrMissingToken)
		return
	}
	h.list(w, r, subject.ID)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, clientID int64) {
	schedules, err := h.Service.ListForClient(r.Context(), clientID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, SchedulesResponse{Schedules: schedules})
}
