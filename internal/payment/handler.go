package payment

import (
	"net/http"

	"github.com/socialagro/social-agro-backend/internal"
	"github.com/socialagro/social-agro-backend/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	PaymentService ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, paymentService ServiceAPI) *Handler {
	return &Handler{
		BaseHandler:    baseHandler,
		PaymentService: paymentService,
	}
}

// CreateCheckout handles POST /payments/mercadopago/checkout
func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if appErr := h.DecodeJSON(r, &req); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	resp, err := h.PaymentService.CreateCheckout(r.Context(), &req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

// GetLatestPayment handles GET /client/pagamentos/ultimo
func (h *Handler) GetLatestPayment(w http.ResponseWriter, r *http.Request) {
	subject, ok := internal.SubjectFromContext(r.Context())
	if !ok {
		h.HandleError(w, internal.ErrMissingToken)
		return
	}

	latest, err := h.PaymentService.GetLatestForClient(r.Context(), subject.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, LatestPaymentResponse{Payment: latest})
}
