package payment_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/socialagro/social-agro-backend/internal"
	"github.com/socialagro/social-agro-backend/internal/core/datamodel/payment"
	paymentgatewaytypes "github.com/socialagro/social-agro-backend/internal/core/datamodel/paymentgateway"
	paymentpkg "github.com/socialagro/social-agro-backend/internal/payment"
	"github.com/socialagro/social-agro-backend/internal/transport"
	"github.com/socialagro/social-agro-backend/pkg/logger"
)

var _ = ginkgo.Describe("Handler", func() {
	var (
		repo    *mockPaymentRepository
		gateway *mockGateway
		handler *paymentpkg.Handler
	)

	ginkgo.BeforeEach(func() {
		repo = newMockPaymentRepository()
		gateway = &mockGateway{
			preference: &paymentgatewaytypes.Preference{ID: "pref-1", InitPoint: "https://pay.example/pref-1"},
		}
		service := paymentpkg.NewService(internal.PaymentConfig{AccessToken: "TEST-token"}, repo, gateway, logger.Discard())
		handler = paymentpkg.NewHandler(transport.NewBaseHandler(logger.Discard()), service)
	})

	decode := func(rec *httptest.ResponseRecorder) map[string]interface{} {
		var body map[string]interface{}
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(gomega.Succeed())
		return body
	}

	ginkgo.Describe("CreateCheckout", func() {
		post := func(body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/payments/mercadopago/checkout", strings.NewReader(body))
			rec := httptest.NewRecorder()
			handler.CreateCheckout(rec, req)
			return rec
		}

		ginkgo.It("returns the checkout url", func() {
			rec := post(`{"planName":"Raíz","price":"1997","clienteId":42}`)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(decode(rec)).To(gomega.Equal(map[string]interface{}{"checkoutUrl": "https://pay.example/pref-1"}))
		})

		ginkgo.It("accepts a numeric price", func() {
			rec := post(`{"planName":"Raíz","price":1997.5}`)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(*repo.all()[0].AmountCents).To(gomega.Equal(int64(199750)))
		})

		ginkgo.It("answers 400 with a flat error body", func() {
			rec := post(`{"planName":"","price":"1997"}`)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
			gomega.Expect(decode(rec)).To(gomega.Equal(map[string]interface{}{"error": "Dados do plano inválidos"}))
		})

		ginkgo.It("answers 400 on malformed JSON", func() {
			rec := post(`{`)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
			gomega.Expect(decode(rec)).To(gomega.HaveKey("error"))
		})

		ginkgo.It("answers 500 when the gateway fails", func() {
			gateway.preferenceErr = context.DeadlineExceeded
			rec := post(`{"planName":"Raíz","price":"1997"}`)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusInternalServerError))
			gomega.Expect(decode(rec)["error"]).To(gomega.Equal("Erro ao criar preferência de pagamento"))
		})
	})

	ginkgo.Describe("GetLatestPayment", func() {
		get := func(ctx context.Context) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, "/client/pagamentos/ultimo", nil).WithContext(ctx)
			rec := httptest.NewRecorder()
			handler.GetLatestPayment(rec, req)
			return rec
		}

		ginkgo.It("requires an authenticated client", func() {
			rec := get(context.Background())
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		})

		ginkgo.It("returns null when there is no payment", func() {
			ctx := internal.ContextWithSubject(context.Background(), internal.Subject{ID: 42, Role: internal.RoleClient})
			rec := get(ctx)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(decode(rec)).To(gomega.Equal(map[string]interface{}{"pagamento": nil}))
		})

		ginkgo.It("returns the latest payment", func() {
			gomega.Expect(repo.Create(context.Background(), &payment.Payment{
				ClientID:    ptr(int64(42)),
				Status:      payment.StatusApproved,
				MPPaymentID: ptr("999"),
				AmountCents: ptr(int64(199700)),
			})).To(gomega.Succeed())

			ctx := internal.ContextWithSubject(context.Background(), internal.Subject{ID: 42, Role: internal.RoleClient})
			rec := get(ctx)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			body := decode(rec)["pagamento"].(map[string]interface{})
			gomega.Expect(body["mp_payment_id"]).To(gomega.Equal("999"))
			gomega.Expect(body["status"]).To(gomega.Equal("approved"))
			gomega.Expect(body["valor_centavos"]).To(gomega.BeNumerically("==", 199700))
		})
	})
})
