package payment_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/socialagro/social-agro-backend/internal"
	"github.com/socialagro/social-agro-backend/internal/core/datamodel/payment"
	paymentPkg "github.com/socialagro/social-agro-backend/internal/payment"
	"github.com/socialagro/social-agro-backend/internal/payment/postgres"
	"github.com/socialagro/social-agro-backend/internal/paymentgateway"
	"github.com/socialagro/social-agro-backend/internal/transport"
	"github.com/socialagro/social-agro-backend/pkg/logger"
)

var _ = Describe("Mercado Pago flow", func() {
	var (
		db         *gorm.DB
		mp         *httptest.Server
		repo       *postgres.PaymentRepository
		service    *paymentPkg.Service
		dispatcher *paymentPkg.Dispatcher
		webhook    *paymentPkg.WebhookHandler
		ctx        context.Context
	)

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			NowFunc: func() time.Time { return time.Now().UTC() },
			Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(&payment.Payment{}, &payment.Notification{})).To(Succeed())

		mp = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			switch {
			case r.Method == http.MethodPost && r.URL.Path == "/checkout/preferences":
				_, _ = w.Write([]byte(`{"id":"pref-1","init_point":"https://pay.example/pref-1"}`))
			case r.Method == http.MethodGet && r.URL.Path == "/v1/payments/999":
				_, _ = w.Write([]byte(`{"id":999,"status":"approved","transaction_amount":1997.0,"date_approved":"2024-01-10T12:00:00Z","external_reference":"42"}`))
			case r.Method == http.MethodGet && r.URL.Path == "/v1/payments/1000":
				_, _ = w.Write([]byte(`{"id":1000,"status":"approved","transaction_amount":10,"external_reference":null}`))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))

		config := internal.PaymentConfig{
			AccessToken:    "TEST-token",
			APIBaseURL:     mp.URL,
			RequestTimeout: time.Second,
		}
		lg := logger.Discard()
		client := paymentgateway.NewClient(paymentgateway.Config{
			BaseURL:        config.APIBaseURL,
			AccessToken:    config.AccessToken,
			RequestTimeout: config.RequestTimeout,
		}, nil, lg)

		repo = postgres.NewPaymentRepository(db)
		service = paymentPkg.NewService(config, repo, client, lg)
		reconciler := paymentPkg.NewReconciler(config, repo, client, lg)
		dispatcher = paymentPkg.NewDispatcher(reconciler, paymentPkg.DispatcherConfig{MaxWorkers: 2, QueueSize: 10}, nil, lg)
		dispatcher.Start()
		webhook = paymentPkg.NewWebhookHandler(transport.NewBaseHandler(lg), dispatcher, postgres.NewNotificationRepository(db), lg)
		ctx = context.Background()
	})

	AfterEach(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = dispatcher.Shutdown(shutdownCtx)
		mp.Close()
	})

	deliver := func(target string) {
		req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(""))
		rec := httptest.NewRecorder()
		webhook.HandleNotification(rec, req)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(strings.TrimSpace(rec.Body.String())).To(Equal(`{"received":true}`))
	}

	settle := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		Expect(dispatcher.Shutdown(shutdownCtx)).To(Succeed())
	}

	It("creates a checkout and records the pending attempt", func() {
		resp, err := service.CreateCheckout(ctx, &paymentPkg.CheckoutRequest{
			PlanName: "Raíz",
			Price:    "1997",
			ClientID: json.Number("42"),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.CheckoutURL).To(Equal("https://pay.example/pref-1"))

		rows, err := repo.ListByClientID(ctx, 42)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(1))
		Expect(rows[0].Status).To(Equal(payment.StatusPending))
		Expect(*rows[0].AmountCents).To(Equal(int64(199700)))
		Expect(*rows[0].MPPreferenceID).To(Equal("pref-1"))
	})

	It("reconciles an approved payment delivered by webhook", func() {
		deliver("/payments/mercadopago/webhook?topic=payment&id=999")
		settle()

		stored, err := repo.GetByPaymentID(ctx, "999")
		Expect(err).NotTo(HaveOccurred())
		Expect(*stored.ClientID).To(Equal(int64(42)))
		Expect(stored.Status).To(Equal("approved"))
		Expect(*stored.AmountCents).To(Equal(int64(199700)))
		Expect(stored.PaidAt.Equal(time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC))).To(BeTrue())
	})

	It("keeps a single row across redeliveries", func() {
		deliver("/payments/mercadopago/webhook?topic=payment&id=999")
		deliver("/payments/mercadopago/webhook?type=payment&id=999")
		deliver("/payments/mercadopago/webhook?id=999")
		settle()

		var count int64
		Expect(db.Model(&payment.Payment{}).Where("mp_payment_id = ?", "999").Count(&count).Error).To(Succeed())
		Expect(count).To(Equal(int64(1)))

		var logged int64
		Expect(db.Model(&payment.Notification{}).Count(&logged).Error).To(Succeed())
		Expect(logged).To(Equal(int64(3)))
	})

	It("leaves the store untouched for unattributable payments", func() {
		deliver("/payments/mercadopago/webhook?topic=payment&id=1000")
		settle()

		var count int64
		Expect(db.Model(&payment.Payment{}).Count(&count).Error).To(Succeed())
		Expect(count).To(BeZero())
	})

	It("ignores gateway lookups that fail", func() {
		deliver("/payments/mercadopago/webhook?topic=payment&id=404")
		settle()

		_, err := repo.GetByPaymentID(ctx, "404")
		Expect(err).To(MatchError(paymentPkg.ErrPaymentNotFound))
	})
})
