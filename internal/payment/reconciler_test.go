package payment_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/socialagro/social-agro-backend/internal"
	"github.com/socialagro/social-agro-backend/internal/core/datamodel/payment"
	paymentgatewaytypes "github.com/socialagro/social-agro-backend/internal/core/datamodel/paymentgateway"
	"github.com/socialagro/social-agro-backend/internal/core/events"
	paymentPkg "github.com/socialagro/social-agro-backend/internal/payment"
	"github.com/socialagro/social-agro-backend/pkg/logger"
)

func approvedResource() *paymentgatewaytypes.PaymentResource {
	amount := decimal.RequireFromString("1997.0")
	return &paymentgatewaytypes.PaymentResource{
		ID:                "999",
		Status:            "approved",
		StatusDetail:      "accredited",
		TransactionAmount: &amount,
		DateApproved:      ptr("2024-01-10T12:00:00Z"),
		ExternalReference: "42",
	}
}

var _ = Describe("Reconciler", func() {
	var (
		repo       *mockPaymentRepository
		gateway    *mockGateway
		publisher  *recordingPublisher
		config     internal.PaymentConfig
		reconciler *paymentPkg.Reconciler
		ctx        context.Context
	)

	BeforeEach(func() {
		repo = newMockPaymentRepository()
		gateway = &mockGateway{payment: approvedResource()}
		publisher = &recordingPublisher{}
		config = internal.PaymentConfig{AccessToken: "TEST-token"}
		ctx = context.Background()
	})

	JustBeforeEach(func() {
		reconciler = paymentPkg.NewReconciler(config, repo, gateway, logger.Discard()).WithPublisher(publisher)
	})

	It("creates a row for an unseen approved payment", func() {
		outcome, err := reconciler.Reconcile(ctx, paymentPkg.Notification{Topic: "payment", PaymentID: "999"})
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(paymentPkg.OutcomeReconciled))

		rows := repo.all()
		Expect(rows).To(HaveLen(1))
		Expect(*rows[0].ClientID).To(Equal(int64(42)))
		Expect(*rows[0].MPPaymentID).To(Equal("999"))
		Expect(rows[0].Status).To(Equal("approved"))
		Expect(*rows[0].StatusDetail).To(Equal("accredited"))
		Expect(*rows[0].AmountCents).To(Equal(int64(199700)))
		Expect(rows[0].PaidAt.Equal(time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC))).To(BeTrue())

		published := publisher.published()
		Expect(published).To(HaveLen(1))
		evt, ok := published[0].(*events.PaymentReconciledEvent)
		Expect(ok).To(BeTrue())
		Expect(evt.ClientID).To(Equal(int64(42)))
		Expect(evt.MPPaymentID).To(Equal("999"))
	})

	It("is idempotent", func() {
		n := paymentPkg.Notification{PaymentID: "999"}
		_, err := reconciler.Reconcile(ctx, n)
		Expect(err).NotTo(HaveOccurred())
		first := repo.all()

		_, err = reconciler.Reconcile(ctx, n)
		Expect(err).NotTo(HaveOccurred())
		Expect(repo.all()).To(Equal(first))
	})

	It("keeps the amount when a later delivery has none", func() {
		_, err := reconciler.Reconcile(ctx, paymentPkg.Notification{PaymentID: "999"})
		Expect(err).NotTo(HaveOccurred())

		refunded := approvedResource()
		refunded.Status = "refunded"
		refunded.TransactionAmount = nil
		gateway.payment = refunded

		_, err = reconciler.Reconcile(ctx, paymentPkg.Notification{PaymentID: "999"})
		Expect(err).NotTo(HaveOccurred())

		rows := repo.all()
		Expect(rows).To(HaveLen(1))
		Expect(rows[0].Status).To(Equal("refunded"))
		Expect(*rows[0].AmountCents).To(Equal(int64(199700)))
	})

	It("uses the gateway id rather than the notification id", func() {
		_, err := reconciler.Reconcile(ctx, paymentPkg.Notification{PaymentID: "  999 "})
		Expect(err).NotTo(HaveOccurred())
		Expect(gateway.fetched).To(Equal([]string{"999"}))
		Expect(*repo.all()[0].MPPaymentID).To(Equal("999"))
	})

	It("defaults an empty status to unknown and a missing approval to nil", func() {
		r := approvedResource()
		r.Status = ""
		r.DateApproved = nil
		r.StatusDetail = ""
		gateway.payment = r

		_, err := reconciler.Reconcile(ctx, paymentPkg.Notification{PaymentID: "999"})
		Expect(err).NotTo(HaveOccurred())
		row := repo.all()[0]
		Expect(row.Status).To(Equal(payment.StatusUnknown))
		Expect(row.PaidAt).To(BeNil())
		Expect(row.StatusDetail).To(BeNil())
	})

	DescribeTable("drops notifications it cannot attribute",
		func(reference paymentgatewaytypes.FlexString) {
			r := approvedResource()
			r.ExternalReference = reference
			gateway.payment = r

			outcome, err := reconciler.Reconcile(ctx, paymentPkg.Notification{PaymentID: "999"})
			Expect(err).To(MatchError(paymentPkg.ErrUnattributed))
			Expect(outcome).To(Equal(paymentPkg.OutcomeUnattributed))
			Expect(repo.all()).To(BeEmpty())
			Expect(publisher.published()).To(BeEmpty())
		},
		Entry("missing", paymentgatewaytypes.FlexString("")),
		Entry("text", paymentgatewaytypes.FlexString("cliente-42")),
		Entry("fractional", paymentgatewaytypes.FlexString("4.2")),
		Entry("zero", paymentgatewaytypes.FlexString("0")),
	)

	It("ignores notifications without an id", func() {
		outcome, err := reconciler.Reconcile(ctx, paymentPkg.Notification{Topic: "payment"})
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(paymentPkg.OutcomeMissingID))
		Expect(gateway.fetched).To(BeEmpty())
	})

	It("ignores non-payment topics", func() {
		outcome, err := reconciler.Reconcile(ctx, paymentPkg.Notification{Topic: "merchant_order", PaymentID: "999"})
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(paymentPkg.OutcomeIgnoredTopic))
		Expect(gateway.fetched).To(BeEmpty())
		Expect(repo.all()).To(BeEmpty())
	})

	It("drops the notification when the fetch fails", func() {
		gateway.paymentErr = errors.New("timeout")
		outcome, err := reconciler.Reconcile(ctx, paymentPkg.Notification{PaymentID: "999"})
		Expect(err).To(HaveOccurred())
		Expect(outcome).To(Equal(paymentPkg.OutcomeFetchFailed))
		Expect(repo.all()).To(BeEmpty())
	})

	It("reports store failures", func() {
		repo.upsertError = errors.New("database down")
		outcome, err := reconciler.Reconcile(ctx, paymentPkg.Notification{PaymentID: "999"})
		Expect(err).To(HaveOccurred())
		Expect(outcome).To(Equal(paymentPkg.OutcomeStoreFailed))
	})

	Context("without an access token", func() {
		BeforeEach(func() {
			config.AccessToken = ""
		})

		It("does not call the gateway", func() {
			outcome, err := reconciler.Reconcile(ctx, paymentPkg.Notification{PaymentID: "999"})
			Expect(err).To(HaveOccurred())
			Expect(outcome).To(Equal(paymentPkg.OutcomeNotConfigured))
			Expect(gateway.fetched).To(BeEmpty())
		})
	})

	Describe("status downgrades", func() {
		stalePending := func() *paymentgatewaytypes.PaymentResource {
			r := approvedResource()
			r.Status = "pending"
			r.DateApproved = nil
			return r
		}

		It("lets the last delivery win by default", func() {
			_, err := reconciler.Reconcile(ctx, paymentPkg.Notification{PaymentID: "999"})
			Expect(err).NotTo(HaveOccurred())

			gateway.payment = stalePending()
			outcome, err := reconciler.Reconcile(ctx, paymentPkg.Notification{PaymentID: "999"})
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(paymentPkg.OutcomeReconciled))
			Expect(repo.all()[0].Status).To(Equal("pending"))
		})

		Context("when downgrades are ignored", func() {
			BeforeEach(func() {
				config.IgnoreStatusDowngrades = true
			})

			It("keeps the settled status", func() {
				_, err := reconciler.Reconcile(ctx, paymentPkg.Notification{PaymentID: "999"})
				Expect(err).NotTo(HaveOccurred())

				gateway.payment = stalePending()
				outcome, err := reconciler.Reconcile(ctx, paymentPkg.Notification{PaymentID: "999"})
				Expect(err).NotTo(HaveOccurred())
				Expect(outcome).To(Equal(paymentPkg.OutcomeDowngradeSkipped))
				row := repo.all()[0]
				Expect(row.Status).To(Equal("approved"))
				Expect(row.PaidAt).NotTo(BeNil())
			})

			It("still applies upgrades", func() {
				gateway.payment = stalePending()
				_, err := reconciler.Reconcile(ctx, paymentPkg.Notification{PaymentID: "999"})
				Expect(err).NotTo(HaveOccurred())

				gateway.payment = approvedResource()
				outcome, err := reconciler.Reconcile(ctx, paymentPkg.Notification{PaymentID: "999"})
				Expect(err).NotTo(HaveOccurred())
				Expect(outcome).To(Equal(paymentPkg.OutcomeReconciled))
				Expect(repo.all()[0].Status).To(Equal("approved"))
			})
		})
	})
})

var _ = Describe("IsDowngrade", func() {
	DescribeTable("status transitions",
		func(current, next string, expected bool) {
			Expect(paymentPkg.IsDowngrade(current, next)).To(Equal(expected))
		},
		Entry("approved to pending", "approved", "pending", true),
		Entry("approved to in_process", "approved", "in_process", true),
		Entry("refunded to approved", "refunded", "approved", true),
		Entry("pending to approved", "pending", "approved", false),
		Entry("pending to pending", "pending", "pending", false),
		Entry("approved to refunded", "approved", "refunded", false),
		Entry("in_process to pending", "in_process", "pending", false),
		Entry("unknown to anything", "unknown", "pending", false),
	)
})

var _ = Describe("IsPaymentTopic", func() {
	It("accepts empty and payment topics", func() {
		Expect(paymentPkg.IsPaymentTopic("")).To(BeTrue())
		Expect(paymentPkg.IsPaymentTopic("payment")).To(BeTrue())
		Expect(paymentPkg.IsPaymentTopic("merchant_order")).To(BeFalse())
	})
})
