package payment_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	paymentPkg "github.com/socialagro/social-agro-backend/internal/payment"
	"github.com/socialagro/social-agro-backend/pkg/logger"
)

type recordingReconciler struct {
	mu      sync.Mutex
	seen    []paymentPkg.Notification
	block   chan struct{}
	panicOn string
}

func (r *recordingReconciler) Reconcile(ctx context.Context, n paymentPkg.Notification) (paymentPkg.Outcome, error) {
	if r.block != nil {
		<-r.block
	}
	if n.PaymentID == r.panicOn {
		panic("reconcile exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, n)
	return paymentPkg.OutcomeReconciled, nil
}

func (r *recordingReconciler) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.seen))
	for _, n := range r.seen {
		out = append(out, n.PaymentID)
	}
	return out
}

var _ = Describe("Dispatcher", func() {
	var (
		reconciler *recordingReconciler
		dispatcher *paymentPkg.Dispatcher
	)

	BeforeEach(func() {
		reconciler = &recordingReconciler{}
	})

	AfterEach(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = dispatcher.Shutdown(ctx)
	})

	It("processes queued notifications on the worker pool", func() {
		dispatcher = paymentPkg.NewDispatcher(reconciler, paymentPkg.DispatcherConfig{MaxWorkers: 2, QueueSize: 10}, nil, logger.Discard())
		dispatcher.Start()

		for _, id := range []string{"1", "2", "3"} {
			Expect(dispatcher.Enqueue(paymentPkg.NotificationJob{Notification: paymentPkg.Notification{PaymentID: id}})).To(BeTrue())
		}

		Eventually(reconciler.ids).Should(ConsistOf("1", "2", "3"))
	})

	It("drops jobs when the queue is full", func() {
		reconciler.block = make(chan struct{})
		dispatcher = paymentPkg.NewDispatcher(reconciler, paymentPkg.DispatcherConfig{MaxWorkers: 1, QueueSize: 1}, nil, logger.Discard())

		Expect(dispatcher.Enqueue(paymentPkg.NotificationJob{Notification: paymentPkg.Notification{PaymentID: "1"}})).To(BeTrue())
		Expect(dispatcher.Enqueue(paymentPkg.NotificationJob{Notification: paymentPkg.Notification{PaymentID: "2"}})).To(BeFalse())
		close(reconciler.block)
	})

	It("survives a panicking reconciliation", func() {
		reconciler.panicOn = "boom"
		dispatcher = paymentPkg.NewDispatcher(reconciler, paymentPkg.DispatcherConfig{MaxWorkers: 1, QueueSize: 10}, nil, logger.Discard())
		dispatcher.Start()

		Expect(dispatcher.Enqueue(paymentPkg.NotificationJob{Notification: paymentPkg.Notification{PaymentID: "boom"}})).To(BeTrue())
		Expect(dispatcher.Enqueue(paymentPkg.NotificationJob{Notification: paymentPkg.Notification{PaymentID: "after"}})).To(BeTrue())

		Eventually(reconciler.ids).Should(ConsistOf("after"))
	})

	It("drains the queue on shutdown and then refuses new jobs", func() {
		dispatcher = paymentPkg.NewDispatcher(reconciler, paymentPkg.DispatcherConfig{MaxWorkers: 1, QueueSize: 10}, nil, logger.Discard())
		dispatcher.Start()
		for _, id := range []string{"1", "2"} {
			Expect(dispatcher.Enqueue(paymentPkg.NotificationJob{Notification: paymentPkg.Notification{PaymentID: id}})).To(BeTrue())
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		Expect(dispatcher.Shutdown(ctx)).To(Succeed())
		Expect(reconciler.ids()).To(ConsistOf("1", "2"))
		Expect(dispatcher.Enqueue(paymentPkg.NotificationJob{Notification: paymentPkg.Notification{PaymentID: "3"}})).To(BeFalse())
	})
})
