package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/socialagro/social-agro-backend/internal/payment"
)

var reconcileTimeout time.Duration

// reconcileCmd replays one Mercado Pago payment through the webhook
// reconciler, for notifications that were acknowledged but never processed.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile <mp-payment-id>",
	Short: "Reconcile one Mercado Pago payment",
	Long:  `Fetch a payment from Mercado Pago and apply its current state to the pagamentos table, exactly as the webhook would.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runReconcile,
}

func init() {
	reconcileCmd.Flags().DurationVar(&reconcileTimeout, "timeout", 30*time.Second, "maximum time to wait for the gateway and the database")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	deps, err := initializeDependencies(configPath)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, reconcileTimeout)
	defer cancel()

	notification := payment.Notification{Topic: "payment", PaymentID: args[0]}
	outcome, reconcileErr := deps.Reconciler.Reconcile(ctx, notification)

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer closeCancel()
	deps.Close(closeCtx)

	deps.Logger.Info("reconcile finished", "mp_payment_id", args[0], "outcome", outcome)
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], outcome)

	if reconcileErr != nil {
		return fmt.Errorf("reconcile %s: %w", args[0], reconcileErr)
	}
	if outcome != payment.OutcomeReconciled {
		return fmt.Errorf("payment %s was not reconciled: %s", args[0], outcome)
	}
	return nil
}
