package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prohmpiriya/wedding-venue-booking/internal/gateway"
	"github.com/spf13/cobra"
)

// capturedBody builds a payment.captured payload for orderRef
func capturedBody(orderRef, paymentRef string) ([]byte, error) {
	return json.Marshal(map[string]any{
		"event": gateway.EventPaymentCaptured,
		"payload": map[string]any{
			"payment": map[string]any{
				"entity": map[string]any{
					"id":       paymentRef,
					"order_id": orderRef,
				},
			},
		},
	})
}

func signWebhookCmd() *cobra.Command {
	var (
		secret     string
		file       string
		orderRef   string
		paymentRef string
		printBody  bool
	)

	cmd := &cobra.Command{
		Use:   "sign-webhook",
		Short: "Sign a payment webhook body with the shared secret",
		Long: `Print the hex HMAC-SHA256 signature for a webhook body.

The body is read from --file, from stdin, or built as a payment.captured
event when --order is given. The secret defaults to PAYMENT_WEBHOOK_SECRET.

Examples:
  weddingctl sign-webhook --order order_test_ab12 --payment pay_1
  weddingctl sign-webhook --file event.json --secret whsec_local`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("PAYMENT_WEBHOOK_SECRET")
			}
			if secret == "" {
				return errors.New("a secret is required: pass --secret or set PAYMENT_WEBHOOK_SECRET")
			}

			var (
				body []byte
				err  error
			)
			switch {
			case orderRef != "":
				if paymentRef == "" {
					paymentRef = "pay_" + orderRef
				}
				body, err = capturedBody(orderRef, paymentRef)
			case file != "":
				body, err = os.ReadFile(file)
			default:
				body, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("failed to read body: %w", err)
			}
			if len(body) == 0 {
				return errors.New("webhook body is empty")
			}

			out := cmd.OutOrStdout()
			if printBody {
				fmt.Fprintln(out, string(body))
			}
			fmt.Fprintln(out, gateway.Sign(secret, body))
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "webhook secret (default $PAYMENT_WEBHOOK_SECRET)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the body from a file")
	cmd.Flags().StringVar(&orderRef, "order", "", "build a payment.captured body for this provider order")
	cmd.Flags().StringVar(&paymentRef, "payment", "", "provider payment id for --order")
	cmd.Flags().BoolVar(&printBody, "print-body", false, "print the body on the line before the signature")
	return cmd
}
