package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prohmpiriya/wedding-venue-booking/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSignWebhook_FromStdin(t *testing.T) {
	body := `{"event":"payment.captured"}`

	out, err := run(t, body, "sign-webhook", "--secret", "whsec_local")
	require.NoError(t, err)

	sig := strings.TrimSpace(out)
	assert.True(t, gateway.VerifySignature("whsec_local", []byte(body), sig))
}

func TestSignWebhook_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event.json")
	body := []byte(`{"event":"payment.failed"}`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	out, err := run(t, "", "sign-webhook", "--secret", "whsec_local", "-f", path)
	require.NoError(t, err)
	assert.Equal(t, gateway.Sign("whsec_local", body), strings.TrimSpace(out))
}

func TestSignWebhook_CapturedOrder(t *testing.T) {
	out, err := run(t, "", "sign-webhook", "--secret", "whsec_local", "--order", "order_test_1", "--payment", "pay_9", "--print-body")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)

	event, err := gateway.NewHMACVerifier("whsec_local").ParseEvent([]byte(lines[0]), lines[1])
	require.NoError(t, err)
	assert.Equal(t, gateway.EventPaymentCaptured, event.Type)
	assert.Equal(t, "order_test_1", event.OrderRef)
	assert.Equal(t, "pay_9", event.ProviderPaymentRef)
}

func TestSignWebhook_SecretFromEnv(t *testing.T) {
	t.Setenv("PAYMENT_WEBHOOK_SECRET", "whsec_env")

	out, err := run(t, "{}", "sign-webhook")
	require.NoError(t, err)
	assert.Equal(t, gateway.Sign("whsec_env", []byte("{}")), strings.TrimSpace(out))
}

func TestSignWebhook_Errors(t *testing.T) {
	t.Setenv("PAYMENT_WEBHOOK_SECRET", "")

	_, err := run(t, "{}", "sign-webhook")
	assert.ErrorContains(t, err, "secret is required")

	_, err = run(t, "", "sign-webhook", "--secret", "s")
	assert.ErrorContains(t, err, "body is empty")
}

func TestMigrate_DryRunPrintsSchema(t *testing.T) {
	out, err := run(t, "", "migrate", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE")
}
