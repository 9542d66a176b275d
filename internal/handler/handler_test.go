package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prohmpiriya/wedding-venue-booking/internal/domain"
	"github.com/prohmpiriya/wedding-venue-booking/internal/gateway"
	"github.com/prohmpiriya/wedding-venue-booking/internal/repository"
	"github.com/prohmpiriya/wedding-venue-booking/internal/service"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_handler"

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	t       *testing.T
	store   *repository.MemoryStore
	effects *service.SideEffects
	router  *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	store := repository.NewMemoryStore()
	effects := service.NewSideEffects()
	t.Cleanup(effects.Wait)

	bookings := service.NewBookingService(store, nil, effects)
	payments := service.NewPaymentService(store, gateway.NewTestGateway("pk_test"), gateway.NewHMACVerifier(testWebhookSecret),
		nil, service.NewInvoiceService(store), effects, nil, nil)
	cancellations := service.NewCancellationService(store, nil, effects, nil)
	availability := service.NewAvailabilityService(store)

	bookingHandler := NewBookingHandler(bookings, cancellations)
	paymentHandler := NewPaymentHandler(payments)
	webhookHandler := NewWebhookHandler(payments, nil)
	availabilityHandler := NewAvailabilityHandler(availability)

	router := gin.New()
	v1 := router.Group("/api/v1")
	v1.POST("/webhooks/payments", webhookHandler.HandlePaymentWebhook)
	v1.POST("/webhooks/stripe", webhookHandler.HandleStripeWebhook)

	authed := v1.Group("")
	authed.Use(middleware.Auth(&middleware.AuthConfig{Secret: "test", TrustHeaders: true}))
	authed.POST("/bookings", bookingHandler.CreateBooking)
	authed.GET("/bookings/:id", bookingHandler.GetBooking)
	authed.POST("/bookings/:id/cancel", bookingHandler.CancelBooking)
	authed.POST("/payments/initiate", paymentHandler.InitiatePayment)
	authed.POST("/payments/:id/confirm", paymentHandler.ConfirmPayment)
	authed.GET("/payments/:id", paymentHandler.GetPayment)
	authed.POST("/venues/:id/availability", availabilityHandler.BlockDates)
	authed.GET("/venues/:id/availability", availabilityHandler.ListBlocks)

	return &testServer{t: t, store: store, effects: effects, router: router}
}

func (s *testServer) seed(clientID, vendorID string, daysAhead int) (*domain.Wedding, *domain.Venue) {
	s.t.Helper()
	w := domain.NewWedding(clientID, time.Now().UTC().AddDate(0, 0, daysAhead), "Jaipur", 200, 1500000)
	v := domain.NewVenue(vendorID, "Amber Courtyard", 300, 100000)
	require.NoError(s.t, s.store.Execute(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		if err := tx.Weddings().Create(ctx, w); err != nil {
			return err
		}
		return tx.Venues().Create(ctx, v)
	}))
	return w, v
}

func (s *testServer) do(method, path, userID string, body any, headers ...string) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(middleware.UserIDHeader, userID)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestCreateBooking(t *testing.T) {
	s := newTestServer(t)
	wedding, venue := s.seed("client-1", "vendor-1", 60)
	body := map[string]string{"wedding_id": wedding.ID, "venue_id": venue.ID}

	w, env := s.do(http.MethodPost, "/api/v1/bookings", "client-1", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	booking := decode[map[string]any](t, env.Data)
	assert.Equal(t, "pending", booking["status"])
	assert.Equal(t, wedding.EventDate.Format(domain.DateLayout), booking["event_date"])

	other, _ := s.seed("client-2", "vendor-2", 60)
	w, env = s.do(http.MethodPost, "/api/v1/bookings", "client-2", map[string]string{"wedding_id": other.ID, "venue_id": venue.ID})
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VENUE_UNAVAILABLE", env.Error.Code)
}

func TestCreateBooking_Errors(t *testing.T) {
	s := newTestServer(t)
	wedding, venue := s.seed("client-1", "vendor-1", 60)

	tests := []struct {
		name   string
		userID string
		body   any
		want   int
	}{
		{"unauthenticated", "", map[string]string{"wedding_id": wedding.ID, "venue_id": venue.ID}, http.StatusUnauthorized},
		{"missing fields", "client-1", map[string]string{"wedding_id": wedding.ID}, http.StatusBadRequest},
		{"malformed json", "client-1", []byte(`{"wedding_id":`), http.StatusBadRequest},
		{"not owner", "client-9", map[string]string{"wedding_id": wedding.ID, "venue_id": venue.ID}, http.StatusForbidden},
		{"unknown venue", "client-1", map[string]string{"wedding_id": wedding.ID, "venue_id": uuid.NewString()}, http.StatusNotFound},
		{"malformed venue id", "client-1", map[string]string{"wedding_id": wedding.ID, "venue_id": "nope"}, http.StatusBadRequest},
		{"malformed wedding id", "client-1", map[string]string{"wedding_id": "abc", "venue_id": venue.ID}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := s.do(http.MethodPost, "/api/v1/bookings", tt.userID, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestPaymentFlow_InitiateConfirmCancel(t *testing.T) {
	s := newTestServer(t)
	wedding, venue := s.seed("client-1", "vendor-1", 45)

	w, env := s.do(http.MethodPost, "/api/v1/bookings", "client-1", map[string]string{"wedding_id": wedding.ID, "venue_id": venue.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	bookingID := decode[map[string]any](t, env.Data)["id"].(string)

	w, env = s.do(http.MethodPost, "/api/v1/payments/initiate", "client-1", map[string]any{"booking_id": bookingID, "amount": 100000})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	initiated := decode[service.InitiateResult](t, env.Data)
	assert.True(t, initiated.TestMode)
	assert.Equal(t, "pk_test", initiated.ProviderKey)

	w, _ = s.do(http.MethodPost, "/api/v1/payments/"+initiated.PaymentID+"/confirm", "vendor-1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(http.MethodPost, "/api/v1/payments/"+initiated.PaymentID+"/confirm", "client-1", map[string]string{})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	confirmed := decode[map[string]any](t, env.Data)
	assert.Equal(t, false, confirmed["already_processed"])

	w, env = s.do(http.MethodGet, "/api/v1/bookings/"+bookingID, "vendor-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "confirmed", decode[map[string]any](t, env.Data)["status"])

	w, env = s.do(http.MethodGet, "/api/v1/payments/"+initiated.PaymentID, "client-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", decode[map[string]any](t, env.Data)["status"])

	w, env = s.do(http.MethodPost, "/api/v1/bookings/"+bookingID+"/cancel", "client-1", map[string]string{"reason": "moved abroad"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cancelled := decode[service.CancellationResult](t, env.Data)
	assert.Equal(t, 100000.0, cancelled.RefundAmount)
	assert.Equal(t, "initiated", cancelled.RefundStatus)

	w, env = s.do(http.MethodPost, "/api/v1/bookings/"+bookingID+"/cancel", "client-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "BOOKING_NOT_CANCELLABLE", env.Error.Code)
}

func TestInitiatePayment_Validation(t *testing.T) {
	s := newTestServer(t)
	wedding, _ := s.seed("client-1", "vendor-1", 45)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"no payable", map[string]any{"amount": 100}, http.StatusBadRequest},
		{"both payables", map[string]any{"amount": 100, "wedding_id": wedding.ID, "booking_id": uuid.NewString()}, http.StatusBadRequest},
		{"malformed booking id", map[string]any{"amount": 100, "booking_id": "b"}, http.StatusBadRequest},
		{"unknown booking", map[string]any{"amount": 100, "booking_id": uuid.NewString()}, http.StatusNotFound},
		{"zero amount", map[string]any{"amount": 0, "wedding_id": wedding.ID}, http.StatusBadRequest},
		{"negative amount", map[string]any{"amount": -5, "wedding_id": wedding.ID}, http.StatusBadRequest},
		{"wedding payment", map[string]any{"amount": 2500, "wedding_id": wedding.ID}, http.StatusCreated},
		{"same payment again", map[string]any{"amount": 2500, "wedding_id": wedding.ID}, http.StatusCreated},
		{"pending payment differs", map[string]any{"amount": 4000, "wedding_id": wedding.ID}, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := s.do(http.MethodPost, "/api/v1/payments/initiate", "client-1", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestPaymentWebhook(t *testing.T) {
	s := newTestServer(t)
	wedding, venue := s.seed("client-1", "vendor-1", 45)
	_, env := s.do(http.MethodPost, "/api/v1/bookings", "client-1", map[string]string{"wedding_id": wedding.ID, "venue_id": venue.ID})
	bookingID := decode[map[string]any](t, env.Data)["id"].(string)
	_, env = s.do(http.MethodPost, "/api/v1/payments/initiate", "client-1", map[string]any{"booking_id": bookingID, "amount": 5000})
	initiated := decode[service.InitiateResult](t, env.Data)

	payload := []byte(fmt.Sprintf(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_wh1","order_id":%q}}}}`, initiated.OrderRef))
	sig := gateway.Sign(testWebhookSecret, payload)

	w, _ := s.do(http.MethodPost, "/api/v1/webhooks/payments", "", payload, DefaultSignatureHeader, "deadbeef")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = s.do(http.MethodPost, "/api/v1/webhooks/payments", "", payload, DefaultSignatureHeader, sig)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode[service.WebhookResult](t, env.Data)
	assert.True(t, first.Success)
	assert.False(t, first.AlreadyProcessed)

	w, env = s.do(http.MethodPost, "/api/v1/webhooks/payments", "", payload, DefaultSignatureHeader, sig)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[service.WebhookResult](t, env.Data).AlreadyProcessed)

	w, _ = s.do(http.MethodPost, "/api/v1/webhooks/stripe", "", payload, StripeSignatureHeader, "t=1,v1=abc")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// authentic but missing the provider payment id: acknowledged so it is not redelivered
	incomplete := []byte(fmt.Sprintf(`{"event":"payment.captured","payload":{"payment":{"entity":{"order_id":%q}}}}`, initiated.OrderRef))
	w, env = s.do(http.MethodPost, "/api/v1/webhooks/payments", "", incomplete, DefaultSignatureHeader, gateway.Sign(testWebhookSecret, incomplete))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[service.WebhookResult](t, env.Data).Ignored)
}

func TestMalformedPathIDs(t *testing.T) {
	s := newTestServer(t)
	s.seed("client-1", "vendor-1", 45)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"get booking", http.MethodGet, "/api/v1/bookings/abc", http.StatusNotFound},
		{"cancel booking", http.MethodPost, "/api/v1/bookings/abc/cancel", http.StatusNotFound},
		{"get payment", http.MethodGet, "/api/v1/payments/abc", http.StatusNotFound},
		{"confirm payment", http.MethodPost, "/api/v1/payments/not-a-uuid/confirm", http.StatusNotFound},
		{"list blocks", http.MethodGet, "/api/v1/venues/abc/availability?from=2030-01-01&to=2030-01-02", http.StatusNotFound},
		{"block dates", http.MethodPost, "/api/v1/venues/abc/availability", http.StatusNotFound},
		{"unknown booking", http.MethodGet, "/api/v1/bookings/" + uuid.NewString(), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.do(tt.method, tt.path, "client-1", nil)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			require.NotNil(t, env.Error)
			assert.Equal(t, "NOT_FOUND", env.Error.Code)
		})
	}
}

func TestAvailabilityEndpoints(t *testing.T) {
	s := newTestServer(t)
	_, venue := s.seed("client-1", "vendor-1", 45)
	path := "/api/v1/venues/" + venue.ID + "/availability"

	w, _ := s.do(http.MethodPost, path, "vendor-1", map[string]string{"start_date": "2030-05-01", "end_date": "2030-05-03", "note": "festival"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, _ = s.do(http.MethodPost, path, "vendor-1", map[string]string{"start_date": "2030-05-03", "end_date": "2030-05-04"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(http.MethodPost, path, "client-1", map[string]string{"start_date": "2030-06-01", "end_date": "2030-06-01"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodPost, path, "vendor-1", map[string]string{"start_date": "2030-06-02", "end_date": "2030-06-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := s.do(http.MethodGet, path+"?from=2030-04-30&to=2030-05-31", "client-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	listed := decode[struct {
		Blocks []map[string]any `json:"blocks"`
	}](t, env.Data)
	require.Len(t, listed.Blocks, 1)
	assert.Equal(t, "vendor_block", listed.Blocks[0]["reason"])

	w, _ = s.do(http.MethodGet, path+"?from=bad&to=2030-05-31", "client-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	type dayStatus struct {
		VenueID   string `json:"venue_id"`
		Date      string `json:"date"`
		Available bool   `json:"available"`
	}
	w, env = s.do(http.MethodGet, path+"?date=2030-05-02", "client-1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	blocked := decode[dayStatus](t, env.Data)
	assert.Equal(t, venue.ID, blocked.VenueID)
	assert.Equal(t, "2030-05-02", blocked.Date)
	assert.False(t, blocked.Available)

	w, env = s.do(http.MethodGet, path+"?date=2030-05-05", "client-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[dayStatus](t, env.Data).Available)

	w, _ = s.do(http.MethodGet, path+"?date=05/05/2030", "client-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/venues/"+uuid.NewString()+"/availability?date=2030-05-05", "client-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type failingChecker struct{ err error }

func (f failingChecker) HealthCheck(ctx context.Context) error { return f.err }

func TestHealthHandler(t *testing.T) {
	router := gin.New()
	healthy := NewHealthHandler(map[string]HealthChecker{"database": failingChecker{}, "redis": nil})
	broken := NewHealthHandler(map[string]HealthChecker{"database": failingChecker{err: errors.New("connection refused")}})
	router.GET("/health", healthy.Health)
	router.GET("/ready", healthy.Ready)
	router.GET("/ready-broken", broken.Ready)

	for path, want := range map[string]int{"/health": http.StatusOK, "/ready": http.StatusOK, "/ready-broken": http.StatusServiceUnavailable} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, w.Code, path)
	}
}

func TestRespondError_HidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	respondError(c, errors.New("pq: password authentication failed for user app"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
}
