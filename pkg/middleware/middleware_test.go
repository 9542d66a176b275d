package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prohmpiriya/wedding-venue-booking/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestIdempotency_ReplaysCompletedResponse(t *testing.T) {
	calls := 0
	router := gin.New()
	router.POST("/pay", Idempotency(DefaultIdempotencyConfig(newFakeRedis())), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusCreated, gin.H{"call": calls})
	})

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/pay", bytes.NewBufferString(body))
		req.Header.Set(IdempotencyKeyHeader, "key-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	first := send(`{"amount":100}`)
	second := send(`{"amount":100}`)

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("X-Idempotent-Replay"))
	assert.Equal(t, 1, calls)

	reused := send(`{"amount":200}`)
	assert.Equal(t, http.StatusUnprocessableEntity, reused.Code)
}

func TestIdempotency_WithoutKeyPassesThrough(t *testing.T) {
	calls := 0
	router := gin.New()
	router.POST("/pay", Idempotency(DefaultIdempotencyConfig(newFakeRedis())), func(c *gin.Context) {
		calls++
		c.Status(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/pay", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, 2, calls)
}

func TestIdempotency_RequireKey(t *testing.T) {
	cfg := DefaultIdempotencyConfig(newFakeRedis())
	cfg.RequireKey = true

	router := gin.New()
	router.POST("/pay", Idempotency(cfg), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/pay", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIdempotency_ServerErrorsAreNotCached(t *testing.T) {
	calls := 0
	router := gin.New()
	router.POST("/pay", Idempotency(DefaultIdempotencyConfig(newFakeRedis())), func(c *gin.Context) {
		calls++
		if calls == 1 {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})

	for _, want := range []int{http.StatusInternalServerError, http.StatusOK} {
		req := httptest.NewRequest(http.MethodPost, "/pay", nil)
		req.Header.Set(IdempotencyKeyHeader, "key-2")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code)
	}
}

func signToken(t *testing.T, secret string, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func authRouter(cfg *AuthConfig) *gin.Engine {
	router := gin.New()
	router.GET("/me", Auth(cfg), func(c *gin.Context) {
		id, _ := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id, "role": GetRole(c), "internal": IsInternal(c)})
	})
	return router
}

func TestAuth_BearerToken(t *testing.T) {
	cfg := &AuthConfig{Secret: "s3cret", Issuer: "wedding-identity"}
	token := signToken(t, "s3cret", &Claims{
		UserID: "client-1",
		Role:   RoleClient,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "wedding-identity",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	authRouter(cfg).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":"client-1"`)
}

func TestAuth_Rejects(t *testing.T) {
	cfg := &AuthConfig{Secret: "s3cret"}
	expired := signToken(t, "s3cret", &Claims{
		UserID:           "client-1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	})
	wrongKey := signToken(t, "other", &Claims{UserID: "client-1"})

	tests := map[string]string{
		"missing header": "",
		"not bearer":     "Basic abc",
		"expired":        "Bearer " + expired,
		"wrong key":      "Bearer " + wrongKey,
	}

	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			authRouter(cfg).ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuth_TrustedHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(UserIDHeader, "ops-1")
	req.Header.Set(RoleHeader, RoleInternal)
	w := httptest.NewRecorder()
	authRouter(&AuthConfig{Secret: "s", TrustHeaders: true}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"internal":true`)
}

func TestRequestID_PropagatesCorrelationID(t *testing.T) {
	var seen string
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) {
		seen = logger.CorrelationID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "corr-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "corr-42", seen)
	assert.Equal(t, "corr-42", w.Header().Get(RequestIDHeader))
}
