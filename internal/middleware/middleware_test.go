package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/config"
	"github.com/iliyamo/hotel-reservation/internal/idempotency"
	"github.com/iliyamo/hotel-reservation/internal/utils"
)

const secret = "mw-secret"

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func bearer(t *testing.T, id uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, id, role, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func TestJWTAuthAndRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/admin", func(c echo.Context) error {
		id, ok := UserID(c)
		require.True(t, ok)
		return c.JSON(http.StatusOK, echo.Map{"id": id, "role": Role(c)})
	}, JWTAuth(secret), RequireRole("ADMIN"))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", bearer(t, 7, "GUEST"))
	assert.Equal(t, http.StatusForbidden, serve(e, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", bearer(t, 7, "ADMIN"))
	rec := serve(e, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7,"role":"ADMIN"}`, rec.Body.String())
}

func TestTokenBucketFallsBackToLocalLimiter(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		KeyStrategy:    "ip",
		Prefix:         "test:rl",
	}
	e := echo.New()
	e.GET("/rooms", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		NewTokenBucket(cfg, nil, zap.NewNop()))

	hit := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
		req.RemoteAddr = ip + ":1234"
		return serve(e, req)
	}
	assert.Equal(t, http.StatusOK, hit("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, hit("10.0.0.1").Code)
	limited := hit("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, hit("10.0.0.2").Code, "buckets are per client")
}

func TestTokenBucketDisabled(t *testing.T) {
	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil, zap.NewNop()))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
}

type memBackend struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memBackend) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (m *memBackend) Get(_ context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memBackend) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func (m *memBackend) Del(_ context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestIdempotencyReplaysCompletedRequest(t *testing.T) {
	store := idempotency.New(&memBackend{data: map[string]string{}}, time.Hour)
	calls := 0
	e := echo.New()
	e.POST("/reservations", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusCreated, echo.Map{"id": calls})
	}, JWTAuth(secret), Idempotency(store, zap.NewNop()))

	send := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/reservations", nil)
		req.Header.Set("Authorization", bearer(t, 1, "GUEST"))
		if key != "" {
			req.Header.Set(HeaderIdempotencyKey, key)
		}
		return serve(e, req)
	}

	first := send("abc")
	require.Equal(t, http.StatusCreated, first.Code)
	second := send("abc")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	send("")
	send("other")
	assert.Equal(t, 3, calls)
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	store := idempotency.New(&memBackend{data: map[string]string{}}, time.Hour)
	calls := 0
	e := echo.New()
	e.POST("/reservations", func(c echo.Context) error {
		calls++
		if calls == 1 {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "boom"})
		}
		return c.JSON(http.StatusCreated, echo.Map{"ok": true})
	}, Idempotency(store, zap.NewNop()))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/reservations", nil)
		req.Header.Set(HeaderIdempotencyKey, "k")
		serve(e, req)
	}
	assert.Equal(t, 2, calls)
}
