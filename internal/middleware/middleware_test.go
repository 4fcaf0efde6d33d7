package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/neighborhood-exchange/internal/config"
	"github.com/iliyamo/neighborhood-exchange/internal/utils"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func serve(e *echo.Echo, method, path string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	const secret = "test-secret"
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"id": c.Get(ContextUserID)})
	}, JWTAuth(secret))

	good, _ := utils.NewAccessToken(secret, 17, 5)
	forged, _ := utils.NewAccessToken("other", 17, 5)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + good.Token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"wrong key", "Bearer " + forged.Token, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(e, http.MethodGet, "/me", map[string]string{echo.HeaderAuthorization: tc.header})
			if rec.Code != tc.want {
				t.Fatalf("status %d, want %d: %s", rec.Code, tc.want, rec.Body)
			}
			if tc.want == http.StatusOK && rec.Body.String() != "{\"id\":17}\n" {
				t.Fatalf("body %q", rec.Body)
			}
		})
	}
}

func TestTokenBucketBlocksAfterCapacity(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour,
		TTL: 2 * time.Hour, KeyStrategy: "ip", Prefix: "test:rl",
	}
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb))

	for i := 0; i < 2; i++ {
		if rec := serve(e, http.MethodGet, "/x", nil); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
	rec := serve(e, http.MethodGet, "/x", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: status %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" || rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("headers %v", rec.Header())
	}
}

func TestTokenBucketFailsOpen(t *testing.T) {
	mr, rdb := newRedis(t)
	mr.Close()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute, Prefix: "p"}
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb))
	for i := 0; i < 3; i++ {
		if rec := serve(e, http.MethodGet, "/x", nil); rec.Code != http.StatusNoContent {
			t.Fatalf("status %d with redis down", rec.Code)
		}
	}
}

func TestRateKeyUsesUser(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/resources", nil), httptest.NewRecorder())
	c.SetPath("/v1/resources")
	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user_route"}
	if got := buildRateKey(cfg, c); got != "rl:user:anon:route:GET /v1/resources" {
		t.Fatalf("anon key %q", got)
	}
	c.Set(ContextUserID, uint64(5))
	if got := buildRateKey(cfg, c); got != "rl:user:5:route:GET /v1/resources" {
		t.Fatalf("user key %q", got)
	}
}

func TestRedisCacheServesHit(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute,
		KeyStrategy: "route_query", Prefix: "test:cache", MaxBodyBytes: 1 << 10,
	}
	calls := 0
	e := echo.New()
	e.GET("/v1/home", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"calls": calls})
	}, NewRedisCache(cfg, rdb))

	first := serve(e, http.MethodGet, "/v1/home", nil)
	second := serve(e, http.MethodGet, "/v1/home", nil)
	if first.Header().Get("X-Cache") != "MISS" || second.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("X-Cache %q then %q", first.Header().Get("X-Cache"), second.Header().Get("X-Cache"))
	}
	if calls != 1 || second.Body.String() != first.Body.String() {
		t.Fatalf("calls=%d bodies %q vs %q", calls, first.Body, second.Body)
	}
	if ct := second.Header().Get(echo.HeaderContentType); ct != first.Header().Get(echo.HeaderContentType) {
		t.Fatalf("content type not restored: %q", ct)
	}

	third := serve(e, http.MethodGet, "/v1/home?page=2", nil)
	bypass := serve(e, http.MethodGet, "/v1/home", map[string]string{"Cache-Control": "no-cache"})
	if third.Header().Get("X-Cache") != "MISS" || bypass.Header().Get("X-Cache") != "MISS" || calls != 3 {
		t.Fatalf("query or no-cache served from cache (calls=%d)", calls)
	}
}

func TestRedisCacheSkipsErrors(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "c"}
	calls := 0
	e := echo.New()
	e.GET("/v1/reviews", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "boom"})
	}, NewRedisCache(cfg, rdb))
	serve(e, http.MethodGet, "/v1/reviews", nil)
	if rec := serve(e, http.MethodGet, "/v1/reviews", nil); rec.Header().Get("X-Cache") != "MISS" || calls != 2 {
		t.Fatalf("error response was cached")
	}
}
