package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"headless-cms/backend/internal/domain/user"
	response "headless-cms/backend/internal/infra/common"
	"headless-cms/backend/internal/infra/ratelimit"
	"headless-cms/backend/internal/infra/token"

	"github.com/gin-gonic/gin"
)

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append(mw, func(c *gin.Context) {
		id, _ := UserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id, "is_admin": IsAdmin(c), "caps": Capabilities(c)})
	})
	r.GET("/whoami", handlers...)
	return r
}

func TestAuthMiddleware(t *testing.T) {
	manager := token.NewJWTManager("test-secret", time.Minute)
	engine := newEngine(NewAuthMiddleware(manager).Handle())

	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("missing header should be 401, got %d", recorder.Code)
	}
	var body response.Response
	_ = json.Unmarshal(recorder.Body.Bytes(), &body)
	if body.Error == nil || body.Error.Code != response.ErrUnauthorized {
		t.Fatalf("unexpected body %s", recorder.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	recorder = httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token should be 401, got %d", recorder.Code)
	}

	raw, _, err := manager.Issue(&user.User{ID: 5, Username: "editor"}, user.Capabilities{CreateContent: true})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "bearer "+raw)
	recorder = httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("valid token should pass, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var identity struct {
		UserID uint              `json:"user_id"`
		Caps   user.Capabilities `json:"caps"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &identity); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if identity.UserID != 5 || !identity.Caps.CreateContent || identity.Caps.DeleteContent {
		t.Fatalf("unexpected identity %+v", identity)
	}
}

func TestLocalAuthGrantsEverything(t *testing.T) {
	engine := newEngine(NewLocalAuthMiddleware(1, true).Handle())
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	var identity struct {
		UserID  uint              `json:"user_id"`
		IsAdmin bool              `json:"is_admin"`
		Caps    user.Capabilities `json:"caps"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &identity); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if identity.UserID != 1 || !identity.IsAdmin || identity.Caps != user.AllCapabilities() {
		t.Fatalf("unexpected identity %+v", identity)
	}
}

func TestRateLimitGuard(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter()
	engine := newEngine(
		NewLocalAuthMiddleware(9, false).Handle(),
		RateLimit(limiter, ratelimit.Policy{Limit: 1, Window: time.Minute}, "bulk", nil),
	)

	first := httptest.NewRecorder()
	engine.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if first.Code != http.StatusOK || first.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("first request should pass, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	engine.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request should be limited, got %d", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	if count, _ := limiter.Peek(ratelimit.Key("bulk", 9)); count != 2 {
		t.Fatalf("unexpected counter %d", count)
	}

	open := newEngine(RateLimit(limiter, ratelimit.Policy{}, "bulk", nil))
	recorder := httptest.NewRecorder()
	open.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("disabled policy should pass, got %d", recorder.Code)
	}
}
