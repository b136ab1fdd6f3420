package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reseller-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubTokenService validates exactly one known token string.
type stubTokenService struct {
	token  string
	claims *ports.TokenClaims
}

func (s *stubTokenService) Generate(actorID uuid.UUID, role string) (string, time.Time, error) {
	return s.token, time.Now().Add(time.Hour), nil
}

func (s *stubTokenService) Validate(tokenString string) (*ports.TokenClaims, error) {
	if tokenString == s.token {
		return s.claims, nil
	}
	return nil, assert.AnError
}

func newAuthRouter(tokenSvc ports.TokenService, extra ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	handlers := append([]gin.HandlerFunc{JWTAuth(tokenSvc, zerolog.Nop())}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})
	router.GET("/test", handlers...)
	return router
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	router := newAuthRouter(&stubTokenService{token: "good"})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_MalformedHeader(t *testing.T) {
	router := newAuthRouter(&stubTokenService{token: "good"})

	for _, header := range []string{"good", "Basic good", "Bearer"} {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q must be rejected", header)
	}
}

func TestJWTAuth_InvalidToken(t *testing.T) {
	router := newAuthRouter(&stubTokenService{token: "good"})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer bad")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_001")
}

func TestJWTAuth_Success(t *testing.T) {
	actorID := uuid.New()
	tokenSvc := &stubTokenService{
		token:  "good",
		claims: &ports.TokenClaims{ActorID: actorID, Role: "store"},
	}

	var capturedID uuid.UUID
	var capturedRole string
	router := gin.New()
	router.GET("/test", JWTAuth(tokenSvc, zerolog.Nop()), func(c *gin.Context) {
		id, _ := c.Get(CtxActorID)
		capturedID = id.(uuid.UUID)
		role, _ := c.Get(CtxRole)
		capturedRole = role.(string)
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, actorID, capturedID)
	assert.Equal(t, "store", capturedRole)
}

func TestRequireRole_RejectsOtherRoles(t *testing.T) {
	tokenSvc := &stubTokenService{
		token:  "store-token",
		claims: &ports.TokenClaims{ActorID: uuid.New(), Role: "store"},
	}
	router := newAuthRouter(tokenSvc, RequireRole(RoleAdmin))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer store-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole_AllowsMatchingRole(t *testing.T) {
	tokenSvc := &stubTokenService{
		token:  "admin-token",
		claims: &ports.TokenClaims{ActorID: uuid.New(), Role: RoleAdmin},
	}
	router := newAuthRouter(tokenSvc, RequireRole(RoleAdmin))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMaxBodySize(t *testing.T) {
	router := gin.New()
	router.Use(MaxBodySize(16))
	router.POST("/test", func(c *gin.Context) {
		if _, err := c.GetRawData(); err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "body too large"})
			return
		}
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBufferString(`{"a":1}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/test", bytes.NewBufferString(`{"a":"0123456789012345678901234567890123456789"}`))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRecovery_PanicRecovered(t *testing.T) {
	router := gin.New()
	router.Use(Recovery(zerolog.Nop()))
	router.GET("/panic", func(c *gin.Context) {
		panic("something went wrong")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "SYS_001", resp["error_code"])
}
