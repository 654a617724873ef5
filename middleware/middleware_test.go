package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"storefront/logging"
	"storefront/metrics"
	"storefront/models"
	"storefront/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(tokens *utils.TokenManager) *gin.Engine {
	r := gin.New()
	whoami := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": AccountID(c), "role": c.GetString(UserRoleKey)})
	}
	r.GET("/private", AuthMiddleware(tokens), whoami)
	r.GET("/optional", OptionalAuth(tokens), whoami)
	r.GET("/admin", AuthMiddleware(tokens), AdminMiddleware(), whoami)
	return r
}

func do(r http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	tokens := utils.NewTokenManager("secret", time.Hour)
	r := newTestRouter(tokens)

	token, err := tokens.GenerateToken(5, "a@example.com", models.RoleCustomer)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, do(r, "/private", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/private", "Token "+token).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/private", "Bearer garbage").Code)

	w := do(r, "/private", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":5,"role":"customer"}`, w.Body.String())

	other := utils.NewTokenManager("other-secret", time.Hour)
	forged, err := other.GenerateToken(5, "a@example.com", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/private", "Bearer "+forged).Code)
}

func TestOptionalAuth(t *testing.T) {
	tokens := utils.NewTokenManager("secret", time.Hour)
	r := newTestRouter(tokens)

	w := do(r, "/optional", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":0,"role":""}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(r, "/optional", "Bearer expired.or.bad").Code)

	token, err := tokens.GenerateToken(9, "b@example.com", models.RoleCustomer)
	require.NoError(t, err)
	w = do(r, "/optional", "Bearer "+token)
	assert.JSONEq(t, `{"user_id":9,"role":"customer"}`, w.Body.String())
}

func TestAdminMiddleware(t *testing.T) {
	tokens := utils.NewTokenManager("secret", time.Hour)
	r := newTestRouter(tokens)

	customer, _ := tokens.GenerateToken(1, "c@example.com", models.RoleCustomer)
	admin, _ := tokens.GenerateToken(2, "d@example.com", models.RoleAdmin)

	assert.Equal(t, http.StatusForbidden, do(r, "/admin", "Bearer "+customer).Code)
	assert.Equal(t, http.StatusOK, do(r, "/admin", "Bearer "+admin).Code)
}

func TestObservability(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	m := metrics.New()

	r := gin.New()
	r.Use(Observability(zap.New(core), m))
	r.GET("/items/:id", func(c *gin.Context) {
		logging.FromContext(c.Request.Context()).Info("inside handler")
		c.String(http.StatusOK, logging.RequestIDFromContext(c.Request.Context()))
	})

	req := httptest.NewRequest(http.MethodGet, "/items/1", nil)
	req.Header.Set(RequestIDHeader, "req-abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-abc", w.Body.String())
	assert.Equal(t, "req-abc", w.Header().Get(RequestIDHeader))

	entries := logs.FilterField(zap.String("request_id", "req-abc")).All()
	require.Len(t, entries, 2)
	assert.Equal(t, "inside handler", entries[0].Message)
	assert.Equal(t, "request completed", entries[1].Message)
	assert.Equal(t, "/items/:id", entries[1].ContextMap()["route"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	n, err := testutil.GatherAndCount(m.Registry(), "storefront_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"http://localhost:5173"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}
