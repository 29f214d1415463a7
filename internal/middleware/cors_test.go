package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func corsRequest(t *testing.T, allowedOrigins, method, origin string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS(allowedOrigins))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(method, "/ping", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORSEchoesListedOrigin(t *testing.T) {
	w := corsRequest(t, "https://app.nimbo.dev, https://staging.nimbo.dev", http.MethodGet, "https://staging.nimbo.dev")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://staging.nimbo.dev", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSOmitsHeaderForUnlistedOrigin(t *testing.T) {
	w := corsRequest(t, "https://app.nimbo.dev", http.MethodGet, "https://evil.example")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWildcardEchoesCaller(t *testing.T) {
	w := corsRequest(t, "*", http.MethodGet, "https://anywhere.example")
	assert.Equal(t, "https://anywhere.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = corsRequest(t, "*", http.MethodGet, "")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	w := corsRequest(t, "https://app.nimbo.dev", http.MethodOptions, "https://app.nimbo.dev")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.nimbo.dev", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Methods"))
}
