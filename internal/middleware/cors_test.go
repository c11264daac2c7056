package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestCORS_Allowlist(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://app.example.com", " "}))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, "https://app.example.com", resp.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Empty(t, resp.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/ping", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusNoContent, resp.Code)
}

func TestCORS_EmptyOrWildcardAllowsAll(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, list := range [][]string{nil, {"*"}, {"https://a.example.com", "*"}} {
		r := gin.New()
		r.Use(CORS(list))
		r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", "https://anything.example.com")
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		require.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, corsMethods, resp.Header().Get("Access-Control-Allow-Methods"))
	}
}
