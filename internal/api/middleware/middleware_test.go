package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

const secret = "s3cret"

func sign(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return "Bearer " + s
}

func adminEngine(opts JWTOptions) *gin.Engine {
	r := gin.New()
	r.GET("/x", JWTAuth(opts), RequireAdmin(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id"))
	})
	return r
}

func TestJWTAuth(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	admin := jwt.MapClaims{"sub": "op", "exp": exp, "app_metadata": map[string]any{"role": "Admin"}}

	tests := []struct {
		name   string
		opts   JWTOptions
		header string
		want   int
	}{
		{"admin", JWTOptions{Secret: secret}, sign(t, secret, admin), http.StatusOK},
		{"no header", JWTOptions{Secret: secret}, "", http.StatusUnauthorized},
		{"wrong key", JWTOptions{Secret: secret}, sign(t, "other", admin), http.StatusUnauthorized},
		{"expired", JWTOptions{Secret: secret}, sign(t, secret, jwt.MapClaims{"sub": "op", "exp": time.Now().Add(-time.Hour).Unix()}), http.StatusUnauthorized},
		{"no subject", JWTOptions{Secret: secret}, sign(t, secret, jwt.MapClaims{"exp": exp}), http.StatusUnauthorized},
		{"default role", JWTOptions{Secret: secret}, sign(t, secret, jwt.MapClaims{"sub": "op", "exp": exp}), http.StatusForbidden},
		{"issuer mismatch", JWTOptions{Secret: secret, Issuer: "karaoke"}, sign(t, secret, admin), http.StatusUnauthorized},
		{"disabled", JWTOptions{}, sign(t, secret, admin), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			adminEngine(tt.opts).ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			if tt.want == http.StatusOK {
				assert.Equal(t, "op", w.Body.String())
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})

	r := gin.New()
	r.Use(RequestLogger(l))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/song/:key", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	req := httptest.NewRequest(http.MethodGet, "/api/song/nope", nil)
	req.Header.Set("X-Request-Id", "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-1", w.Header().Get("X-Request-Id"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "warning", line["level"])
	assert.Equal(t, "/api/song/:key", line["path"])
	assert.Equal(t, "req-1", line["request_id"])

	buf.Reset()
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	assert.Empty(t, buf.String(), "health checks log at debug")
}
