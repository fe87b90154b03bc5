package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/participa-vecinal/participa/pkg/helpers"
)

type jwtVerifier struct{ m *helpers.JWTManager }

func (v jwtVerifier) VerifySession(token string) (*helpers.Claims, error) { return v.m.Parse(token) }

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	_ = r.SetTrustedProxies(nil)
	r.Use(RequestIDMiddleware())
	r.GET("/whoami", append(mw, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": UserID(c), "real_ip": c.GetString("real_ip")})
	})...)
	return r
}

func TestAuthRequiresValidSessionCookie(t *testing.T) {
	m := helpers.NewJWTManager("secret", 0)
	r := newEngine(Auth(jwtVerifier{m}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"unauthorized"`)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: helpers.SessionCookie, Value: "garbage"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	tok, _, err := m.Generate(helpers.Claims{UsuarioID: 42, DNI: "30123456"})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: helpers.SessionCookie, Value: tok})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":42,"real_ip":""}`, w.Body.String())
}

func TestOptionalAuthLetsAnonymousThrough(t *testing.T) {
	r := newEngine(OptionalAuth(jwtVerifier{helpers.NewJWTManager("secret", 0)}))
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: helpers.SessionCookie, Value: "garbage"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":0,"real_ip":""}`, w.Body.String())
}

func TestRequestIDIsEchoed(t *testing.T) {
	r := newEngine()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	_, err := uuid.Parse(w.Header().Get(HeaderRequestID))
	assert.NoError(t, err)

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(HeaderRequestID, id)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, id, w.Header().Get(HeaderRequestID))
}

func TestRealIPHonoursProxyHeadersOnlyWhenTrusted(t *testing.T) {
	for _, tc := range []struct {
		trust bool
		want  string
	}{{true, "190.1.2.3"}, {false, "10.0.0.9"}} {
		r := newEngine(RealIP(tc.trust))
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.RemoteAddr = "10.0.0.9:5555"
		req.Header.Set("X-Forwarded-For", "190.1.2.3, 10.0.0.1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Contains(t, w.Body.String(), tc.want)
	}
}
