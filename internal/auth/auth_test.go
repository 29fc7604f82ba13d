package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	token, exp, err := iss.Issue("host", []string{"operator", "supervisor"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := iss.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "host", claims.Operator)
	assert.Equal(t, []string{"operator", "supervisor"}, claims.Roles)
	assert.Equal(t, exp.Unix(), claims.Expires.Unix())
}

func TestParseRejects(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)

	other, _, err := NewIssuer("other", time.Hour).Issue("host", nil)
	require.NoError(t, err)
	_, err = iss.Parse(other)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong secret")

	expired := NewIssuer("secret", -time.Minute)
	old, _, err := expired.Issue("host", nil)
	require.NoError(t, err)
	_, err = iss.Parse(old)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "host"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = iss.Parse(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken, "alg none")

	noSub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	signed, err := noSub.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = iss.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken, "missing subject")
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	iss := NewIssuer("secret", time.Hour)

	r := gin.New()
	r.GET("/op", Middleware(iss), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextOperator))
	})
	r.GET("/super", Middleware(iss), RequireRole("supervisor"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	token, _, err := iss.Issue("host", []string{"operator"})
	require.NoError(t, err)

	cases := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"missing", "/op", "", http.StatusUnauthorized},
		{"not bearer", "/op", "Basic abc", http.StatusUnauthorized},
		{"garbage", "/op", "Bearer abc", http.StatusUnauthorized},
		{"valid", "/op", "Bearer " + token, http.StatusOK},
		{"missing role", "/super", "Bearer " + token, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, "host", w.Body.String())
			}
		})
	}
}
