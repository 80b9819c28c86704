package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func newAuthApp() *fiber.App {
	app := fiber.New()
	app.Use(Authenticate(testSecret))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		userID, ok := CurrentUserID(c)
		return c.JSON(fiber.Map{"userID": userID, "authenticated": ok})
	})
	app.Get("/create/", LoginRequired(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/api/private", APIAuthRequired(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestIssueAndParseToken(t *testing.T) {
	token, err := IssueToken(testSecret, 42, time.Hour)
	require.NoError(t, err)

	userID, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)

	_, err = ParseToken("another-secret", token)
	assert.Error(t, err)

	expired, err := IssueToken(testSecret, 42, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(testSecret, expired)
	assert.Error(t, err)
}

func TestParseToken_RejectsNonHMAC(t *testing.T) {
	claims := jwt.MapClaims{"sub": "1", "exp": time.Now().Add(time.Hour).Unix()}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	s, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseToken(testSecret, s)
	assert.Error(t, err)
}

func TestAuthenticate(t *testing.T) {
	app := newAuthApp()
	valid, _ := IssueToken(testSecret, 123, time.Hour)

	tests := []struct {
		name       string
		header     string
		cookie     string
		wantUserID uint
		wantAuth   bool
	}{
		{name: "bearer header", header: "Bearer " + valid, wantUserID: 123, wantAuth: true},
		{name: "cookie", cookie: valid, wantUserID: 123, wantAuth: true},
		{name: "anonymous"},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz"},
		{name: "malformed token", header: "Bearer malformed.token.here"},
		{name: "subject not numeric", header: "Bearer " + signRaw(t, jwt.MapClaims{"sub": "abc", "exp": time.Now().Add(time.Hour).Unix()})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: tt.cookie})
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			var body struct {
				UserID        uint `json:"userID"`
				Authenticated bool `json:"authenticated"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantAuth, body.Authenticated)
			assert.Equal(t, tt.wantUserID, body.UserID)
		})
	}
}

func TestLoginRequired_RedirectsWithNext(t *testing.T) {
	app := newAuthApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/create/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/auth/login/?next=/create/", resp.Header.Get("Location"))

	token, _ := IssueToken(testSecret, 1, time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/create/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAPIAuthRequired(t *testing.T) {
	app := newAuthApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/private", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestLoginURL(t *testing.T) {
	assert.Equal(t, "/auth/login/", LoginURL(""))
	assert.Equal(t, "/auth/login/?next=/posts/1/edit/", LoginURL("/posts/1/edit/"))
	assert.Equal(t, "/auth/login/?next=/follow/%3Fpage%3D2", LoginURL("/follow/?page=2"))
}

func signRaw(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

