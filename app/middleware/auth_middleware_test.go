package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirphl/estatedesk/app/services"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing-32-chars"

func newTokenService(t *testing.T, accessTTL time.Duration) services.TokenService {
	t.Helper()
	ts, err := services.NewTokenService(accessTTL, time.Hour, "estatedesk", "estatedesk-admin", false, "", "", testSecret)
	require.NoError(t, err)
	return ts
}

func protectedApp(ts services.TokenService) *fiber.App {
	app := fiber.New()
	app.Get("/private", NewAuthMiddleware(ts).AdminAuthenticate(), func(c fiber.Ctx) error {
		adminID, ok := GetAdminIDFromContext(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		claims, ok := GetTokenClaimsFromContext(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(fiber.Map{"admin_id": adminID, "token_type": claims.TokenType})
	})
	return app
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Error.Code
}

func TestAdminAuthenticate(t *testing.T) {
	ts := newTokenService(t, 15*time.Minute)
	access, refresh, err := ts.GenerateAdminTokens(3)
	require.NoError(t, err)

	revokedAccess, _, err := ts.GenerateAdminTokens(4)
	require.NoError(t, err)
	require.NoError(t, ts.RevokeToken(revokedAccess))

	expiredTS := newTokenService(t, -time.Minute)
	expiredAccess, _, err := expiredTS.GenerateAdminTokens(3)
	require.NoError(t, err)

	otherTS, err := services.NewTokenService(time.Hour, time.Hour, "estatedesk", "estatedesk-admin", false, "", "", "a-completely-different-secret-key-xx")
	require.NoError(t, err)
	foreignAccess, _, err := otherTS.GenerateAdminTokens(3)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{name: "valid access token", header: "Bearer " + access, wantStatus: fiber.StatusOK},
		{name: "missing header", header: "", wantStatus: fiber.StatusUnauthorized, wantCode: "MISSING_AUTHORIZATION_HEADER"},
		{name: "wrong scheme", header: "Basic " + access, wantStatus: fiber.StatusUnauthorized, wantCode: "INVALID_AUTHORIZATION_FORMAT"},
		{name: "empty bearer", header: "Bearer   ", wantStatus: fiber.StatusUnauthorized, wantCode: "MISSING_ACCESS_TOKEN"},
		{name: "bare scheme", header: "Bearer", wantStatus: fiber.StatusUnauthorized, wantCode: "MISSING_ACCESS_TOKEN"},
		{name: "refresh token", header: "Bearer " + refresh, wantStatus: fiber.StatusUnauthorized, wantCode: "TOKEN_INVALID"},
		{name: "revoked token", header: "Bearer " + revokedAccess, wantStatus: fiber.StatusUnauthorized, wantCode: "TOKEN_REVOKED"},
		{name: "expired token", header: "Bearer " + expiredAccess, wantStatus: fiber.StatusUnauthorized, wantCode: "TOKEN_EXPIRED"},
		{name: "foreign signature", header: "Bearer " + foreignAccess, wantStatus: fiber.StatusUnauthorized, wantCode: "TOKEN_INVALID"},
		{name: "garbage", header: "Bearer not.a.jwt", wantStatus: fiber.StatusUnauthorized, wantCode: "TOKEN_INVALID"},
	}

	app := protectedApp(ts)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, resp))
				return
			}

			var body struct {
				AdminID   uint   `json:"admin_id"`
				TokenType string `json:"token_type"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, uint(3), body.AdminID)
			assert.Equal(t, services.TokenTypeAccess, body.TokenType)
		})
	}
}
