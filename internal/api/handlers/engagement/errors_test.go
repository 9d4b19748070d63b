package engagement

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Omnipost/internal/core/accounts"
	engagementCore "Omnipost/internal/core/engagement"
	"Omnipost/internal/core/platforms"
)

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"account not found", accounts.ErrAccountNotFound, http.StatusNotFound, "NotFound"},
		{"wrong cursor kind", engagementCore.ErrUnsupportedPagination, http.StatusBadRequest, "InvalidRequest"},
		{"malformed cursor", engagementCore.ErrMalformedCursor, http.StatusBadRequest, "InvalidRequest"},
		{"empty message", engagementCore.ErrEmptyMessage, http.StatusBadRequest, "InvalidRequest"},
		{"disabled account", accounts.ErrAccountDisabled, http.StatusBadRequest, "InvalidRequest"},
		{
			"expired platform auth",
			&platforms.PlatformError{Platform: platforms.PlatformFacebook, Class: platforms.ClassAuthExpired},
			http.StatusUnauthorized, "PlatformAuthFailed",
		},
		{
			"revoked platform auth",
			&platforms.PlatformError{Platform: platforms.PlatformYouTube, Class: platforms.ClassAuthRevoked},
			http.StatusUnauthorized, "PlatformAuthFailed",
		},
		{
			"platform outage",
			&platforms.PlatformError{Platform: platforms.PlatformTikTok, Class: platforms.ClassTransient, StatusCode: 503},
			http.StatusBadGateway, "PlatformUnavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handleServiceError(rr, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantError, resp.Error)
		})
	}
}
