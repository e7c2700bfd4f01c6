package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songtrybe/youtube-metadata-cache/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(keys []string) *gin.Engine {
	r := gin.New()
	r.Use(NewAPIKeyAuth(keys, nil).Handler())
	r.GET("/api/v1/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestNewAPIKeyAuth(t *testing.T) {
	t.Parallel()

	t.Run("creates auth with valid keys", func(t *testing.T) {
		t.Parallel()

		auth := NewAPIKeyAuth([]string{"key1", "key2", "key3"}, nil)

		require.NotNil(t, auth)
		assert.Len(t, auth.apiKeys, 3)
		assert.True(t, auth.apiKeys["key2"])
	})

	t.Run("filters out empty keys", func(t *testing.T) {
		t.Parallel()

		auth := NewAPIKeyAuth([]string{"key1", "", "key2", ""}, nil)

		assert.Len(t, auth.apiKeys, 2)
	})

	t.Run("uses nop logger when nil", func(t *testing.T) {
		t.Parallel()

		auth := NewAPIKeyAuth([]string{"key1"}, nil)
		require.NotNil(t, auth.logger)
	})
}

func TestAPIKeyAuth_Handler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		keys       []string
		headers    map[string]string
		wantStatus int
	}{
		{
			name:       "valid X-API-Key header",
			keys:       []string{"secret"},
			headers:    map[string]string{"X-API-Key": "secret"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "valid bearer token",
			keys:       []string{"secret"},
			headers:    map[string]string{"Authorization": "Bearer secret"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "second of several keys",
			keys:       []string{"one", "two", "three"},
			headers:    map[string]string{"X-API-Key": "two"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "X-API-Key wins over Authorization",
			keys:       []string{"secret"},
			headers:    map[string]string{"X-API-Key": "wrong", "Authorization": "Bearer secret"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing key",
			keys:       []string{"secret"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong key",
			keys:       []string{"secret"},
			headers:    map[string]string{"X-API-Key": "secreT"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "basic auth is not accepted",
			keys:       []string{"secret"},
			headers:    map[string]string{"Authorization": "Basic secret"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "no keys configured rejects everything",
			headers:    map[string]string{"X-API-Key": "anything"},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()

			newAuthRouter(tt.keys).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				var resp models.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, "Unauthorized", resp.Error)
				assert.Equal(t, "/api/v1/ping", resp.Path)
			} else {
				assert.Equal(t, "pong", w.Body.String())
			}
		})
	}
}

func TestExtractAPIKey(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, extractAPIKey(req))

	req.Header.Set("Authorization", "Bearer abc")
	assert.Equal(t, "abc", extractAPIKey(req))

	req.Header.Set("X-API-Key", "xyz")
	assert.Equal(t, "xyz", extractAPIKey(req))
}
