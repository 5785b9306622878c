package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAssetPathRejectsEscape(t *testing.T) {
	s := &Server{AssetRoot: "/srv/assets"}

	resolved, err := s.resolveAssetPath("sticker.png")
	require.NoError(t, err)
	assert.Equal(t, "/srv/assets/sticker.png", resolved)

	_, err = s.resolveAssetPath("../../etc/passwd")
	assert.Error(t, err)
}

func TestHealthEndpointIsUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := &Server{
		Jobs:      NewJobStore(),
		AssetRoot: t.TempDir(),
		JWTSecret: []byte("test-secret"),
		RateRPS:   100,
		RateBurst: 100,
	}
	router := s.Router()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPostNestRequiresBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := &Server{
		Jobs:      NewJobStore(),
		AssetRoot: t.TempDir(),
		JWTSecret: []byte("test-secret"),
		RateRPS:   100,
		RateBurst: 100,
	}
	router := s.Router()

	req := httptest.NewRequest(http.MethodPost, "/nest", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetNestUnknownJobIs404(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := &Server{
		Jobs:      NewJobStore(),
		AssetRoot: t.TempDir(),
		JWTSecret: []byte("test-secret"),
		RateRPS:   100,
		RateBurst: 100,
	}
	router := s.Router()

	token := mustSignTestToken(t, s.JWTSecret)
	req := httptest.NewRequest(http.MethodGet, "/nest/does-not-exist", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
