package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleHealthz().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[HealthResponse](t, rec).Status)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestHandleReadyz(t *testing.T) {
	ok := HealthCheckFunc(func(context.Context) error { return nil })
	down := HealthCheckFunc(func(context.Context) error { return errors.New("dial tcp: refused") })

	t.Run("all healthy", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HandleReadyz(map[string]HealthChecker{"chain": ok, "indexer": ok}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[HealthResponse](t, rec)
		assert.Equal(t, map[string]string{"chain": "ok", "indexer": "ok"}, resp.Checks)
	})

	t.Run("one dependency down", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HandleReadyz(map[string]HealthChecker{"chain": ok, "indexer": down}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		resp := decode[HealthResponse](t, rec)
		assert.Equal(t, "unavailable", resp.Status)
		assert.Equal(t, "dial tcp: refused", resp.Checks["indexer"])
		assert.Equal(t, "ok", resp.Checks["chain"])
	})

	t.Run("probe honours deadline", func(t *testing.T) {
		var hadDeadline bool
		probe := HealthCheckFunc(func(ctx context.Context) error {
			_, hadDeadline = ctx.Deadline()
			return nil
		})
		rec := httptest.NewRecorder()
		HandleReadyz(map[string]HealthChecker{"journal": probe}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.True(t, hadDeadline)
	})
}

func TestHandleVersion(t *testing.T) {
	t.Setenv("VERSION", "")
	rec := httptest.NewRecorder()
	HandleVersion().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[VersionInfo](t, rec)
	assert.Equal(t, "dev", info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestGetVersion_Env(t *testing.T) {
	t.Setenv("VERSION", "1.2.3")
	assert.Equal(t, "1.2.3", GetVersion())
}

func TestFormatValidationError_NonValidator(t *testing.T) {
	assert.Nil(t, FormatValidationError(nil))
	assert.Equal(t, map[string]string{"error": "Invalid request format"}, FormatValidationError(errors.New("x")))
}
