package obs_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-apotek/internal/common"
	"github.com/noah-isme/backend-apotek/internal/obs"
)

func TestRequestLoggerRecordsPrincipalFromInnerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.WithContext(common.WithPrincipal(r.Context(), common.Principal{ID: "user-1", Role: "pharmacist"}))
		w.WriteHeader(http.StatusCreated)
	})
	handler := obs.RequestLogger{Logger: logger}.Middleware(inner)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/bills", nil))
	require.Equal(t, http.StatusCreated, rr.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "info", entry["level"])
	require.Equal(t, "user-1", entry["user_id"])
	require.Equal(t, "pharmacist", entry["role"])
	require.EqualValues(t, 201, entry["status"])
}

func TestRequestLoggerUsesErrorLevelForServerErrors(t *testing.T) {
	var buf bytes.Buffer
	handler := obs.RequestLogger{Logger: zerolog.New(&buf)}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/bills", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "error", entry["level"])
}

func TestRequestLoggerUsesWarnLevelForClientErrors(t *testing.T) {
	var buf bytes.Buffer
	handler := obs.RequestLogger{Logger: zerolog.New(&buf)}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/medicines/m1/stock", nil)
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/api/v1/medicines/{id}/stock"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "warn", entry["level"])
	require.Equal(t, "/api/v1/medicines/{id}/stock", entry["route"])
	require.NotContains(t, entry, "trace_id")
}
