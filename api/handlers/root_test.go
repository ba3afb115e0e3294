package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHandleRoot(t *testing.T) {
	h := NewRootHandler("student@example.com", true, true, zap.NewNop())

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.HandleRoot(w, r)

	assert.Equal(t, http.StatusOK, w.Code)

	var info ServiceInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "LLM Quiz Solver", info.Service)
	assert.Equal(t, "running", info.Status)
	assert.Contains(t, info.Endpoints, "POST /quiz")
	assert.Equal(t, "student@example.com", info.Configuration.Email)
	assert.True(t, info.Configuration.SecretConfigured)
	assert.True(t, info.Ready)

	// 密钥本身不能出现在应答里
	assert.NotContains(t, w.Body.String(), "secret\":")
}

func TestHandleRootNotReadyWithoutAPIKey(t *testing.T) {
	h := NewRootHandler("student@example.com", true, false, zap.NewNop())

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.HandleRoot(w, r)

	var info ServiceInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.False(t, info.Ready)
	assert.False(t, info.Configuration.APIKeyConfigured)
}

func TestHandleRootUnknownPath(t *testing.T) {
	h := NewRootHandler("student@example.com", true, true, zap.NewNop())

	r := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	h.HandleRoot(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
