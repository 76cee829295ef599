package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/retrieval-plane/services"
	"github.com/upb/retrieval-plane/services/providers"
	"github.com/upb/retrieval-plane/utils"
)

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
	}{
		{"not found", services.NewNotFoundError("action", "/retriever/x/y"), http.StatusNotFound, "not_found"},
		{"validation", services.ErrInvalidInput, http.StatusBadRequest, "bad_request"},
		{"unauthorized", services.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"duplicate", services.NewDuplicateRegistrationError("ollama/llama3"), http.StatusConflict, "conflict"},
		{"dimension mismatch", services.NewDimensionMismatchError(2, 3), http.StatusUnprocessableEntity, "unprocessable_entity"},
		{"invalid embedding", services.NewInvalidEmbeddingError("nan"), http.StatusUnprocessableEntity, "unprocessable_entity"},
		{"embedding failed", services.NewEmbeddingFailedError("embed", errors.New("down")), http.StatusBadGateway, "bad_gateway"},
		{"provider error", providers.NewProviderError("ollama", "SERVER_ERROR", "boom", 500, true, nil), http.StatusBadGateway, "bad_gateway"},
		{"external", services.WrapExternal("embedder failed", errors.New("x")), http.StatusBadGateway, "bad_gateway"},
		{"store unavailable", services.NewStoreUnavailableError("missing", nil), http.StatusServiceUnavailable, "service_unavailable"},
		{"store corrupt", services.NewStoreCorruptError("bad record", nil), http.StatusInternalServerError, "internal_error"},
		{"internal", services.WrapInternal("oops", nil), http.StatusInternalServerError, "internal_error"},
		{"unknown", errors.New("mystery"), http.StatusInternalServerError, "internal_error"},
		{"wrapped", fmt.Errorf("ctx: %w", services.NewNotFoundError("action", "x")), http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleServiceError(w, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, w.Code)
			var resp utils.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.expectedError, resp.Error)
		})
	}
}

func TestHandleServiceError_Details(t *testing.T) {
	w := httptest.NewRecorder()
	err := services.NewDimensionMismatchError(2, 3)
	HandleServiceError(w, err, zap.NewNop())

	var resp utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, float64(2), resp.Details["left"])
	assert.Equal(t, float64(3), resp.Details["right"])
}

func TestHandleServiceError_HidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()
	err := services.NewStoreCorruptError("row 7 of index secret-index", nil).WithDetail("id", "abc")
	HandleServiceError(w, err, zap.NewNop())

	assert.NotContains(t, w.Body.String(), "secret-index")
	assert.NotContains(t, w.Body.String(), "abc")
	assert.Equal(t, "abc", err.Details["id"])
}

func TestHandleServiceError_Nil(t *testing.T) {
	w := httptest.NewRecorder()
	HandleServiceError(w, nil, zap.NewNop())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestHandleValidationError(t *testing.T) {
	type req struct {
		Name string `validate:"required"`
	}
	err := utils.ValidateStruct(&req{})

	w := httptest.NewRecorder()
	HandleValidationError(w, err, zap.NewNop())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "Validation failed", resp.Message)
	assert.Equal(t, "Name is required", resp.Details["req.Name"])

	w = httptest.NewRecorder()
	HandleValidationError(w, errors.New("invalid JSON body"), zap.NewNop())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid JSON body")
}
