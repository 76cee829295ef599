package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/retrieval-plane/services"
	"github.com/upb/retrieval-plane/services/providers"
	"github.com/upb/retrieval-plane/utils"
)

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := make(map[string]interface{})
	for k, v := range services.GetErrorDetails(err) {
		details[k] = v
	}
	status, message := statusFor(err)

	switch {
	case status >= http.StatusInternalServerError && status != http.StatusBadGateway && status != http.StatusServiceUnavailable:
		logger.Error("request failed",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		details = map[string]interface{}{}
	case status >= http.StatusInternalServerError:
		logger.Warn("dependency failure", zap.Error(err))
	default:
		logger.Debug("handled service error", zap.Error(err), zap.Any("details", details))
	}

	for k, v := range utils.GetValidationFields(err) {
		details[k] = v
	}

	if writeErr := utils.WriteError(w, status, message, nonEmpty(details)); writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}
}

// statusFor picks the status and client-facing message for err.
func statusFor(err error) (int, string) {
	var provErr *providers.ProviderError

	switch {
	case services.IsNotFoundError(err):
		return http.StatusNotFound, err.Error()
	case services.IsValidationError(err), utils.IsValidationError(err):
		return http.StatusBadRequest, err.Error()
	case services.IsUnauthorizedError(err):
		return http.StatusUnauthorized, err.Error()
	case services.IsDuplicateRegistrationError(err):
		return http.StatusConflict, err.Error()
	case services.IsDimensionMismatchError(err), services.IsInvalidEmbeddingError(err):
		return http.StatusUnprocessableEntity, err.Error()
	case services.IsEmbeddingFailedError(err), services.IsExternalError(err):
		return http.StatusBadGateway, err.Error()
	case errors.As(err, &provErr):
		return http.StatusBadGateway, err.Error()
	case services.IsStoreUnavailableError(err):
		return http.StatusServiceUnavailable, err.Error()
	case services.IsStoreCorruptError(err):
		return http.StatusInternalServerError, "document store is corrupt"
	default:
		return http.StatusInternalServerError, "An internal error occurred"
	}
}

func nonEmpty(m map[string]interface{}) map[string]interface{} {
	if len(m) == 0 {
		return nil
	}
	return m
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{})
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
