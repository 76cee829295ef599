package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/retrieval-plane/services"
	"github.com/upb/retrieval-plane/services/providers"
	"github.com/upb/retrieval-plane/utils"
)

// ActionsResponse lists registry entries.
type ActionsResponse struct {
	Actions []providers.ActionDescriptor `json:"actions"`
}

// ActionsHandler exposes the provider registry read-only.
type ActionsHandler struct {
	registry *providers.Registry
	logger   *zap.Logger
}

func NewActionsHandler(registry *providers.Registry, logger *zap.Logger) *ActionsHandler {
	return &ActionsHandler{registry: registry, logger: logger}
}

// HandleList handles GET /v1/actions?kind=
func (h *ActionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	kind := providers.ActionKind(r.URL.Query().Get("kind"))
	if kind != "" && !kind.Valid() {
		HandleServiceError(w, services.NewValidationError("unknown action kind: "+string(kind), nil), h.logger)
		return
	}

	if err := utils.WriteOK(w, ActionsResponse{Actions: h.registry.List(kind)}); err != nil {
		h.logger.Error("failed to write actions response", zap.Error(err))
	}
}
