package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/upb/retrieval-plane/internal/observability"
	"github.com/upb/retrieval-plane/models"
	"github.com/upb/retrieval-plane/services"
	"github.com/upb/retrieval-plane/services/providers"
	"github.com/upb/retrieval-plane/utils"
)

// RetrievalHandler invokes registered model, retriever, indexer and embedder
// actions over HTTP. The action name is {provider}/{name} from the path.
type RetrievalHandler struct {
	registry *providers.Registry
	logger   *zap.Logger
}

func NewRetrievalHandler(registry *providers.Registry, logger *zap.Logger) *RetrievalHandler {
	return &RetrievalHandler{registry: registry, logger: logger}
}

func actionName(r *http.Request) string {
	return chi.URLParam(r, "provider") + "/" + chi.URLParam(r, "name")
}

// HandleRetrieve handles POST /v1/retrievers/{provider}/{name}/retrieve
func (h *RetrievalHandler) HandleRetrieve(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context(), h.logger)
	name := actionName(r)

	retrieve, err := h.registry.LookupRetriever(name)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	var req providers.RetrieveRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, logger)
		return
	}
	if err := utils.ValidateStruct(&req.Query); err != nil {
		HandleValidationError(w, err, logger)
		return
	}

	resp, err := retrieve(r.Context(), &req)
	if err != nil {
		HandleServiceError(w, err, logger.With(zap.String("retriever", name)))
		return
	}
	if resp.Documents == nil {
		resp.Documents = []models.Document{}
	}

	if err := utils.WriteOK(w, resp); err != nil {
		logger.Error("failed to write retrieve response", zap.Error(err))
	}
}

// HandleIndex handles POST /v1/indexers/{provider}/{name}/index
func (h *RetrievalHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context(), h.logger)
	name := actionName(r)

	index, err := h.registry.LookupIndexer(name)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	var req providers.IndexRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, logger)
		return
	}

	resp, err := index(r.Context(), &req)
	if err != nil {
		HandleServiceError(w, err, logger.With(zap.String("indexer", name)))
		return
	}

	if err := utils.WriteOK(w, resp); err != nil {
		logger.Error("failed to write index response", zap.Error(err))
	}
}

// HandleEmbed handles POST /v1/embedders/{provider}/{name}/embed
func (h *RetrievalHandler) HandleEmbed(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context(), h.logger)
	name := actionName(r)

	embed, err := h.registry.LookupEmbedder(name)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	var req providers.EmbedRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, logger)
		return
	}

	resp, err := embed(r.Context(), &req)
	if err != nil {
		HandleServiceError(w, services.WrapExternal("embedder "+name+" failed", err), logger)
		return
	}

	if err := utils.WriteOK(w, resp); err != nil {
		logger.Error("failed to write embed response", zap.Error(err))
	}
}

// HandleGenerate handles POST /v1/models/{provider}/{name}/generate
func (h *RetrievalHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context(), h.logger)
	name := actionName(r)

	generate, err := h.registry.LookupModel(name)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	var req providers.GenerateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, logger)
		return
	}

	resp, err := generate(r.Context(), &req)
	if err != nil {
		HandleServiceError(w, services.WrapExternal("model "+name+" failed", err), logger)
		return
	}

	if err := utils.WriteOK(w, resp); err != nil {
		logger.Error("failed to write generate response", zap.Error(err))
	}
}
