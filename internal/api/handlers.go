package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/neositio/flowbot/internal/flow"
	"github.com/neositio/flowbot/internal/models"
)

// maxFlowDocumentBytes caps the accepted flow document size.
const maxFlowDocumentBytes = 1 << 20

// flowsHandler serves and replaces the flow document.
//
// GET returns the document verbatim so the editor round-trips unknown
// whitespace-insensitive content. PUT validates the submitted definitions by
// building a catalog from them and only then replaces the file.
func (s *Server) flowsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.getFlows(w, r)
	case http.MethodPut, http.MethodPost:
		s.putFlows(w, r)
	default:
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("method not allowed"))
	}
}

func (s *Server) getFlows(w http.ResponseWriter, _ *http.Request) {
	data, err := os.ReadFile(s.flowsPath)
	if err != nil {
		slog.Error("api: failed to read flow document", "path", s.flowsPath, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to read flow document"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Error("api: failed to write flow document", "error", err)
	}
}

func (s *Server) putFlows(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxFlowDocumentBytes))
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("failed to read request body"))
		return
	}
	var defs models.FlowSet
	if err := json.Unmarshal(body, &defs); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid flow document: "+err.Error()))
		return
	}
	if _, err := flow.NewCatalog(defs); err != nil {
		writeJSONResponse(w, http.StatusUnprocessableEntity, models.Error("flow validation failed: "+err.Error()))
		return
	}
	if err := os.WriteFile(s.flowsPath, body, 0o644); err != nil {
		slog.Error("api: failed to write flow document", "path", s.flowsPath, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to persist flow document"))
		return
	}
	slog.Info("api: flow document replaced", "path", s.flowsPath, "flows", len(defs))
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("flow document saved; restart to apply", nil))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("method not allowed"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("ok", nil))
}
