package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/expensesync/expensesync/internal/model"
)

// internalTools names the pipeline steps this service itself provides,
// reported alongside the remote tools on the /tools endpoint.
var internalTools = []string{"extract_expense", "validate_expense", "record_expense"}

// handleProcessReceipt runs the full pipeline for one receipt email.
// The outcome is returned with status 200 even when processing failed;
// only a malformed request is a client error.
func (s *Server) handleProcessReceipt(w http.ResponseWriter, r *http.Request) {
	var receipt model.Receipt
	if err := json.NewDecoder(r.Body).Decode(&receipt); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(receipt.EmailBody) == "" {
		WriteError(w, http.StatusBadRequest, "email_body is required")
		return
	}

	s.logger.Info("processing receipt",
		"request_id", RequestIDFromContext(r.Context()),
		"subject", receipt.EmailSubject,
		"sender", receipt.Sender)

	outcome := s.engine.ProcessReceipt(r.Context(), receipt)

	WriteJSON(w, http.StatusOK, outcome)
}

// handleHealth reports basic liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"service":       "expensesync",
		"mcp_connected": s.mcpConnected(),
	})
}

// handleHealthDetailed reports per-component status and the orchestration
// configuration in effect.
func (s *Server) handleHealthDetailed(w http.ResponseWriter, _ *http.Request) {
	components := map[string]any{
		"extractor": map[string]any{
			"status":   "ok",
			"provider": s.providerName,
		},
		"validator": map[string]any{
			"status": "ok",
		},
		"recorder": map[string]any{
			"status": s.recorderStatus(),
			"kind":   s.recorderName,
		},
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"service":    "expensesync",
		"components": components,
		"mcp_tools":  s.mcpTools(),
		"orchestration": map[string]any{
			"max_attempts": s.engine.MaxAttempts(),
		},
	})
}

// handleTools lists the service's internal pipeline steps and the tools
// discovered on the MCP server.
func (s *Server) handleTools(w http.ResponseWriter, _ *http.Request) {
	mcpTools := s.mcpTools()

	WriteJSON(w, http.StatusOK, map[string]any{
		"internal_tools": internalTools,
		"mcp_tools":      mcpTools,
		"total":          len(internalTools) + len(mcpTools),
	})
}

func (s *Server) mcpConnected() bool {
	return s.mcpClient != nil && s.mcpClient.Connected()
}

func (s *Server) mcpTools() []string {
	if s.mcpClient == nil {
		return []string{}
	}
	return s.mcpClient.Tools()
}

func (s *Server) recorderStatus() string {
	switch {
	case s.recorderName == "none":
		return "disabled"
	case s.recorderName == "mcp" && !s.mcpConnected():
		return "disconnected"
	default:
		return "ok"
	}
}
