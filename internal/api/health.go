package api

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/outreach-metrics-service/pkg/utils"
)

// handleHealth handles the /health endpoint for liveness probes
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSONResponse(w, http.StatusOK, HealthResponse{
		Status:  "UP",
		Version: s.deps.Version,
	})
}

// handleReady handles the /ready endpoint for readiness probes. The database must
// answer a ping and, when JetStream ingestion is on, NATS must be connected.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	details := map[string]string{
		"timestamp": utils.FormatISO8601(s.now()),
	}
	ready := true

	if s.deps.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.deps.DB.Ping(ctx); err != nil {
			ready = false
			details["database"] = err.Error()
			s.logger.Warn("Readiness check: database unreachable", zap.Error(err))
		} else {
			details["database"] = "ok"
		}
	}
	if s.deps.NATS != nil {
		if s.deps.NATS.IsConnected() {
			details["nats"] = "ok"
		} else {
			ready = false
			details["nats"] = "disconnected"
		}
	}

	if !ready {
		utils.WriteJSONResponse(w, http.StatusServiceUnavailable, HealthResponse{Status: "NOT_READY", Details: details})
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, HealthResponse{Status: "READY", Details: details})
}
