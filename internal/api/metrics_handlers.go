package api

import (
	"net/http"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/utils"
)

func (s *Server) createMetricSample(w http.ResponseWriter, r *http.Request) {
	payload, err := readPayload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sample, err := s.deps.Ingest.RecordMetricSample(r.Context(), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, sample)
}

// latestMetricSample answers null when nothing was recorded yet.
func (s *Server) latestMetricSample(w http.ResponseWriter, r *http.Request) {
	sample, err := s.deps.Query.LatestMetricSample(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, sample)
}

func (s *Server) metricSamplesInRange(w http.ResponseWriter, r *http.Request) {
	rng, err := s.dateRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	samples, err := s.deps.Query.MetricSamplesInRange(r.Context(), rng)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if samples == nil {
		samples = []model.MetricSample{}
	}
	utils.WriteJSONResponse(w, http.StatusOK, samples)
}

func (s *Server) metricsSummary(w http.ResponseWriter, r *http.Request) {
	rng, err := s.dateRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.deps.Query.MetricsSummary(r.Context(), rng)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, summary)
}

func (s *Server) listActivities(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := s.deps.Query.RecentActivity(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []model.ActivityLogEntry{}
	}
	utils.WriteJSONResponse(w, http.StatusOK, entries)
}

func (s *Server) createActivity(w http.ResponseWriter, r *http.Request) {
	payload, err := readPayload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := s.deps.Ingest.RecordActivity(r.Context(), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, entry)
}
