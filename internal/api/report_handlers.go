package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/usecase"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/utils"
)

const recentNewsletterLimit = 50

func (s *Server) agentLeadsRoutes(channel model.Channel) func(chi.Router) {
	return func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			payload, err := readPayload(w, r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			report, err := s.deps.Ingest.IngestAgentLeads(r.Context(), channel, payload, usecase.SourceAPI)
			if err != nil {
				writeError(w, r, err)
				return
			}
			utils.WriteJSONResponse(w, http.StatusCreated, report)
		})

		// null when the channel has no reports yet
		r.Get("/latest", func(w http.ResponseWriter, r *http.Request) {
			report, err := s.deps.Query.LatestAgentLeads(r.Context(), channel)
			if err != nil {
				writeError(w, r, err)
				return
			}
			utils.WriteJSONResponse(w, http.StatusOK, report)
		})

		r.Get("/range", func(w http.ResponseWriter, r *http.Request) {
			rng, err := s.dateRange(r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			reports, err := s.deps.Query.AgentLeadsInRange(r.Context(), channel, rng)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if reports == nil {
				reports = []model.AgentLeadsReport{}
			}
			utils.WriteJSONResponse(w, http.StatusOK, reports)
		})
	}
}

// listNewsletters returns recent campaigns newest first, or the ascending range
// when bounds are given.
func (s *Server) listNewsletters(w http.ResponseWriter, r *http.Request) {
	var (
		reports []model.NewsletterCampaignReport
		err     error
	)
	if hasDateRange(r) {
		rng, rangeErr := s.dateRange(r)
		if rangeErr != nil {
			writeError(w, r, rangeErr)
			return
		}
		reports, err = s.deps.Query.NewslettersInRange(r.Context(), rng)
	} else {
		limit, limitErr := queryLimit(r)
		if limitErr != nil {
			writeError(w, r, limitErr)
			return
		}
		if limit == 0 {
			limit = recentNewsletterLimit
		}
		reports, err = s.deps.Query.RecentNewsletters(r.Context(), limit)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	if reports == nil {
		reports = []model.NewsletterCampaignReport{}
	}
	utils.WriteJSONResponse(w, http.StatusOK, reports)
}

func (s *Server) latestNewsletter(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Query.LatestNewsletter(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, report)
}

func (s *Server) createNewsletter(w http.ResponseWriter, r *http.Request) {
	payload, err := readPayload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.deps.Ingest.IngestNewsletter(r.Context(), payload, usecase.SourceAPI)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, report)
}

func (s *Server) seedNewsletters(w http.ResponseWriter, r *http.Request) {
	reports, err := s.deps.Ingest.SeedNewsletterSamples(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, reports)
}

// triggerWebhook accepts an optional {channel} body. The target is always the
// configured upstream; a webhookUrl in the body is rejected.
func (s *Server) triggerWebhook(w http.ResponseWriter, r *http.Request) {
	var in usecase.TriggerInput
	if err := decodeJSON(w, r, &in, true); err != nil {
		writeError(w, r, err)
		return
	}
	in.Source = usecase.SourceWebhook

	result, err := s.deps.Ingest.TriggerWebhook(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, result)
}
