package api

import (
	"net/http"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/apperrors"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/utils"
)

func (s *Server) listSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.deps.Schedules.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if schedules == nil {
		schedules = []model.ScheduleConfig{}
	}
	utils.WriteJSONResponse(w, http.StatusOK, schedules)
}

func (s *Server) createSchedule(w http.ResponseWriter, r *http.Request) {
	var in model.ScheduleInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	schedule, err := s.deps.Schedules.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, schedule)
}

func (s *Server) getSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := scheduleID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	schedule, err := s.deps.Schedules.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, schedule)
}

func (s *Server) updateSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := scheduleID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in model.ScheduleInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	schedule, err := s.deps.Schedules.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, schedule)
}

func (s *Server) deleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := scheduleID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Schedules.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// runSchedule reports a failed ingestion with its error status and the run record,
// since the run itself was counted.
func (s *Server) runSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := scheduleID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.deps.Schedules.Run(r.Context(), id)
	if err != nil {
		if out == nil {
			writeError(w, r, err)
			return
		}
		utils.WriteJSONResponse(w, apperrors.HTTPStatus(err), out)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, out)
}
