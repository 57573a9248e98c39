package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/apperrors"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/usecase"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/logger"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/utils"
)

var errBodyTooLarge = errors.New("request body too large")

// readBody reads at most maxBodyBytes. An empty body yields nil.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errBodyTooLarge
		}
		return nil, fmt.Errorf("%w: failed to read request body: %v", apperrors.ErrBadRequest, err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}
	return body, nil
}

// readPayload reads a required JSON object body.
func readPayload(w http.ResponseWriter, r *http.Request) (model.RawPayload, error) {
	body, err := readBody(w, r)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, fmt.Errorf("%w: request body is required", apperrors.ErrValidation)
	}
	return model.ParsePayload(body)
}

// decodeJSON reads a typed body. An empty body leaves dst untouched when optional.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, optional bool) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	if body == nil {
		if optional {
			return nil
		}
		return fmt.Errorf("%w: request body is required", apperrors.ErrValidation)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", apperrors.ErrValidation, err)
	}
	return nil
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errBodyTooLarge) {
		utils.WriteJSONError(w, http.StatusRequestEntityTooLarge, "payload_too_large", err.Error())
		return
	}

	status := apperrors.HTTPStatus(err)
	message := err.Error()
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", zap.Int("status", status), zap.Error(err))
		if status == http.StatusInternalServerError {
			message = "failed to process request"
		}
	} else {
		log.Debug("Request rejected", zap.Int("status", status), zap.Error(err))
	}
	utils.WriteJSONError(w, status, apperrors.Kind(err), message)
}

// dateRange reads ?preset= or ?startDate=&endDate= from the query string.
func (s *Server) dateRange(r *http.Request) (usecase.DateRange, error) {
	q := r.URL.Query()
	if preset := q.Get("preset"); preset != "" {
		return usecase.ResolvePreset(preset, s.now())
	}
	return usecase.ParseDateRange(q.Get("startDate"), q.Get("endDate"))
}

func hasDateRange(r *http.Request) bool {
	q := r.URL.Query()
	return q.Get("preset") != "" || q.Get("startDate") != "" || q.Get("endDate") != ""
}

// queryLimit parses ?limit=. Absent means 0, which storage turns into its default.
func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: limit must be an integer, got %q", apperrors.ErrValidation, raw)
	}
	if limit < 0 {
		return 0, fmt.Errorf("%w: limit must not be negative", apperrors.ErrValidation)
	}
	return limit, nil
}

func scheduleID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid schedule id %q", apperrors.ErrValidation, raw)
	}
	return id, nil
}
