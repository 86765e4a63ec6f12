// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/kisanlabs/agroadvisor/internal/advisor"
	"github.com/kisanlabs/agroadvisor/internal/providers"
	"github.com/kisanlabs/agroadvisor/internal/validation"
)

// Handler serves the advisory HTTP endpoints.
type Handler struct {
	svc     *advisor.Service
	weather providers.WeatherProvider
	log     zerolog.Logger
	started time.Time
}

// NewHandler wires the engine and its weather collaborator into the
// HTTP layer. weather may be nil when clients always send full
// conditions.
func NewHandler(svc *advisor.Service, weather providers.WeatherProvider, log zerolog.Logger) *Handler {
	return &Handler{
		svc:     svc,
		weather: weather,
		log:     log.With().Str("component", "api").Logger(),
		started: time.Now(),
	}
}

// RecommendCrop handles POST /api/v1/recommend/crop.
func (h *Handler) RecommendCrop(w http.ResponseWriter, r *http.Request) {
	var req ConditionsRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	cond, err := resolveConditions(r.Context(), req, h.weather)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	rec, err := h.svc.RecommendCrop(r.Context(), cond)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, rec)
}

// RecommendCropPersonalized handles POST /api/v1/recommend/crop/personalized.
func (h *Handler) RecommendCropPersonalized(w http.ResponseWriter, r *http.Request) {
	var req PersonalizedRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	cond, err := resolveConditions(r.Context(), req.ConditionsRequest, h.weather)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	rec, err := h.svc.RecommendCropPersonalized(r.Context(), req.UserID, cond)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, rec)
}

// PredictYield handles POST /api/v1/predict/yield.
func (h *Handler) PredictYield(w http.ResponseWriter, r *http.Request) {
	var req CropQueryRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	cond, err := resolveConditions(r.Context(), req.ConditionsRequest, h.weather)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	pred, err := h.svc.PredictYield(r.Context(), req.Crop, cond)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, pred)
}

// PredictFertilizer handles POST /api/v1/predict/fertilizer.
func (h *Handler) PredictFertilizer(w http.ResponseWriter, r *http.Request) {
	var req CropQueryRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	cond, err := resolveConditions(r.Context(), req.ConditionsRequest, h.weather)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	plan, err := h.svc.PredictFertilizer(r.Context(), req.Crop, cond)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, plan)
}

// RecordFeedback handles POST /api/v1/feedback.
func (h *Handler) RecordFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	cond, err := resolveConditions(r.Context(), req.Conditions, h.weather)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	entry, err := h.svc.RecordFeedback(r.Context(), advisor.FeedbackEntry{
		UserID:         req.UserID,
		PredictionType: advisor.Task(req.PredictionType),
		Conditions:     cond,
		Outcome:        req.Outcome,
		Rating:         req.Rating,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusCreated, entry)
}

// ModelPerformance handles GET /api/v1/model/performance.
func (h *Handler) ModelPerformance(w http.ResponseWriter, r *http.Request) {
	perf, err := h.svc.ModelPerformance(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, perf)
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	})
}

// NotFound is the router's fallback handler.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, codeNotFound, "route not found", nil)
}

func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := decodeJSON(r, dst); err != nil {
		respondError(w, http.StatusBadRequest, codeBadJSON, "request body is not valid JSON: "+err.Error(), nil)
		return false
	}
	if verr := validation.Struct(dst); verr != nil {
		details := make(map[string]interface{}, len(verr.Fields()))
		for _, fe := range verr.Fields() {
			details[fe.Field()] = fe.Error()
		}
		respondError(w, http.StatusBadRequest, codeValidation, verr.Error(), details)
		return false
	}
	return true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var verr *advisor.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, codeValidation, verr.Error(), map[string]interface{}{
			"field": verr.Field,
		})
	case errors.Is(err, advisor.ErrModelUnavailable):
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, "models are not trained yet", nil)
	default:
		h.log.Error().Err(err).Msg("request failed")
		respondError(w, http.StatusInternalServerError, codeInternal, "internal error", nil)
	}
}
