// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tomtom215/platefinder/internal/models"
	"github.com/tomtom215/platefinder/internal/recommend"
)

// ItemStore is the catalog write surface used by the admin endpoints.
type ItemStore interface {
	PutItem(ctx context.Context, item *recommend.MenuItem) error
	DeleteItem(ctx context.Context, id string) error
}

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	engine    *recommend.Engine
	rebuilder *recommend.Rebuilder
	items     ItemStore
	logger    zerolog.Logger
}

// NewHandler creates the API handler set.
func NewHandler(engine *recommend.Engine, rebuilder *recommend.Rebuilder, items ItemStore, logger zerolog.Logger) *Handler {
	return &Handler{
		engine:    engine,
		rebuilder: rebuilder,
		items:     items,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// StartSession handles POST /api/v1/sessions.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.StartSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	// Validated by the meal_intent tag; parse cannot fail here.
	intent, _ := recommend.ParseMealIntent(req.Intent)

	sctx := recommend.SessionContext{
		Mood:      req.Mood,
		Occasion:  req.Occasion,
		PartySize: req.PartySize,
	}
	if req.TimeOfDay != nil {
		sctx.TimeOfDay = *req.TimeOfDay
	} else {
		sctx.TimeOfDay = time.Now().Hour()
	}

	session, err := h.engine.StartSession(r.Context(), req.UserID, req.RestaurantID, intent, req.Budget, sctx)
	if err != nil {
		writeMappedError(w, r, err, h)
		return
	}

	respond(w, r, http.StatusCreated, models.NewSessionResponse(session), start)
}

// GetSession handles GET /api/v1/sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	session, err := h.engine.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeMappedError(w, r, err, h)
		return
	}

	respond(w, r, http.StatusOK, models.NewSessionResponse(session), start)
}

// Next handles POST /api/v1/sessions/{id}/next.
func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.NextRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.engine.Next(r.Context(), chi.URLParam(r, "id"), req.Count)
	if err != nil {
		writeMappedError(w, r, err, h)
		return
	}

	respond(w, r, http.StatusOK, models.NewNextResponse(result), start)
}

// Feedback handles POST /api/v1/sessions/{id}/feedback.
func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.FeedbackRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if recommend.FeedbackType(req.Type) == recommend.FeedbackRating && (req.Rating < 1 || req.Rating > 5) {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR",
			"rating must be in [1, 5] for rating feedback", nil)
		return
	}

	event := recommend.FeedbackEvent{
		SessionID: chi.URLParam(r, "id"),
		ItemID:    req.ItemID,
		Course:    recommend.Course(req.Course),
		Type:      recommend.FeedbackType(req.Type),
		Rating:    req.Rating,
		Timestamp: time.Now().UTC(),
	}

	if err := h.engine.Feedback(r.Context(), event); err != nil {
		writeMappedError(w, r, err, h)
		return
	}

	respond(w, r, http.StatusOK, map[string]string{"result": "recorded"}, start)
}

// CompositionFeedback handles POST /api/v1/sessions/{id}/composition.
func (h *Handler) CompositionFeedback(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.CompositionFeedbackRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	feedback := make(map[recommend.Course]recommend.CourseFeedback, len(req.Courses))
	for course, state := range req.Courses {
		switch recommend.CourseFeedback(state) {
		case recommend.CourseAccepted, recommend.CourseRejected, recommend.CoursePending:
			feedback[recommend.Course(course)] = recommend.CourseFeedback(state)
		default:
			respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR",
				"course feedback must be accepted, rejected, or pending", map[string]interface{}{
					"course": course,
					"value":  state,
				})
			return
		}
	}

	comp, err := h.engine.CompositionFeedback(r.Context(), chi.URLParam(r, "id"),
		req.CompositionID, feedback, recommend.CompositionAction(req.Action))
	if err != nil {
		writeMappedError(w, r, err, h)
		return
	}

	respond(w, r, http.StatusOK, comp, start)
}

// Complete handles POST /api/v1/sessions/{id}/complete.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.CompleteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	session, err := h.engine.Complete(r.Context(), chi.URLParam(r, "id"), req.SelectedItemIDs)
	if err != nil {
		writeMappedError(w, r, err, h)
		return
	}

	respond(w, r, http.StatusOK, models.NewSessionResponse(session), start)
}

// Abandon handles POST /api/v1/sessions/{id}/abandon.
func (h *Handler) Abandon(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	session, err := h.engine.Abandon(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeMappedError(w, r, err, h)
		return
	}

	respond(w, r, http.StatusOK, models.NewSessionResponse(session), start)
}

// GetProfile handles GET /api/v1/profiles/{user_id}.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	profile, err := h.engine.GetProfile(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		writeMappedError(w, r, err, h)
		return
	}

	respond(w, r, http.StatusOK, models.NewProfileResponse(profile), start)
}

// ResetProfile handles POST /api/v1/profiles/{user_id}/reset.
func (h *Handler) ResetProfile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if err := h.engine.ResetProfile(r.Context(), chi.URLParam(r, "user_id")); err != nil {
		writeMappedError(w, r, err, h)
		return
	}

	respond(w, r, http.StatusOK, map[string]string{"result": "reset"}, start)
}

// StartRebuild handles POST /api/v1/admin/index/rebuild.
func (h *Handler) StartRebuild(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	job, err := h.rebuilder.Start(r.Context())
	if err != nil {
		writeMappedError(w, r, err, h)
		return
	}

	respond(w, r, http.StatusAccepted, job, start)
}

// RebuildStatus handles GET /api/v1/admin/index/rebuild/{job_id}.
func (h *Handler) RebuildStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	job, err := h.rebuilder.Status(chi.URLParam(r, "job_id"))
	if err != nil {
		writeMappedError(w, r, err, h)
		return
	}

	respond(w, r, http.StatusOK, job, start)
}

// UpsertItems handles POST /api/v1/admin/items. Items become
// retrievable immediately via the exact path; the vector index picks
// them up on the next rebuild.
func (h *Handler) UpsertItems(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.UpsertItemsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	for i := range req.Items {
		item := &req.Items[i]
		if item.ID == "" || item.RestaurantID == "" || item.Name == "" {
			respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR",
				fmt.Sprintf("items[%d]: id, restaurant_id, and name are required", i), nil)
			return
		}
		if item.Price < 0 {
			respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR",
				fmt.Sprintf("items[%d]: price must not be negative", i), nil)
			return
		}
	}

	for i := range req.Items {
		if err := h.items.PutItem(r.Context(), &req.Items[i]); err != nil {
			writeMappedError(w, r, err, h)
			return
		}
	}

	respond(w, r, http.StatusOK, map[string]int{"upserted": len(req.Items)}, start)
}

// DeleteItem handles DELETE /api/v1/admin/items/{id}.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if err := h.items.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeMappedError(w, r, err, h)
		return
	}

	respond(w, r, http.StatusOK, map[string]string{"result": "deleted"}, start)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, map[string]string{"status": "ok"}, time.Now())
}
