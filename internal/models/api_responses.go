// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

// Package models defines the HTTP wire types: the standard response
// envelope and the request/response payloads of the recommendation API.
package models

import (
	"time"

	"github.com/tomtom215/platefinder/internal/recommend"
)

// APIResponse is the standardized response wrapper used by all HTTP
// endpoints.
//
// Status field values:
//   - "success": request completed, see Data
//   - "error": request failed, see Error
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data,omitempty"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError carries structured error details.
//
// Common error codes:
//   - VALIDATION_ERROR: invalid input parameters
//   - NOT_FOUND: unknown session, item, profile, or job
//   - SESSION_TERMINAL: mutation on a completed or abandoned session
//   - STALE_COMPOSITION: feedback referenced a superseded composition
//   - CONFLICT: optimistic concurrency retries exhausted
//   - INTERNAL_ERROR: unexpected server failure
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// StartSessionRequest opens a recommendation session.
type StartSessionRequest struct {
	UserID       string  `json:"user_id" validate:"required"`
	RestaurantID string  `json:"restaurant_id" validate:"required"`
	Intent       string  `json:"intent" validate:"required,meal_intent"`
	Budget       float64 `json:"budget" validate:"gte=0"`

	Mood      string `json:"mood,omitempty"`
	Occasion  string `json:"occasion,omitempty"`
	TimeOfDay *int   `json:"time_of_day,omitempty" validate:"omitempty,gte=0,lte=23"`
	PartySize int    `json:"party_size,omitempty" validate:"gte=0"`
}

// NextRequest asks for the next recommendation batch.
type NextRequest struct {
	Count int `json:"count" validate:"gte=0,lte=25"`
}

// FeedbackRequest reports one item-level reaction.
type FeedbackRequest struct {
	ItemID string `json:"item_id" validate:"required"`
	Type   string `json:"type" validate:"required,feedback_type"`
	Rating int    `json:"rating,omitempty" validate:"gte=0,lte=5"`
	Course string `json:"course,omitempty" validate:"omitempty,course"`
}

// CompositionFeedbackRequest reports per-course reactions to the
// session's current composition.
type CompositionFeedbackRequest struct {
	CompositionID string            `json:"composition_id" validate:"required"`
	Courses       map[string]string `json:"courses" validate:"required"`
	Action        string            `json:"action" validate:"required,oneof=regenerate_partial order_all"`
}

// UpsertItemsRequest replaces or creates catalog items in bulk.
// Field-level checks beyond presence happen in the handler; MenuItem is
// a domain type without wire validation tags.
type UpsertItemsRequest struct {
	Items []recommend.MenuItem `json:"items" validate:"required,min=1"`
}

// CompleteRequest finishes a session with the final selection.
type CompleteRequest struct {
	SelectedItemIDs []string `json:"selected_item_ids,omitempty"`
}

// SessionResponse is the public view of a session.
type SessionResponse struct {
	ID           string                   `json:"id"`
	UserID       string                   `json:"user_id"`
	RestaurantID string                   `json:"restaurant_id"`
	Intent       string                   `json:"intent"`
	Budget       float64                  `json:"budget"`
	Status       string                   `json:"status"`
	Iteration    int                      `json:"iteration"`
	Context      recommend.SessionContext `json:"context"`
	Current      *recommend.Composition   `json:"current,omitempty"`
	Selected     []string                 `json:"selected_item_ids,omitempty"`
	CreatedAt    time.Time                `json:"created_at"`
}

// NewSessionResponse maps a session record to its public view.
func NewSessionResponse(s *recommend.RecommendationSession) *SessionResponse {
	return &SessionResponse{
		ID:           s.ID,
		UserID:       s.UserID,
		RestaurantID: s.RestaurantID,
		Intent:       s.Intent.String(),
		Budget:       s.Budget,
		Status:       string(s.Status),
		Iteration:    s.Iteration,
		Context:      s.Context,
		Current:      s.Current,
		Selected:     s.SelectedItemIDs,
		CreatedAt:    s.CreatedAt,
	}
}

// RecommendedItem is one ranked list entry.
type RecommendedItem struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Category       string   `json:"category"`
	Cuisines       []string `json:"cuisines,omitempty"`
	Price          float64  `json:"price"`
	Score          float64  `json:"score"`
	RetrievalScore float64  `json:"retrieval_score"`
	Fallback       bool     `json:"fallback,omitempty"`
}

// NextResponse is the payload of one next() call.
type NextResponse struct {
	Items        []RecommendedItem      `json:"items,omitempty"`
	Composition  *recommend.Composition `json:"composition,omitempty"`
	Insufficient bool                   `json:"insufficient,omitempty"`
	Fallback     bool                   `json:"fallback,omitempty"`
}

// NewNextResponse maps a pipeline result to the wire payload.
func NewNextResponse(r *recommend.NextResult) *NextResponse {
	resp := &NextResponse{
		Composition:  r.Composition,
		Insufficient: r.Insufficient,
		Fallback:     r.Fallback,
	}
	for i := range r.Items {
		item := &r.Items[i].Item
		resp.Items = append(resp.Items, RecommendedItem{
			ID:             item.ID,
			Name:           item.Name,
			Category:       string(item.Category),
			Cuisines:       item.Cuisines,
			Price:          item.Price,
			Score:          r.Items[i].RerankScore,
			RetrievalScore: r.Items[i].RetrievalScore,
			Fallback:       r.Items[i].Fallback,
		})
	}
	return resp
}

// ProfileResponse is the public view of a taste profile. Raw Beta
// parameters stay internal; clients see means and uncertainty.
type ProfileResponse struct {
	UserID           string                   `json:"user_id"`
	TasteMeans       recommend.TasteVector    `json:"taste_means"`
	Uncertainty      float64                  `json:"uncertainty"`
	CuisineAffinity  map[string]float64       `json:"cuisine_affinity,omitempty"`
	Weights          recommend.ScoringWeights `json:"weights"`
	InteractionCount int                      `json:"interaction_count"`
	LastUpdated      time.Time                `json:"last_updated,omitempty"`
}

// NewProfileResponse maps a profile record to its public view.
func NewProfileResponse(p *recommend.UserTasteProfile) *ProfileResponse {
	return &ProfileResponse{
		UserID:           p.UserID,
		TasteMeans:       p.PosteriorMeans(),
		Uncertainty:      p.Uncertainty(),
		CuisineAffinity:  p.CuisineAffinity,
		Weights:          p.Weights,
		InteractionCount: p.InteractionCount,
		LastUpdated:      p.LastUpdated,
	}
}
