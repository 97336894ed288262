// Platefinder - Personalized Menu Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/platefinder

package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Engine orchestrates the full recommendation pipeline across the
// session lifecycle: retrieval, reranking, diversity selection, meal
// composition, and feedback-driven learning. All state mutations commit
// through the stores' optimistic version checks with a bounded retry
// budget; on exhaustion the operation fails with
// ErrConcurrentModification rather than clobbering a concurrent writer.
type Engine struct {
	config    *Config
	logger    zerolog.Logger
	sessions  SessionStore
	profiles  ProfileStore
	items     ItemSource
	retriever *Retriever
	reranker  *Reranker
	diversity *DiversityReranker
	composer  *Composer
	learner   *Learner
	publisher FeedbackPublisher
	metrics   MetricsRecorder

	now func() time.Time
}

// EngineDeps bundles the engine's collaborators. Publisher and Metrics
// are optional.
type EngineDeps struct {
	Sessions  SessionStore
	Profiles  ProfileStore
	Items     ItemSource
	Retriever *Retriever
	Reranker  *Reranker
	Diversity *DiversityReranker
	Composer  *Composer
	Learner   *Learner
	Publisher FeedbackPublisher
	Metrics   MetricsRecorder
}

// NewEngine creates the session engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, deps EngineDeps, logger zerolog.Logger) *Engine {
	return &Engine{
		config:    cfg,
		logger:    logger.With().Str("component", "engine").Logger(),
		sessions:  deps.Sessions,
		profiles:  deps.Profiles,
		items:     deps.Items,
		retriever: deps.Retriever,
		reranker:  deps.Reranker,
		diversity: deps.Diversity,
		composer:  deps.Composer,
		learner:   deps.Learner,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		now:       time.Now,
	}
}

// StartSession opens a new session for the user, creating a neutral
// taste profile on first contact. The context snapshot is immutable for
// the session's lifetime.
func (e *Engine) StartSession(ctx context.Context, userID, restaurantID string, intent MealIntent, budget float64, sctx SessionContext) (*RecommendationSession, error) {
	if _, err := e.ensureProfile(ctx, userID); err != nil {
		return nil, err
	}

	session := &RecommendationSession{
		ID:           uuid.NewString(),
		UserID:       userID,
		RestaurantID: restaurantID,
		Intent:       intent,
		Budget:       budget,
		Context:      sctx,
		Shown:        make(map[string]struct{}),
		Excluded:     make(map[string]struct{}),
		CourseShown:  make(map[Course][]string),
		Status:       StatusActive,
		CreatedAt:    e.now(),
	}

	if err := e.sessions.PutSession(ctx, session, 0); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	e.logger.Info().
		Str("session_id", session.ID).
		Str("user_id", userID).
		Str("restaurant_id", restaurantID).
		Str("intent", intent.String()).
		Msg("session started")

	return session, nil
}

// GetSession returns a session by id.
func (e *Engine) GetSession(ctx context.Context, id string) (*RecommendationSession, error) {
	return e.sessions.GetSession(ctx, id)
}

// Next produces the next batch of recommendations for the session: a
// diversified ranked list, or a fresh meal composition for composing
// intents. Items already shown or excluded in this session never
// reappear. The whole pipeline reruns on a version conflict, so the
// committed shown-set always reflects what was actually returned.
func (e *Engine) Next(ctx context.Context, sessionID string, count int) (*NextResult, error) {
	start := e.now()

	if count <= 0 {
		count = e.config.Limits.DefaultCount
	}
	if count > e.config.Limits.MaxCount {
		count = e.config.Limits.MaxCount
	}

	var result *NextResult
	var intent MealIntent
	err := e.commitSession(ctx, sessionID, func(session *RecommendationSession) error {
		intent = session.Intent

		profile, err := e.profiles.GetProfile(ctx, session.UserID)
		if err != nil {
			return err
		}

		r, err := e.runPipeline(ctx, session, profile, count)
		if err != nil {
			return err
		}
		result = r
		session.Iteration++
		return nil
	})
	if err != nil {
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.ObserveNext(intent, e.now().Sub(start), result.Fallback, result.Insufficient)
	}

	return result, nil
}

// runPipeline executes retrieve, rerank, and the intent-appropriate
// selection stage, updating the session's shown bookkeeping in place.
func (e *Engine) runPipeline(ctx context.Context, session *RecommendationSession, profile *UserTasteProfile, count int) (*NextResult, error) {
	taste := e.learner.SampleTaste(profile)

	exclude := make(map[string]struct{}, len(session.Shown)+len(session.Excluded))
	for id := range session.Shown {
		exclude[id] = struct{}{}
	}
	for id := range session.Excluded {
		exclude[id] = struct{}{}
	}

	retrieved, err := e.retriever.Retrieve(ctx, profile, session.RestaurantID, session.Intent, taste, count, exclude)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	ranked := e.reranker.Rerank(ctx, retrieved.Candidates, profile, taste, session.Context)

	if courses := CoursesForIntent(session.Intent); len(courses) > 0 {
		comp, err := e.composeMeal(session, ranked, courses, nil)
		if err != nil {
			if errors.Is(err, ErrItemNotFound) {
				return &NextResult{Insufficient: true, Fallback: retrieved.Fallback}, nil
			}
			return nil, err
		}
		return &NextResult{
			Composition:  comp,
			Insufficient: retrieved.Insufficient,
			Fallback:     retrieved.Fallback,
		}, nil
	}

	maxPrice := e.diversity.MaxItemPrice(session.Budget, count)
	selected := e.diversity.Select(ranked, count, maxPrice)
	for i := range selected {
		session.Shown[selected[i].Item.ID] = struct{}{}
	}

	return &NextResult{
		Items:        selected,
		Insufficient: retrieved.Insufficient || len(selected) < count,
		Fallback:     retrieved.Fallback,
	}, nil
}

// composeMeal groups ranked candidates into course pools and invokes
// the composer, carrying any pinned slots. Session bookkeeping for the
// new composition happens here.
func (e *Engine) composeMeal(session *RecommendationSession, ranked []Candidate, courses []Course, pinned map[Course]CompositionSlot) (*Composition, error) {
	if pinned == nil {
		pinned = pinnedSlots(session.Current)
	}

	pools := make(map[Course][]Candidate, len(courses))
	for i := range ranked {
		course, ok := CourseForCategory(ranked[i].Item.Category)
		if !ok {
			continue
		}
		pools[course] = append(pools[course], ranked[i])
	}

	// Each unpinned pool passes through MMR selection so the composer
	// searches over a diversified slate, not just the top of the rerank
	// order. Pinned pools are left intact so the pinned item keeps its
	// metadata for harmony scoring. Budget stays the composer's concern.
	for course, pool := range pools {
		if _, ok := pinned[course]; ok {
			continue
		}
		pools[course] = e.diversity.Select(pool, e.config.Composer.MaxCandidatesPerCourse, 0)
	}

	comp, err := e.composer.Compose(pools, courses, session.Budget, pinned)
	if err != nil {
		return nil, err
	}

	for _, slot := range comp.Slots {
		if _, wasPinned := pinned[slot.Course]; wasPinned {
			continue
		}
		session.Shown[slot.ItemID] = struct{}{}
		session.CourseShown[slot.Course] = append(session.CourseShown[slot.Course], slot.ItemID)
	}
	session.Current = comp

	if e.metrics != nil {
		e.metrics.IncComposition(comp.BudgetRelaxed, comp.HarmonyRelaxed)
	}

	return comp, nil
}

// pinnedSlots extracts the accepted slots of the previous composition.
// Accepted courses survive regeneration verbatim.
func pinnedSlots(comp *Composition) map[Course]CompositionSlot {
	pinned := make(map[Course]CompositionSlot)
	if comp == nil {
		return pinned
	}
	for _, slot := range comp.Slots {
		if slot.Feedback == CourseAccepted {
			pinned[slot.Course] = slot
		}
	}
	return pinned
}

// Feedback applies one item-level feedback event: session exclusion
// bookkeeping, the Bayesian profile update, and event publication.
func (e *Engine) Feedback(ctx context.Context, event FeedbackEvent) error {
	if !event.Type.Valid() {
		return fmt.Errorf("invalid feedback type %q", event.Type)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = e.now()
	}

	item, err := e.items.GetItem(ctx, event.ItemID)
	if err != nil {
		return err
	}

	err = e.commitSession(ctx, event.SessionID, func(session *RecommendationSession) error {
		if event.UserID == "" {
			event.UserID = session.UserID
		}
		if event.Type.Excludes() {
			session.Excluded[event.ItemID] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := e.learnFromEvent(ctx, event.UserID, item, event); err != nil {
		return err
	}

	e.publish(ctx, event)
	if e.metrics != nil {
		e.metrics.IncFeedback(event.Type)
	}

	return nil
}

// CompositionFeedback applies per-course feedback to the session's
// current composition. Rejected courses are excluded and regenerated
// while accepted courses are pinned; ActionOrderAll just marks every
// slot accepted so complete() can follow.
func (e *Engine) CompositionFeedback(ctx context.Context, sessionID, compositionID string, feedback map[Course]CourseFeedback, action CompositionAction) (*Composition, error) {
	var result *Composition
	var events []FeedbackEvent

	err := e.commitSession(ctx, sessionID, func(session *RecommendationSession) error {
		if session.Current == nil || session.Current.ID != compositionID {
			return ErrStaleComposition
		}

		// The closure reruns on a version conflict; events collected by
		// a failed attempt must not survive into the retry.
		events = events[:0]

		rejected := e.recordCourseFeedback(session, feedback, &events)

		if action == ActionOrderAll {
			for i := range session.Current.Slots {
				session.Current.Slots[i].Feedback = CourseAccepted
			}
			result = session.Current
			return nil
		}

		if len(rejected) == 0 {
			result = session.Current
			return nil
		}

		profile, err := e.profiles.GetProfile(ctx, session.UserID)
		if err != nil {
			return err
		}

		comp, err := e.regenerate(ctx, session, profile, rejected)
		if err != nil {
			return err
		}
		result = comp
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Learning and publication happen exactly once, after the session
	// commit sticks. Feedback and Complete follow the same order.
	for _, event := range events {
		item, err := e.items.GetItem(ctx, event.ItemID)
		if err != nil {
			e.logger.Warn().Err(err).Str("item_id", event.ItemID).Msg("course feedback item lookup failed, skipping profile update")
		} else if err := e.learnFromEvent(ctx, event.UserID, item, event); err != nil {
			e.logger.Warn().Err(err).Str("item_id", event.ItemID).Msg("course feedback profile update failed")
		}

		e.publish(ctx, event)
		if e.metrics != nil {
			e.metrics.IncFeedback(event.Type)
		}
	}

	return result, nil
}

// recordCourseFeedback marks per-slot feedback and excludes rejected
// items, collecting the feedback events the caller applies after the
// session commit succeeds. Returns the rejected courses.
func (e *Engine) recordCourseFeedback(session *RecommendationSession, feedback map[Course]CourseFeedback, events *[]FeedbackEvent) []Course {
	var rejected []Course

	for course, fb := range feedback {
		slot := session.Current.Slot(course)
		if slot == nil {
			continue
		}
		slot.Feedback = fb

		var eventType FeedbackType
		switch fb {
		case CourseAccepted:
			eventType = FeedbackLike
		case CourseRejected:
			eventType = FeedbackSkip
			session.Excluded[slot.ItemID] = struct{}{}
			rejected = append(rejected, course)
		default:
			continue
		}

		*events = append(*events, FeedbackEvent{
			SessionID: session.ID,
			UserID:    session.UserID,
			ItemID:    slot.ItemID,
			Course:    course,
			Type:      eventType,
			Timestamp: e.now(),
		})
	}

	return rejected
}

// regenerate rebuilds only the rejected courses of the current
// composition. Every non-rejected slot is pinned, so partial
// regeneration never churns courses the user already settled.
func (e *Engine) regenerate(ctx context.Context, session *RecommendationSession, profile *UserTasteProfile, rejected []Course) (*Composition, error) {
	rejectedSet := make(map[Course]struct{}, len(rejected))
	for _, c := range rejected {
		rejectedSet[c] = struct{}{}
	}

	pinned := make(map[Course]CompositionSlot)
	var courses []Course
	for _, slot := range session.Current.Slots {
		courses = append(courses, slot.Course)
		if _, isRejected := rejectedSet[slot.Course]; !isRejected {
			pinned[slot.Course] = slot
		}
	}

	taste := e.learner.SampleTaste(profile)

	exclude := make(map[string]struct{}, len(session.Shown)+len(session.Excluded))
	for id := range session.Shown {
		exclude[id] = struct{}{}
	}
	for id := range session.Excluded {
		exclude[id] = struct{}{}
	}

	retrieved, err := e.retriever.Retrieve(ctx, profile, session.RestaurantID, session.Intent, taste, e.config.Limits.DefaultCount, exclude)
	if err != nil {
		return nil, fmt.Errorf("retrieve for regeneration: %w", err)
	}

	ranked := e.reranker.Rerank(ctx, retrieved.Candidates, profile, taste, session.Context)

	return e.composeMeal(session, ranked, courses, pinned)
}

// Complete finishes the session with the user's final selection and
// teaches the profile from every selected item. Idempotent failure
// semantics: a terminal session rejects a second complete().
func (e *Engine) Complete(ctx context.Context, sessionID string, selectedItemIDs []string) (*RecommendationSession, error) {
	var completed *RecommendationSession

	err := e.commitSession(ctx, sessionID, func(session *RecommendationSession) error {
		if len(selectedItemIDs) == 0 && session.Current != nil {
			for _, slot := range session.Current.Slots {
				selectedItemIDs = append(selectedItemIDs, slot.ItemID)
			}
		}
		session.Status = StatusCompleted
		session.SelectedItemIDs = selectedItemIDs
		completed = session
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, itemID := range selectedItemIDs {
		event := FeedbackEvent{
			SessionID: sessionID,
			UserID:    completed.UserID,
			ItemID:    itemID,
			Type:      FeedbackSelect,
			Timestamp: e.now(),
		}
		item, err := e.items.GetItem(ctx, itemID)
		if err != nil {
			e.logger.Warn().Err(err).Str("item_id", itemID).Msg("completion item lookup failed, skipping profile update")
			continue
		}
		if err := e.learnFromEvent(ctx, completed.UserID, item, event); err != nil {
			e.logger.Warn().Err(err).Str("item_id", itemID).Msg("completion profile update failed")
		}
		e.publish(ctx, event)
		if e.metrics != nil {
			e.metrics.IncFeedback(FeedbackSelect)
		}
	}

	e.logger.Info().
		Str("session_id", sessionID).
		Int("selected", len(selectedItemIDs)).
		Msg("session completed")

	return completed, nil
}

// Abandon marks the session abandoned. No learning occurs; absence of
// a signal is not a signal.
func (e *Engine) Abandon(ctx context.Context, sessionID string) (*RecommendationSession, error) {
	var abandoned *RecommendationSession

	err := e.commitSession(ctx, sessionID, func(session *RecommendationSession) error {
		session.Status = StatusAbandoned
		abandoned = session
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info().Str("session_id", sessionID).Msg("session abandoned")
	return abandoned, nil
}

// ResetProfile returns the user's profile to the neutral prior while
// preserving allergies and dietary rules.
func (e *Engine) ResetProfile(ctx context.Context, userID string) error {
	return e.commitProfile(ctx, userID, func(profile *UserTasteProfile) *UserTasteProfile {
		return e.learner.Reset(profile)
	})
}

// GetProfile returns the user's taste profile.
func (e *Engine) GetProfile(ctx context.Context, userID string) (*UserTasteProfile, error) {
	return e.profiles.GetProfile(ctx, userID)
}

// learnFromEvent applies one event to the user's profile under the
// optimistic commit loop.
func (e *Engine) learnFromEvent(ctx context.Context, userID string, item *MenuItem, event FeedbackEvent) error {
	return e.commitProfile(ctx, userID, func(profile *UserTasteProfile) *UserTasteProfile {
		return e.learner.Update(profile, item, event)
	})
}

// ensureProfile loads the user's profile, creating the neutral prior on
// first contact. A concurrent create by another request is tolerated by
// re-reading.
func (e *Engine) ensureProfile(ctx context.Context, userID string) (*UserTasteProfile, error) {
	profile, err := e.profiles.GetProfile(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return nil, err
	}

	fresh := NewUserTasteProfile(userID)
	if err := e.profiles.PutProfile(ctx, fresh, 0); err != nil {
		if errors.Is(err, ErrConcurrentModification) {
			return e.profiles.GetProfile(ctx, userID)
		}
		return nil, err
	}
	return fresh, nil
}

// commitSession runs mutate against a freshly loaded session and
// commits under the version check, retrying the whole load-mutate-put
// cycle up to the configured budget. Terminal sessions reject mutation
// before mutate runs.
func (e *Engine) commitSession(ctx context.Context, sessionID string, mutate func(*RecommendationSession) error) error {
	for attempt := 0; attempt < e.config.Limits.MaxCommitRetries; attempt++ {
		session, err := e.sessions.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.Status.Terminal() {
			return ErrSessionTerminal
		}

		if err := mutate(session); err != nil {
			return err
		}

		err = e.sessions.PutSession(ctx, session, session.Version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConcurrentModification) {
			return err
		}

		if e.metrics != nil {
			e.metrics.IncCommitConflict("session")
		}
		e.logger.Debug().
			Str("session_id", sessionID).
			Int("attempt", attempt+1).
			Msg("session commit conflict, retrying")
	}
	return ErrConcurrentModification
}

// commitProfile is commitSession's profile-store counterpart. mutate
// returns the replacement profile value.
func (e *Engine) commitProfile(ctx context.Context, userID string, mutate func(*UserTasteProfile) *UserTasteProfile) error {
	for attempt := 0; attempt < e.config.Limits.MaxCommitRetries; attempt++ {
		profile, err := e.profiles.GetProfile(ctx, userID)
		if err != nil {
			return err
		}

		next := mutate(profile)

		err = e.profiles.PutProfile(ctx, next, profile.Version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConcurrentModification) {
			return err
		}

		if e.metrics != nil {
			e.metrics.IncCommitConflict("profile")
		}
		e.logger.Debug().
			Str("user_id", userID).
			Int("attempt", attempt+1).
			Msg("profile commit conflict, retrying")
	}
	return ErrConcurrentModification
}

// publish emits the event if a publisher is wired. Failures are logged,
// never propagated.
func (e *Engine) publish(ctx context.Context, event FeedbackEvent) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.PublishFeedback(ctx, event); err != nil {
		e.logger.Warn().Err(err).Str("session_id", event.SessionID).Msg("feedback publish failed")
	}
}
