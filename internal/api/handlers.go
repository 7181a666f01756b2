// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/killfeed/internal/auth"
	"github.com/tomtom215/killfeed/internal/logging"
	"github.com/tomtom215/killfeed/internal/models"
	"github.com/tomtom215/killfeed/internal/subscription"
	"github.com/tomtom215/killfeed/internal/validation"
)

// SubscriptionStore is the part of subscription.Store the API drives.
type SubscriptionStore interface {
	Subscribe(ctx context.Context, sub models.Subscription) error
	Unsubscribe(ctx context.Context, dest models.Destination, key models.SubscriptionKey) (bool, error)
	UnsubscribeAll(ctx context.Context, dest models.Destination) (int, error)
	RetractGuild(ctx context.Context, guildID string) error
	ListForChannel(dest models.Destination) []models.Subscription
	Count() int
}

// HealthCheck reports a dependency's state; nil means healthy.
type HealthCheck func(ctx context.Context) error

// Handler serves the command API.
type Handler struct {
	store   SubscriptionStore
	checks  map[string]HealthCheck
	started time.Time
}

// NewHandler creates a handler over store. checks are run by GET /health.
func NewHandler(store SubscriptionStore, checks map[string]HealthCheck) *Handler {
	return &Handler{store: store, checks: checks, started: time.Now()}
}

type destinationParams struct {
	GuildID   string `json:"guild" validate:"required,snowflake"`
	ChannelID string `json:"channel" validate:"required,snowflake"`
}

// SubscribeRequest is the body of POST .../subscriptions.
type SubscribeRequest struct {
	Type      string  `json:"type" validate:"required,subjecttype"`
	ID        int64   `json:"id,omitempty" validate:"gte=0"`
	MinValue  float64 `json:"min_value,omitempty" validate:"gte=0"`
	Direction string  `json:"direction,omitempty" validate:"omitempty,direction"`
	LimitType string  `json:"limit_type,omitempty" validate:"omitempty,locationkind"`
	LimitIDs  []int64 `json:"limit_ids,omitempty" validate:"max=100,dive,gt=0"`
}

// LinkRequest is the body of POST .../subscriptions/link.
type LinkRequest struct {
	Link      string  `json:"link" validate:"required,url"`
	MinValue  float64 `json:"min_value,omitempty" validate:"gte=0"`
	LimitType string  `json:"limit_type,omitempty" validate:"omitempty,locationkind"`
	LimitIDs  []int64 `json:"limit_ids,omitempty" validate:"max=100,dive,gt=0"`
}

// SubscriptionView is one subscription as returned by the API.
type SubscriptionView struct {
	Type      models.SubjectType   `json:"type"`
	ID        int64                `json:"id,omitempty"`
	MinValue  float64              `json:"min_value"`
	Direction models.KillDirection `json:"direction,omitempty"`
	LimitType models.LocationKind  `json:"limit_type"`
	LimitIDs  []int64              `json:"limit_ids,omitempty"`
	Summary   string               `json:"summary"`
}

func newSubscriptionView(s models.Subscription) SubscriptionView {
	kind := s.Location.Kind
	if kind == "" {
		kind = models.LocationNone
	}
	return SubscriptionView{
		Type:      s.Type,
		ID:        s.ID,
		MinValue:  s.MinValue,
		Direction: s.Direction,
		LimitType: kind,
		LimitIDs:  s.Location.IDs,
		Summary:   describe(s),
	}
}

// describe renders the one-line listing shown to Discord users.
func describe(s models.Subscription) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Type: %s", s.Type)
	if s.ID != 0 {
		fmt.Fprintf(&b, " | ID: %d", s.ID)
	}
	if s.Location.Active() {
		fmt.Fprintf(&b, " | Limit Type: %s | Limit IDs: %s", s.Location.Kind, s.Location.FormatIDs())
	}
	if s.Direction != models.DirectionBoth {
		fmt.Fprintf(&b, " | Kill Type: %s", s.Direction)
	}
	if s.MinValue > 0 {
		fmt.Fprintf(&b, " | Min Value: %s", strconv.FormatFloat(s.MinValue, 'f', -1, 64))
	}
	return b.String()
}

// destination validates the guild and channel path parameters.
func (h *Handler) destination(w http.ResponseWriter, r *http.Request) (models.Destination, bool) {
	p := destinationParams{
		GuildID:   chi.URLParam(r, "guild"),
		ChannelID: chi.URLParam(r, "channel"),
	}
	if verr := validation.ValidateStruct(&p); verr != nil {
		respondValidation(w, r, verr)
		return models.Destination{}, false
	}
	return models.Destination{GuildID: p.GuildID, ChannelID: p.ChannelID}, true
}

func locationFilter(limitType string, ids []int64) (models.LocationFilter, error) {
	kind, err := models.ParseLocationKind(limitType)
	if err != nil {
		return models.LocationFilter{}, err
	}
	if kind == models.LocationNone {
		if len(ids) > 0 {
			return models.LocationFilter{}, errors.New("limit_ids given without limit_type")
		}
		return models.LocationFilter{Kind: models.LocationNone}, nil
	}
	return models.LocationFilter{Kind: kind, IDs: ids}, nil
}

// Subscribe handles POST .../subscriptions.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	dest, ok := h.destination(w, r)
	if !ok {
		return
	}

	var req SubscribeRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeBadRequest, "Invalid request body", err)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return
	}

	// Both parse cleanly once validation has passed.
	subjectType, _ := models.ParseSubjectType(req.Type)
	direction, _ := models.ParseKillDirection(req.Direction)

	loc, err := locationFilter(req.LimitType, req.LimitIDs)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, err.Error(), nil)
		return
	}

	h.subscribe(w, r, models.Subscription{
		Type:        subjectType,
		ID:          req.ID,
		MinValue:    req.MinValue,
		Direction:   direction,
		Location:    loc,
		Destination: dest,
	})
}

// SubscribeLink handles POST .../subscriptions/link.
func (h *Handler) SubscribeLink(w http.ResponseWriter, r *http.Request) {
	dest, ok := h.destination(w, r)
	if !ok {
		return
	}

	var req LinkRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeBadRequest, "Invalid request body", err)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return
	}

	link, err := ParseLink(req.Link)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, err.Error(), nil)
		return
	}
	loc, err := locationFilter(req.LimitType, req.LimitIDs)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, err.Error(), nil)
		return
	}

	h.subscribe(w, r, models.Subscription{
		Type:        link.Type,
		ID:          link.ID,
		MinValue:    req.MinValue,
		Direction:   link.Direction,
		Location:    loc,
		Destination: dest,
	})
}

func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request, sub models.Subscription) {
	if err := h.store.Subscribe(r.Context(), sub); err != nil {
		if errors.Is(err, subscription.ErrInvalidSubscription) {
			respondError(w, r, http.StatusBadRequest, CodeValidation, err.Error(), nil)
			return
		}
		respondError(w, r, http.StatusInternalServerError, CodeInternal, "Failed to save subscription", err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("guild_id", sub.Destination.GuildID).
		Str("channel_id", sub.Destination.ChannelID).
		Str("subscription", sub.Key().String()).
		Str("operator", operator(r)).
		Msg("Subscribed")

	respondData(w, r, http.StatusCreated, newSubscriptionView(sub))
}

// Unsubscribe handles DELETE .../subscriptions/{type}[/{id}].
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	dest, ok := h.destination(w, r)
	if !ok {
		return
	}

	subjectType, err := models.ParseSubjectType(chi.URLParam(r, "type"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, err.Error(), nil)
		return
	}

	var id int64
	if raw := chi.URLParam(r, "id"); raw != "" {
		id, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			respondError(w, r, http.StatusBadRequest, CodeValidation, "id must be a positive integer", nil)
			return
		}
	}
	if subjectType.RequiresID() && id == 0 {
		respondError(w, r, http.StatusBadRequest, CodeValidation, fmt.Sprintf("%s subscriptions need an id", subjectType), nil)
		return
	}
	if !subjectType.RequiresID() && id != 0 {
		respondError(w, r, http.StatusBadRequest, CodeValidation, fmt.Sprintf("%s subscriptions do not take an id", subjectType), nil)
		return
	}

	h.unsubscribe(w, r, dest, models.SubscriptionKey{Type: subjectType, ID: id})
}

// UnsubscribeLink handles DELETE .../subscriptions/link?url=<zKillboard link>.
func (h *Handler) UnsubscribeLink(w http.ResponseWriter, r *http.Request) {
	dest, ok := h.destination(w, r)
	if !ok {
		return
	}

	link, err := ParseLink(r.URL.Query().Get("url"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, err.Error(), nil)
		return
	}
	h.unsubscribe(w, r, dest, link.Key())
}

func (h *Handler) unsubscribe(w http.ResponseWriter, r *http.Request, dest models.Destination, key models.SubscriptionKey) {
	removed, err := h.store.Unsubscribe(r.Context(), dest, key)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeInternal, "Failed to remove subscription", err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("guild_id", dest.GuildID).
		Str("channel_id", dest.ChannelID).
		Str("subscription", key.String()).
		Bool("removed", removed).
		Str("operator", operator(r)).
		Msg("Unsubscribed")

	respondData(w, r, http.StatusOK, map[string]interface{}{
		"subscription": key.String(),
		"removed":      removed,
	})
}

// UnsubscribeAll handles DELETE .../subscriptions.
func (h *Handler) UnsubscribeAll(w http.ResponseWriter, r *http.Request) {
	dest, ok := h.destination(w, r)
	if !ok {
		return
	}

	n, err := h.store.UnsubscribeAll(r.Context(), dest)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeInternal, "Failed to remove subscriptions", err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("guild_id", dest.GuildID).
		Str("channel_id", dest.ChannelID).
		Int("removed", n).
		Str("operator", operator(r)).
		Msg("Unsubscribed channel")

	respondData(w, r, http.StatusOK, map[string]interface{}{"removed": n})
}

// ListSubscriptions handles GET .../subscriptions.
func (h *Handler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	dest, ok := h.destination(w, r)
	if !ok {
		return
	}

	subs := h.store.ListForChannel(dest)
	views := make([]SubscriptionView, len(subs))
	for i, s := range subs {
		views[i] = newSubscriptionView(s)
	}
	respondData(w, r, http.StatusOK, map[string]interface{}{
		"guild_id":      dest.GuildID,
		"channel_id":    dest.ChannelID,
		"count":         len(views),
		"subscriptions": views,
	})
}

// RemoveGuild handles DELETE /api/v1/guilds/{guild}, used when the bot
// leaves a guild.
func (h *Handler) RemoveGuild(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guild")
	p := destinationParams{GuildID: guildID, ChannelID: "0"}
	if verr := validation.ValidateStruct(&p); verr != nil {
		respondValidation(w, r, verr)
		return
	}

	if err := h.store.RetractGuild(r.Context(), guildID); err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeInternal, "Failed to remove guild", err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("guild_id", guildID).
		Str("operator", operator(r)).
		Msg("Removed guild subscriptions")

	respondData(w, r, http.StatusOK, map[string]interface{}{"guild_id": guildID, "removed": true})
}

// Health handles GET /health. It returns 503 when any check fails.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}
	respondData(w, r, status, map[string]interface{}{
		"status":        state,
		"uptime":        time.Since(h.started).Round(time.Second).String(),
		"subscriptions": h.store.Count(),
		"checks":        results,
	})
}

// HealthLive handles GET /health/live.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

func operator(r *http.Request) string {
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		return p.Operator
	}
	return "anonymous"
}
