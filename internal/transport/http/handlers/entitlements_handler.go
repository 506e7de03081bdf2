package handlers

import (
	"errors"
	"net/http"

	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/enums"
	authsvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/auth"
	subsvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/subscriptions"
	"github.com/ivankudzin/tgapp/subscriptions/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/tgapp/subscriptions/internal/transport/http/errors"
)

type EntitlementsHandler struct {
	service *subsvc.Service
}

func NewEntitlementsHandler(service *subsvc.Service) *EntitlementsHandler {
	return &EntitlementsHandler{service: service}
}

func (h *EntitlementsHandler) Plans(w http.ResponseWriter, _ *http.Request) {
	if h.service == nil {
		writeInternal(w, "SUBSCRIPTION_SERVICE_UNAVAILABLE", "subscription service is unavailable")
		return
	}

	catalog := h.service.Catalog()
	plans := make([]dto.PlanResponse, 0, len(catalog))
	for _, plan := range catalog {
		plans = append(plans, dto.PlanResponse{
			Tier:       string(plan.Tier),
			Price:      plan.Price,
			PriceCents: plan.PriceCents,
			Currency:   plan.Currency,
			Features:   mapFeatureSet(plan.Features),
		})
	}

	httperrors.Write(w, http.StatusOK, dto.PlansResponse{Plans: plans})
}

func (h *EntitlementsHandler) Current(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SUBSCRIPTION_SERVICE_UNAVAILABLE", "subscription service is unavailable")
		return
	}

	current, err := h.service.Current(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, subsvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid user")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load entitlements")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.EntitlementsResponse{
		Tier:       string(current.Tier),
		ExpiresAt:  current.ExpiresAt,
		PriceCents: current.PriceCents,
		Features:   mapFeatureSet(current.Features),
	})
}

// Activate applies a tier on behalf of billing. The target defaults to the
// caller when user_id is omitted.
func (h *EntitlementsHandler) Activate(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SUBSCRIPTION_SERVICE_UNAVAILABLE", "subscription service is unavailable")
		return
	}

	var req dto.ActivateSubscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	tier, err := enums.ParseTier(req.Tier)
	if err != nil {
		writeBadRequest(w, "UNKNOWN_TIER", "tier must be one of free, premium, gold")
		return
	}
	userID := req.UserID
	if userID == 0 {
		userID = identity.UserID
	}

	sub, err := h.service.Activate(r.Context(), userID, tier)
	if err != nil {
		switch {
		case errors.Is(err, subsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid user")
		case errors.Is(err, enums.ErrUnknownTier):
			writeBadRequest(w, "UNKNOWN_TIER", "tier must be one of free, premium, gold")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to activate subscription")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SubscriptionResponse{
		UserID:    sub.UserID,
		Tier:      string(sub.Tier),
		ExpiresAt: sub.ExpiresAt,
		UpdatedAt: sub.UpdatedAt,
	})
}
