package handlers

import (
	"net/http"

	"go.uber.org/zap"

	authsvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/auth"
	entsvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/entitlements"
	"github.com/ivankudzin/tgapp/subscriptions/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/tgapp/subscriptions/internal/transport/http/errors"
)

type AdminHandler struct {
	entitlements *entsvc.Service
	logger       *zap.Logger
}

func NewAdminHandler(entitlements *entsvc.Service, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{entitlements: entitlements, logger: logger}
}

func (h *AdminHandler) Entitlements(w http.ResponseWriter, r *http.Request) {
	if _, ok := authsvc.IdentityFromContext(r.Context()); !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.entitlements == nil {
		writeInternal(w, "ENTITLEMENTS_UNAVAILABLE", "entitlement service is unavailable")
		return
	}
	targetID, ok := userIDParam(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		return
	}

	state, err := h.entitlements.Snapshot(r.Context(), targetID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load entitlement state")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.EntitlementStateResponse{
		UserID:           targetID,
		Tier:             string(state.Tier),
		ExpiryDate:       state.ExpiryDate,
		MessageCount:     state.MessageCount,
		MessageResetTime: state.MessageResetTime,
	})
}

func (h *AdminHandler) ResetQuota(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.entitlements == nil {
		writeInternal(w, "ENTITLEMENTS_UNAVAILABLE", "entitlement service is unavailable")
		return
	}
	targetID, ok := userIDParam(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		return
	}

	if err := h.entitlements.ResetMessageCount(r.Context(), targetID); err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to reset message quota")
		return
	}

	h.logger.Info("admin reset message quota",
		zap.Int64("actor_user_id", identity.UserID),
		zap.String("actor_role", identity.Role),
		zap.Int64("target_user_id", targetID),
	)
	w.WriteHeader(http.StatusNoContent)
}

// Reload discards cached entitlement state for the user and returns the state
// rehydrated from the subscription record.
func (h *AdminHandler) Reload(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.entitlements == nil {
		writeInternal(w, "ENTITLEMENTS_UNAVAILABLE", "entitlement service is unavailable")
		return
	}
	targetID, ok := userIDParam(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		return
	}

	if err := h.entitlements.Forget(r.Context(), targetID); err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to drop entitlement state")
		return
	}
	h.logger.Info("admin reloaded entitlements",
		zap.Int64("actor_user_id", identity.UserID),
		zap.Int64("target_user_id", targetID),
	)

	h.Entitlements(w, r)
}
