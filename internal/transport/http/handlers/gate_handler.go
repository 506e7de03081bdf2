package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/enums"
	authsvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/auth"
	gatesvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/gate"
	"github.com/ivankudzin/tgapp/subscriptions/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/tgapp/subscriptions/internal/transport/http/errors"
)

type GateHandler struct {
	gate *gatesvc.Gate
}

func NewGateHandler(gate *gatesvc.Gate) *GateHandler {
	return &GateHandler{gate: gate}
}

func (h *GateHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.gate == nil {
		writeInternal(w, "GATE_UNAVAILABLE", "feature gate is unavailable")
		return
	}

	feature, err := enums.ParseFeature(chi.URLParam(r, "feature"))
	if err != nil {
		writeBadRequest(w, "UNKNOWN_FEATURE", "unknown feature")
		return
	}
	hasFallback := false
	if raw := strings.TrimSpace(r.URL.Query().Get("fallback")); raw != "" {
		hasFallback, err = strconv.ParseBool(raw)
		if err != nil {
			writeBadRequest(w, "VALIDATION_ERROR", "fallback must be a boolean")
			return
		}
	}

	decision, err := h.gate.Evaluate(r.Context(), identity.UserID, feature, hasFallback)
	if err != nil {
		if errors.Is(err, enums.ErrUnknownFeature) {
			writeBadRequest(w, "UNKNOWN_FEATURE", "unknown feature")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to evaluate feature gate")
		return
	}

	httperrors.Write(w, http.StatusOK, MapGateDecision(decision))
}

func MapGateDecision(decision gatesvc.Decision) dto.GateDecisionResponse {
	return dto.GateDecisionResponse{
		Feature:      string(decision.Feature),
		Allowed:      decision.Allowed,
		RequiredTier: string(decision.RequiredTier),
		Presentation: string(decision.Presentation),
		Prompt:       decision.Prompt,
		UpgradePath:  decision.UpgradePath,
	}
}

// WriteFeatureLocked answers 402 with the gate decision so the client can
// render the upsell.
func WriteFeatureLocked(w http.ResponseWriter, decision gatesvc.Decision) {
	httperrors.Write(w, http.StatusPaymentRequired, dto.FeatureLockedResponse{
		Code:     "FEATURE_LOCKED",
		Message:  decision.Prompt,
		Decision: MapGateDecision(decision),
	})
}
