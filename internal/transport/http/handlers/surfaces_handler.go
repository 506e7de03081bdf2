package handlers

import (
	"net/http"

	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/enums"
	authsvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/auth"
	httperrors "github.com/ivankudzin/tgapp/subscriptions/internal/transport/http/errors"
)

// SurfacesHandler acknowledges requests to gated product surfaces. The
// features themselves live in other services; these routes only exist so the
// gate has something to protect.
type SurfacesHandler struct{}

func NewSurfacesHandler() *SurfacesHandler {
	return &SurfacesHandler{}
}

func (h *SurfacesHandler) Acknowledge(feature enums.Feature) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := authsvc.IdentityFromContext(r.Context())
		if !ok {
			writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
			return
		}

		httperrors.Write(w, http.StatusOK, struct {
			OK      bool   `json:"ok"`
			Feature string `json:"feature"`
			UserID  int64  `json:"user_id"`
		}{
			OK:      true,
			Feature: string(feature),
			UserID:  identity.UserID,
		})
	}
}
