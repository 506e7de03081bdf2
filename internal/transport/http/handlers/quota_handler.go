package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	authsvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/auth"
	entsvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/entitlements"
	quotasvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/quota"
	"github.com/ivankudzin/tgapp/subscriptions/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/tgapp/subscriptions/internal/transport/http/errors"
)

type QuotaHandler struct {
	presenter *quotasvc.Presenter
	countdown *quotasvc.Countdown
	logger    *zap.Logger
}

func NewQuotaHandler(presenter *quotasvc.Presenter, countdown *quotasvc.Countdown, logger *zap.Logger) *QuotaHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuotaHandler{
		presenter: presenter,
		countdown: countdown,
		logger:    logger,
	}
}

func (h *QuotaHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.presenter == nil {
		writeInternal(w, "QUOTA_SERVICE_UNAVAILABLE", "quota service is unavailable")
		return
	}

	view, err := h.presenter.View(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, entsvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid user")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load message quota")
		return
	}

	httperrors.Write(w, http.StatusOK, mapQuotaView(view))
}

// Stream sends one "quota" server-sent event per countdown tick and closes
// once the window resets or the client goes away.
func (h *QuotaHandler) Stream(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.countdown == nil {
		writeInternal(w, "QUOTA_SERVICE_UNAVAILABLE", "quota service is unavailable")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeInternal(w, "STREAMING_UNSUPPORTED", "streaming is not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	err := h.countdown.Run(r.Context(), identity.UserID, func(view quotasvc.View) error {
		payload, err := json.Marshal(mapQuotaView(view))
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: quota\ndata: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		h.logger.Warn("quota stream ended with error",
			zap.Int64("user_id", identity.UserID),
			zap.Error(err),
		)
		_, _ = fmt.Fprint(w, "event: error\ndata: {\"code\":\"INTERNAL_ERROR\"}\n\n")
		flusher.Flush()
	}
}

func mapQuotaView(view quotasvc.View) dto.QuotaResponse {
	return dto.QuotaResponse{
		Tier:            string(view.Tier),
		State:           string(view.State),
		Used:            view.Used,
		Limit:           view.Limit,
		Remaining:       view.Remaining,
		Unlimited:       view.Unlimited,
		ResetAt:         view.ResetAt,
		ResetInSec:      view.ResetInSec,
		ProgressPercent: view.ProgressPercent,
		UpgradeTier:     string(view.UpgradeTier),
		UpgradePrompt:   view.UpgradePrompt,
	}
}
