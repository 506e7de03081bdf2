package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/auth"
	msgsvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/messages"
	quotasvc "github.com/ivankudzin/tgapp/subscriptions/internal/services/quota"
	"github.com/ivankudzin/tgapp/subscriptions/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/tgapp/subscriptions/internal/transport/http/errors"
)

type MessagesHandler struct {
	service   *msgsvc.Service
	presenter *quotasvc.Presenter
}

func NewMessagesHandler(service *msgsvc.Service, presenter *quotasvc.Presenter) *MessagesHandler {
	return &MessagesHandler{service: service, presenter: presenter}
}

func (h *MessagesHandler) Send(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MESSAGES_SERVICE_UNAVAILABLE", "messages service is unavailable")
		return
	}

	var req dto.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	result, err := h.service.Send(r.Context(), identity.UserID, msgsvc.SendInput{
		MatchID: req.MatchID,
		Body:    req.Body,
	})
	if err != nil {
		switch {
		case errors.Is(err, msgsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "match_id and a non-empty body are required")
		default:
			if qe, ok := msgsvc.IsQuotaExceeded(err); ok {
				httperrors.WriteRateLimit(w, httperrors.RateLimitError{
					Code:          "QUOTA_EXCEEDED",
					Message:       "daily message limit reached",
					RetryAfterSec: qe.RetryAfter(),
					CooldownUntil: qe.ResetAt,
				})
				return
			}
			if tf, ok := msgsvc.IsTooFast(err); ok {
				httperrors.WriteRateLimit(w, httperrors.RateLimitError{
					Code:          "TOO_FAST",
					Message:       "too many messages, slow down",
					RetryAfterSec: tf.RetryAfter(),
				})
				return
			}
			writeInternal(w, "INTERNAL_ERROR", "failed to send message")
		}
		return
	}

	quota := dto.QuotaResponse{
		Tier:       string(result.Tier),
		State:      string(result.Quota.State),
		Used:       result.Quota.Used,
		Limit:      result.Quota.Limit,
		Unlimited:  result.Quota.Unlimited,
		ResetAt:    result.Quota.ResetAt,
		ResetInSec: result.Quota.ResetInSec,
	}
	if h.presenter != nil {
		if view, err := h.presenter.View(r.Context(), identity.UserID); err == nil {
			quota = mapQuotaView(view)
		}
	}

	httperrors.Write(w, http.StatusCreated, dto.SendMessageResponse{
		Message: dto.MessageResponse{
			ID:        result.Message.ID,
			MatchID:   result.Message.MatchID,
			SenderID:  result.Message.SenderID,
			Body:      result.Message.Body,
			CreatedAt: result.Message.CreatedAt,
		},
		Quota: quota,
	})
}
