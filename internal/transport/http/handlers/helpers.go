package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/rules"
	"github.com/ivankudzin/tgapp/subscriptions/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/tgapp/subscriptions/internal/transport/http/errors"
)

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: code, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Code: code, Message: message})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Code: code, Message: message})
}

func userIDParam(r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func mapFeatureSet(f rules.FeatureSet) dto.FeatureSetResponse {
	return dto.FeatureSetResponse{
		MessageViewing:     f.MessageViewing,
		MessageOpening:     f.MessageOpening,
		AudioCalls:         f.AudioCalls,
		VideoCalls:         f.VideoCalls,
		UnlimitedUploads:   f.UnlimitedUploads,
		VirtualClubs:       f.VirtualClubs,
		AdvancedFilters:    f.AdvancedFilters,
		ProfileBoost:       f.ProfileBoost,
		SeeWhoLikedYou:     f.SeeWhoLikedYou,
		UnlimitedSwipes:    f.UnlimitedSwipes,
		Rewind:             f.Rewind,
		MessagingLimit:     f.MessagingLimit,
		UnlimitedMessaging: f.UnlimitedMessaging,
	}
}
