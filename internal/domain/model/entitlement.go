package model

import (
	"time"

	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/enums"
)

// EntitlementState is the live entitlement record of one user session.
type EntitlementState struct {
	Tier             enums.SubscriptionTier `json:"tier"`
	ExpiryDate       *time.Time             `json:"expiry_date"`
	MessageCount     int                    `json:"message_count"`
	MessageResetTime *time.Time             `json:"message_reset_time"`
}

func DefaultEntitlementState() EntitlementState {
	return EntitlementState{Tier: enums.TierFree}
}
