package model

import (
	"time"

	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/enums"
)

type Subscription struct {
	UserID    int64                  `json:"user_id"`
	Tier      enums.SubscriptionTier `json:"tier"`
	ExpiresAt *time.Time             `json:"expires_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}
