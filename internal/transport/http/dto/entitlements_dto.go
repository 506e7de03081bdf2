package dto

import "time"

type FeatureSetResponse struct {
	MessageViewing     bool `json:"messageViewing"`
	MessageOpening     bool `json:"messageOpening"`
	AudioCalls         bool `json:"audioCalls"`
	VideoCalls         bool `json:"videoCalls"`
	UnlimitedUploads   bool `json:"unlimitedUploads"`
	VirtualClubs       bool `json:"virtualClubs"`
	AdvancedFilters    bool `json:"advancedFilters"`
	ProfileBoost       bool `json:"profileBoost"`
	SeeWhoLikedYou     bool `json:"seeWhoLikedYou"`
	UnlimitedSwipes    bool `json:"unlimitedSwipes"`
	Rewind             bool `json:"rewind"`
	MessagingLimit     int  `json:"messagingLimit"`
	UnlimitedMessaging bool `json:"unlimitedMessaging"`
}

type PlanResponse struct {
	Tier       string             `json:"tier"`
	Price      string             `json:"price"`
	PriceCents int64              `json:"price_cents"`
	Currency   string             `json:"currency"`
	Features   FeatureSetResponse `json:"features"`
}

type PlansResponse struct {
	Plans []PlanResponse `json:"plans"`
}

type EntitlementsResponse struct {
	Tier       string             `json:"tier"`
	ExpiresAt  *time.Time         `json:"expires_at"`
	PriceCents int64              `json:"price_cents"`
	Features   FeatureSetResponse `json:"features"`
}

type ActivateSubscriptionRequest struct {
	UserID int64  `json:"user_id"`
	Tier   string `json:"tier"`
}

type SubscriptionResponse struct {
	UserID    int64      `json:"user_id"`
	Tier      string     `json:"tier"`
	ExpiresAt *time.Time `json:"expires_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type EntitlementStateResponse struct {
	UserID           int64      `json:"user_id"`
	Tier             string     `json:"tier"`
	ExpiryDate       *time.Time `json:"expiry_date"`
	MessageCount     int        `json:"message_count"`
	MessageResetTime *time.Time `json:"message_reset_time"`
}
