package dto

import "time"

type QuotaResponse struct {
	Tier            string     `json:"tier"`
	State           string     `json:"state"`
	Used            int        `json:"used"`
	Limit           int        `json:"limit"`
	Remaining       int        `json:"remaining"`
	Unlimited       bool       `json:"unlimited"`
	ResetAt         *time.Time `json:"reset_at"`
	ResetInSec      int64      `json:"reset_in_sec"`
	ProgressPercent int        `json:"progress_percent"`
	UpgradeTier     string     `json:"upgrade_tier,omitempty"`
	UpgradePrompt   string     `json:"upgrade_prompt,omitempty"`
}

type SendMessageRequest struct {
	MatchID int64  `json:"match_id"`
	Body    string `json:"body"`
}

type MessageResponse struct {
	ID        string    `json:"id"`
	MatchID   int64     `json:"match_id"`
	SenderID  int64     `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type SendMessageResponse struct {
	Message MessageResponse `json:"message"`
	Quota   QuotaResponse   `json:"quota"`
}
