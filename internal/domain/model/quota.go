package model

import "time"

type QuotaState string

const (
	// QuotaIdle means no window is open.
	QuotaIdle         QuotaState = "idle"
	QuotaAccumulating QuotaState = "accumulating"
	QuotaExhausted    QuotaState = "exhausted"
	// QuotaUnlimited is reported while the tier bypasses the quota.
	QuotaUnlimited QuotaState = "unlimited"
)

type MessageQuota struct {
	State      QuotaState `json:"state"`
	Used       int        `json:"used"`
	Limit      int        `json:"limit"`
	Unlimited  bool       `json:"unlimited"`
	ResetAt    *time.Time `json:"reset_at"`
	ResetInSec int64      `json:"reset_in_sec"`
}
