package entitlements

import (
	"sync"
	"time"

	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/enums"
	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/model"
	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/rules"
)

// Account holds the entitlement state of a single user session. All methods
// are safe for concurrent use; the check and the increment of a message send
// happen under one lock.
type Account struct {
	mu     sync.Mutex
	state  model.EntitlementState
	window time.Duration
	now    func() time.Time
}

func NewAccount(now func() time.Time) *Account {
	if now == nil {
		now = time.Now
	}
	return &Account{
		state:  model.DefaultEntitlementState(),
		window: rules.MessageWindow,
		now:    now,
	}
}

// SetTier does not touch the message counters; the new limit applies from
// the next decision.
func (a *Account) SetTier(tier enums.SubscriptionTier) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Tier = tier
}

// SetExpiry records the paid-until date. Nothing enforces it.
func (a *Account) SetExpiry(expiry *time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.ExpiryDate = copyTime(expiry)
}

func (a *Account) Tier() enums.SubscriptionTier {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Tier
}

func (a *Account) FeaturesForTier(tier enums.SubscriptionTier) rules.FeatureSet {
	return rules.FeaturesForTier(tier)
}

func (a *Account) Features() rules.FeatureSet {
	return rules.FeaturesForTier(a.Tier())
}

func (a *Account) CanUseFeature(feature enums.Feature) (bool, error) {
	return a.Features().Enabled(feature)
}

func (a *Account) CanSendMessage() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.canSendLocked()
}

// IncrementMessageCount records one sent message and opens a window on the
// first send. It returns false, leaving the state untouched, when the quota
// does not allow another send.
func (a *Account) IncrementMessageCount() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.canSendLocked() {
		return false
	}
	// Unlimited sends are not counted, so a non-zero count always has an open
	// window to expire.
	if rules.FeaturesForTier(a.state.Tier).UnlimitedMessaging {
		return true
	}

	a.state.MessageCount++
	if a.state.MessageResetTime == nil {
		resetAt := rules.WindowResetAt(a.now(), a.window)
		a.state.MessageResetTime = &resetAt
	}
	return true
}

// ReleaseMessage hands back a slot taken by IncrementMessageCount in the
// current window. Releasing the only counted send closes the window again.
func (a *Account) ReleaseMessage() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if rules.FeaturesForTier(a.state.Tier).UnlimitedMessaging || a.state.MessageCount == 0 {
		return
	}
	if rules.WindowExpired(a.now(), a.state.MessageResetTime) {
		return
	}
	a.state.MessageCount--
	if a.state.MessageCount == 0 {
		a.state.MessageResetTime = nil
	}
}

func (a *Account) ResetMessageCount() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetLocked()
}

// TimeUntilReset returns whole seconds until the open window closes, or 0.
func (a *Account) TimeUntilReset() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return rules.SecondsUntil(a.now(), a.state.MessageResetTime)
}

// QuotaState classifies the counters without applying a lazy reset.
func (a *Account) QuotaState() model.QuotaState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.quotaStateLocked()
}

// Quota is a read-only view of the message quota. An expired window is
// reported as idle but only reset by CanSendMessage or IncrementMessageCount.
func (a *Account) Quota() model.MessageQuota {
	a.mu.Lock()
	defer a.mu.Unlock()

	features := rules.FeaturesForTier(a.state.Tier)
	now := a.now()
	quota := model.MessageQuota{
		State:     a.quotaStateLocked(),
		Used:      a.state.MessageCount,
		Limit:     features.MessagingLimit,
		Unlimited: features.UnlimitedMessaging,
	}
	if quota.Unlimited {
		return quota
	}
	if rules.WindowExpired(now, a.state.MessageResetTime) {
		quota.State = model.QuotaIdle
		quota.Used = 0
		return quota
	}
	quota.ResetAt = copyTime(a.state.MessageResetTime)
	quota.ResetInSec = rules.SecondsUntil(now, a.state.MessageResetTime)
	return quota
}

func (a *Account) Snapshot() model.EntitlementState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return model.EntitlementState{
		Tier:             a.state.Tier,
		ExpiryDate:       copyTime(a.state.ExpiryDate),
		MessageCount:     a.state.MessageCount,
		MessageResetTime: copyTime(a.state.MessageResetTime),
	}
}

func (a *Account) Restore(state model.EntitlementState) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !state.Tier.Valid() {
		state.Tier = enums.TierFree
	}
	if state.MessageCount < 0 || state.MessageResetTime == nil {
		state.MessageCount = 0
	}
	a.state = model.EntitlementState{
		Tier:             state.Tier,
		ExpiryDate:       copyTime(state.ExpiryDate),
		MessageCount:     state.MessageCount,
		MessageResetTime: copyTime(state.MessageResetTime),
	}
}

func (a *Account) canSendLocked() bool {
	features := rules.FeaturesForTier(a.state.Tier)
	if features.UnlimitedMessaging {
		return true
	}
	if rules.WindowExpired(a.now(), a.state.MessageResetTime) {
		a.resetLocked()
		return true
	}
	return a.state.MessageCount < features.MessagingLimit
}

func (a *Account) resetLocked() {
	a.state.MessageCount = 0
	a.state.MessageResetTime = nil
}

func (a *Account) quotaStateLocked() model.QuotaState {
	features := rules.FeaturesForTier(a.state.Tier)
	switch {
	case features.UnlimitedMessaging:
		return model.QuotaUnlimited
	case a.state.MessageResetTime == nil:
		return model.QuotaIdle
	case a.state.MessageCount >= features.MessagingLimit:
		return model.QuotaExhausted
	default:
		return model.QuotaAccumulating
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
