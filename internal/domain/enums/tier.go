package enums

import (
	"errors"
	"strings"
)

var ErrUnknownTier = errors.New("unknown subscription tier")

type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "free"
	TierPremium SubscriptionTier = "premium"
	TierGold    SubscriptionTier = "gold"
)

// Rank orders tiers by entitlement: every feature of a lower rank is kept at a
// higher one. Unknown tiers rank below free.
func (t SubscriptionTier) Rank() int {
	switch t {
	case TierFree:
		return 0
	case TierPremium:
		return 1
	case TierGold:
		return 2
	default:
		return -1
	}
}

func (t SubscriptionTier) Valid() bool {
	return t.Rank() >= 0
}

func ParseTier(raw string) (SubscriptionTier, error) {
	tier := SubscriptionTier(strings.ToLower(strings.TrimSpace(raw)))
	if !tier.Valid() {
		return "", ErrUnknownTier
	}
	return tier, nil
}
