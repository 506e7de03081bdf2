package rules

import (
	"fmt"

	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/enums"
)

// FeatureSet is the resolved entitlement of one tier.
type FeatureSet struct {
	MessageViewing   bool `json:"messageViewing"`
	MessageOpening   bool `json:"messageOpening"`
	AudioCalls       bool `json:"audioCalls"`
	VideoCalls       bool `json:"videoCalls"`
	UnlimitedUploads bool `json:"unlimitedUploads"`
	VirtualClubs     bool `json:"virtualClubs"`
	AdvancedFilters  bool `json:"advancedFilters"`
	ProfileBoost     bool `json:"profileBoost"`
	SeeWhoLikedYou   bool `json:"seeWhoLikedYou"`
	UnlimitedSwipes  bool `json:"unlimitedSwipes"`
	Rewind           bool `json:"rewind"`

	// MessagingLimit is the number of messages allowed per quota window. It is
	// ignored when UnlimitedMessaging is set.
	MessagingLimit     int  `json:"messagingLimit"`
	UnlimitedMessaging bool `json:"unlimitedMessaging"`
}

func (s FeatureSet) Enabled(feature enums.Feature) (bool, error) {
	switch feature {
	case enums.FeatureMessageViewing:
		return s.MessageViewing, nil
	case enums.FeatureMessageOpening:
		return s.MessageOpening, nil
	case enums.FeatureAudioCalls:
		return s.AudioCalls, nil
	case enums.FeatureVideoCalls:
		return s.VideoCalls, nil
	case enums.FeatureUnlimitedUploads:
		return s.UnlimitedUploads, nil
	case enums.FeatureVirtualClubs:
		return s.VirtualClubs, nil
	case enums.FeatureAdvancedFilters:
		return s.AdvancedFilters, nil
	case enums.FeatureProfileBoost:
		return s.ProfileBoost, nil
	case enums.FeatureSeeWhoLikedYou:
		return s.SeeWhoLikedYou, nil
	case enums.FeatureUnlimitedSwipes:
		return s.UnlimitedSwipes, nil
	case enums.FeatureRewind:
		return s.Rewind, nil
	default:
		return false, fmt.Errorf("%w: %q", enums.ErrUnknownFeature, string(feature))
	}
}

// Price is a monthly price in USD cents.
type Price int64

func (p Price) String() string {
	return fmt.Sprintf("%d.%02d", int64(p)/100, int64(p)%100)
}

type Plan struct {
	Tier     enums.SubscriptionTier
	Features FeatureSet
	Price    Price
}

var catalog = []Plan{
	{
		Tier: enums.TierFree,
		Features: FeatureSet{
			MessageViewing: true,
			MessagingLimit: 20,
		},
		Price: 0,
	},
	{
		Tier: enums.TierPremium,
		Features: FeatureSet{
			MessageViewing:   true,
			MessageOpening:   true,
			AudioCalls:       true,
			UnlimitedUploads: true,
			AdvancedFilters:  true,
			SeeWhoLikedYou:   true,
			UnlimitedSwipes:  true,
			MessagingLimit:   50,
		},
		Price: 999,
	},
	{
		Tier: enums.TierGold,
		Features: FeatureSet{
			MessageViewing:     true,
			MessageOpening:     true,
			AudioCalls:         true,
			VideoCalls:         true,
			UnlimitedUploads:   true,
			VirtualClubs:       true,
			AdvancedFilters:    true,
			ProfileBoost:       true,
			SeeWhoLikedYou:     true,
			UnlimitedSwipes:    true,
			Rewind:             true,
			MessagingLimit:     999,
			UnlimitedMessaging: true,
		},
		Price: 1999,
	},
}

// Plans returns the catalog ordered from the lowest tier up.
func Plans() []Plan {
	out := make([]Plan, len(catalog))
	copy(out, catalog)
	return out
}

// FeaturesForTier falls back to the free tier for values outside the enum.
func FeaturesForTier(tier enums.SubscriptionTier) FeatureSet {
	return planFor(tier).Features
}

func PriceForTier(tier enums.SubscriptionTier) Price {
	return planFor(tier).Price
}

// RequiredTier is the lowest tier at which the feature is enabled.
func RequiredTier(feature enums.Feature) (enums.SubscriptionTier, error) {
	for _, plan := range catalog {
		enabled, err := plan.Features.Enabled(feature)
		if err != nil {
			return "", err
		}
		if enabled {
			return plan.Tier, nil
		}
	}
	return "", fmt.Errorf("feature %q is not offered by any tier", string(feature))
}

// NextTier returns the tier directly above the given one.
func NextTier(tier enums.SubscriptionTier) (enums.SubscriptionTier, bool) {
	for i, plan := range catalog {
		if plan.Tier == tier && i+1 < len(catalog) {
			return catalog[i+1].Tier, true
		}
	}
	return "", false
}

func planFor(tier enums.SubscriptionTier) Plan {
	for _, plan := range catalog {
		if plan.Tier == tier {
			return plan
		}
	}
	return catalog[0]
}
