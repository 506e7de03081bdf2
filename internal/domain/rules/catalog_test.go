package rules

import (
	"errors"
	"testing"

	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/enums"
)

var allTiers = []enums.SubscriptionTier{enums.TierFree, enums.TierPremium, enums.TierGold}

func TestUnlimitedMessagingOnlyForGold(t *testing.T) {
	for _, tier := range allTiers {
		got := FeaturesForTier(tier).UnlimitedMessaging
		if got != (tier == enums.TierGold) {
			t.Fatalf("unexpected unlimitedMessaging for %s: %v", tier, got)
		}
	}
}

func TestMessagingLimits(t *testing.T) {
	want := map[enums.SubscriptionTier]int{
		enums.TierFree:    20,
		enums.TierPremium: 50,
		enums.TierGold:    999,
	}
	for tier, limit := range want {
		if got := FeaturesForTier(tier).MessagingLimit; got != limit {
			t.Fatalf("unexpected messaging limit for %s: got %d want %d", tier, got, limit)
		}
	}
}

func TestEntitlementIsMonotonicAcrossTiers(t *testing.T) {
	for i := 0; i < len(allTiers); i++ {
		for j := i + 1; j < len(allTiers); j++ {
			lower := FeaturesForTier(allTiers[i])
			higher := FeaturesForTier(allTiers[j])
			for _, feature := range enums.Features() {
				lowerOn, err := lower.Enabled(feature)
				if err != nil {
					t.Fatalf("lookup %s: %v", feature, err)
				}
				higherOn, err := higher.Enabled(feature)
				if err != nil {
					t.Fatalf("lookup %s: %v", feature, err)
				}
				if lowerOn && !higherOn {
					t.Fatalf("%s enabled on %s but not on %s", feature, allTiers[i], allTiers[j])
				}
			}
		}
	}
}

func TestPrices(t *testing.T) {
	cases := map[enums.SubscriptionTier]string{
		enums.TierFree:    "0.00",
		enums.TierPremium: "9.99",
		enums.TierGold:    "19.99",
	}
	for tier, want := range cases {
		if got := PriceForTier(tier).String(); got != want {
			t.Fatalf("unexpected price for %s: got %s want %s", tier, got, want)
		}
	}
}

func TestRequiredTierIsLowestEnablingTier(t *testing.T) {
	cases := map[enums.Feature]enums.SubscriptionTier{
		enums.FeatureMessageViewing:  enums.TierFree,
		enums.FeatureAdvancedFilters: enums.TierPremium,
		enums.FeatureSeeWhoLikedYou:  enums.TierPremium,
		enums.FeatureVideoCalls:      enums.TierGold,
		enums.FeatureRewind:          enums.TierGold,
	}
	for feature, want := range cases {
		got, err := RequiredTier(feature)
		if err != nil {
			t.Fatalf("required tier for %s: %v", feature, err)
		}
		if got != want {
			t.Fatalf("unexpected required tier for %s: got %s want %s", feature, got, want)
		}
	}
}

func TestRequiredTierAgreesWithCatalogForEveryFeature(t *testing.T) {
	for _, feature := range enums.Features() {
		required, err := RequiredTier(feature)
		if err != nil {
			t.Fatalf("required tier for %s: %v", feature, err)
		}
		for _, tier := range allTiers {
			enabled, _ := FeaturesForTier(tier).Enabled(feature)
			if enabled != (tier.Rank() >= required.Rank()) {
				t.Fatalf("%s on %s: enabled=%v but required tier is %s", feature, tier, enabled, required)
			}
		}
	}
}

func TestEnabledRejectsUnknownFeature(t *testing.T) {
	_, err := FeaturesForTier(enums.TierGold).Enabled(enums.Feature("messagingLimit"))
	if !errors.Is(err, enums.ErrUnknownFeature) {
		t.Fatalf("expected ErrUnknownFeature, got %v", err)
	}
}

func TestNextTier(t *testing.T) {
	if next, ok := NextTier(enums.TierFree); !ok || next != enums.TierPremium {
		t.Fatalf("unexpected next tier after free: %s %v", next, ok)
	}
	if _, ok := NextTier(enums.TierGold); ok {
		t.Fatalf("gold must have no next tier")
	}
}
