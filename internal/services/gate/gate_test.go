package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/enums"
	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/rules"
)

type tierChecker struct {
	tier  enums.SubscriptionTier
	calls int
}

func (c *tierChecker) CanUseFeature(_ context.Context, _ int64, feature enums.Feature) (bool, error) {
	c.calls++
	return rules.FeaturesForTier(c.tier).Enabled(feature)
}

func TestEvaluateAllowsFeatureOfCurrentTier(t *testing.T) {
	g := New(&tierChecker{tier: enums.TierPremium}, nil)

	decision, err := g.Evaluate(context.Background(), 1, enums.FeatureAdvancedFilters, false)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !decision.Allowed || decision.Presentation != PresentationRender {
		t.Fatalf("unexpected decision: %+v", decision)
	}
	if decision.RequiredTier != enums.TierPremium {
		t.Fatalf("unexpected required tier: %s", decision.RequiredTier)
	}
	if decision.Prompt != "" || decision.UpgradePath != "" {
		t.Fatalf("allowed decision must not carry an upsell: %+v", decision)
	}
}

func TestEvaluateBlursWithoutFallback(t *testing.T) {
	g := New(&tierChecker{tier: enums.TierFree}, StaticNavigator{Path: "/plans"})

	decision, err := g.Evaluate(context.Background(), 1, enums.FeatureVideoCalls, false)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Allowed {
		t.Fatalf("free tier must not get video calls")
	}
	if decision.Presentation != PresentationBlurred {
		t.Fatalf("unexpected presentation: %s", decision.Presentation)
	}
	if decision.RequiredTier != enums.TierGold {
		t.Fatalf("unexpected required tier: %s", decision.RequiredTier)
	}
	if decision.Prompt != "Upgrade to Gold to unlock this feature" {
		t.Fatalf("unexpected prompt: %q", decision.Prompt)
	}
	if decision.UpgradePath != "/plans?tier=gold" {
		t.Fatalf("unexpected upgrade path: %q", decision.UpgradePath)
	}
}

func TestEvaluateUsesFallbackWhenSupplied(t *testing.T) {
	g := New(&tierChecker{tier: enums.TierFree}, nil)

	decision, err := g.Evaluate(context.Background(), 1, enums.FeatureSeeWhoLikedYou, true)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Presentation != PresentationFallback {
		t.Fatalf("unexpected presentation: %s", decision.Presentation)
	}
	if decision.UpgradePath != "/subscription?tier=premium" {
		t.Fatalf("unexpected upgrade path: %q", decision.UpgradePath)
	}
}

func TestEvaluateRejectsUnknownFeatureBeforeLookup(t *testing.T) {
	checker := &tierChecker{tier: enums.TierGold}
	g := New(checker, nil)

	_, err := g.Evaluate(context.Background(), 1, enums.Feature("messagingLimit"), false)
	if !errors.Is(err, enums.ErrUnknownFeature) {
		t.Fatalf("expected ErrUnknownFeature, got %v", err)
	}
	if checker.calls != 0 {
		t.Fatalf("unknown feature must not reach the entitlement store")
	}
}
