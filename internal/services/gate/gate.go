package gate

import (
	"context"
	"fmt"
	"strings"

	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/enums"
	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/rules"
	"github.com/ivankudzin/tgapp/subscriptions/internal/infra/metrics"
)

type Presentation string

const (
	PresentationRender   Presentation = "render"
	PresentationFallback Presentation = "fallback"
	// PresentationBlurred shows the protected content dimmed and
	// non-interactive together with the upsell prompt.
	PresentationBlurred Presentation = "blurred"
)

type FeatureChecker interface {
	CanUseFeature(ctx context.Context, userID int64, feature enums.Feature) (bool, error)
}

// Navigator resolves where the upgrade action leads.
type Navigator interface {
	UpgradePath(requiredTier enums.SubscriptionTier) string
}

type Decision struct {
	Feature      enums.Feature
	Allowed      bool
	RequiredTier enums.SubscriptionTier
	Presentation Presentation
	Prompt       string
	UpgradePath  string
}

type Gate struct {
	checker   FeatureChecker
	navigator Navigator
}

func New(checker FeatureChecker, navigator Navigator) *Gate {
	if navigator == nil {
		navigator = StaticNavigator{}
	}
	return &Gate{
		checker:   checker,
		navigator: navigator,
	}
}

// Evaluate decides how a protected region is shown. It never changes
// entitlement state.
func (g *Gate) Evaluate(ctx context.Context, userID int64, feature enums.Feature, hasFallback bool) (Decision, error) {
	if g.checker == nil {
		return Decision{}, fmt.Errorf("feature checker is nil")
	}

	required, err := rules.RequiredTier(feature)
	if err != nil {
		return Decision{}, err
	}
	allowed, err := g.checker.CanUseFeature(ctx, userID, feature)
	if err != nil {
		return Decision{}, err
	}

	decision := Decision{
		Feature:      feature,
		Allowed:      allowed,
		RequiredTier: required,
		Presentation: PresentationRender,
	}
	if !allowed {
		decision.Presentation = PresentationBlurred
		if hasFallback {
			decision.Presentation = PresentationFallback
		}
		decision.Prompt = upsellPrompt(required)
		decision.UpgradePath = g.navigator.UpgradePath(required)
	}

	metrics.GateDecisions.WithLabelValues(string(feature), string(decision.Presentation)).Inc()
	return decision, nil
}

// StaticNavigator points every upgrade at one plan-selection path, passing
// the required tier as a query parameter.
type StaticNavigator struct {
	Path string
}

func (n StaticNavigator) UpgradePath(requiredTier enums.SubscriptionTier) string {
	path := strings.TrimSpace(n.Path)
	if path == "" {
		path = "/subscription"
	}
	return path + "?tier=" + string(requiredTier)
}

func upsellPrompt(tier enums.SubscriptionTier) string {
	return fmt.Sprintf("Upgrade to %s to unlock this feature", tierTitle(tier))
}

func tierTitle(tier enums.SubscriptionTier) string {
	name := string(tier)
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
