package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/enums"
	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/model"
	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/rules"
)

type Source interface {
	Quota(ctx context.Context, userID int64) (enums.SubscriptionTier, model.MessageQuota, error)
	CanSendMessage(ctx context.Context, userID int64) (bool, error)
}

type View struct {
	Tier            enums.SubscriptionTier
	State           model.QuotaState
	Used            int
	Limit           int
	Remaining       int
	Unlimited       bool
	ResetAt         *time.Time
	ResetInSec      int64
	ProgressPercent int
	UpgradeTier     enums.SubscriptionTier
	UpgradePrompt   string
}

type Presenter struct {
	source Source
}

func NewPresenter(source Source) *Presenter {
	return &Presenter{source: source}
}

func (p *Presenter) View(ctx context.Context, userID int64) (View, error) {
	if p.source == nil {
		return View{}, fmt.Errorf("quota source is nil")
	}

	tier, q, err := p.source.Quota(ctx, userID)
	if err != nil {
		return View{}, err
	}
	return buildView(tier, q), nil
}

// Reload re-runs the send decision so an expired window is reset in the
// store, then derives a fresh view.
func (p *Presenter) Reload(ctx context.Context, userID int64) (View, error) {
	if p.source == nil {
		return View{}, fmt.Errorf("quota source is nil")
	}
	if _, err := p.source.CanSendMessage(ctx, userID); err != nil {
		return View{}, err
	}
	return p.View(ctx, userID)
}

func buildView(tier enums.SubscriptionTier, q model.MessageQuota) View {
	view := View{
		Tier:       tier,
		State:      q.State,
		Used:       q.Used,
		Limit:      q.Limit,
		Unlimited:  q.Unlimited,
		ResetAt:    q.ResetAt,
		ResetInSec: q.ResetInSec,
	}
	if view.ResetInSec < 0 {
		view.ResetInSec = 0
	}
	if view.Unlimited {
		return view
	}

	view.Remaining = q.Limit - q.Used
	if view.Remaining < 0 {
		view.Remaining = 0
	}
	if q.Limit > 0 {
		view.ProgressPercent = q.Used * 100 / q.Limit
		if view.ProgressPercent > 100 {
			view.ProgressPercent = 100
		}
	}

	if q.State == model.QuotaExhausted {
		if next, ok := rules.NextTier(tier); ok {
			view.UpgradeTier = next
			view.UpgradePrompt = upgradePrompt(next)
		}
	}
	return view
}

func upgradePrompt(next enums.SubscriptionTier) string {
	features := rules.FeaturesForTier(next)
	if features.UnlimitedMessaging {
		return fmt.Sprintf("Upgrade to %s for unlimited messages", next)
	}
	return fmt.Sprintf("Upgrade to %s for %d messages a day", next, features.MessagingLimit)
}
