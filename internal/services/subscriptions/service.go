package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/enums"
	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/model"
	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/rules"
	"github.com/ivankudzin/tgapp/subscriptions/internal/infra/metrics"
)

const DefaultPeriod = 30 * 24 * time.Hour

var (
	ErrValidation      = errors.New("validation error")
	ErrDependenciesNil = errors.New("subscriptions dependencies are not configured")
)

type SubscriptionStore interface {
	UpsertSubscription(ctx context.Context, sub model.Subscription) (model.Subscription, error)
}

// TierSetter is the entitlement hook invoked after a tier change.
type TierSetter interface {
	SetTier(ctx context.Context, userID int64, tier enums.SubscriptionTier, expiry *time.Time) error
	Snapshot(ctx context.Context, userID int64) (model.EntitlementState, error)
}

type Config struct {
	Period time.Duration
}

type Dependencies struct {
	Store        SubscriptionStore
	Entitlements TierSetter
	Logger       *zap.Logger
}

type PlanView struct {
	Tier       enums.SubscriptionTier
	PriceCents int64
	Price      string
	Currency   string
	Features   rules.FeatureSet
}

type Current struct {
	Tier       enums.SubscriptionTier
	ExpiresAt  *time.Time
	Features   rules.FeatureSet
	PriceCents int64
	Quota      model.EntitlementState
}

type Service struct {
	store        SubscriptionStore
	entitlements TierSetter
	logger       *zap.Logger
	cfg          Config
	now          func() time.Time
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:        deps.Store,
		entitlements: deps.Entitlements,
		logger:       logger,
		cfg:          cfg,
		now:          time.Now,
	}
}

// Catalog lists the plans in ascending tier order.
func (s *Service) Catalog() []PlanView {
	plans := rules.Plans()
	out := make([]PlanView, 0, len(plans))
	for _, plan := range plans {
		out = append(out, PlanView{
			Tier:       plan.Tier,
			PriceCents: int64(plan.Price),
			Price:      plan.Price.String(),
			Currency:   "USD",
			Features:   plan.Features,
		})
	}
	return out
}

// Activate records a tier bought through billing and hands it to the
// entitlement store. Paid tiers run for one period from now; free has no
// expiry.
func (s *Service) Activate(ctx context.Context, userID int64, tier enums.SubscriptionTier) (model.Subscription, error) {
	if userID <= 0 {
		return model.Subscription{}, ErrValidation
	}
	if !tier.Valid() {
		return model.Subscription{}, fmt.Errorf("%w: %s", enums.ErrUnknownTier, tier)
	}
	if s.entitlements == nil {
		return model.Subscription{}, ErrDependenciesNil
	}

	now := s.now().UTC()
	sub := model.Subscription{
		UserID:    userID,
		Tier:      tier,
		UpdatedAt: now,
	}
	if tier != enums.TierFree {
		expiresAt := now.Add(s.cfg.Period)
		sub.ExpiresAt = &expiresAt
	}

	if s.store != nil {
		stored, err := s.store.UpsertSubscription(ctx, sub)
		if err != nil {
			return model.Subscription{}, fmt.Errorf("record subscription: %w", err)
		}
		sub = stored
	}

	if err := s.entitlements.SetTier(ctx, userID, sub.Tier, sub.ExpiresAt); err != nil {
		return model.Subscription{}, fmt.Errorf("apply tier: %w", err)
	}

	metrics.TierChanges.WithLabelValues(string(sub.Tier)).Inc()
	s.logger.Info("subscription activated",
		zap.Int64("user_id", userID),
		zap.String("tier", string(sub.Tier)),
	)
	return sub, nil
}

func (s *Service) Current(ctx context.Context, userID int64) (Current, error) {
	if userID <= 0 {
		return Current{}, ErrValidation
	}
	if s.entitlements == nil {
		return Current{}, ErrDependenciesNil
	}

	state, err := s.entitlements.Snapshot(ctx, userID)
	if err != nil {
		return Current{}, err
	}

	return Current{
		Tier:       state.Tier,
		ExpiresAt:  state.ExpiryDate,
		Features:   rules.FeaturesForTier(state.Tier),
		PriceCents: int64(rules.PriceForTier(state.Tier)),
		Quota:      state,
	}, nil
}
