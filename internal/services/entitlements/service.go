package entitlements

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/enums"
	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/model"
	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/rules"
	"github.com/ivankudzin/tgapp/subscriptions/internal/infra/metrics"
)

var ErrValidation = errors.New("validation error")

// StateStore keeps session entitlement state between requests and restarts.
type StateStore interface {
	Load(ctx context.Context, userID int64) (model.EntitlementState, bool, error)
	Save(ctx context.Context, userID int64, state model.EntitlementState) error
}

// SubscriptionStore is the durable record of the purchased tier.
type SubscriptionStore interface {
	GetSubscription(ctx context.Context, userID int64) (model.Subscription, bool, error)
}

type stateDeleter interface {
	Delete(ctx context.Context, userID int64) error
}

type Config struct {
	DefaultTier enums.SubscriptionTier
	// Window is the length of a message quota window.
	Window time.Duration
	// IdleTTL is how long an untouched account stays in memory. Zero keeps
	// accounts until they are evicted explicitly.
	IdleTTL time.Duration
}

type Service struct {
	states StateStore
	subs   SubscriptionStore
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	accounts map[int64]*entry
	loads    singleflight.Group
}

type entry struct {
	account *Account
	// persist orders mutations with their writes to the state store.
	persist  sync.Mutex
	lastUsed atomic.Int64
}

func NewService(states StateStore, subs SubscriptionStore, cfg Config, logger *zap.Logger) *Service {
	if !cfg.DefaultTier.Valid() {
		cfg.DefaultTier = enums.TierFree
	}
	if cfg.Window <= 0 {
		cfg.Window = rules.MessageWindow
	}
	if cfg.IdleTTL < 0 {
		cfg.IdleTTL = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		states:   states,
		subs:     subs,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		accounts: make(map[int64]*entry),
	}
}

func (s *Service) Account(ctx context.Context, userID int64) (*Account, error) {
	e, err := s.entry(ctx, userID)
	if err != nil {
		return nil, err
	}
	return e.account, nil
}

func (s *Service) Snapshot(ctx context.Context, userID int64) (model.EntitlementState, error) {
	account, err := s.Account(ctx, userID)
	if err != nil {
		return model.EntitlementState{}, err
	}
	return account.Snapshot(), nil
}

func (s *Service) Features(ctx context.Context, userID int64) (enums.SubscriptionTier, rules.FeatureSet, error) {
	account, err := s.Account(ctx, userID)
	if err != nil {
		return "", rules.FeatureSet{}, err
	}
	tier := account.Tier()
	return tier, rules.FeaturesForTier(tier), nil
}

func (s *Service) CanUseFeature(ctx context.Context, userID int64, feature enums.Feature) (bool, error) {
	account, err := s.Account(ctx, userID)
	if err != nil {
		return false, err
	}
	return account.CanUseFeature(feature)
}

// SetTier is the hook the billing flow calls after a tier change.
func (s *Service) SetTier(ctx context.Context, userID int64, tier enums.SubscriptionTier, expiry *time.Time) error {
	if !tier.Valid() {
		return fmt.Errorf("%w: %s", enums.ErrUnknownTier, tier)
	}

	return s.mutate(ctx, userID, func(account *Account) {
		account.SetTier(tier)
		account.SetExpiry(expiry)
	})
}

func (s *Service) CanSendMessage(ctx context.Context, userID int64) (bool, error) {
	var allowed bool
	err := s.mutate(ctx, userID, func(account *Account) {
		allowed = account.CanSendMessage()
	})
	return allowed, err
}

func (s *Service) IncrementMessageCount(ctx context.Context, userID int64) (bool, error) {
	var ok bool
	err := s.mutate(ctx, userID, func(account *Account) {
		ok = account.IncrementMessageCount()
	})
	return ok, err
}

func (s *Service) ReleaseMessage(ctx context.Context, userID int64) error {
	return s.mutate(ctx, userID, func(account *Account) {
		account.ReleaseMessage()
	})
}

func (s *Service) ResetMessageCount(ctx context.Context, userID int64) error {
	return s.mutate(ctx, userID, func(account *Account) {
		account.ResetMessageCount()
	})
}

func (s *Service) TimeUntilReset(ctx context.Context, userID int64) (int64, error) {
	account, err := s.Account(ctx, userID)
	if err != nil {
		return 0, err
	}
	return account.TimeUntilReset(), nil
}

func (s *Service) Quota(ctx context.Context, userID int64) (enums.SubscriptionTier, model.MessageQuota, error) {
	account, err := s.Account(ctx, userID)
	if err != nil {
		return "", model.MessageQuota{}, err
	}
	return account.Tier(), account.Quota(), nil
}

// Evict drops the in-memory account; the next call hydrates it again.
func (s *Service) Evict(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accounts, userID)
	metrics.CachedAccounts.Set(float64(len(s.accounts)))
}

// Forget drops the stored session state and the in-memory account, so the
// next call rehydrates from the subscription record.
func (s *Service) Forget(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrValidation
	}
	if deleter, ok := s.states.(stateDeleter); ok {
		if err := deleter.Delete(ctx, userID); err != nil {
			return fmt.Errorf("delete entitlement state: %w", err)
		}
	}
	s.Evict(userID)
	return nil
}

func (s *Service) mutate(ctx context.Context, userID int64, fn func(*Account)) error {
	e, err := s.entry(ctx, userID)
	if err != nil {
		return err
	}

	e.persist.Lock()
	defer e.persist.Unlock()

	before := e.account.Snapshot()
	fn(e.account)
	after := e.account.Snapshot()
	if statesEqual(before, after) || s.states == nil {
		return nil
	}

	if err := s.states.Save(ctx, userID, after); err != nil {
		metrics.StatePersistFailures.Inc()
		s.logger.Warn("persist entitlement state failed",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
	return nil
}

func (s *Service) entry(ctx context.Context, userID int64) (*entry, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}

	if e := s.cached(userID); e != nil {
		return e, nil
	}

	// Stores are read outside s.mu so a slow load only holds up callers for
	// the same user.
	loaded, err, _ := s.loads.Do(strconv.FormatInt(userID, 10), func() (interface{}, error) {
		if e := s.cached(userID); e != nil {
			return e, nil
		}

		state, err := s.hydrate(ctx, userID)
		if err != nil {
			return nil, err
		}

		account := NewAccount(func() time.Time { return s.now() })
		account.window = s.cfg.Window
		account.Restore(state)
		e := &entry{account: account}
		e.lastUsed.Store(s.now().UnixNano())

		s.mu.Lock()
		defer s.mu.Unlock()
		if existing, ok := s.accounts[userID]; ok {
			return existing, nil
		}
		s.accounts[userID] = e
		metrics.CachedAccounts.Set(float64(len(s.accounts)))
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return loaded.(*entry), nil
}

func (s *Service) cached(userID int64) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.accounts[userID]
	if !ok {
		return nil
	}
	e.lastUsed.Store(s.now().UnixNano())
	return e
}

// PruneIdle drops accounts untouched for longer than the configured idle ttl
// and returns how many were dropped. Without a state store only accounts with
// no open message window are dropped, since their counters live nowhere else.
func (s *Service) PruneIdle() int {
	if s.cfg.IdleTTL <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.cfg.IdleTTL).UnixNano()

	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for userID, e := range s.accounts {
		if e.lastUsed.Load() > cutoff {
			continue
		}
		if s.states == nil {
			snapshot := e.account.Snapshot()
			if snapshot.MessageCount > 0 || snapshot.MessageResetTime != nil {
				continue
			}
		}
		delete(s.accounts, userID)
		pruned++
	}
	metrics.CachedAccounts.Set(float64(len(s.accounts)))
	return pruned
}

func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

func (s *Service) hydrate(ctx context.Context, userID int64) (model.EntitlementState, error) {
	state := model.EntitlementState{Tier: s.cfg.DefaultTier}

	if s.states != nil {
		stored, found, err := s.states.Load(ctx, userID)
		if err != nil {
			return model.EntitlementState{}, fmt.Errorf("load entitlement state: %w", err)
		}
		if found {
			return stored, nil
		}
	}

	if s.subs != nil {
		sub, found, err := s.subs.GetSubscription(ctx, userID)
		if err != nil {
			return model.EntitlementState{}, fmt.Errorf("load subscription: %w", err)
		}
		if found && sub.Tier.Valid() {
			state.Tier = sub.Tier
			state.ExpiryDate = sub.ExpiresAt
		}
	}

	return state, nil
}

func statesEqual(a, b model.EntitlementState) bool {
	return a.Tier == b.Tier &&
		a.MessageCount == b.MessageCount &&
		timesEqual(a.ExpiryDate, b.ExpiryDate) &&
		timesEqual(a.MessageResetTime, b.MessageResetTime)
}

func timesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
