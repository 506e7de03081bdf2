package entitlements

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/enums"
	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/model"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestAccount(tier enums.SubscriptionTier) (*Account, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC)}
	account := NewAccount(clock.Now)
	account.SetTier(tier)
	return account, clock
}

func TestFreeTierAllowsTwentyMessagesThenBlocks(t *testing.T) {
	account, _ := newTestAccount(enums.TierFree)

	for i := 0; i < 20; i++ {
		if !account.IncrementMessageCount() {
			t.Fatalf("send #%d must succeed", i+1)
		}
	}
	if account.IncrementMessageCount() {
		t.Fatalf("send #21 must be rejected")
	}

	state := account.Snapshot()
	if state.MessageCount != 20 {
		t.Fatalf("unexpected message count after rejection: %d", state.MessageCount)
	}
	if account.QuotaState() != model.QuotaExhausted {
		t.Fatalf("unexpected quota state: %s", account.QuotaState())
	}
}

func TestExpiredWindowResetsOnNextCheck(t *testing.T) {
	account, clock := newTestAccount(enums.TierFree)
	for i := 0; i < 20; i++ {
		account.IncrementMessageCount()
	}
	if account.CanSendMessage() {
		t.Fatalf("exhausted quota must block")
	}

	clock.Advance(24*time.Hour + time.Second)

	if !account.CanSendMessage() {
		t.Fatalf("expected send allowed after window expiry")
	}
	state := account.Snapshot()
	if state.MessageCount != 0 || state.MessageResetTime != nil {
		t.Fatalf("expected counters reset, got count=%d reset=%v", state.MessageCount, state.MessageResetTime)
	}
	if account.QuotaState() != model.QuotaIdle {
		t.Fatalf("unexpected quota state after reset: %s", account.QuotaState())
	}
}

func TestGoldBypassesQuota(t *testing.T) {
	account, _ := newTestAccount(enums.TierGold)

	for i := 0; i < 1000; i++ {
		if !account.IncrementMessageCount() {
			t.Fatalf("gold send #%d rejected", i+1)
		}
	}
	if account.QuotaState() != model.QuotaUnlimited {
		t.Fatalf("unexpected quota state for gold: %s", account.QuotaState())
	}
	if account.TimeUntilReset() != 0 {
		t.Fatalf("gold must not open a quota window")
	}
}

func TestTimeUntilResetIsZeroWithoutWindow(t *testing.T) {
	account, _ := newTestAccount(enums.TierPremium)
	if got := account.TimeUntilReset(); got != 0 {
		t.Fatalf("expected 0 without window, got %d", got)
	}
}

func TestTimeUntilResetClampsWhenClockPassesWindow(t *testing.T) {
	account, clock := newTestAccount(enums.TierFree)
	account.IncrementMessageCount()

	if got := account.TimeUntilReset(); got != 86400 {
		t.Fatalf("unexpected time until reset: got %d want 86400", got)
	}

	clock.Advance(48 * time.Hour)
	if got := account.TimeUntilReset(); got != 0 {
		t.Fatalf("expected clamp to zero, got %d", got)
	}
}

func TestPremiumScenarioResetsExactlyAtWindowEnd(t *testing.T) {
	account, clock := newTestAccount(enums.TierPremium)
	firstSend := clock.Now()

	for i := 0; i < 50; i++ {
		if !account.IncrementMessageCount() {
			t.Fatalf("premium send #%d rejected", i+1)
		}
		clock.Advance(time.Second)
	}

	state := account.Snapshot()
	if state.MessageCount != 50 {
		t.Fatalf("unexpected message count: %d", state.MessageCount)
	}
	wantReset := firstSend.Add(86400 * time.Second)
	if state.MessageResetTime == nil || !state.MessageResetTime.Equal(wantReset) {
		t.Fatalf("unexpected reset time: got %v want %s", state.MessageResetTime, wantReset.Format(time.RFC3339))
	}

	if account.IncrementMessageCount() {
		t.Fatalf("send #51 must be rejected")
	}
	if got := account.Snapshot().MessageCount; got != 50 {
		t.Fatalf("rejected send mutated count: %d", got)
	}

	clock.now = wantReset
	if !account.CanSendMessage() {
		t.Fatalf("expected send allowed exactly at reset time")
	}
	if got := account.Snapshot().MessageCount; got != 0 {
		t.Fatalf("expected count reset to 0, got %d", got)
	}
}

func TestSetTierChangesFeaturesOnly(t *testing.T) {
	account, _ := newTestAccount(enums.TierFree)
	account.IncrementMessageCount()
	account.IncrementMessageCount()
	before := account.Snapshot()

	allowed, err := account.CanUseFeature(enums.FeatureVideoCalls)
	if err != nil {
		t.Fatalf("can use feature: %v", err)
	}
	if allowed {
		t.Fatalf("free tier must not have video calls")
	}

	account.SetTier(enums.TierGold)
	allowed, err = account.CanUseFeature(enums.FeatureVideoCalls)
	if err != nil {
		t.Fatalf("can use feature: %v", err)
	}
	if !allowed {
		t.Fatalf("gold tier must have video calls")
	}

	after := account.Snapshot()
	if after.MessageCount != before.MessageCount || !after.MessageResetTime.Equal(*before.MessageResetTime) {
		t.Fatalf("set tier must not touch quota counters")
	}
}

func TestDowngradeMidWindowAppliesNewLimitImmediately(t *testing.T) {
	account, _ := newTestAccount(enums.TierPremium)
	for i := 0; i < 30; i++ {
		account.IncrementMessageCount()
	}

	account.SetTier(enums.TierFree)
	if account.CanSendMessage() {
		t.Fatalf("30 sent is above the free limit")
	}
	if account.QuotaState() != model.QuotaExhausted {
		t.Fatalf("unexpected quota state: %s", account.QuotaState())
	}
}

func TestDowngradeFromGoldStartsFresh(t *testing.T) {
	account, _ := newTestAccount(enums.TierGold)
	for i := 0; i < 100; i++ {
		account.IncrementMessageCount()
	}

	account.SetTier(enums.TierFree)
	if !account.CanSendMessage() {
		t.Fatalf("gold sends must not count against the free quota")
	}
}

func TestCanUseFeatureRejectsUnknownKey(t *testing.T) {
	account, _ := newTestAccount(enums.TierGold)
	_, err := account.CanUseFeature(enums.Feature("messagingLimit"))
	if !errors.Is(err, enums.ErrUnknownFeature) {
		t.Fatalf("expected ErrUnknownFeature, got %v", err)
	}
}

func TestResetMessageCountClearsWindow(t *testing.T) {
	account, _ := newTestAccount(enums.TierFree)
	for i := 0; i < 20; i++ {
		account.IncrementMessageCount()
	}

	account.ResetMessageCount()

	state := account.Snapshot()
	if state.MessageCount != 0 || state.MessageResetTime != nil {
		t.Fatalf("expected cleared counters, got %+v", state)
	}
	if !account.CanSendMessage() {
		t.Fatalf("expected send allowed after reset")
	}
}

func TestQuotaReportsExpiredWindowAsIdleWithoutMutation(t *testing.T) {
	account, clock := newTestAccount(enums.TierFree)
	for i := 0; i < 20; i++ {
		account.IncrementMessageCount()
	}
	clock.Advance(25 * time.Hour)

	quota := account.Quota()
	if quota.State != model.QuotaIdle || quota.Used != 0 || quota.ResetInSec != 0 {
		t.Fatalf("unexpected quota view: %+v", quota)
	}
	if account.Snapshot().MessageCount != 20 {
		t.Fatalf("read-only view must not reset counters")
	}
}

func TestRestoreDropsCountWithoutWindow(t *testing.T) {
	account, _ := newTestAccount(enums.TierFree)
	account.Restore(model.EntitlementState{
		Tier:         enums.SubscriptionTier("platinum"),
		MessageCount: 40,
	})

	state := account.Snapshot()
	if state.Tier != enums.TierFree {
		t.Fatalf("unknown tier must restore as free, got %s", state.Tier)
	}
	if state.MessageCount != 0 {
		t.Fatalf("count without window must restore as 0, got %d", state.MessageCount)
	}
}

func TestConcurrentIncrementsNeverExceedLimit(t *testing.T) {
	account, _ := newTestAccount(enums.TierFree)

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if account.IncrementMessageCount() {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := succeeded.Load(); got != 20 {
		t.Fatalf("expected exactly 20 accepted sends, got %d", got)
	}
	if count := account.Snapshot().MessageCount; count != 20 {
		t.Fatalf("expected final count 20, got %d", count)
	}
}

func TestReleaseMessageReturnsSlot(t *testing.T) {
	account, clock := newTestAccount(enums.TierFree)

	account.IncrementMessageCount()
	account.IncrementMessageCount()
	account.ReleaseMessage()
	if snapshot := account.Snapshot(); snapshot.MessageCount != 1 || snapshot.MessageResetTime == nil {
		t.Fatalf("expected one counted send in open window, got %+v", snapshot)
	}

	account.ReleaseMessage()
	if snapshot := account.Snapshot(); snapshot.MessageCount != 0 || snapshot.MessageResetTime != nil {
		t.Fatalf("expected idle quota after releasing last send, got %+v", snapshot)
	}

	account.ReleaseMessage()
	if count := account.Snapshot().MessageCount; count != 0 {
		t.Fatalf("release on empty window must not go negative, got %d", count)
	}

	account.IncrementMessageCount()
	clock.Advance(25 * time.Hour)
	account.ReleaseMessage()
	if count := account.Snapshot().MessageCount; count != 1 {
		t.Fatalf("release after window expiry must be a no-op, got %d", count)
	}
}
