package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/enums"
	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/model"
)

// tickingSource counts the window down by one second per read.
type tickingSource struct {
	left    int64
	reloads int
}

func (s *tickingSource) Quota(_ context.Context, _ int64) (enums.SubscriptionTier, model.MessageQuota, error) {
	if s.reloads > 0 || s.left <= 0 {
		return enums.TierFree, model.MessageQuota{State: model.QuotaIdle, Limit: 20}, nil
	}
	q := model.MessageQuota{State: model.QuotaExhausted, Used: 20, Limit: 20, ResetInSec: s.left}
	s.left--
	return enums.TierFree, q, nil
}

func (s *tickingSource) CanSendMessage(_ context.Context, _ int64) (bool, error) {
	s.reloads++
	return true, nil
}

func TestCountdownStopsAtZeroAndReloads(t *testing.T) {
	source := &tickingSource{left: 3}
	countdown := NewCountdown(NewPresenter(source), time.Millisecond)

	var seen []int64
	var last View
	err := countdown.Run(context.Background(), 1, func(v View) error {
		seen = append(seen, v.ResetInSec)
		last = v
		return nil
	})
	if err != nil {
		t.Fatalf("run countdown: %v", err)
	}

	want := []int64{3, 2, 1, 0}
	if len(seen) != len(want) {
		t.Fatalf("unexpected emitted views: %v", seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("unexpected emitted views: got %v want %v", seen, want)
		}
	}
	if source.reloads != 1 {
		t.Fatalf("expected one reload, got %d", source.reloads)
	}
	if last.State != model.QuotaIdle {
		t.Fatalf("unexpected final state: %s", last.State)
	}
}

func TestCountdownReturnsImmediatelyWhenNotExhausted(t *testing.T) {
	source := &sourceStub{
		tier:  enums.TierFree,
		quota: model.MessageQuota{State: model.QuotaAccumulating, Used: 3, Limit: 20, ResetInSec: 500},
	}
	countdown := NewCountdown(NewPresenter(source), time.Millisecond)

	emits := 0
	if err := countdown.Run(context.Background(), 1, func(View) error {
		emits++
		return nil
	}); err != nil {
		t.Fatalf("run countdown: %v", err)
	}
	if emits != 1 {
		t.Fatalf("expected a single view, got %d", emits)
	}
}

func TestCountdownStopsOnCancel(t *testing.T) {
	source := &sourceStub{
		tier:  enums.TierFree,
		quota: model.MessageQuota{State: model.QuotaExhausted, Used: 20, Limit: 20, ResetInSec: 86000},
	}
	countdown := NewCountdown(NewPresenter(source), time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	emits := 0
	err := countdown.Run(ctx, 1, func(View) error {
		emits++
		if emits == 2 {
			cancel()
		}
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if emits != 2 {
		t.Fatalf("unexpected emits after cancel: %d", emits)
	}
	if source.reloads != 0 {
		t.Fatalf("cancelled countdown must not reload")
	}
}

func TestCountdownPropagatesEmitError(t *testing.T) {
	source := &sourceStub{
		tier:  enums.TierFree,
		quota: model.MessageQuota{State: model.QuotaExhausted, Used: 20, Limit: 20, ResetInSec: 86000},
	}
	countdown := NewCountdown(NewPresenter(source), time.Millisecond)

	wantErr := errors.New("client gone")
	err := countdown.Run(context.Background(), 1, func(View) error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected emit error, got %v", err)
	}
}
