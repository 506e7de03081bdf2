package quota

import (
	"context"
	"time"

	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/model"
)

const DefaultCountdownInterval = time.Second

// Countdown re-derives the quota view on a fixed interval while the quota is
// exhausted.
type Countdown struct {
	presenter *Presenter
	interval  time.Duration
}

func NewCountdown(presenter *Presenter, interval time.Duration) *Countdown {
	if interval <= 0 {
		interval = DefaultCountdownInterval
	}
	return &Countdown{
		presenter: presenter,
		interval:  interval,
	}
}

// Run emits the current view, then one view per tick until the window
// resets. On reset it reloads the send decision, emits the fresh view and
// returns nil. It returns ctx.Err() on cancellation and the first emit error.
func (c *Countdown) Run(ctx context.Context, userID int64, emit func(View) error) error {
	view, err := c.presenter.View(ctx, userID)
	if err != nil {
		return err
	}
	if err := emit(view); err != nil {
		return err
	}
	if view.State != model.QuotaExhausted {
		return nil
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		view, err = c.presenter.View(ctx, userID)
		if err != nil {
			return err
		}
		if view.State == model.QuotaExhausted && view.ResetInSec > 0 {
			if err := emit(view); err != nil {
				return err
			}
			continue
		}

		view, err = c.presenter.Reload(ctx, userID)
		if err != nil {
			return err
		}
		return emit(view)
	}
}
