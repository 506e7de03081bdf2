package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/enums"
	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/model"
	"github.com/ivankudzin/tgapp/subscriptions/internal/infra/metrics"
	"github.com/ivankudzin/tgapp/subscriptions/internal/pkg/validate"
)

const DefaultMaxBodyRunes = 4000

var (
	ErrValidation      = errors.New("validation error")
	ErrDependenciesNil = errors.New("messages dependencies are not configured")
)

type TooFastError struct {
	RetryAfterSec int64
}

func (e TooFastError) Error() string {
	return "too fast"
}

func (e TooFastError) RetryAfter() int64 {
	if e.RetryAfterSec <= 0 {
		return 1
	}
	return e.RetryAfterSec
}

// QuotaExceededError is returned when the daily message quota of the
// sender's tier is used up.
type QuotaExceededError struct {
	RetryAfterSec int64
	ResetAt       *time.Time
}

func (e QuotaExceededError) Error() string {
	return "message quota exceeded"
}

func (e QuotaExceededError) RetryAfter() int64 {
	if e.RetryAfterSec <= 0 {
		return 1
	}
	return e.RetryAfterSec
}

func IsTooFast(err error) (*TooFastError, bool) {
	var tf TooFastError
	if errors.As(err, &tf) {
		return &tf, true
	}
	return nil, false
}

func IsQuotaExceeded(err error) (*QuotaExceededError, bool) {
	var qe QuotaExceededError
	if errors.As(err, &qe) {
		return &qe, true
	}
	return nil, false
}

type QuotaKeeper interface {
	IncrementMessageCount(ctx context.Context, userID int64) (bool, error)
	ReleaseMessage(ctx context.Context, userID int64) error
	Quota(ctx context.Context, userID int64) (enums.SubscriptionTier, model.MessageQuota, error)
}

type RateLimiter interface {
	AllowMessage(ctx context.Context, userID int64) (int64, bool, error)
}

type MessageStore interface {
	Create(ctx context.Context, msg model.Message) (model.Message, error)
}

type Config struct {
	MaxBodyRunes int
}

type Dependencies struct {
	Quota       QuotaKeeper
	RateLimiter RateLimiter
	Store       MessageStore
	Logger      *zap.Logger
}

type SendInput struct {
	MatchID int64
	Body    string
}

type SendResult struct {
	Message model.Message
	Quota   model.MessageQuota
	Tier    enums.SubscriptionTier
}

type Service struct {
	quota       QuotaKeeper
	rateLimiter RateLimiter
	store       MessageStore
	logger      *zap.Logger
	cfg         Config
	now         func() time.Time
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.MaxBodyRunes <= 0 {
		cfg.MaxBodyRunes = DefaultMaxBodyRunes
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		quota:       deps.Quota,
		rateLimiter: deps.RateLimiter,
		store:       deps.Store,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Send checks the burst limiter, takes one message from the daily quota and
// stores the message. A rejected send leaves the quota untouched.
func (s *Service) Send(ctx context.Context, userID int64, input SendInput) (SendResult, error) {
	if userID <= 0 || input.MatchID <= 0 {
		return SendResult{}, ErrValidation
	}
	if !validate.Text(input.Body, s.cfg.MaxBodyRunes) {
		return SendResult{}, ErrValidation
	}
	body := strings.TrimSpace(input.Body)
	if s.quota == nil || s.store == nil {
		return SendResult{}, ErrDependenciesNil
	}

	if s.rateLimiter != nil {
		retryAfter, allowed, err := s.rateLimiter.AllowMessage(ctx, userID)
		if err != nil {
			return SendResult{}, fmt.Errorf("consume message rate limit: %w", err)
		}
		if !allowed {
			metrics.MessagesRejected.WithLabelValues("too_fast").Inc()
			return SendResult{}, TooFastError{RetryAfterSec: retryAfter}
		}
	}

	ok, err := s.quota.IncrementMessageCount(ctx, userID)
	if err != nil {
		return SendResult{}, fmt.Errorf("consume message quota: %w", err)
	}

	tier, quota, err := s.quota.Quota(ctx, userID)
	if err != nil {
		return SendResult{}, fmt.Errorf("read message quota: %w", err)
	}
	if !ok {
		metrics.MessagesRejected.WithLabelValues("quota_exceeded").Inc()
		return SendResult{}, QuotaExceededError{
			RetryAfterSec: quota.ResetInSec,
			ResetAt:       quota.ResetAt,
		}
	}

	msg, err := s.store.Create(ctx, model.Message{
		SenderID:  userID,
		MatchID:   input.MatchID,
		Body:      body,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		fields := []zap.Field{
			zap.Int64("user_id", userID),
			zap.Int64("match_id", input.MatchID),
			zap.Error(err),
		}
		if releaseErr := s.quota.ReleaseMessage(ctx, userID); releaseErr != nil {
			fields = append(fields, zap.NamedError("release_error", releaseErr))
		}
		s.logger.Error("store message failed", fields...)
		return SendResult{}, fmt.Errorf("store message: %w", err)
	}

	metrics.MessagesSent.WithLabelValues(string(tier)).Inc()
	return SendResult{
		Message: msg,
		Quota:   quota,
		Tier:    tier,
	}, nil
}
