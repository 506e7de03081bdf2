package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/enums"
	"github.com/ivankudzin/tgapp/subscriptions/internal/domain/model"
)

const entitlementStatePrefix = "entitlements:state:"

// EntitlementStateRepo keeps the session entitlement snapshot of each user as
// a hash. A zero ttl keeps the hash forever.
type EntitlementStateRepo struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewEntitlementStateRepo(client *goredis.Client, ttl time.Duration) *EntitlementStateRepo {
	if ttl < 0 {
		ttl = 0
	}
	return &EntitlementStateRepo{client: client, ttl: ttl}
}

func (r *EntitlementStateRepo) Load(ctx context.Context, userID int64) (model.EntitlementState, bool, error) {
	if r.client == nil {
		return model.EntitlementState{}, false, nil
	}
	if userID <= 0 {
		return model.EntitlementState{}, false, fmt.Errorf("invalid user id")
	}

	values, err := r.client.HGetAll(ctx, entitlementStateKey(userID)).Result()
	if err != nil {
		return model.EntitlementState{}, false, fmt.Errorf("get entitlement state hash: %w", err)
	}
	if len(values) == 0 {
		return model.EntitlementState{}, false, nil
	}

	state, err := parseEntitlementState(values)
	if err != nil {
		return model.EntitlementState{}, false, err
	}
	return state, true, nil
}

func (r *EntitlementStateRepo) Save(ctx context.Context, userID int64, state model.EntitlementState) error {
	if r.client == nil {
		return nil
	}
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	key := entitlementStateKey(userID)
	fields := map[string]interface{}{
		"tier":          string(state.Tier),
		"message_count": state.MessageCount,
	}
	if state.ExpiryDate != nil {
		fields["expiry_date"] = state.ExpiryDate.UnixNano()
	}
	if state.MessageResetTime != nil {
		fields["message_reset_time"] = state.MessageResetTime.UnixNano()
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save entitlement state: %w", err)
	}
	return nil
}

func (r *EntitlementStateRepo) Delete(ctx context.Context, userID int64) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, entitlementStateKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete entitlement state: %w", err)
	}
	return nil
}

func parseEntitlementState(values map[string]string) (model.EntitlementState, error) {
	tier, err := enums.ParseTier(values["tier"])
	if err != nil {
		return model.EntitlementState{}, fmt.Errorf("decode entitlement tier: %w", err)
	}

	count, err := strconv.Atoi(values["message_count"])
	if err != nil || count < 0 {
		return model.EntitlementState{}, fmt.Errorf("decode entitlement message count %q", values["message_count"])
	}

	state := model.EntitlementState{Tier: tier, MessageCount: count}
	if state.ExpiryDate, err = parseUnixNano(values, "expiry_date"); err != nil {
		return model.EntitlementState{}, err
	}
	if state.MessageResetTime, err = parseUnixNano(values, "message_reset_time"); err != nil {
		return model.EntitlementState{}, err
	}
	return state, nil
}

func parseUnixNano(values map[string]string, field string) (*time.Time, error) {
	raw, ok := values[field]
	if !ok || raw == "" {
		return nil, nil
	}
	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode entitlement %s: %w", field, err)
	}
	at := time.Unix(0, nanos).UTC()
	return &at, nil
}

func entitlementStateKey(userID int64) string {
	return entitlementStatePrefix + strconv.FormatInt(userID, 10)
}
