package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/inkforge/studio-fulfillment/internal/redisx"
)

// ReportCache guards against duplicate side effects on retry: a run
// whose reference already has a stored report returns that report.
type ReportCache interface {
	Get(ctx context.Context, reference string) (*Report, bool)
	Put(ctx context.Context, rep *Report)
}

type RedisReportCache struct {
	Client *redis.Client
}

func (c *RedisReportCache) Get(ctx context.Context, reference string) (*Report, bool) {
	key := fmt.Sprintf(redisx.KeyFulfillReport, reference)
	s, err := c.Client.Get(ctx, key).Result()
	if err != nil || s == "" {
		return nil, false
	}
	var rep Report
	if err := json.Unmarshal([]byte(s), &rep); err != nil {
		return nil, false
	}
	return &rep, true
}

func (c *RedisReportCache) Put(ctx context.Context, rep *Report) {
	b, err := json.Marshal(rep)
	if err != nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyFulfillReport, rep.Reference)
	_ = c.Client.Set(ctx, key, b, redisx.TTLFulfillReport).Err()

	// Keep the status cache warm for GET /orders/{id}.
	statusKey := fmt.Sprintf(redisx.KeyOrderStatus, rep.OrderID)
	statusBody, _ := json.Marshal(map[string]any{"status": rep.OrderStatus})
	_ = c.Client.Set(ctx, statusKey, statusBody, redisx.TTLStatusCache).Err()
}
