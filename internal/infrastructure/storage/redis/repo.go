package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"perpexec/internal/application/port"
	"perpexec/internal/domain/model"
)

// Repo 将执行结果写入 Redis stream 并发布，供实时消费方订阅。
// 读路径（ListRecentResults）从 stream 尾部回读。
type Repo struct {
	rdb          *redis.Client
	prefix       string
	resultStream string
	resultChan   string
	maxLen       int64
}

func New(rdb *redis.Client, prefix string) *Repo {
	if prefix == "" {
		prefix = "perpexec"
	}
	return &Repo{
		rdb:          rdb,
		prefix:       prefix,
		resultStream: prefix + ":results",
		resultChan:   prefix + ":results:pub",
		maxLen:       10000,
	}
}

func (r *Repo) SaveOrderResult(ctx context.Context, batchID int64, result model.OrderResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}

	// 1) Stream: XADD <stream> MAXLEN ~ 10000 * ...
	if _, err := r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.resultStream,
		MaxLen: r.maxLen,
		Approx: true,
		Values: map[string]any{
			"batch_id": batchID,
			"symbol":   result.Symbol,
			"action":   string(result.Action),
			"success":  result.Success,
			"ts_ms":    result.Ts,
			"payload":  string(payload),
		},
	}).Result(); err != nil {
		return err
	}

	// 2) Pub/Sub 通知
	return r.rdb.Publish(ctx, r.resultChan, string(payload)).Err()
}

func (r *Repo) ListRecentResults(ctx context.Context, limit int) ([]model.OrderResult, error) {
	if limit <= 0 {
		limit = 50
	}
	msgs, err := r.rdb.XRevRangeN(ctx, r.resultStream, "+", "-", int64(limit)).Result()
	if err != nil {
		return nil, err
	}

	results := make([]model.OrderResult, 0, len(msgs))
	for _, m := range msgs {
		raw, ok := m.Values["payload"].(string)
		if !ok {
			continue
		}
		var res model.OrderResult
		if err := json.Unmarshal([]byte(raw), &res); err != nil {
			continue
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *Repo) Close() error {
	return r.rdb.Close()
}

var _ port.Repository = (*Repo)(nil)
