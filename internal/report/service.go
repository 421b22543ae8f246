package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tanakrit-dev/backend-pos/internal/store"
)

type salesStore interface {
	DailySales(ctx context.Context, day time.Time) (store.DailySummary, error)
}

// Service provides cached access to the daily sales aggregates. Summaries
// for the current day cache briefly; closed days are stable and cache long.
type Service struct {
	Store    salesStore
	R        *redis.Client
	TodayTTL time.Duration
	PastTTL  time.Duration
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Daily returns the sales summary for the day containing the instant.
func (s *Service) Daily(ctx context.Context, day time.Time) (store.DailySummary, error) {
	key := fmt.Sprintf("report:daily:%s", day.Format("2006-01-02"))
	if summary, ok := s.fromCache(ctx, key); ok {
		return summary, nil
	}
	summary, err := s.Store.DailySales(ctx, day)
	if err != nil {
		return store.DailySummary{}, err
	}
	s.cache(ctx, key, day, summary)
	return summary, nil
}

func (s *Service) fromCache(ctx context.Context, key string) (store.DailySummary, bool) {
	if s.R == nil {
		return store.DailySummary{}, false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return store.DailySummary{}, false
	}
	var summary store.DailySummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return store.DailySummary{}, false
	}
	return summary, true
}

func (s *Service) cache(ctx context.Context, key string, day time.Time, summary store.DailySummary) {
	if s.R == nil {
		return
	}
	ttl := s.PastTTL
	if day.Format("2006-01-02") == s.now().Format("2006-01-02") {
		ttl = s.TodayTTL
	}
	if ttl <= 0 {
		return
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, ttl).Err()
}
