package cache

import (
	"context"
	"time"

	"novapos/internal/domain"
)

type AdviceCache interface {
	Get(ctx context.Context, key string) (*domain.Advice, bool, error)
	Set(ctx context.Context, key string, value *domain.Advice, ttl time.Duration) error
}

type NoopAdviceCache struct{}

func (NoopAdviceCache) Get(_ context.Context, _ string) (*domain.Advice, bool, error) {
	return nil, false, nil
}

func (NoopAdviceCache) Set(_ context.Context, _ string, _ *domain.Advice, _ time.Duration) error {
	return nil
}
