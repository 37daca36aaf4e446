package advice

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"novapos/internal/cache"
	"novapos/internal/domain"
)

type Engine struct {
	client   Client
	cache    cache.AdviceCache
	cacheTTL time.Duration
	timeout  time.Duration
	language string
	logger   *zap.Logger
	now      func() time.Time
}

type Options struct {
	CacheTTL time.Duration
	Timeout  time.Duration
	Language string
	Logger   *zap.Logger
}

func NewEngine(client Client, cacheStore cache.AdviceCache, opts Options) *Engine {
	if client == nil {
		client = StaticClient{}
	}
	if cacheStore == nil {
		cacheStore = cache.NoopAdviceCache{}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Engine{
		client:   client,
		cache:    cacheStore,
		cacheTTL: opts.CacheTTL,
		timeout:  opts.Timeout,
		language: opts.Language,
		logger:   opts.Logger,
		now:      time.Now,
	}
}

// Advise never fails: model errors and empty answers become placeholder
// text. Only successful answers are cached.
func (e *Engine) Advise(ctx context.Context, in Input) domain.Advice {
	key := buildCacheKey(in, e.language)
	if cached, ok, err := e.cache.Get(ctx, key); err == nil && ok {
		cached.Cached = true
		return *cached
	} else if err != nil {
		e.logger.Warn("advice cache read failed", zap.Error(err))
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	text, err := e.client.Generate(callCtx, BuildPrompt(in, e.language))
	if err != nil {
		e.logger.Error("advice generation failed", zap.Error(err))
		return domain.Advice{Text: UnavailableText, GeneratedAt: e.now().UTC()}
	}
	if strings.TrimSpace(text) == "" {
		return domain.Advice{Text: EmptyText, GeneratedAt: e.now().UTC()}
	}

	out := domain.Advice{Text: text, GeneratedAt: e.now().UTC()}
	if err := e.cache.Set(ctx, key, &out, e.cacheTTL); err != nil {
		e.logger.Warn("advice cache write failed", zap.Error(err))
	}
	return out
}

func buildCacheKey(in Input, language string) string {
	s := in.Summary
	raw := strings.Join([]string{
		s.TotalRevenue.String(),
		s.TotalCost.String(),
		s.TotalProfit.String(),
		s.ProfitMargin.String(),
		fmt.Sprintf("s:%d", s.TotalSalesCount),
		fmt.Sprintf("p:%d", len(in.Products)),
		fmt.Sprintf("l:%d", len(in.Sales)),
		language,
	}, "|")
	hash := sha1.Sum([]byte(raw))
	return "novapos:advice:" + hex.EncodeToString(hash[:])
}
