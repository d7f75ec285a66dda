package advice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"wealthwise/internal/cache"
)

// Advisor is the server side of the advice endpoint. Identical prompts are
// answered from cache, and concurrent identical prompts share one provider
// call.
type Advisor struct {
	provider Provider
	cache    *cache.LRUCache[string]
	group    singleflight.Group
	prompt   PromptOptions
	timeout  time.Duration
	logger   *slog.Logger
}

type AdvisorOptions struct {
	Prompt PromptOptions
	// Cache may be nil to disable caching.
	Cache *cache.LRUCache[string]
	// Timeout bounds a shared provider call. Zero means no timeout.
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewAdvisor(provider Provider, opts AdvisorOptions) *Advisor {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Advisor{
		provider: provider,
		cache:    opts.Cache,
		prompt:   opts.Prompt.withDefaults(),
		timeout:  opts.Timeout,
		logger:   opts.Logger.With("component", "advice"),
	}
}

// Enabled reports whether a provider is configured.
func (a *Advisor) Enabled() bool {
	return a != nil && a.provider != nil
}

// Advise implements Endpoint.
func (a *Advisor) Advise(ctx context.Context, req Request) (string, error) {
	if !a.Enabled() {
		return "", &EndpointError{Kind: KindUnavailable, Err: ErrUnavailable}
	}
	if err := req.Validate(); err != nil {
		return "", &EndpointError{Kind: KindMalformed, Err: err}
	}

	prompt := BuildPrompt(req, a.prompt)
	key := promptKey(prompt)

	if a.cache != nil {
		if text, ok := a.cache.Get(key); ok {
			a.logger.DebugContext(ctx, "Advice served from cache", "prompt_key", key[:12])
			return text, nil
		}
	}

	// The provider call is shared by every caller of the same prompt, so
	// one caller going away must not cancel it for the others.
	ch := a.group.DoChan(key, func() (any, error) {
		genCtx := context.WithoutCancel(ctx)
		if a.timeout > 0 {
			var cancel context.CancelFunc
			genCtx, cancel = context.WithTimeout(genCtx, a.timeout)
			defer cancel()
		}
		text, err := a.provider.Generate(genCtx, prompt)
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return "", &EndpointError{Kind: KindEmpty, Err: ErrEmptyAdvice}
		}
		if a.cache != nil {
			a.cache.Set(key, text)
		}
		return text, nil
	})

	select {
	case <-ctx.Done():
		return "", &EndpointError{Kind: contextKind(ctx, KindCanceled), Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			a.logger.WarnContext(ctx, "Advice generation failed",
				"error", res.Err,
				"error_kind", string(KindOf(res.Err)),
				"provider", describeProvider(a.provider),
				"shared", res.Shared)
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// CacheStats returns advice cache usage, or false when caching is off.
func (a *Advisor) CacheStats() (cache.Stats, bool) {
	if a == nil || a.cache == nil {
		return cache.Stats{}, false
	}
	return a.cache.Stats(), true
}

func promptKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
