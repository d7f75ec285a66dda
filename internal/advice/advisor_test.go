package advice

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"wealthwise/internal/cache"
)

func countingProvider(text string, calls *atomic.Int32) ProviderFunc {
	return func(ctx context.Context, prompt string) (string, error) {
		calls.Add(1)
		return text, nil
	}
}

func TestAdvisorCachesByPrompt(t *testing.T) {
	var calls atomic.Int32
	a := NewAdvisor(countingProvider("  Save more.  ", &calls), AdvisorOptions{
		Cache: cache.NewLRUCache[string](8, time.Hour),
	})
	req := NewRequest(surplusResult, 1, 1)

	for i := 0; i < 3; i++ {
		got, err := a.Advise(context.Background(), req)
		if err != nil {
			t.Fatalf("Advise: %v", err)
		}
		if got != "Save more." {
			t.Errorf("Advise = %q, want trimmed text", got)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("provider called %d times, want 1", n)
	}

	req.UserGoals = 2
	if _, err := a.Advise(context.Background(), req); err != nil {
		t.Fatalf("Advise: %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("provider called %d times, different figures make a different prompt", n)
	}

	stats, ok := a.CacheStats()
	if !ok {
		t.Fatal("expected cache stats")
	}
	if stats.Size != 2 || stats.Hits != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestAdvisorWithoutCache(t *testing.T) {
	var calls atomic.Int32
	a := NewAdvisor(countingProvider("ok", &calls), AdvisorOptions{})
	for i := 0; i < 2; i++ {
		if _, err := a.Advise(context.Background(), Request{GoalAmount: 1}); err != nil {
			t.Fatalf("Advise: %v", err)
		}
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("provider called %d times, want 2", n)
	}
	if _, ok := a.CacheStats(); ok {
		t.Error("CacheStats should report no cache")
	}
}

func TestAdvisorDeduplicatesConcurrentPrompts(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	provider := ProviderFunc(func(ctx context.Context, prompt string) (string, error) {
		calls.Add(1)
		<-release
		return "shared", nil
	})
	a := NewAdvisor(provider, AdvisorOptions{})

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = a.Advise(context.Background(), Request{GoalAmount: 1})
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("provider called %d times, want 1", n)
	}
	for i, r := range results {
		if r != "shared" {
			t.Errorf("caller %d got %q", i, r)
		}
	}
}

func TestAdvisorSharedCallSurvivesCallerCancel(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	provider := ProviderFunc(func(ctx context.Context, prompt string) (string, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		select {
		case <-release:
			return "Keep saving.", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	a := NewAdvisor(provider, AdvisorOptions{})
	req := NewRequest(surplusResult, 1, 1)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := a.Advise(ctxA, req)
		errA <- err
	}()
	<-started

	type result struct {
		text string
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		text, err := a.Advise(context.Background(), req)
		resB <- result{text, err}
	}()

	time.Sleep(20 * time.Millisecond)
	cancelA()
	if err := <-errA; KindOf(err) != KindCanceled {
		t.Errorf("canceled caller: kind = %q, err = %v", KindOf(err), err)
	}

	close(release)
	b := <-resB
	if b.err != nil || b.text != "Keep saving." {
		t.Errorf("other caller got text=%q err=%v, want the shared advice", b.text, b.err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("provider called %d times, want 1", n)
	}
}

func TestAdvisorTimeoutBoundsSharedCall(t *testing.T) {
	a := NewAdvisor(ProviderFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}), AdvisorOptions{Timeout: 20 * time.Millisecond})

	_, err := a.Advise(context.Background(), Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestAdvisorErrors(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		var a *Advisor
		if a.Enabled() {
			t.Error("nil advisor reported enabled")
		}
		_, err := NewAdvisor(nil, AdvisorOptions{}).Advise(context.Background(), Request{})
		if KindOf(err) != KindUnavailable {
			t.Errorf("kind = %q, want unavailable", KindOf(err))
		}
	})

	t.Run("invalid request", func(t *testing.T) {
		a := NewAdvisor(ProviderFunc(func(context.Context, string) (string, error) { return "x", nil }), AdvisorOptions{})
		_, err := a.Advise(context.Background(), Request{UserGoals: -1})
		if !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("expected ErrInvalidRequest, got %v", err)
		}
	})

	t.Run("empty text", func(t *testing.T) {
		a := NewAdvisor(ProviderFunc(func(context.Context, string) (string, error) { return " \n", nil }), AdvisorOptions{
			Cache: cache.NewLRUCache[string](2, time.Hour),
		})
		_, err := a.Advise(context.Background(), Request{})
		if KindOf(err) != KindEmpty {
			t.Errorf("kind = %q, want empty", KindOf(err))
		}
		if stats, _ := a.CacheStats(); stats.Size != 0 {
			t.Error("failures must not be cached")
		}
	})

	t.Run("provider failure", func(t *testing.T) {
		boom := errors.New("rate limited")
		a := NewAdvisor(ProviderFunc(func(context.Context, string) (string, error) { return "", boom }), AdvisorOptions{})
		_, err := a.Advise(context.Background(), Request{})
		if !errors.Is(err, boom) {
			t.Errorf("expected provider error, got %v", err)
		}
	})

	t.Run("caller deadline", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		a := NewAdvisor(ProviderFunc(func(context.Context, string) (string, error) {
			<-release
			return "", errors.New("released")
		}), AdvisorOptions{})
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := a.Advise(ctx, Request{})
		if KindOf(err) != KindTimeout {
			t.Errorf("kind = %q, want timeout", KindOf(err))
		}
	})
}

func TestAdvisorAsRequesterEndpoint(t *testing.T) {
	a := NewAdvisor(ProviderFunc(func(_ context.Context, prompt string) (string, error) {
		return "Use a recurring deposit.", nil
	}), AdvisorOptions{})

	reply := NewRequester(a, RequesterOptions{}).Request(context.Background(), surplusResult, 2, 1)
	if reply.Source != SourceAI || reply.Advice != "Use a recurring deposit." {
		t.Errorf("unexpected reply: %+v", reply)
	}
}

func TestNewOpenAIProvider(t *testing.T) {
	if _, err := NewOpenAIProvider(OpenAIConfig{}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable without a key, got %v", err)
	}

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}
	if p.Model() != "gpt-4o" {
		t.Errorf("Model() = %q, want gpt-4o", p.Model())
	}
}
