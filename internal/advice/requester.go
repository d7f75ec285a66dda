package advice

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"wealthwise/internal/cache"
	"wealthwise/internal/core"
)

// Finished scopes are remembered so Current can still answer for a
// request that has returned. The memory is bounded since scope names
// come from clients.
const (
	finishedScopes   = 1024
	finishedScopeTTL = 10 * time.Minute
)

type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

// Reply is the outcome of Requester.Request. Advice is never empty.
type Reply struct {
	Advice     string    `json:"advice"`
	Source     Source    `json:"source"`
	Generation uint64    `json:"generation"`
	Stale      bool      `json:"stale,omitempty"`
	ErrorKind  ErrorKind `json:"errorKind,omitempty"`
}

type RequesterOptions struct {
	Prompt PromptOptions
	// Timeout bounds each endpoint call. Zero means no timeout.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Requester asks an Endpoint for advice and absorbs every failure into the
// local fallback text.
//
// Requests are grouped by scope. A new request in a scope cancels the one
// still in flight there, and the superseded reply comes back with Stale set
// so callers can drop it.
type Requester struct {
	endpoint Endpoint
	opts     RequesterOptions
	logger   *slog.Logger

	generation atomic.Uint64

	mu       sync.Mutex
	scopes   map[string]*inflight
	finished *cache.LRUCache[uint64]
}

// inflight tracks the newest pending request of a scope.
type inflight struct {
	generation uint64
	cancel     context.CancelFunc
}

func NewRequester(endpoint Endpoint, opts RequesterOptions) *Requester {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	opts.Prompt = opts.Prompt.withDefaults()
	return &Requester{
		endpoint: endpoint,
		opts:     opts,
		logger:   opts.Logger.With("component", "advice_requester"),
		scopes:   make(map[string]*inflight),
		finished: cache.NewLRUCache[uint64](finishedScopes, finishedScopeTTL),
	}
}

// Request returns advice for result in the default scope.
func (r *Requester) Request(ctx context.Context, result core.CalculationResult, userGoals, userLevel int) Reply {
	return r.RequestScoped(ctx, "", result, userGoals, userLevel)
}

// RequestScoped returns advice for result, superseding any request still in
// flight for scope.
func (r *Requester) RequestScoped(ctx context.Context, scope string, result core.CalculationResult, userGoals, userLevel int) Reply {
	gen, callCtx, done := r.begin(ctx, scope)
	defer done()

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, r.opts.Timeout)
		defer cancel()
	}

	var (
		text string
		err  error
	)
	if r.endpoint == nil {
		err = &EndpointError{Kind: KindUnavailable, Err: ErrUnavailable}
	} else {
		text, err = r.endpoint.Advise(callCtx, NewRequest(result, userGoals, userLevel))
	}

	reply := Reply{Generation: gen, Stale: r.superseded(scope, gen)}
	if err == nil && text != "" {
		reply.Advice = text
		reply.Source = SourceAI
		return reply
	}
	if err == nil {
		err = &EndpointError{Kind: KindEmpty, Err: ErrEmptyAdvice}
	}

	reply.Advice = Fallback(result.Gap, r.opts.Prompt)
	reply.Source = SourceFallback
	reply.ErrorKind = KindOf(err)

	level := slog.LevelWarn
	if reply.Stale || reply.ErrorKind == KindUnavailable {
		level = slog.LevelDebug
	}
	r.logger.Log(ctx, level, "Advice request failed, using fallback",
		"error", err,
		"error_kind", string(reply.ErrorKind),
		"generation", gen,
		"stale", reply.Stale)
	return reply
}

// superseded reports whether a newer request has started in scope. It is
// called before gen's own entry is released, so a missing entry means a
// newer request took the scope and has already finished.
func (r *Requester) superseded(scope string, gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.scopes[scope]
	return !ok || f.generation != gen
}

// Current reports whether gen is the newest request of the default scope.
func (r *Requester) Current(gen uint64) bool {
	return r.CurrentIn("", gen)
}

// CurrentIn reports whether gen is the newest request of scope. For a
// scope idle longer than the finished-scope memory it reports false.
func (r *Requester) CurrentIn(scope string, gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.scopes[scope]; ok {
		return f.generation == gen
	}
	last, ok := r.finished.Get(scope)
	return ok && last == gen
}

// InFlight returns the number of scopes with a pending request.
func (r *Requester) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scopes)
}

func (r *Requester) begin(ctx context.Context, scope string) (uint64, context.Context, func()) {
	callCtx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	gen := r.generation.Add(1)
	if prev, ok := r.scopes[scope]; ok {
		prev.cancel()
	}
	r.scopes[scope] = &inflight{generation: gen, cancel: cancel}
	r.mu.Unlock()

	return gen, callCtx, func() {
		cancel()
		r.mu.Lock()
		if f, ok := r.scopes[scope]; ok && f.generation == gen {
			delete(r.scopes, scope)
			r.finished.Set(scope, gen)
		}
		r.mu.Unlock()
	}
}
