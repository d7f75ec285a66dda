// Package goals implements the Goal Repository: the authoritative in-memory
// goal collection, persisted wholesale to a storage.Store after every
// successful mutation.
package goals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"wealthwise/internal/core"
	"wealthwise/internal/storage"
)

var (
	ErrGoalNotFound    = errors.New("goal not found")
	ErrGoalCompleted   = errors.New("goal is already completed")
	ErrCorruptStore    = errors.New("stored goal collection is corrupt")
	ErrInvalidProgress = errors.New("progress must be a finite number")
)

// Op names the mutation that produced a Change.
type Op string

const (
	OpLoad     Op = "load"
	OpCreate   Op = "create"
	OpDelete   Op = "delete"
	OpComplete Op = "complete"
	OpProgress Op = "progress"
	OpImport   Op = "import"
)

// Change is delivered to subscribers after a mutation has been saved.
type Change struct {
	Op     Op
	GoalID string
	Goals  []core.Goal
	At     time.Time
}

type Options struct {
	// Key is the store slot holding the collection. Defaults to storage.DefaultKey.
	Key string
	// ResetOnCorrupt starts from an empty collection when the stored value
	// cannot be decoded. The raw value is copied to a backup slot first.
	ResetOnCorrupt bool
	// LockCompleted rejects progress updates on completed goals.
	LockCompleted bool

	Logger *slog.Logger
	Now    func() time.Time
	NewID  func() string
}

// Repository owns the goal collection. Mutations are serialized; change
// notifications are delivered in mutation order. Subscribers must not call
// mutating methods synchronously.
type Repository struct {
	store  storage.Store
	opts   Options
	logger *slog.Logger

	mu    sync.RWMutex
	goals []core.Goal

	notifyMu sync.Mutex
	subsMu   sync.RWMutex
	subs     map[int]func(Change)
	nextSub  int
}

// Open loads the collection from store. An absent slot yields an empty
// collection.
func Open(ctx context.Context, store storage.Store, opts Options) (*Repository, error) {
	if store == nil {
		return nil, errors.New("goal store is nil")
	}
	if opts.Key == "" {
		opts.Key = storage.DefaultKey
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return ulid.Make().String() }
	}

	r := &Repository{
		store:  store,
		opts:   opts,
		logger: opts.Logger.With("component", "goals"),
		subs:   make(map[int]func(Change)),
	}
	if err := r.load(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repository) load(ctx context.Context) error {
	raw, found, err := r.store.Get(ctx, r.opts.Key)
	if err != nil {
		return fmt.Errorf("read goal collection: %w", err)
	}
	if !found {
		r.logger.Info("No stored goals, starting empty", "key", r.opts.Key)
		return nil
	}

	goals, err := Decode(raw)
	if err == nil {
		r.goals = goals
		r.logger.Info("Loaded goals", "key", r.opts.Key, "count", len(goals))
		return nil
	}

	if !r.opts.ResetOnCorrupt {
		return err
	}

	backupKey := r.opts.Key + ".corrupt-" + strconv.FormatInt(r.opts.Now().Unix(), 10)
	if berr := r.store.Put(ctx, backupKey, raw); berr != nil {
		return fmt.Errorf("%w (backup failed: %v)", err, berr)
	}
	r.logger.Error("Stored goals are corrupt, starting empty",
		"error", err,
		"key", r.opts.Key,
		"backup_key", backupKey)
	return nil
}

// Decode parses a serialized goal collection and checks every goal
// invariant. Errors wrap ErrCorruptStore.
func Decode(raw []byte) ([]core.Goal, error) {
	var goals []core.Goal
	if err := json.Unmarshal(raw, &goals); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	seen := make(map[string]struct{}, len(goals))
	for i, g := range goals {
		if err := g.Validate(); err != nil {
			return nil, fmt.Errorf("%w: goal %d (%q): %v", ErrCorruptStore, i, g.ID, err)
		}
		if _, dup := seen[g.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate goal id %q", ErrCorruptStore, g.ID)
		}
		seen[g.ID] = struct{}{}
	}
	if goals == nil {
		goals = []core.Goal{}
	}
	return goals, nil
}

// Encode serializes a goal collection in the storage format.
func Encode(goals []core.Goal) ([]byte, error) {
	if goals == nil {
		goals = []core.Goal{}
	}
	return json.Marshal(goals)
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (r *Repository) Subscribe(fn func(Change)) (unsubscribe func()) {
	r.subsMu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.subsMu.Lock()
			delete(r.subs, id)
			r.subsMu.Unlock()
		})
	}
}

// List returns a copy of the collection in creation order.
func (r *Repository) List() []core.Goal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return clone(r.goals)
}

// Get returns the goal with the given id.
func (r *Repository) Get(id string) (core.Goal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := index(r.goals, id); i >= 0 {
		return r.goals[i], nil
	}
	return core.Goal{}, ErrGoalNotFound
}

// Ping checks that the backing store slot can be read.
func (r *Repository) Ping(ctx context.Context) error {
	if _, _, err := r.store.Get(ctx, r.opts.Key); err != nil {
		return fmt.Errorf("read goal collection: %w", err)
	}
	return nil
}

// CompletedCount returns the number of completed goals.
func (r *Repository) CompletedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, g := range r.goals {
		if g.Completed {
			n++
		}
	}
	return n
}

// Create appends a new goal built from in. Initial progress is the raw
// savings ratio and may exceed 100.
func (r *Repository) Create(ctx context.Context, in core.GoalInput) (core.Goal, []core.Goal, error) {
	if err := in.Validate(); err != nil {
		return core.Goal{}, nil, err
	}

	goal := core.Goal{
		ID:              r.opts.NewID(),
		Name:            strings.TrimSpace(in.Name),
		MonthlyIncome:   in.MonthlyIncome,
		MonthlyExpenses: in.MonthlyExpenses,
		CurrentSavings:  in.CurrentSavings,
		GoalAmount:      in.GoalAmount,
		Duration:        in.Duration,
		Unit:            in.Unit,
		CreatedAt:       r.opts.Now(),
		Completed:       false,
		Progress:        in.CurrentSavings / in.GoalAmount * 100,
	}

	goals, err := r.mutate(ctx, OpCreate, goal.ID, func(goals []core.Goal) ([]core.Goal, bool, error) {
		if index(goals, goal.ID) >= 0 {
			return nil, false, fmt.Errorf("goal id %q already exists", goal.ID)
		}
		return append(goals, goal), true, nil
	})
	if err != nil {
		return core.Goal{}, nil, err
	}
	return goal, goals, nil
}

// Delete removes the goal with the given id.
func (r *Repository) Delete(ctx context.Context, id string) ([]core.Goal, error) {
	return r.mutate(ctx, OpDelete, id, func(goals []core.Goal) ([]core.Goal, bool, error) {
		i := index(goals, id)
		if i < 0 {
			return nil, false, ErrGoalNotFound
		}
		return append(goals[:i], goals[i+1:]...), true, nil
	})
}

// Complete marks the goal as completed. Completing a completed goal is a
// no-op and does not rewrite the store.
func (r *Repository) Complete(ctx context.Context, id string) ([]core.Goal, error) {
	return r.mutate(ctx, OpComplete, id, func(goals []core.Goal) ([]core.Goal, bool, error) {
		i := index(goals, id)
		if i < 0 {
			return nil, false, ErrGoalNotFound
		}
		if goals[i].Completed {
			return goals, false, nil
		}
		goals[i].Completed = true
		return goals, true, nil
	})
}

// UpdateProgress overwrites the progress and current savings of a goal.
// Progress is clamped to [0, 100]. Completed goals stay completed.
func (r *Repository) UpdateProgress(ctx context.Context, id string, progress, currentSavings float64) ([]core.Goal, error) {
	if math.IsNaN(progress) || math.IsInf(progress, 0) {
		return nil, ErrInvalidProgress
	}
	if math.IsNaN(currentSavings) || math.IsInf(currentSavings, 0) {
		return nil, core.ErrInvalidAmount
	}
	if currentSavings < 0 {
		return nil, core.ErrInvalidSavings
	}
	progress = core.ClampPercent(progress)

	return r.mutate(ctx, OpProgress, id, func(goals []core.Goal) ([]core.Goal, bool, error) {
		i := index(goals, id)
		if i < 0 {
			return nil, false, ErrGoalNotFound
		}
		if goals[i].Completed && r.opts.LockCompleted {
			return nil, false, ErrGoalCompleted
		}
		goals[i].Progress = progress
		goals[i].CurrentSavings = currentSavings
		return goals, true, nil
	})
}

// Import replaces the collection with goals, typically a collection
// exported from another installation.
func (r *Repository) Import(ctx context.Context, goals []core.Goal) ([]core.Goal, error) {
	raw, err := Encode(goals)
	if err != nil {
		return nil, err
	}
	checked, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return r.mutate(ctx, OpImport, "", func([]core.Goal) ([]core.Goal, bool, error) {
		return checked, true, nil
	})
}

// mutate applies fn to a copy of the collection, saves the result and only
// then makes it current. A failed save leaves the collection untouched.
func (r *Repository) mutate(ctx context.Context, op Op, id string, fn func([]core.Goal) ([]core.Goal, bool, error)) ([]core.Goal, error) {
	r.mu.Lock()
	next, changed, err := fn(clone(r.goals))
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	if !changed {
		out := clone(r.goals)
		r.mu.Unlock()
		return out, nil
	}

	if err := r.save(ctx, next); err != nil {
		r.mu.Unlock()
		r.logger.ErrorContext(ctx, "Failed to save goals",
			"error", err,
			"operation", string(op),
			"goal_id", id)
		return nil, err
	}
	r.goals = next
	out := clone(next)

	r.notifyMu.Lock()
	r.mu.Unlock()
	defer r.notifyMu.Unlock()

	r.logger.DebugContext(ctx, "Goals saved", "operation", string(op), "goal_id", id, "count", len(out))
	r.notify(Change{Op: op, GoalID: id, Goals: out, At: r.opts.Now()})
	return clone(out), nil
}

func (r *Repository) save(ctx context.Context, goals []core.Goal) error {
	raw, err := Encode(goals)
	if err != nil {
		return fmt.Errorf("encode goals: %w", err)
	}
	if err := r.store.Put(ctx, r.opts.Key, raw); err != nil {
		return fmt.Errorf("save goals: %w", err)
	}
	return nil
}

func (r *Repository) notify(c Change) {
	r.subsMu.RLock()
	subs := make([]func(Change), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.subsMu.RUnlock()

	for _, fn := range subs {
		func() {
			defer func() {
				if p := recover(); p != nil {
					r.logger.Error("Goal subscriber panicked", "panic", p, "operation", string(c.Op))
				}
			}()
			fn(Change{Op: c.Op, GoalID: c.GoalID, Goals: clone(c.Goals), At: c.At})
		}()
	}
}

func index(goals []core.Goal, id string) int {
	for i := range goals {
		if goals[i].ID == id {
			return i
		}
	}
	return -1
}

func clone(goals []core.Goal) []core.Goal {
	out := make([]core.Goal, len(goals))
	copy(out, goals)
	return out
}
