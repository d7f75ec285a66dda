package goals

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"wealthwise/internal/core"
	"wealthwise/internal/storage"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func testOptions() Options {
	n := 0
	return Options{
		Now: func() time.Time { return fixedNow },
		NewID: func() string {
			n++
			return fmt.Sprintf("goal-%02d", n)
		},
	}
}

func input(name string, savings, goal float64) core.GoalInput {
	return core.GoalInput{
		Name: name,
		PlanInput: core.PlanInput{
			MonthlyIncome:   5000,
			MonthlyExpenses: 3000,
			CurrentSavings:  savings,
			GoalAmount:      goal,
			Duration:        12,
			Unit:            core.Months,
		},
	}
}

func openRepo(t *testing.T, store storage.Store, opts Options) *Repository {
	t.Helper()
	repo, err := Open(context.Background(), store, opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return repo
}

// failingStore fails every Put after the first failAfter calls.
type failingStore struct {
	*storage.MemoryStore
	mu        sync.Mutex
	puts      int
	failAfter int
}

func (s *failingStore) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.puts++
	fail := s.puts > s.failAfter
	s.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return s.MemoryStore.Put(ctx, key, value)
}

func mustNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Errorf("err = %v, want %v", err, target)
	}
}

func TestOpenEmptyStore(t *testing.T) {
	repo := openRepo(t, storage.NewMemoryStore(), testOptions())
	if n := len(repo.List()); n != 0 {
		t.Errorf("List() has %d goals, want 0", n)
	}
	if n := repo.CompletedCount(); n != 0 {
		t.Errorf("CompletedCount() = %d, want 0", n)
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	repo := openRepo(t, store, testOptions())

	goal, all, err := repo.Create(ctx, input("  Emergency fund ", 1000, 10000))
	mustNoErr(t, err)

	if goal.ID != "goal-01" || goal.Name != "Emergency fund" {
		t.Errorf("goal = %q %q, want goal-01 \"Emergency fund\"", goal.ID, goal.Name)
	}
	if goal.Completed {
		t.Error("new goal must not be completed")
	}
	if !goal.CreatedAt.Equal(fixedNow) {
		t.Errorf("CreatedAt = %v, want %v", goal.CreatedAt, fixedNow)
	}
	if math.Abs(goal.Progress-10) > 1e-9 {
		t.Errorf("Progress = %v, want 10", goal.Progress)
	}
	if !slices.Equal(all, []core.Goal{goal}) {
		t.Errorf("Create returned %+v, want only the new goal", all)
	}

	raw, found, err := store.Get(ctx, storage.DefaultKey)
	mustNoErr(t, err)
	if !found {
		t.Fatal("create must persist the collection")
	}
	for _, want := range []string{`"durationType":"months"`, `"date":"2025-03-14T09:30:00Z"`} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("stored %s does not contain %s", raw, want)
		}
	}
}

func TestCreateProgressIsNotClamped(t *testing.T) {
	repo := openRepo(t, storage.NewMemoryStore(), testOptions())
	goal, _, err := repo.Create(context.Background(), input("Over-saved", 15000, 10000))
	mustNoErr(t, err)
	if math.Abs(goal.Progress-150) > 1e-9 {
		t.Errorf("Progress = %v, want 150", goal.Progress)
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	repo := openRepo(t, store, testOptions())

	tests := []struct {
		in   core.GoalInput
		want error
	}{
		{input("", 0, 100), core.ErrEmptyName},
		{input("x", -1, 100), core.ErrInvalidSavings},
		{input("x", 0, 0), core.ErrInvalidGoalAmount},
	}
	for _, tt := range tests {
		_, _, err := repo.Create(ctx, tt.in)
		wantErr(t, err, tt.want)
	}

	if _, found, _ := store.Get(ctx, storage.DefaultKey); found {
		t.Error("rejected input must not touch the store")
	}
}

func TestCreateThenDeleteRestoresCollection(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t, storage.NewMemoryStore(), testOptions())
	_, _, err := repo.Create(ctx, input("Car", 0, 8000))
	mustNoErr(t, err)

	before := repo.List()
	goal, _, err := repo.Create(ctx, input("House", 1000, 50000))
	mustNoErr(t, err)
	after, err := repo.Delete(ctx, goal.ID)
	mustNoErr(t, err)

	if !slices.Equal(before, after) || !slices.Equal(before, repo.List()) {
		t.Errorf("collection after delete = %+v, want %+v", after, before)
	}
}

func TestDeleteMissing(t *testing.T) {
	repo := openRepo(t, storage.NewMemoryStore(), testOptions())
	_, err := repo.Delete(context.Background(), "nope")
	wantErr(t, err, ErrGoalNotFound)
}

func TestCompleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	repo := openRepo(t, store, testOptions())
	goal, _, err := repo.Create(ctx, input("Trip", 100, 1000))
	mustNoErr(t, err)

	once, err := repo.Complete(ctx, goal.ID)
	mustNoErr(t, err)
	rawOnce, _, _ := store.Get(ctx, storage.DefaultKey)

	twice, err := repo.Complete(ctx, goal.ID)
	mustNoErr(t, err)
	rawTwice, _, _ := store.Get(ctx, storage.DefaultKey)

	if !slices.Equal(once, twice) || !bytes.Equal(rawOnce, rawTwice) {
		t.Error("second Complete must be a no-op")
	}
	if !twice[0].Completed {
		t.Error("goal not marked completed")
	}
	if n := repo.CompletedCount(); n != 1 {
		t.Errorf("CompletedCount() = %d, want 1", n)
	}

	_, err = repo.Complete(ctx, "missing")
	wantErr(t, err, ErrGoalNotFound)
}

func TestUpdateProgress(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t, storage.NewMemoryStore(), testOptions())
	goal, _, err := repo.Create(ctx, input("Laptop", 0, 2000))
	mustNoErr(t, err)

	tests := []struct {
		progress, savings float64
		wantProgress      float64
	}{
		{40, 800, 40},
		{140, 2800, 100},
		{-5, 0, 0},
	}
	for _, tt := range tests {
		all, err := repo.UpdateProgress(ctx, goal.ID, tt.progress, tt.savings)
		mustNoErr(t, err)
		if all[0].Progress != tt.wantProgress || all[0].CurrentSavings != tt.savings {
			t.Errorf("UpdateProgress(%v, %v) stored progress=%v savings=%v, want %v %v",
				tt.progress, tt.savings, all[0].Progress, all[0].CurrentSavings, tt.wantProgress, tt.savings)
		}
	}

	_, err = repo.UpdateProgress(ctx, goal.ID, 10, -1)
	wantErr(t, err, core.ErrInvalidSavings)
	_, err = repo.UpdateProgress(ctx, goal.ID, math.NaN(), 1)
	wantErr(t, err, ErrInvalidProgress)
	_, err = repo.UpdateProgress(ctx, "missing", 10, 1)
	wantErr(t, err, ErrGoalNotFound)
}

func TestUpdateProgressOnCompletedGoal(t *testing.T) {
	ctx := context.Background()

	completed := func(t *testing.T, opts Options) (*Repository, string) {
		t.Helper()
		repo := openRepo(t, storage.NewMemoryStore(), opts)
		goal, _, err := repo.Create(ctx, input("Bike", 100, 1000))
		mustNoErr(t, err)
		_, err = repo.Complete(ctx, goal.ID)
		mustNoErr(t, err)
		return repo, goal.ID
	}

	t.Run("allowed by default", func(t *testing.T) {
		repo, id := completed(t, testOptions())
		all, err := repo.UpdateProgress(ctx, id, 50, 500)
		mustNoErr(t, err)
		if !all[0].Completed {
			t.Error("progress updates never reopen a goal")
		}
		if all[0].Progress != 50 {
			t.Errorf("Progress = %v, want 50", all[0].Progress)
		}
	})

	t.Run("rejected when locked", func(t *testing.T) {
		opts := testOptions()
		opts.LockCompleted = true
		repo, id := completed(t, opts)
		_, err := repo.UpdateProgress(ctx, id, 50, 500)
		wantErr(t, err, ErrGoalCompleted)
	})
}

func TestReloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	repo := openRepo(t, store, testOptions())

	a, _, err := repo.Create(ctx, input("A", 100, 1000))
	mustNoErr(t, err)
	_, _, err = repo.Create(ctx, input("B", 0, 3000))
	mustNoErr(t, err)
	_, err = repo.Complete(ctx, a.ID)
	mustNoErr(t, err)
	_, err = repo.UpdateProgress(ctx, a.ID, 55.5, 555)
	mustNoErr(t, err)

	reopened := openRepo(t, store, testOptions())
	want := repo.List()
	got := reopened.List()
	if len(got) != len(want) {
		t.Fatalf("reloaded %d goals, want %d", len(got), len(want))
	}
	for i := range want {
		if !want[i].CreatedAt.Equal(got[i].CreatedAt) {
			t.Errorf("goal %d CreatedAt = %v, want %v", i, got[i].CreatedAt, want[i].CreatedAt)
		}
		got[i].CreatedAt = want[i].CreatedAt
	}
	if !slices.Equal(want, got) {
		t.Errorf("reloaded %+v, want %+v", got, want)
	}
}

func TestLoadBrowserExport(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	raw := `[{"id":"1718000000000","name":"Wedding","monthlyIncome":80000,"monthlyExpenses":50000,
		"currentSavings":200000,"goalAmount":1000000,"goalDuration":2,"durationType":"years",
		"date":"2024-06-10T06:13:20.000Z","completed":false,"progress":20}]`
	mustNoErr(t, store.Put(ctx, storage.DefaultKey, []byte(raw)))

	repo := openRepo(t, store, testOptions())
	goals := repo.List()
	if len(goals) != 1 {
		t.Fatalf("loaded %d goals, want 1", len(goals))
	}
	g := goals[0]
	if g.ID != "1718000000000" || g.Unit != core.Years || g.CreatedAt.Year() != 2024 {
		t.Errorf("loaded %+v", g)
	}
}

func TestLoadCorruptStore(t *testing.T) {
	ctx := context.Background()
	cases := map[string]string{
		"not json":      `{{{`,
		"wrong shape":   `{"id":"1"}`,
		"duplicate ids": `[{"id":"1","name":"a","goalAmount":10,"goalDuration":1,"durationType":"months"},{"id":"1","name":"b","goalAmount":10,"goalDuration":1,"durationType":"months"}]`,
		"zero goal":     `[{"id":"1","name":"a","goalAmount":0,"goalDuration":1,"durationType":"months"}]`,
		"bad unit":      `[{"id":"1","name":"a","goalAmount":10,"goalDuration":1,"durationType":"weeks"}]`,
		"missing id":    `[{"name":"a","goalAmount":10,"goalDuration":1,"durationType":"months"}]`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			store := storage.NewMemoryStore()
			mustNoErr(t, store.Put(ctx, storage.DefaultKey, []byte(raw)))

			_, err := Open(ctx, store, testOptions())
			wantErr(t, err, ErrCorruptStore)

			opts := testOptions()
			opts.ResetOnCorrupt = true
			repo, err := Open(ctx, store, opts)
			mustNoErr(t, err)
			if n := len(repo.List()); n != 0 {
				t.Errorf("reset store has %d goals", n)
			}

			backup, found, err := store.Get(ctx, fmt.Sprintf("%s.corrupt-%d", storage.DefaultKey, fixedNow.Unix()))
			mustNoErr(t, err)
			if !found {
				t.Fatal("corrupt value must be backed up")
			}
			if string(backup) != raw {
				t.Errorf("backup = %s, want %s", backup, raw)
			}
		})
	}
}

func TestFailedSaveLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryStore: storage.NewMemoryStore(), failAfter: 1}
	repo := openRepo(t, store, testOptions())

	goal, _, err := repo.Create(ctx, input("Kept", 0, 100))
	mustNoErr(t, err)

	var events int
	repo.Subscribe(func(Change) { events++ })

	if _, _, err := repo.Create(ctx, input("Lost", 0, 100)); err == nil {
		t.Error("Create succeeded on a failing store")
	}
	if _, err := repo.Delete(ctx, goal.ID); err == nil {
		t.Error("Delete succeeded on a failing store")
	}
	if _, err := repo.Complete(ctx, goal.ID); err == nil {
		t.Error("Complete succeeded on a failing store")
	}

	if got := ids(repo.List()); !slices.Equal(got, []string{"goal-01"}) {
		t.Errorf("ids = %v, want [goal-01]", got)
	}
	if repo.List()[0].Completed {
		t.Error("failed Complete must not mark the goal")
	}
	if events != 0 {
		t.Errorf("failed saves notified %d times", events)
	}
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t, storage.NewMemoryStore(), testOptions())

	var got []Change
	unsubscribe := repo.Subscribe(func(c Change) { got = append(got, c) })

	goal, _, err := repo.Create(ctx, input("A", 0, 100))
	mustNoErr(t, err)
	_, err = repo.Complete(ctx, goal.ID)
	mustNoErr(t, err)
	_, err = repo.Complete(ctx, goal.ID) // no-op, no event
	mustNoErr(t, err)
	_, err = repo.UpdateProgress(ctx, goal.ID, 30, 30)
	mustNoErr(t, err)

	unsubscribe()
	unsubscribe()
	_, err = repo.Delete(ctx, goal.ID)
	mustNoErr(t, err)

	if len(got) != 3 {
		t.Fatalf("got %d changes, want 3", len(got))
	}
	ops := []Op{got[0].Op, got[1].Op, got[2].Op}
	if !slices.Equal(ops, []Op{OpCreate, OpComplete, OpProgress}) {
		t.Errorf("ops = %v", ops)
	}
	if got[1].GoalID != goal.ID || !got[1].Goals[0].Completed {
		t.Errorf("complete change = %+v", got[1])
	}

	got[2].Goals[0].Name = "mutated by subscriber"
	if name := repo.List()[0].Name; name != "A" {
		t.Errorf("subscribers must receive copies, repository name is %q", name)
	}
}

func TestSubscriberPanicIsContained(t *testing.T) {
	repo := openRepo(t, storage.NewMemoryStore(), testOptions())
	var called bool
	repo.Subscribe(func(Change) { panic("boom") })
	repo.Subscribe(func(Change) { called = true })

	_, _, err := repo.Create(context.Background(), input("A", 0, 100))
	mustNoErr(t, err)
	if !called {
		t.Error("second subscriber was not called")
	}
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t, storage.NewMemoryStore(), testOptions())
	_, _, err := repo.Create(ctx, input("Old", 0, 100))
	mustNoErr(t, err)

	imported := []core.Goal{
		{ID: "x1", Name: "New", GoalAmount: 500, Duration: 6, Unit: core.Months, CreatedAt: fixedNow},
	}
	all, err := repo.Import(ctx, imported)
	mustNoErr(t, err)
	if got := ids(all); !slices.Equal(got, []string{"x1"}) {
		t.Errorf("imported ids = %v, want [x1]", got)
	}

	_, err = repo.Import(ctx, []core.Goal{imported[0], imported[0]})
	wantErr(t, err, ErrCorruptStore)
	if got := ids(repo.List()); !slices.Equal(got, []string{"x1"}) {
		t.Errorf("rejected import changed ids to %v", got)
	}
}

func TestConcurrentMutations(t *testing.T) {
	ctx := context.Background()
	opts := testOptions()
	var mu sync.Mutex
	n := 0
	opts.NewID = func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%03d", n)
	}
	repo := openRepo(t, storage.NewMemoryStore(), opts)

	var events int
	var evMu sync.Mutex
	repo.Subscribe(func(Change) {
		evMu.Lock()
		events++
		evMu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, _, err := repo.Create(ctx, input(fmt.Sprintf("g%d", i), 0, 100)); err != nil {
				t.Errorf("Create: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if n := len(repo.List()); n != 25 {
		t.Errorf("List() has %d goals, want 25", n)
	}
	if events != 25 {
		t.Errorf("events = %d, want 25", events)
	}
}

func TestOpenWithDefaultIDs(t *testing.T) {
	repo := openRepo(t, storage.NewMemoryStore(), Options{})
	a, _, err := repo.Create(context.Background(), input("A", 0, 100))
	mustNoErr(t, err)
	b, _, err := repo.Create(context.Background(), input("B", 0, 100))
	mustNoErr(t, err)

	if len(a.ID) != 26 {
		t.Errorf("id %q is not a ULID", a.ID)
	}
	if strings.Compare(a.ID, b.ID) >= 0 {
		t.Errorf("ids are not monotonic: %q then %q", a.ID, b.ID)
	}
}

func ids(goals []core.Goal) []string {
	out := make([]string, len(goals))
	for i, g := range goals {
		out[i] = g.ID
	}
	return out
}
