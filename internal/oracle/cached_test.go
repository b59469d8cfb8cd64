package oracle

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mlawson/shepard/internal/cache"
	"github.com/mlawson/shepard/internal/model"
	"github.com/mlawson/shepard/internal/store"
)

// countingOracle counts Assess invocations per opinion
type countingOracle struct {
	calls int64
}

func (o *countingOracle) Name() string                       { return "counting" }
func (o *countingOracle) Available(ctx context.Context) bool { return true }
func (o *countingOracle) Assess(ctx context.Context, req Request) (*model.Verdict, error) {
	atomic.AddInt64(&o.calls, 1)
	return &model.Verdict{
		OpinionID:  req.OpinionID,
		Assessment: model.AssessmentGood,
		Confidence: 0.8,
		RiskScore:  20,
		Oracle:     "counting",
	}, nil
}

func emptyRequest(ctx context.Context) (Request, error) {
	return Request{}, nil
}

func TestCached_AtMostOneOracleCall(t *testing.T) {
	inner := &countingOracle{}
	c := NewCached(inner, store.NewMemory(), nil, 1)
	ctx := context.Background()

	v, fromCache, err := c.Assess(ctx, 7, emptyRequest)
	if err != nil {
		t.Fatalf("first assess: %v", err)
	}
	if fromCache {
		t.Error("first assess must be a miss")
	}
	if v.Version != 1 || v.AnalyzedAt.IsZero() {
		t.Errorf("verdict not stamped: %+v", v)
	}

	v2, fromCache, err := c.Assess(ctx, 7, emptyRequest)
	if err != nil {
		t.Fatalf("second assess: %v", err)
	}
	if !fromCache {
		t.Error("second assess must be a cache hit")
	}
	if v2.Assessment != v.Assessment {
		t.Errorf("cached verdict differs: %+v vs %+v", v2, v)
	}

	if got := atomic.LoadInt64(&inner.calls); got != 1 {
		t.Errorf("oracle invoked %d times, want 1", got)
	}
}

func TestCached_ConcurrentSameKey(t *testing.T) {
	inner := &countingOracle{}
	c := NewCached(inner, store.NewMemory(), nil, 1)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := c.Assess(ctx, 99, emptyRequest); err != nil {
				t.Errorf("assess: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt64(&inner.calls); got != 1 {
		t.Errorf("oracle invoked %d times under concurrency, want 1", got)
	}
}

// The per-opinion lock map must not retain an entry per opinion ever
// assessed: entries are dropped once the last holder releases them.
func TestCached_LockMapReleased(t *testing.T) {
	inner := &countingOracle{}
	c := NewCached(inner, store.NewMemory(), nil, 1)
	ctx := context.Background()

	var wg sync.WaitGroup
	for id := int64(1); id <= 50; id++ {
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				if _, _, err := c.Assess(ctx, id, emptyRequest); err != nil {
					t.Errorf("assess %d: %v", id, err)
				}
			}(id)
		}
	}
	wg.Wait()

	c.mu.Lock()
	held := len(c.locks)
	c.mu.Unlock()
	if held != 0 {
		t.Errorf("lock map retained %d entries after all assessments finished", held)
	}
}

// A cache hit must never run the request builder
func TestCached_BuilderSkippedOnHit(t *testing.T) {
	inner := &countingOracle{}
	backing := store.NewMemory()
	ctx := context.Background()

	stored := &model.Verdict{
		OpinionID:  3,
		Version:    1,
		Assessment: model.AssessmentGood,
		Confidence: 0.9,
		AnalyzedAt: time.Now().UTC(),
	}
	if err := backing.PutVerdict(ctx, stored); err != nil {
		t.Fatalf("seed verdict: %v", err)
	}

	c := NewCached(inner, backing, nil, 1)

	var builds int64
	counting := func(ctx context.Context) (Request, error) {
		atomic.AddInt64(&builds, 1)
		return Request{}, nil
	}

	_, fromCache, err := c.Assess(ctx, 3, counting)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if !fromCache {
		t.Error("expected a cache hit")
	}
	if got := atomic.LoadInt64(&builds); got != 0 {
		t.Errorf("builder invoked %d times on a hit, want 0", got)
	}
	if got := atomic.LoadInt64(&inner.calls); got != 0 {
		t.Errorf("oracle invoked %d times on a hit, want 0", got)
	}

	// An unseeded opinion builds exactly once per miss
	if _, _, err := c.Assess(ctx, 4, counting); err != nil {
		t.Fatalf("assess miss: %v", err)
	}
	if _, _, err := c.Assess(ctx, 4, counting); err != nil {
		t.Fatalf("assess hit: %v", err)
	}
	if got := atomic.LoadInt64(&builds); got != 1 {
		t.Errorf("builder invoked %d times across miss then hit, want 1", got)
	}
}

func TestCached_NewVersionSupersedes(t *testing.T) {
	inner := &countingOracle{}
	backing := store.NewMemory()
	ctx := context.Background()

	v1 := NewCached(inner, backing, nil, 1)
	if _, _, err := v1.Assess(ctx, 5, emptyRequest); err != nil {
		t.Fatalf("assess v1: %v", err)
	}

	// A new analysis version must not reuse the v1 entry
	v2 := NewCached(inner, backing, nil, 2)
	_, fromCache, err := v2.Assess(ctx, 5, emptyRequest)
	if err != nil {
		t.Fatalf("assess v2: %v", err)
	}
	if fromCache {
		t.Error("new version must re-run the oracle")
	}
	if got := atomic.LoadInt64(&inner.calls); got != 2 {
		t.Errorf("oracle invoked %d times, want 2", got)
	}

	// Both versions remain stored independently
	if v, _ := backing.GetVerdict(ctx, 5, 1); v == nil {
		t.Error("version 1 entry lost")
	}
	if v, _ := backing.GetVerdict(ctx, 5, 2); v == nil {
		t.Error("version 2 entry missing")
	}
}

func TestCached_MemoryFront(t *testing.T) {
	inner := &countingOracle{}
	front := cache.NewMemoryCache(time.Minute, time.Minute)
	c := NewCached(inner, store.NewMemory(), front, 1)
	ctx := context.Background()

	if _, _, err := c.Assess(ctx, 11, emptyRequest); err != nil {
		t.Fatalf("assess: %v", err)
	}

	// The front must now hold the serialized verdict
	if _, ok := front.Get(cache.VerdictKey(11, 1)); !ok {
		t.Error("verdict not promoted to memory front")
	}

	_, fromCache, err := c.Assess(ctx, 11, emptyRequest)
	if err != nil {
		t.Fatalf("assess again: %v", err)
	}
	if !fromCache {
		t.Error("expected front hit")
	}
	if got := atomic.LoadInt64(&inner.calls); got != 1 {
		t.Errorf("oracle invoked %d times, want 1", got)
	}
}
