package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mlawson/shepard/internal/cache"
	"github.com/mlawson/shepard/internal/model"
	"github.com/mlawson/shepard/internal/store"
)

// RequestBuilder assembles the full assessment request for one opinion.
// Cached invokes it only after both cache layers miss, so callers can
// defer gathering opinion text and treatment to the miss path.
type RequestBuilder func(ctx context.Context) (Request, error)

// Cached wraps an oracle with the verdict store and an optional in-memory
// front. It is the only path by which traversal obtains a node's verdict:
// a miss triggers exactly one oracle call per (opinion, version), enforced
// by a per-opinion lock even under concurrent traversals.
type Cached struct {
	oracle  Oracle
	store   store.VerdictStore
	front   cache.Cache // may be nil
	version int

	mu    sync.Mutex
	locks map[int64]*lockEntry
}

// lockEntry is a refcounted per-opinion lock. The map entry is removed
// when the last holder releases it, so the map stays proportional to the
// opinions currently being assessed rather than all opinions ever seen.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewCached creates a caching wrapper around an oracle. front may be nil
// to skip the in-memory layer.
func NewCached(o Oracle, vs store.VerdictStore, front cache.Cache, version int) *Cached {
	if version <= 0 {
		version = 1
	}
	return &Cached{
		oracle:  o,
		store:   vs,
		front:   front,
		version: version,
		locks:   make(map[int64]*lockEntry),
	}
}

// Name returns the wrapped oracle's name
func (c *Cached) Name() string {
	return c.oracle.Name()
}

// Version returns the analysis version verdicts are keyed by
func (c *Cached) Version() int {
	return c.version
}

// Available reports whether the wrapped oracle can serve requests
func (c *Cached) Available(ctx context.Context) bool {
	return c.oracle.Available(ctx)
}

// Assess returns the verdict for opinionID, consulting the cache first.
// build runs only when neither cache layer holds the verdict. The second
// return value reports whether the verdict came from cache.
func (c *Cached) Assess(ctx context.Context, opinionID int64, build RequestBuilder) (*model.Verdict, bool, error) {
	if v := c.frontGet(opinionID); v != nil {
		return v, true, nil
	}

	if v, err := c.store.GetVerdict(ctx, opinionID, c.version); err != nil {
		return nil, false, fmt.Errorf("verdict lookup: %w", err)
	} else if v != nil {
		c.frontSet(v)
		return v, true, nil
	}

	// Serialize the get-then-put per opinion so two traversals never
	// both invoke the oracle for the same node
	entry := c.acquire(opinionID)
	entry.mu.Lock()
	defer c.release(opinionID, entry)

	// Re-check under the lock: another caller may have won the race
	if v, err := c.store.GetVerdict(ctx, opinionID, c.version); err != nil {
		return nil, false, fmt.Errorf("verdict lookup: %w", err)
	} else if v != nil {
		c.frontSet(v)
		return v, true, nil
	}

	req, err := build(ctx)
	if err != nil {
		return nil, false, err
	}
	req.OpinionID = opinionID

	v, err := c.oracle.Assess(ctx, req)
	if err != nil {
		return nil, false, err
	}

	v.Version = c.version
	if v.AnalyzedAt.IsZero() {
		v.AnalyzedAt = time.Now().UTC()
	}

	if err := c.store.PutVerdict(ctx, v); err != nil {
		return nil, false, fmt.Errorf("verdict save: %w", err)
	}
	c.frontSet(v)

	return v, false, nil
}

func (c *Cached) acquire(opinionID int64) *lockEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.locks[opinionID]
	if !ok {
		entry = &lockEntry{}
		c.locks[opinionID] = entry
	}
	entry.refs++
	return entry
}

func (c *Cached) release(opinionID int64, entry *lockEntry) {
	entry.mu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(c.locks, opinionID)
	}
}

func (c *Cached) frontGet(opinionID int64) *model.Verdict {
	if c.front == nil {
		return nil
	}
	data, ok := c.front.Get(cache.VerdictKey(opinionID, c.version))
	if !ok {
		return nil
	}
	var v model.Verdict
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	return &v
}

func (c *Cached) frontSet(v *model.Verdict) {
	if c.front == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.front.Set(cache.VerdictKey(v.OpinionID, c.version), data, 0)
}
