package prefab

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/spaghettifunk/anima-prefab/engine/assets"
	"github.com/spaghettifunk/anima-prefab/engine/components"
	"github.com/spaghettifunk/anima-prefab/engine/core"
	"github.com/spaghettifunk/anima-prefab/engine/ecs"
)

var ErrPrefabFailed = errors.New("prefab failed to load")

type RequestState int

const (
	RequestStateLoading RequestState = iota
	RequestStateLoaded
	RequestStateFailed
)

func (s RequestState) String() string {
	switch s {
	case RequestStateLoading:
		return "loading"
	case RequestStateLoaded:
		return "loaded"
	case RequestStateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

/**
 * @brief One prefab being loaded. Owned by the loader system that created it.
 */
type Request[T comparable] struct {
	id       uint64
	prefab   *Prefab[T]
	progress *assets.ProgressCounter
	state    RequestState
	entities []ecs.Entity
	err      error
}

func (r *Request[T]) ID() uint64 {
	return r.id
}

func (r *Request[T]) State() RequestState {
	return r.state
}

func (r *Request[T]) Progress() *assets.ProgressCounter {
	return r.progress
}

// Entities are indexed like the entries of the prefab. Empty unless loaded.
func (r *Request[T]) Entities() []ecs.Entity {
	return r.entities
}

// Err returns the fatal error of a failed request or the joined attachment errors of a loaded one.
func (r *Request[T]) Err() error {
	return r.err
}

/**
 * @brief Drives the two loading phases of prefabs. Not safe for concurrent use;
 * Load and Update are meant to be called from the main loop.
 */
type LoaderSystem[T interface {
	comparable
	Data[S]
}, S any] struct {
	world   *ecs.World
	data    S
	parents *ecs.Storage[components.Parent]
	nextID  atomic.Uint64
	pending []*Request[T]
}

func NewLoaderSystem[T interface {
	comparable
	Data[S]
}, S any](world *ecs.World, data S) *LoaderSystem[T, S] {
	return &LoaderSystem[T, S]{
		world:   world,
		data:    data,
		parents: ecs.GetStorage[components.Parent](world),
	}
}

func (ls *LoaderSystem[T, S]) Data() S {
	return ls.data
}

/**
 * @brief Runs the first phase for every entry, in order. A fatal error fails
 * the request right away; otherwise it is polled by Update.
 */
func (ls *LoaderSystem[T, S]) Load(p *Prefab[T]) *Request[T] {
	req := &Request[T]{
		id:       ls.nextID.Add(1),
		prefab:   p,
		progress: assets.NewProgressCounter(),
		state:    RequestStateLoading,
	}

	if ps, ok := any(ls.data).(PassStarter); ok {
		ps.BeginPass()
	}

	var zero T
	waiting := 0
	for i, e := range p.entries {
		if e.Data == zero {
			continue
		}
		pending, err := e.Data.LoadSubAssets(req.progress, ls.data)
		if err != nil {
			ls.fail(req, fmt.Errorf("%w: entry %d: %w", ErrPrefabFailed, i, err))
			return req
		}
		if pending {
			waiting++
		}
	}
	core.LogDebug("prefab %d: %d of %d entries wait for %d sub-assets", req.id, waiting, len(p.entries), req.progress.NumAssets())

	ls.pending = append(ls.pending, req)
	return req
}

/**
 * @brief Finishes every request whose sub-assets are done.
 * @return The number of requests that left the loading state.
 */
func (ls *LoaderSystem[T, S]) Update() int {
	done := 0
	remaining := ls.pending[:0]
	for _, req := range ls.pending {
		if !req.progress.IsComplete() {
			remaining = append(remaining, req)
			continue
		}
		done++
		if req.progress.NumFailed() > 0 {
			ls.fail(req, fmt.Errorf("%w: %w", ErrPrefabFailed, req.progress.Err()))
			continue
		}
		ls.attach(req)
	}
	for i := len(remaining); i < len(ls.pending); i++ {
		ls.pending[i] = nil
	}
	ls.pending = remaining
	return done
}

// Pending returns the number of requests still loading.
func (ls *LoaderSystem[T, S]) Pending() int {
	return len(ls.pending)
}

func (ls *LoaderSystem[T, S]) attach(req *Request[T]) {
	p := req.prefab
	entities := make([]ecs.Entity, 0, len(p.entries))
	for range p.entries {
		e, err := ls.world.Create()
		if err != nil {
			for _, created := range entities {
				_ = ls.world.Destroy(created)
			}
			ls.fail(req, fmt.Errorf("%w: %w", ErrPrefabFailed, err))
			return
		}
		entities = append(entities, e)
	}

	children := make([][]ecs.Entity, len(p.entries))
	var errs []error
	for i, e := range p.entries {
		if e.Parent == NoParent {
			continue
		}
		children[e.Parent] = append(children[e.Parent], entities[i])
		if err := ls.parents.Insert(entities[i], components.Parent{Entity: entities[e.Parent]}); err != nil {
			errs = append(errs, fmt.Errorf("entry %d: %w", i, err))
		}
	}

	var zero T
	for i, e := range p.entries {
		if e.Data == zero {
			continue
		}
		if err := e.Data.AddToEntity(entities[i], ls.data, entities, children[i]); err != nil {
			core.LogError("prefab %d: entry %d: %s", req.id, i, err)
			errs = append(errs, fmt.Errorf("entry %d: %w", i, err))
		}
	}

	req.entities = entities
	req.state = RequestStateLoaded
	req.err = errors.Join(errs...)
	core.LogInfo("prefab %d loaded into %d entities of world %s", req.id, len(entities), ls.world.ID())

	ctx := core.EventContext{}
	ctx.Data.U64[0] = req.id
	ctx.Data.U32[0] = uint32(len(entities))
	ctx.Data.C[0] = ls.world.ID().String()
	core.EventFire(core.EVENT_CODE_PREFAB_LOADED, ls, ctx)
}

func (ls *LoaderSystem[T, S]) fail(req *Request[T], err error) {
	req.state = RequestStateFailed
	req.err = err
	core.LogError("prefab %d: %s", req.id, err)

	ctx := core.EventContext{}
	ctx.Data.U64[0] = req.id
	ctx.Data.C[0] = err.Error()
	ctx.Data.C[1] = ls.world.ID().String()
	core.EventFire(core.EVENT_CODE_PREFAB_FAILED, ls, ctx)
}
