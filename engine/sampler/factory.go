package sampler

import (
	"sync"

	"github.com/spaghettifunk/scinthd/engine/core"
)

// GPUSampler is an opaque realized sampler handle, owned by whatever render
// context realized it.
type GPUSampler interface{}

// Realizer is the render-context capability SamplerFactory needs: turning an
// Abstract sampler description into (and back out of) a real GPU object.
// The render context itself is an external collaborator (spec-excluded); this
// is the minimal seam SamplerFactory needs from it.
type Realizer interface {
	CreateSampler(Abstract) (GPUSampler, error)
	DestroySampler(GPUSampler) error
}

type entry struct {
	refcount int
	gpu      GPUSampler
}

// Factory is a refcounted cache of realized GPU sampler objects keyed by
// AbstractSampler hash, per component I.
type Factory struct {
	realizer Realizer
	logger   *core.Logger

	mu    sync.Mutex
	cache map[uint32]*entry
}

// NewFactory returns a Factory that realizes samplers via realizer.
func NewFactory(realizer Realizer, logger *core.Logger) *Factory {
	return &Factory{
		realizer: realizer,
		logger:   logger,
		cache:    make(map[uint32]*entry),
	}
}

// GetSampler returns a (possibly shared) realized GPU sampler for abstract,
// incrementing its refcount. The first call for a given hash realizes a new
// GPU sampler; subsequent calls for the same hash return the cached one.
func (f *Factory) GetSampler(abstract Abstract) (GPUSampler, error) {
	key := abstract.Key()

	f.mu.Lock()
	defer f.mu.Unlock()

	if e, ok := f.cache[key]; ok {
		e.refcount++
		return e.gpu, nil
	}

	gpu, err := f.realizer.CreateSampler(abstract)
	if err != nil {
		return nil, core.NewError(core.KindGpuResource, err)
	}
	f.cache[key] = &entry{refcount: 1, gpu: gpu}
	return gpu, nil
}

// ReleaseSampler decrements the refcount of the cache entry matching
// abstract. When the refcount reaches zero the GPU sampler is destroyed and
// the entry removed — after every matched Get/Release pair the cache is
// empty.
func (f *Factory) ReleaseSampler(abstract Abstract) error {
	key := abstract.Key()

	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.cache[key]
	if !ok {
		if f.logger != nil {
			f.logger.Warnf("sampler factory: release of unknown sampler key %08x", key)
		}
		return nil
	}
	e.refcount--
	if e.refcount <= 0 {
		delete(f.cache, key)
		return f.realizer.DestroySampler(e.gpu)
	}
	return nil
}

// Size returns the number of distinct samplers currently cached. Exposed for
// tests verifying the empty-after-matched-pairs invariant.
func (f *Factory) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cache)
}
