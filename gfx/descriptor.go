package gfx

import (
	"fmt"

	"github.com/gogpu/gfxcore/driver"
	"github.com/gogpu/gfxcore/handle"
)

// DescriptorSetLayout declares the binding slots of a descriptor set.
type DescriptorSetLayout struct {
	Object
	bindings []driver.DescriptorSetLayoutBinding
}

// NewDescriptorSetLayout creates a set layout from explicit bindings.
func NewDescriptorSetLayout(ctx *Context, bindings []driver.DescriptorSetLayoutBinding) (*DescriptorSetLayout, error) {
	dev, release, err := ctx.Borrow()
	if err != nil {
		return nil, err
	}
	defer release()
	raw, err := dev.CreateDescriptorSetLayout(bindings)
	if err != nil {
		return nil, fmt.Errorf("gfx: create descriptor set layout: %w", err)
	}
	return &DescriptorSetLayout{
		Object:   NewObject(ctx, raw, driver.KindDescriptorSetLayout, false),
		bindings: bindings,
	}, nil
}

// Bindings returns the declared binding slots.
func (l *DescriptorSetLayout) Bindings() []driver.DescriptorSetLayoutBinding { return l.bindings }

// SetBatchHandle refers to one batch of descriptor sets within its pool.
type SetBatchHandle = handle.Handle[[]*DescriptorSet]

// DescriptorPool allocates descriptor sets in batches, mirroring command
// pool allocation: one handle per batch, no individual recycling.
type DescriptorPool struct {
	Object
	batches *handle.Cache[[]*DescriptorSet]
}

// NewDescriptorPool creates a pool sized for maxSets sets drawing from
// the given per-type capacities.
func NewDescriptorPool(ctx *Context, maxSets uint32, sizes []driver.DescriptorPoolSize) (*DescriptorPool, error) {
	if maxSets == 0 {
		return nil, fmt.Errorf("%w: zero-capacity descriptor pool", ErrOutOfRange)
	}
	dev, release, err := ctx.Borrow()
	if err != nil {
		return nil, err
	}
	defer release()
	raw, err := dev.CreateDescriptorPool(maxSets, sizes)
	if err != nil {
		return nil, fmt.Errorf("gfx: create descriptor pool: %w", err)
	}
	return &DescriptorPool{
		Object:  NewObject(ctx, raw, driver.KindDescriptorPool, false),
		batches: handle.NewCache[[]*DescriptorSet](),
	}, nil
}

// CreateDescriptorSets allocates one set per given layout as a single
// batch and returns a stable handle for later lookup and destruction.
func (p *DescriptorPool) CreateDescriptorSets(layouts []*DescriptorSetLayout) (SetBatchHandle, []*DescriptorSet, error) {
	raws := make([]driver.Handle, len(layouts))
	for i, l := range layouts {
		raws[i] = l.Handle()
	}
	dev, release, err := p.ctx.Borrow()
	if err != nil {
		return SetBatchHandle{}, nil, err
	}
	sets, err := dev.AllocateDescriptorSets(p.handle, raws)
	release()
	if err != nil {
		return SetBatchHandle{}, nil, fmt.Errorf("gfx: allocate descriptor sets: %w", err)
	}

	batch := make([]*DescriptorSet, len(sets))
	for i, raw := range sets {
		batch[i] = &DescriptorSet{
			// Freed with the batch, never destroyed standalone.
			Object: NewObject(p.ctx, raw, driver.KindDescriptorSet, true),
			layout: layouts[i],
		}
	}
	h := p.batches.Insert(batch)
	for i, set := range batch {
		if err := set.SetName(fmt.Sprintf("%s[%v].%d", p.Name(), h, i)); err != nil {
			// Unwind the half-named batch; the naming error wins.
			_ = p.DestroyDescriptorSets(h)
			return SetBatchHandle{}, nil, err
		}
	}
	return h, batch, nil
}

// DestroyDescriptorSets frees the batch and removes it from the pool.
// The handle is permanently invalid afterwards; reusing it yields
// ErrNotFound, never a different batch.
func (p *DescriptorPool) DestroyDescriptorSets(h SetBatchHandle) error {
	batch, ok := p.batches.Remove(h)
	if !ok {
		return fmt.Errorf("%w: no descriptor sets under handle %v", ErrNotFound, h)
	}
	raws := make([]driver.Handle, len(batch))
	for i, set := range batch {
		raws[i] = set.Handle()
	}
	dev, release, err := p.ctx.Borrow()
	if err != nil {
		return err
	}
	defer release()
	if err := dev.FreeDescriptorSets(p.handle, raws); err != nil {
		return fmt.Errorf("gfx: free descriptor sets: %w", err)
	}
	return nil
}

// DescriptorSets returns the batch under h, or ErrNotFound if the handle
// is stale or foreign.
func (p *DescriptorPool) DescriptorSets(h SetBatchHandle) ([]*DescriptorSet, error) {
	batch, ok := p.batches.Get(h)
	if !ok {
		return nil, fmt.Errorf("%w: no descriptor sets under handle %v", ErrNotFound, h)
	}
	return *batch, nil
}

// SetName renames the pool and propagates names to every owned set.
func (p *DescriptorPool) SetName(name string) error {
	if err := p.Object.SetName(name); err != nil {
		return err
	}
	for h, batch := range p.batches.All() {
		for i, set := range *batch {
			if err := set.SetName(fmt.Sprintf("%s[%v].%d", name, h, i)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Destroy frees every remaining batch, then the pool itself.
func (p *DescriptorPool) Destroy() error {
	for h := range p.batches.All() {
		if err := p.DestroyDescriptorSets(h); err != nil {
			return err
		}
	}
	return p.Object.Destroy()
}

// DescriptorSet is one table of resource bindings matching its layout.
type DescriptorSet struct {
	Object
	layout *DescriptorSetLayout
}

// Layout returns the layout the set was allocated against.
func (s *DescriptorSet) Layout() *DescriptorSetLayout { return s.layout }

// BufferRange is one buffer span bound by a descriptor write.
type BufferRange struct {
	Buffer *Buffer
	Offset uint64
	Range  uint64
}

// WriteUniformBuffers points the uniform-buffer descriptors at binding
// to the given buffer ranges, starting at arrayElement. Every range must
// lie inside its buffer.
func (s *DescriptorSet) WriteUniformBuffers(binding, arrayElement uint32, ranges []BufferRange) error {
	return s.writeBuffers(driver.DescriptorUniformBuffer, binding, arrayElement, ranges)
}

// WriteStorageBuffers points the storage-buffer descriptors at binding
// to the given buffer ranges, starting at arrayElement.
func (s *DescriptorSet) WriteStorageBuffers(binding, arrayElement uint32, ranges []BufferRange) error {
	return s.writeBuffers(driver.DescriptorStorageBuffer, binding, arrayElement, ranges)
}

func (s *DescriptorSet) writeBuffers(typ driver.DescriptorType, binding, arrayElement uint32, ranges []BufferRange) error {
	infos := make([]driver.DescriptorBufferInfo, len(ranges))
	for i, r := range ranges {
		if r.Offset+r.Range > r.Buffer.Size() {
			return fmt.Errorf("%w: descriptor range [%d, %d) exceeds buffer size %d",
				ErrOutOfRange, r.Offset, r.Offset+r.Range, r.Buffer.Size())
		}
		infos[i] = driver.DescriptorBufferInfo{
			Buffer: r.Buffer.Handle(),
			Offset: r.Offset,
			Range:  r.Range,
		}
	}
	dev, release, err := s.ctx.Borrow()
	if err != nil {
		return err
	}
	defer release()
	err = dev.UpdateDescriptorSets([]driver.DescriptorWrite{{
		Set:          s.handle,
		Binding:      binding,
		ArrayElement: arrayElement,
		Type:         typ,
		Buffers:      infos,
	}})
	if err != nil {
		return fmt.Errorf("gfx: update descriptor sets: %w", err)
	}
	return nil
}

// WriteCombinedImageSampler points the descriptor at binding to view
// sampled through sampler, with the image in layout.
func (s *DescriptorSet) WriteCombinedImageSampler(binding, arrayElement uint32, view *ImageView, sampler *Sampler, layout driver.ImageLayout) error {
	dev, release, err := s.ctx.Borrow()
	if err != nil {
		return err
	}
	defer release()
	err = dev.UpdateDescriptorSets([]driver.DescriptorWrite{{
		Set:          s.handle,
		Binding:      binding,
		ArrayElement: arrayElement,
		Type:         driver.DescriptorCombinedImageSampler,
		Images: []driver.DescriptorImageInfo{{
			Sampler:   sampler.Handle(),
			ImageView: view.Handle(),
			Layout:    layout,
		}},
	}})
	if err != nil {
		return fmt.Errorf("gfx: update descriptor sets: %w", err)
	}
	return nil
}
