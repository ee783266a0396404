package gfx

import (
	"fmt"

	"github.com/gogpu/gfxcore/driver"
	"github.com/gogpu/gfxcore/handle"
)

// CommandPoolCollection is the pair of pools each queue family owns: a
// transient pool for short-lived, re-recorded buffers and a long-term
// pool for buffers recorded once and resubmitted every frame.
type CommandPoolCollection struct {
	transient *CommandPool
	longTerm  *CommandPool
}

func newCommandPoolCollection(name string, ctx *Context, family *QueueFamily) (*CommandPoolCollection, error) {
	transient, err := newCommandPool(ctx, family, true)
	if err != nil {
		return nil, err
	}
	if err := transient.SetName(name + ".transient"); err != nil {
		return nil, err
	}
	longTerm, err := newCommandPool(ctx, family, false)
	if err != nil {
		return nil, err
	}
	if err := longTerm.SetName(name + ".long_term"); err != nil {
		return nil, err
	}
	return &CommandPoolCollection{transient: transient, longTerm: longTerm}, nil
}

// Transient returns the pool for short-lived command buffers.
func (c *CommandPoolCollection) Transient() *CommandPool { return c.transient }

// LongTerm returns the pool for long-lived, reused command buffers.
func (c *CommandPoolCollection) LongTerm() *CommandPool { return c.longTerm }

// Destroy frees both pools and every batch they own.
func (c *CommandPoolCollection) Destroy() error {
	if err := c.transient.Destroy(); err != nil {
		return err
	}
	return c.longTerm.Destroy()
}

// BatchHandle refers to one batch of command buffers within its pool.
type BatchHandle = handle.Handle[[]*CommandBuffer]

// CommandPool allocates command buffers in batches. A batch is the unit
// of allocation and destruction: one handle refers to the whole batch,
// and buffers are never recycled individually.
type CommandPool struct {
	Object
	batches *handle.Cache[[]*CommandBuffer]
	kind    QueueKind
}

func newCommandPool(ctx *Context, family *QueueFamily, transient bool) (*CommandPool, error) {
	dev, release, err := ctx.Borrow()
	if err != nil {
		return nil, err
	}
	defer release()
	raw, err := dev.CreateCommandPool(family.Index(), transient)
	if err != nil {
		return nil, fmt.Errorf("gfx: create command pool: %w", err)
	}
	return &CommandPool{
		Object:  NewObject(ctx, raw, driver.KindCommandPool, false),
		batches: handle.NewCache[[]*CommandBuffer](),
		kind:    family.Kind(),
	}, nil
}

// QueueKind returns the kind of queues this pool's buffers submit to.
func (p *CommandPool) QueueKind() QueueKind { return p.kind }

// CreateCommandBuffers allocates count buffers as one batch, tagging each
// with the pool's queue kind. It returns a stable handle for later lookup
// and destruction plus the buffers themselves for immediate recording.
func (p *CommandPool) CreateCommandBuffers(count uint32) (BatchHandle, []*CommandBuffer, error) {
	dev, release, err := p.ctx.Borrow()
	if err != nil {
		return BatchHandle{}, nil, err
	}
	raws, err := dev.AllocateCommandBuffers(p.handle, count)
	release()
	if err != nil {
		return BatchHandle{}, nil, fmt.Errorf("gfx: allocate command buffers: %w", err)
	}

	batch := make([]*CommandBuffer, len(raws))
	for i, raw := range raws {
		batch[i] = &CommandBuffer{
			// Freed with the batch, never destroyed standalone.
			Object: NewObject(p.ctx, raw, driver.KindCommandBuffer, true),
			kind:   p.kind,
		}
	}
	h := p.batches.Insert(batch)
	for i, cb := range batch {
		if err := cb.SetName(fmt.Sprintf("%s[%v].%d", p.Name(), h, i)); err != nil {
			// Unwind the half-named batch; the naming error wins.
			_ = p.DestroyCommandBuffers(h)
			return BatchHandle{}, nil, err
		}
	}
	return h, batch, nil
}

// DestroyCommandBuffers frees the batch and removes it from the pool.
// The handle is permanently invalid afterwards; reusing it yields
// ErrNotFound, never a different batch.
func (p *CommandPool) DestroyCommandBuffers(h BatchHandle) error {
	batch, ok := p.batches.Remove(h)
	if !ok {
		return fmt.Errorf("%w: no command buffers under handle %v", ErrNotFound, h)
	}
	raws := make([]driver.Handle, len(batch))
	for i, cb := range batch {
		raws[i] = cb.Handle()
	}
	dev, release, err := p.ctx.Borrow()
	if err != nil {
		return err
	}
	defer release()
	if err := dev.FreeCommandBuffers(p.handle, raws); err != nil {
		return fmt.Errorf("gfx: free command buffers: %w", err)
	}
	return nil
}

// CommandBuffers returns the batch under h, or ErrNotFound if the handle
// is stale or foreign.
func (p *CommandPool) CommandBuffers(h BatchHandle) ([]*CommandBuffer, error) {
	batch, ok := p.batches.Get(h)
	if !ok {
		return nil, fmt.Errorf("%w: no command buffers under handle %v", ErrNotFound, h)
	}
	return *batch, nil
}

// SetName renames the pool and propagates names to every owned buffer.
func (p *CommandPool) SetName(name string) error {
	if err := p.Object.SetName(name); err != nil {
		return err
	}
	for h, batch := range p.batches.All() {
		for i, cb := range *batch {
			if err := cb.SetName(fmt.Sprintf("%s[%v].%d", name, h, i)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Destroy frees every remaining batch, then the pool itself.
func (p *CommandPool) Destroy() error {
	for h := range p.batches.All() {
		if err := p.DestroyCommandBuffers(h); err != nil {
			return err
		}
	}
	return p.Object.Destroy()
}

// CommandBuffer is one recorded sequence of GPU commands. It is tagged
// with its pool's queue kind so recording operations illegal for that
// kind are rejected, and guarded by a writing flag so recording is never
// re-entered.
type CommandBuffer struct {
	Object
	writing bool
	kind    QueueKind
}

// QueueKind returns the kind of queue this buffer may be submitted to.
func (b *CommandBuffer) QueueKind() QueueKind { return b.kind }

// Begin starts recording and returns the scoped writer. usedOnce hints a
// one-shot submission; simultaneousUse allows the buffer to be pending on
// several queues at once. Begin fails with ErrIllegalState if the buffer
// is already recording.
func (b *CommandBuffer) Begin(usedOnce, simultaneousUse bool) (*Writer, error) {
	if b.writing {
		return nil, fmt.Errorf("%w: command buffer %q is already being recorded", ErrIllegalState, b.Name())
	}
	dev, release, err := b.ctx.Borrow()
	if err != nil {
		return nil, err
	}
	defer release()
	if err := dev.BeginCommandBuffer(b.handle, usedOnce, simultaneousUse); err != nil {
		return nil, fmt.Errorf("gfx: begin command buffer: %w", err)
	}
	b.writing = true
	return &Writer{buffer: b}, nil
}

// VerifyKind checks that the buffer belongs to one of the expected queue
// kinds and returns ErrIllegalState otherwise.
func (b *CommandBuffer) VerifyKind(expected ...QueueKind) error {
	for _, kind := range expected {
		if b.kind == kind {
			return nil
		}
	}
	return fmt.Errorf("%w: wrong command buffer kind %v, expected one of %v",
		ErrIllegalState, b.kind, expected)
}
