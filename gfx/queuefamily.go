package gfx

import (
	"fmt"
	"log/slog"

	"github.com/chewxy/math32"

	"github.com/gogpu/gfxcore"
	"github.com/gogpu/gfxcore/driver"
)

// QueueKind is the role a queue or queue family plays.
type QueueKind int

const (
	// QueuePresent queues can hand images to the presentation engine.
	QueuePresent QueueKind = iota

	// QueueGraphics queues execute render passes and draws.
	QueueGraphics

	// QueueTransfer queues execute copies and barriers only.
	QueueTransfer

	// QueueCompute queues execute compute dispatches.
	QueueCompute
)

// String returns the string representation of the queue kind.
func (k QueueKind) String() string {
	switch k {
	case QueuePresent:
		return "Present"
	case QueueGraphics:
		return "Graphics"
	case QueueTransfer:
		return "Transfer"
	case QueueCompute:
		return "Compute"
	default:
		return fmt.Sprintf("QueueKind(%d)", int(k))
	}
}

// QueueFamilyCollection is the set of general-purpose queue families the
// engine runs on: one that can present, one for graphics, one for
// transfers. Two roles may resolve to the same hardware family index.
type QueueFamilyCollection struct {
	present  QueueFamily
	graphics QueueFamily
	transfer QueueFamily
}

// NewQueueFamilyCollection chooses families from the context's device by
// role. The graphics family must also support presentation so render
// targets never need a cross-family ownership transfer before present.
func NewQueueFamilyCollection(ctx *Context) (*QueueFamilyCollection, error) {
	dev, release, err := ctx.Borrow()
	if err != nil {
		return nil, err
	}
	families := dev.QueueFamilies()
	release()

	present, err := chooseFamily("present", families, QueuePresent,
		func(p driver.QueueFamilyProperties) bool {
			return p.Present
		})
	if err != nil {
		return nil, err
	}
	graphics, err := chooseFamily("graphics", families, QueueGraphics,
		func(p driver.QueueFamilyProperties) bool {
			return p.Graphics && p.Present
		})
	if err != nil {
		return nil, err
	}
	transfer, err := chooseFamily("transfer", families, QueueTransfer,
		func(p driver.QueueFamilyProperties) bool {
			return p.Transfer
		})
	if err != nil {
		return nil, err
	}

	return &QueueFamilyCollection{
		present:  present,
		graphics: graphics,
		transfer: transfer,
	}, nil
}

// chooseFamily picks the first family satisfying the role predicate.
func chooseFamily(role string, families []driver.QueueFamilyProperties, kind QueueKind, fits func(driver.QueueFamilyProperties) bool) (QueueFamily, error) {
	for _, props := range families {
		if fits(props) {
			return QueueFamily{
				name:       fmt.Sprintf("queue_family_collection.%s", role),
				kind:       kind,
				index:      props.Index,
				queueCount: props.QueueCount,
			}, nil
		}
	}
	return QueueFamily{}, fmt.Errorf("gfx: no queue family satisfies the %v role", kind)
}

// Present returns the present queue family.
func (c *QueueFamilyCollection) Present() *QueueFamily { return &c.present }

// Graphics returns the graphics queue family.
func (c *QueueFamilyCollection) Graphics() *QueueFamily { return &c.graphics }

// Transfer returns the transfer queue family.
func (c *QueueFamilyCollection) Transfer() *QueueFamily { return &c.transfer }

// FamilyPriorities pairs a hardware family index with the per-queue
// priorities requested for it at device creation.
type FamilyPriorities struct {
	Index      uint32
	Priorities []float32
}

// QueuePriorities returns the priorities for each distinct hardware
// family in the collection. Roles sharing a family index are reduced to
// the single entry with the greater priority list.
func (c *QueueFamilyCollection) QueuePriorities() []FamilyPriorities {
	priorities := []FamilyPriorities{
		{Index: c.present.Index(), Priorities: c.present.QueuePriorities()},
		{Index: c.graphics.Index(), Priorities: c.graphics.QueuePriorities()},
		{Index: c.transfer.Index(), Priorities: c.transfer.QueuePriorities()},
	}
	return reduceFamilyPrioritiesToUnique(priorities)
}

// reduceFamilyPrioritiesToUnique drops duplicate family indices, keeping
// for each index the lexicographically greatest priority list.
func reduceFamilyPrioritiesToUnique(priorities []FamilyPriorities) []FamilyPriorities {
	out := priorities[:0]
	for _, cand := range priorities {
		replaced := false
		duplicate := false
		for i, kept := range out {
			if kept.Index != cand.Index {
				continue
			}
			duplicate = true
			if comparePriorityLists(cand.Priorities, kept.Priorities) > 0 {
				out[i] = cand
				replaced = true
			}
			break
		}
		if !duplicate && !replaced {
			out = append(out, cand)
		}
	}
	return out
}

func comparePriorityLists(a, b []float32) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// Setup creates each family's queues and command pools. Must be called
// exactly once, before any allocation or submission.
func (c *QueueFamilyCollection) Setup(ctx *Context) error {
	if err := c.present.Setup(ctx); err != nil {
		return err
	}
	if err := c.graphics.Setup(ctx); err != nil {
		return err
	}
	return c.transfer.Setup(ctx)
}

// QueueFamily is one hardware queue family in a chosen role. Before
// Setup it only carries identity; Setup populates its queues and command
// pools.
type QueueFamily struct {
	name       string
	kind       QueueKind
	index      uint32
	queueCount uint32
	queues     []*Queue
	pools      *CommandPoolCollection
}

// Index returns the hardware family index.
func (f *QueueFamily) Index() uint32 { return f.index }

// Kind returns the role this family was chosen for.
func (f *QueueFamily) Kind() QueueKind { return f.kind }

// QueueCount returns the number of queues the family exposes.
func (f *QueueFamily) QueueCount() uint32 { return f.queueCount }

// Queues returns the family's queues, or nil before Setup.
func (f *QueueFamily) Queues() []*Queue { return f.queues }

// CommandPools returns the family's command pools, or nil before Setup.
func (f *QueueFamily) CommandPools() *CommandPoolCollection { return f.pools }

// QueuePriorities returns the priority assigned to each queue: queue i
// gets 1 - i/count, so queue 0 is the highest-priority queue.
func (f *QueueFamily) QueuePriorities() []float32 {
	priorities := make([]float32, f.queueCount)
	for i := range priorities {
		priorities[i] = 1 - float32(i)/float32(f.queueCount)
	}
	return priorities
}

// QueueOfPriority returns the queue whose priority slot contains p.
// p is clamped to [0, 1]; priority 1 is queue 0, priority 0 the last.
func (f *QueueFamily) QueueOfPriority(p float32) (*Queue, error) {
	if f.queues == nil {
		return nil, fmt.Errorf("%w: queue family %q not set up", ErrIllegalState, f.name)
	}
	p = math32.Max(0, math32.Min(1, p))
	idx := min(int((1-p)*float32(f.queueCount)), int(f.queueCount)-1)
	return f.queues[idx], nil
}

// QueueNInPriorityRange returns the n-th queue within the priority window
// [lo, hi]. The window bounds are clamped to [0, 1] and reordered if
// reversed; a zero-width window resolves to the single queue at that
// priority; n wraps modulo the window size, so any n >= 0 is valid.
func (f *QueueFamily) QueueNInPriorityRange(n int, lo, hi float32) (*Queue, error) {
	if f.queues == nil {
		return nil, fmt.Errorf("%w: queue family %q not set up", ErrIllegalState, f.name)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative queue ordinal %d", ErrOutOfRange, n)
	}
	lo = math32.Max(0, math32.Min(1, lo))
	hi = math32.Max(0, math32.Min(1, hi))
	if lo > hi {
		lo, hi = hi, lo
	}
	count := int(f.queueCount)
	first := min(int((1-hi)*float32(count)), count-1)
	last := min(int((1-lo)*float32(count)), count-1)
	idx := first + n%(last-first+1)
	return f.queues[idx], nil
}

// Setup creates the family's queues (one per hardware-reported count) and
// its command pool collection. A second call is an error.
func (f *QueueFamily) Setup(ctx *Context) error {
	if f.queues != nil {
		return fmt.Errorf("%w: queue family %q already set up", ErrIllegalState, f.name)
	}
	dev, release, err := ctx.Borrow()
	if err != nil {
		return err
	}
	queues := make([]*Queue, 0, f.queueCount)
	for i := range f.queueCount {
		raw, err := dev.DeviceQueue(f.index, i)
		if err != nil {
			release()
			return fmt.Errorf("gfx: device queue %d of family %d: %w", i, f.index, err)
		}
		q := &Queue{
			Object: NewObject(ctx, raw, driver.KindQueue, true),
			kind:   f.kind,
		}
		queues = append(queues, q)
	}
	release()

	for i, q := range queues {
		if err := q.SetName(fmt.Sprintf("%s.queues[%d]", f.name, i)); err != nil {
			return err
		}
	}
	pools, err := newCommandPoolCollection(fmt.Sprintf("%s.command_pools", f.name), ctx, f)
	if err != nil {
		return err
	}
	f.queues = queues
	f.pools = pools
	gfxcore.Logger().Info("queue family ready",
		slog.String("name", f.name),
		slog.String("kind", f.kind.String()),
		slog.Int("queues", len(queues)))
	return nil
}

// Queue is one hardware execution channel of a family. Queue handles are
// device-owned, so the wrapper is protected.
type Queue struct {
	Object
	kind QueueKind
}

// QueueKind returns the role of the owning family.
func (q *Queue) QueueKind() QueueKind { return q.kind }

// SemaphoreWait pairs a wait semaphore with the pipeline stage execution
// stalls at until it signals.
type SemaphoreWait struct {
	Semaphore *Semaphore
	Stage     driver.StageFlags
}

// Submit issues one batched submission: the GPU waits on each input
// semaphore at its stage, executes the command buffers in slice order,
// then signals the output semaphores and, if given, the fence. Submit
// returns once the work is queued, not once it executes.
func (q *Queue) Submit(commandBuffers []*CommandBuffer, waits []SemaphoreWait, signals []*Semaphore, fence *Fence) error {
	info := driver.SubmitInfo{}
	for _, cb := range commandBuffers {
		if cb.writing {
			return fmt.Errorf("%w: command buffer %q submitted while still recording",
				ErrIllegalState, cb.Name())
		}
		info.CommandBuffers = append(info.CommandBuffers, cb.Handle())
	}
	for _, w := range waits {
		info.Waits = append(info.Waits, driver.SemaphoreWait{
			Semaphore: w.Semaphore.Handle(),
			Stage:     w.Stage,
		})
	}
	for _, s := range signals {
		info.Signals = append(info.Signals, s.Handle())
	}
	var rawFence driver.Handle
	if fence != nil {
		rawFence = fence.Handle()
	}

	dev, release, err := q.ctx.Borrow()
	if err != nil {
		return err
	}
	defer release()
	if err := dev.QueueSubmit(q.handle, []driver.SubmitInfo{info}, rawFence); err != nil {
		return fmt.Errorf("gfx: queue submit: %w", err)
	}
	return nil
}

// Wait blocks the calling thread until the queue drains all submitted
// work. Setup-path only: idling a queue strands all other GPU work, so
// the frame loop synchronizes with semaphores and fences instead.
func (q *Queue) Wait() error {
	dev, release, err := q.ctx.Borrow()
	if err != nil {
		return err
	}
	defer release()
	if err := dev.QueueWaitIdle(q.handle); err != nil {
		return fmt.Errorf("gfx: queue wait idle: %w", err)
	}
	return nil
}
