// Package null implements a recording driver.Device with no GPU behind it.
//
// Every call validates its handles, appends to a per-command-buffer or
// per-queue log, and succeeds. Submitted work "completes" instantly, so
// fences signal as soon as their submission lands. The device counts
// destroys per object kind and keeps the full submission history, which is
// what higher-level tests assert against.
//
// The driver registers itself under the name "null".
package null

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gfxcore/driver"
)

func init() {
	driver.Register(driver.DriverNull, func() (driver.Device, error) {
		return New(), nil
	})
}

// Errors returned by the null device for detectable misuse.
var (
	ErrUnknownHandle = errors.New("null: unknown or destroyed handle")
	ErrNotRecording  = errors.New("null: command buffer is not recording")
	ErrTimeout       = errors.New("null: wait timed out")
)

// Submission is one recorded QueueSubmit call.
type Submission struct {
	Queue   driver.Handle
	Batches []driver.SubmitInfo
	Fence   driver.Handle
}

// Present is one recorded QueuePresent call.
type Present struct {
	Queue         driver.Handle
	Swapchain     driver.Handle
	ImageIndex    uint32
	WaitSemaphore driver.Handle
}

type commandBuffer struct {
	pool      driver.Handle
	recording bool
	commands  []string
}

type swapchain struct {
	images []driver.Handle
	next   uint32
}

// Device is a driver.Device that records instead of rendering.
//
// Unlike real drivers, all methods are safe for concurrent use; the tests
// exercising the layers above are free to hammer it from many goroutines.
type Device struct {
	mu sync.Mutex

	families []driver.QueueFamilyProperties
	queues   map[[2]uint32]driver.Handle

	nextHandle driver.Handle
	live       map[driver.Handle]driver.ObjectKind
	destroyed  map[driver.ObjectKind]int
	names      map[driver.Handle]string

	fences     map[driver.Handle]bool
	buffers    map[driver.Handle]*commandBuffer
	memory     map[driver.Handle][]byte
	swapchains map[driver.Handle]*swapchain

	submissions []Submission
	presents    []Present

	// failNext maps an operation name to a one-shot injected error.
	failNext map[string]error
}

// New creates a null device with a typical discrete-GPU family layout:
// one do-everything family that can present, a dedicated transfer family,
// and an async-compute family.
func New() *Device {
	return NewWithFamilies([]driver.QueueFamilyProperties{
		{Index: 0, QueueCount: 3, Graphics: true, Compute: true, Transfer: true, Present: true},
		{Index: 1, QueueCount: 2, Transfer: true},
		{Index: 2, QueueCount: 1, Compute: true, Transfer: true},
	})
}

// NewWithFamilies creates a null device reporting the given queue families.
func NewWithFamilies(families []driver.QueueFamilyProperties) *Device {
	return &Device{
		families:   families,
		queues:     make(map[[2]uint32]driver.Handle),
		live:       make(map[driver.Handle]driver.ObjectKind),
		destroyed:  make(map[driver.ObjectKind]int),
		names:      make(map[driver.Handle]string),
		fences:     make(map[driver.Handle]bool),
		buffers:    make(map[driver.Handle]*commandBuffer),
		memory:     make(map[driver.Handle][]byte),
		swapchains: make(map[driver.Handle]*swapchain),
		failNext:   make(map[string]error),
	}
}

// FailNext makes the next call to the named operation (e.g. "CreateFence",
// "QueueSubmit") return err instead of succeeding. One-shot.
func (d *Device) FailNext(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failNext[op] = err
}

func (d *Device) injected(op string) error {
	if err, ok := d.failNext[op]; ok {
		delete(d.failNext, op)
		return err
	}
	return nil
}

func (d *Device) alloc(kind driver.ObjectKind) driver.Handle {
	d.nextHandle++
	h := d.nextHandle
	d.live[h] = kind
	return h
}

func (d *Device) check(h driver.Handle, kind driver.ObjectKind) error {
	got, ok := d.live[h]
	if !ok || got != kind {
		return fmt.Errorf("%w: %v %v", ErrUnknownHandle, kind, h)
	}
	return nil
}

// Name implements driver.Device.
func (d *Device) Name() string { return driver.DriverNull }

// QueueFamilies implements driver.Device.
func (d *Device) QueueFamilies() []driver.QueueFamilyProperties {
	return d.families
}

// DeviceQueue implements driver.Device. Queue handles are stable per
// (family, index) pair.
func (d *Device) DeviceQueue(family, index uint32) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var props *driver.QueueFamilyProperties
	for i := range d.families {
		if d.families[i].Index == family {
			props = &d.families[i]
			break
		}
	}
	if props == nil {
		return driver.Null, fmt.Errorf("null: no queue family %d", family)
	}
	if index >= props.QueueCount {
		return driver.Null, fmt.Errorf("null: queue index %d out of range for family %d (count %d)",
			index, family, props.QueueCount)
	}

	key := [2]uint32{family, index}
	if h, ok := d.queues[key]; ok {
		return h, nil
	}
	h := d.alloc(driver.KindQueue)
	d.queues[key] = h
	return h, nil
}

// CreateFence implements driver.Device.
func (d *Device) CreateFence(signaled bool) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateFence"); err != nil {
		return driver.Null, err
	}
	h := d.alloc(driver.KindFence)
	d.fences[h] = signaled
	return h, nil
}

// FenceStatus implements driver.Device.
func (d *Device) FenceStatus(fence driver.Handle) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(fence, driver.KindFence); err != nil {
		return false, err
	}
	return d.fences[fence], nil
}

// WaitForFence implements driver.Device. Work completes instantly, so an
// unsignaled fence here can never signal later; the wait fails immediately
// rather than sleeping out the timeout.
func (d *Device) WaitForFence(fence driver.Handle, timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(fence, driver.KindFence); err != nil {
		return err
	}
	if !d.fences[fence] {
		return fmt.Errorf("%w: fence %v after %v", ErrTimeout, fence, timeout)
	}
	return nil
}

// ResetFence implements driver.Device.
func (d *Device) ResetFence(fence driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(fence, driver.KindFence); err != nil {
		return err
	}
	d.fences[fence] = false
	return nil
}

// CreateSemaphore implements driver.Device.
func (d *Device) CreateSemaphore() (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateSemaphore"); err != nil {
		return driver.Null, err
	}
	return d.alloc(driver.KindSemaphore), nil
}

// CreateBuffer implements driver.Device.
func (d *Device) CreateBuffer(size uint64, usage gputypes.BufferUsage) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateBuffer"); err != nil {
		return driver.Null, err
	}
	if size == 0 {
		return driver.Null, errors.New("null: zero-size buffer")
	}
	return d.alloc(driver.KindBuffer), nil
}

// BufferMemoryRequirements implements driver.Device. The null device
// reports a 256-byte alignment, typical of uniform buffer offsets.
func (d *Device) BufferMemoryRequirements(buffer driver.Handle) (driver.MemoryRequirements, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(buffer, driver.KindBuffer); err != nil {
		return driver.MemoryRequirements{}, err
	}
	return driver.MemoryRequirements{Size: 256, Alignment: 256}, nil
}

// AllocateMemory implements driver.Device. Host-visible memory is backed
// by a plain byte slice so MapMemory round-trips real data.
func (d *Device) AllocateMemory(size uint64, hostVisible bool) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("AllocateMemory"); err != nil {
		return driver.Null, err
	}
	h := d.alloc(driver.KindMemory)
	if hostVisible {
		d.memory[h] = make([]byte, size)
	}
	return h, nil
}

// BindBufferMemory implements driver.Device.
func (d *Device) BindBufferMemory(buffer, memory driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(buffer, driver.KindBuffer); err != nil {
		return err
	}
	return d.check(memory, driver.KindMemory)
}

// MapMemory implements driver.Device.
func (d *Device) MapMemory(memory driver.Handle, offset, size uint64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(memory, driver.KindMemory); err != nil {
		return nil, err
	}
	backing, ok := d.memory[memory]
	if !ok {
		return nil, errors.New("null: memory is not host-visible")
	}
	if offset+size > uint64(len(backing)) {
		return nil, fmt.Errorf("null: map range [%d, %d) exceeds allocation size %d",
			offset, offset+size, len(backing))
	}
	return backing[offset : offset+size], nil
}

// UnmapMemory implements driver.Device.
func (d *Device) UnmapMemory(memory driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.check(memory, driver.KindMemory)
}

// CreateImage implements driver.Device.
func (d *Device) CreateImage(desc driver.ImageDescriptor) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateImage"); err != nil {
		return driver.Null, err
	}
	if desc.Extent.Width == 0 || desc.Extent.Height == 0 {
		return driver.Null, errors.New("null: zero-extent image")
	}
	return d.alloc(driver.KindImage), nil
}

// ImageMemoryRequirements implements driver.Device.
func (d *Device) ImageMemoryRequirements(image driver.Handle) (driver.MemoryRequirements, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(image, driver.KindImage); err != nil {
		return driver.MemoryRequirements{}, err
	}
	return driver.MemoryRequirements{Size: 4096, Alignment: 4096}, nil
}

// BindImageMemory implements driver.Device.
func (d *Device) BindImageMemory(image, memory driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(image, driver.KindImage); err != nil {
		return err
	}
	return d.check(memory, driver.KindMemory)
}

// CreateImageView implements driver.Device.
func (d *Device) CreateImageView(image driver.Handle, desc driver.ImageViewDescriptor) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateImageView"); err != nil {
		return driver.Null, err
	}
	if err := d.check(image, driver.KindImage); err != nil {
		return driver.Null, err
	}
	return d.alloc(driver.KindImageView), nil
}

// CreateSampler implements driver.Device.
func (d *Device) CreateSampler(desc driver.SamplerDescriptor) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateSampler"); err != nil {
		return driver.Null, err
	}
	return d.alloc(driver.KindSampler), nil
}

// CreateShaderModule implements driver.Device.
func (d *Device) CreateShaderModule(spirv []uint32) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateShaderModule"); err != nil {
		return driver.Null, err
	}
	if len(spirv) == 0 {
		return driver.Null, errors.New("null: empty shader module")
	}
	return d.alloc(driver.KindShaderModule), nil
}

// CreateRenderPass implements driver.Device.
func (d *Device) CreateRenderPass(desc driver.RenderPassDescriptor) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateRenderPass"); err != nil {
		return driver.Null, err
	}
	if len(desc.Subpasses) == 0 {
		return driver.Null, errors.New("null: render pass needs at least one subpass")
	}
	return d.alloc(driver.KindRenderPass), nil
}

// CreateFramebuffer implements driver.Device.
func (d *Device) CreateFramebuffer(desc driver.FramebufferDescriptor) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateFramebuffer"); err != nil {
		return driver.Null, err
	}
	if err := d.check(desc.RenderPass, driver.KindRenderPass); err != nil {
		return driver.Null, err
	}
	for _, view := range desc.Attachments {
		if err := d.check(view, driver.KindImageView); err != nil {
			return driver.Null, err
		}
	}
	return d.alloc(driver.KindFramebuffer), nil
}

// CreatePipelineLayout implements driver.Device.
func (d *Device) CreatePipelineLayout(setLayouts []driver.Handle) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreatePipelineLayout"); err != nil {
		return driver.Null, err
	}
	for _, l := range setLayouts {
		if err := d.check(l, driver.KindDescriptorSetLayout); err != nil {
			return driver.Null, err
		}
	}
	return d.alloc(driver.KindPipelineLayout), nil
}

// CreateGraphicsPipeline implements driver.Device.
func (d *Device) CreateGraphicsPipeline(desc driver.GraphicsPipelineDescriptor) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateGraphicsPipeline"); err != nil {
		return driver.Null, err
	}
	if err := d.check(desc.Layout, driver.KindPipelineLayout); err != nil {
		return driver.Null, err
	}
	if err := d.check(desc.RenderPass, driver.KindRenderPass); err != nil {
		return driver.Null, err
	}
	for _, stage := range desc.Stages {
		if err := d.check(stage.Module, driver.KindShaderModule); err != nil {
			return driver.Null, err
		}
	}
	return d.alloc(driver.KindPipeline), nil
}

// CreateDescriptorSetLayout implements driver.Device.
func (d *Device) CreateDescriptorSetLayout(bindings []driver.DescriptorSetLayoutBinding) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateDescriptorSetLayout"); err != nil {
		return driver.Null, err
	}
	return d.alloc(driver.KindDescriptorSetLayout), nil
}

// CreateDescriptorPool implements driver.Device.
func (d *Device) CreateDescriptorPool(maxSets uint32, sizes []driver.DescriptorPoolSize) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateDescriptorPool"); err != nil {
		return driver.Null, err
	}
	if maxSets == 0 {
		return driver.Null, errors.New("null: zero-capacity descriptor pool")
	}
	return d.alloc(driver.KindDescriptorPool), nil
}

// AllocateDescriptorSets implements driver.Device.
func (d *Device) AllocateDescriptorSets(pool driver.Handle, layouts []driver.Handle) ([]driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("AllocateDescriptorSets"); err != nil {
		return nil, err
	}
	if err := d.check(pool, driver.KindDescriptorPool); err != nil {
		return nil, err
	}
	sets := make([]driver.Handle, len(layouts))
	for i, l := range layouts {
		if err := d.check(l, driver.KindDescriptorSetLayout); err != nil {
			return nil, err
		}
		sets[i] = d.alloc(driver.KindDescriptorSet)
	}
	return sets, nil
}

// FreeDescriptorSets implements driver.Device.
func (d *Device) FreeDescriptorSets(pool driver.Handle, sets []driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(pool, driver.KindDescriptorPool); err != nil {
		return err
	}
	for _, s := range sets {
		if err := d.check(s, driver.KindDescriptorSet); err != nil {
			return err
		}
		delete(d.live, s)
		d.destroyed[driver.KindDescriptorSet]++
	}
	return nil
}

// UpdateDescriptorSets implements driver.Device.
func (d *Device) UpdateDescriptorSets(writes []driver.DescriptorWrite) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("UpdateDescriptorSets"); err != nil {
		return err
	}
	for _, w := range writes {
		if err := d.check(w.Set, driver.KindDescriptorSet); err != nil {
			return err
		}
	}
	return nil
}

// CreateCommandPool implements driver.Device.
func (d *Device) CreateCommandPool(family uint32, transient bool) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateCommandPool"); err != nil {
		return driver.Null, err
	}
	return d.alloc(driver.KindCommandPool), nil
}

// AllocateCommandBuffers implements driver.Device.
func (d *Device) AllocateCommandBuffers(pool driver.Handle, count uint32) ([]driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("AllocateCommandBuffers"); err != nil {
		return nil, err
	}
	if err := d.check(pool, driver.KindCommandPool); err != nil {
		return nil, err
	}
	handles := make([]driver.Handle, count)
	for i := range handles {
		h := d.alloc(driver.KindCommandBuffer)
		d.buffers[h] = &commandBuffer{pool: pool}
		handles[i] = h
	}
	return handles, nil
}

// FreeCommandBuffers implements driver.Device. The recorded command log
// of a freed buffer stays readable through Commands; only the handle
// dies.
func (d *Device) FreeCommandBuffers(pool driver.Handle, buffers []driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(pool, driver.KindCommandPool); err != nil {
		return err
	}
	for _, cb := range buffers {
		if err := d.check(cb, driver.KindCommandBuffer); err != nil {
			return err
		}
		delete(d.live, cb)
		d.destroyed[driver.KindCommandBuffer]++
	}
	return nil
}

// BeginCommandBuffer implements driver.Device.
func (d *Device) BeginCommandBuffer(cb driver.Handle, usedOnce, simultaneousUse bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("BeginCommandBuffer"); err != nil {
		return err
	}
	if err := d.check(cb, driver.KindCommandBuffer); err != nil {
		return err
	}
	buf := d.buffers[cb]
	buf.recording = true
	buf.commands = buf.commands[:0]
	return nil
}

// EndCommandBuffer implements driver.Device.
func (d *Device) EndCommandBuffer(cb driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("EndCommandBuffer"); err != nil {
		return err
	}
	if err := d.check(cb, driver.KindCommandBuffer); err != nil {
		return err
	}
	buf := d.buffers[cb]
	if !buf.recording {
		return fmt.Errorf("%w: %v", ErrNotRecording, cb)
	}
	buf.recording = false
	return nil
}

func (d *Device) record(cb driver.Handle, format string, args ...any) error {
	if err := d.check(cb, driver.KindCommandBuffer); err != nil {
		return err
	}
	buf := d.buffers[cb]
	if !buf.recording {
		return fmt.Errorf("%w: %v", ErrNotRecording, cb)
	}
	buf.commands = append(buf.commands, fmt.Sprintf(format, args...))
	return nil
}

// CmdPipelineBarrier implements driver.Device.
func (d *Device) CmdPipelineBarrier(cb driver.Handle, src, dst driver.StageFlags, memory []driver.MemoryBarrier, buffers []driver.BufferBarrier, images []driver.ImageBarrier) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.record(cb, "PipelineBarrier mem=%d buf=%d img=%d", len(memory), len(buffers), len(images))
}

// CmdClearColorImage implements driver.Device.
func (d *Device) CmdClearColorImage(cb, image driver.Handle, layout driver.ImageLayout, color gputypes.Color, ranges []driver.ImageSubresourceRange) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.record(cb, "ClearColorImage img=%d layout=%v", image, layout)
}

// CmdCopyBuffer implements driver.Device.
func (d *Device) CmdCopyBuffer(cb, src, dst driver.Handle, srcOffset, dstOffset, size uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.record(cb, "CopyBuffer src=%d dst=%d size=%d", src, dst, size)
}

// CmdCopyBufferToImage implements driver.Device.
func (d *Device) CmdCopyBufferToImage(cb, src, dst driver.Handle, dstLayout driver.ImageLayout, regions []driver.BufferImageCopy) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.record(cb, "CopyBufferToImage src=%d dst=%d regions=%d", src, dst, len(regions))
}

// CmdBeginRenderPass implements driver.Device.
func (d *Device) CmdBeginRenderPass(cb, renderPass, framebuffer driver.Handle, area driver.Rect2D, clearValues []gputypes.Color) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.record(cb, "BeginRenderPass rp=%d fb=%d", renderPass, framebuffer)
}

// CmdEndRenderPass implements driver.Device.
func (d *Device) CmdEndRenderPass(cb driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.record(cb, "EndRenderPass")
}

// CmdBindPipeline implements driver.Device.
func (d *Device) CmdBindPipeline(cb, pipeline driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.record(cb, "BindPipeline pipeline=%d", pipeline)
}

// CmdBindVertexBuffers implements driver.Device.
func (d *Device) CmdBindVertexBuffers(cb driver.Handle, firstBinding uint32, buffers []driver.Handle, offsets []uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(buffers) != len(offsets) {
		return fmt.Errorf("null: %d buffers with %d offsets", len(buffers), len(offsets))
	}
	return d.record(cb, "BindVertexBuffers first=%d count=%d", firstBinding, len(buffers))
}

// CmdBindIndexBuffer implements driver.Device.
func (d *Device) CmdBindIndexBuffer(cb, buffer driver.Handle, offset uint64, format gputypes.IndexFormat) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.record(cb, "BindIndexBuffer buffer=%d offset=%d", buffer, offset)
}

// CmdBindDescriptorSets implements driver.Device.
func (d *Device) CmdBindDescriptorSets(cb, layout driver.Handle, firstSet uint32, sets []driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.record(cb, "BindDescriptorSets first=%d count=%d", firstSet, len(sets))
}

// CmdDraw implements driver.Device.
func (d *Device) CmdDraw(cb driver.Handle, vertexCount, instanceCount, firstVertex, firstInstance uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.record(cb, "Draw vertices=%d instances=%d", vertexCount, instanceCount)
}

// CmdDrawIndexed implements driver.Device.
func (d *Device) CmdDrawIndexed(cb driver.Handle, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.record(cb, "DrawIndexed indices=%d instances=%d", indexCount, instanceCount)
}

// QueueSubmit implements driver.Device. The submission is recorded and its
// fence, if any, signals immediately.
func (d *Device) QueueSubmit(queue driver.Handle, submits []driver.SubmitInfo, fence driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("QueueSubmit"); err != nil {
		return err
	}
	if err := d.check(queue, driver.KindQueue); err != nil {
		return err
	}
	for _, s := range submits {
		for _, cb := range s.CommandBuffers {
			if err := d.check(cb, driver.KindCommandBuffer); err != nil {
				return err
			}
			if d.buffers[cb].recording {
				return fmt.Errorf("null: command buffer %v submitted while recording", cb)
			}
		}
	}

	// Deep-copy the batches so later caller mutation cannot corrupt the log.
	rec := Submission{Queue: queue, Fence: fence}
	for _, s := range submits {
		batch := driver.SubmitInfo{
			CommandBuffers: append([]driver.Handle(nil), s.CommandBuffers...),
			Waits:          append([]driver.SemaphoreWait(nil), s.Waits...),
			Signals:        append([]driver.Handle(nil), s.Signals...),
		}
		rec.Batches = append(rec.Batches, batch)
	}
	d.submissions = append(d.submissions, rec)

	if fence != driver.Null {
		if err := d.check(fence, driver.KindFence); err != nil {
			return err
		}
		d.fences[fence] = true
	}
	return nil
}

// QueueWaitIdle implements driver.Device. Work completes instantly.
func (d *Device) QueueWaitIdle(queue driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("QueueWaitIdle"); err != nil {
		return err
	}
	return d.check(queue, driver.KindQueue)
}

// DeviceWaitIdle implements driver.Device.
func (d *Device) DeviceWaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.injected("DeviceWaitIdle")
}

// SurfaceCapabilities implements driver.Device.
func (d *Device) SurfaceCapabilities() (driver.SurfaceCapabilities, error) {
	return driver.SurfaceCapabilities{
		MinImageCount: 2,
		MaxImageCount: 8,
		CurrentWidth:  driver.ExtentUndefined,
		CurrentHeight: driver.ExtentUndefined,
		Formats: []gputypes.TextureFormat{
			gputypes.TextureFormatBGRA8Unorm,
			gputypes.TextureFormatRGBA8Unorm,
		},
		PresentModes: []driver.PresentMode{
			driver.PresentModeFIFO,
			driver.PresentModeMailbox,
		},
	}, nil
}

// CreateSwapchain implements driver.Device.
func (d *Device) CreateSwapchain(desc driver.SwapchainDescriptor) (driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateSwapchain"); err != nil {
		return driver.Null, err
	}
	if desc.Width == 0 || desc.Height == 0 {
		return driver.Null, errors.New("null: zero-extent swapchain")
	}
	count := desc.MinImageCount
	if count == 0 {
		count = 2
	}
	h := d.alloc(driver.KindSwapchain)
	sc := &swapchain{}
	for range count {
		sc.images = append(sc.images, d.alloc(driver.KindImage))
	}
	d.swapchains[h] = sc
	return h, nil
}

// SwapchainImages implements driver.Device.
func (d *Device) SwapchainImages(sc driver.Handle) ([]driver.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(sc, driver.KindSwapchain); err != nil {
		return nil, err
	}
	return append([]driver.Handle(nil), d.swapchains[sc].images...), nil
}

// AcquireNextImage implements driver.Device. Images are handed out
// round-robin and the semaphore/fence signal immediately.
func (d *Device) AcquireNextImage(sc driver.Handle, timeout time.Duration, semaphore, fence driver.Handle) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("AcquireNextImage"); err != nil {
		return 0, err
	}
	if err := d.check(sc, driver.KindSwapchain); err != nil {
		return 0, err
	}
	chain := d.swapchains[sc]
	index := chain.next
	chain.next = (chain.next + 1) % uint32(len(chain.images))
	if fence != driver.Null {
		if err := d.check(fence, driver.KindFence); err != nil {
			return 0, err
		}
		d.fences[fence] = true
	}
	return index, nil
}

// QueuePresent implements driver.Device.
func (d *Device) QueuePresent(queue, sc driver.Handle, imageIndex uint32, waitSemaphore driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("QueuePresent"); err != nil {
		return err
	}
	if err := d.check(queue, driver.KindQueue); err != nil {
		return err
	}
	if err := d.check(sc, driver.KindSwapchain); err != nil {
		return err
	}
	if imageIndex >= uint32(len(d.swapchains[sc].images)) {
		return fmt.Errorf("null: present of image index %d beyond swapchain length %d",
			imageIndex, len(d.swapchains[sc].images))
	}
	d.presents = append(d.presents, Present{
		Queue:         queue,
		Swapchain:     sc,
		ImageIndex:    imageIndex,
		WaitSemaphore: waitSemaphore,
	})
	return nil
}

// SetObjectName implements driver.Device.
func (d *Device) SetObjectName(kind driver.ObjectKind, object driver.Handle, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("SetObjectName"); err != nil {
		return err
	}
	if err := d.check(object, kind); err != nil {
		return err
	}
	d.names[object] = name
	return nil
}

// Destroy implements driver.Device.
func (d *Device) Destroy(kind driver.ObjectKind, object driver.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if object == driver.Null {
		return nil
	}
	if err := d.check(object, kind); err != nil {
		return err
	}
	switch kind {
	case driver.KindQueue, driver.KindCommandBuffer, driver.KindDescriptorSet:
		return fmt.Errorf("null: %v is freed with its owner, not destroyed", kind)
	case driver.KindSwapchain:
		for _, img := range d.swapchains[object].images {
			delete(d.live, img)
			d.destroyed[driver.KindImage]++
		}
		delete(d.swapchains, object)
	case driver.KindFence:
		delete(d.fences, object)
	case driver.KindMemory:
		delete(d.memory, object)
	}
	delete(d.live, object)
	delete(d.names, object)
	d.destroyed[kind]++
	return nil
}

// Commands returns the commands recorded into cb since its last begin, as
// human-readable strings like "Draw vertices=3 instances=1". The log
// survives FreeCommandBuffers, so one-shot upload recordings can still
// be inspected after their transient buffers are freed.
func (d *Device) Commands(cb driver.Handle) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf, ok := d.buffers[cb]
	if !ok {
		return nil
	}
	return append([]string(nil), buf.commands...)
}

// Submissions returns all recorded QueueSubmit calls in order.
func (d *Device) Submissions() []Submission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Submission(nil), d.submissions...)
}

// Presents returns all recorded QueuePresent calls in order.
func (d *Device) Presents() []Present {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Present(nil), d.presents...)
}

// DestroyCount returns how many objects of the given kind were destroyed.
func (d *Device) DestroyCount(kind driver.ObjectKind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.destroyed[kind]
}

// LiveCount returns how many objects of the given kind are currently live.
func (d *Device) LiveCount(kind driver.ObjectKind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, k := range d.live {
		if k == kind {
			n++
		}
	}
	return n
}

// ObjectName returns the debug name attached to object, if any.
func (d *Device) ObjectName(object driver.Handle) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.names[object]
}

// Surface is a fixed-size driver.Surface for tests.
type Surface struct {
	Width  uint32
	Height uint32
}

// NewSurface creates a surface reporting the given drawable size.
func NewSurface(width, height uint32) Surface {
	return Surface{Width: width, Height: height}
}

// SizePixels implements driver.Surface.
func (s Surface) SizePixels() (uint32, uint32, error) {
	return s.Width, s.Height, nil
}

var _ driver.Device = (*Device)(nil)
