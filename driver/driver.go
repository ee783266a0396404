// Package driver defines the raw device boundary of the rendering core.
//
// A Device is the thin, explicit GPU API the gfx layer is built on: handles
// are opaque uint64 tokens, creation calls return them, recording calls take
// a command buffer handle first, and every object is released through a
// single kind-dispatched Destroy. The interface deliberately mirrors the
// shape of an explicit low-level API (queues and queue families, semaphores
// and fences, pipeline barriers, a swapchain) rather than hiding it, so the
// layers above can own lifetime and synchronization policy.
//
// Drivers register themselves by name in an init function; see Register.
// The null driver (driver/null) records every call without touching a GPU
// and backs the test suite.
package driver

import (
	"time"

	"github.com/gogpu/gputypes"
)

// Device is a connection to one GPU (or a simulation of one).
//
// All methods that take object handles expect handles previously returned
// by the same Device. Implementations are not required to validate foreign
// or stale handles beyond returning an error when they can detect them.
//
// Unless noted otherwise, methods are not safe for concurrent use; the
// caller serializes access per queue and per pool the way the underlying
// APIs demand.
type Device interface {
	// Name identifies the driver, e.g. "vulkan" or "null".
	Name() string

	// QueueFamilies reports the device's queue families. The slice is
	// stable for the life of the device.
	QueueFamilies() []QueueFamilyProperties

	// DeviceQueue returns the queue at index within family. Queue handles
	// are owned by the device and must not be passed to Destroy.
	DeviceQueue(family, index uint32) (Handle, error)

	// CreateFence creates a fence, optionally in the signaled state.
	CreateFence(signaled bool) (Handle, error)

	// FenceStatus reports whether the fence is signaled, without waiting.
	FenceStatus(fence Handle) (bool, error)

	// WaitForFence blocks until the fence signals or timeout elapses.
	WaitForFence(fence Handle, timeout time.Duration) error

	// ResetFence returns a signaled fence to the unsignaled state.
	ResetFence(fence Handle) error

	// CreateSemaphore creates a GPU-timeline binary semaphore.
	CreateSemaphore() (Handle, error)

	// CreateBuffer creates a buffer of the given size in bytes. The buffer
	// has no backing memory until BindBufferMemory.
	CreateBuffer(size uint64, usage gputypes.BufferUsage) (Handle, error)

	// BufferMemoryRequirements reports the allocation the buffer needs.
	BufferMemoryRequirements(buffer Handle) (MemoryRequirements, error)

	// AllocateMemory allocates device memory, host-visible if requested.
	AllocateMemory(size uint64, hostVisible bool) (Handle, error)

	// BindBufferMemory attaches memory to a buffer at offset zero.
	// The binding is permanent for the buffer's lifetime.
	BindBufferMemory(buffer, memory Handle) error

	// MapMemory maps a range of host-visible memory into the address
	// space. The returned slice is valid until UnmapMemory.
	MapMemory(memory Handle, offset, size uint64) ([]byte, error)

	// UnmapMemory unmaps previously mapped memory.
	UnmapMemory(memory Handle) error

	// CreateImage creates an image. Like buffers, images need memory
	// bound before first use.
	CreateImage(desc ImageDescriptor) (Handle, error)

	// ImageMemoryRequirements reports the allocation the image needs.
	ImageMemoryRequirements(image Handle) (MemoryRequirements, error)

	// BindImageMemory attaches memory to an image at offset zero.
	BindImageMemory(image, memory Handle) error

	// CreateImageView creates a view into an image.
	CreateImageView(image Handle, desc ImageViewDescriptor) (Handle, error)

	// CreateSampler creates a texture sampler.
	CreateSampler(desc SamplerDescriptor) (Handle, error)

	// CreateShaderModule creates a shader module from SPIR-V words.
	CreateShaderModule(spirv []uint32) (Handle, error)

	// CreateRenderPass creates a render pass.
	CreateRenderPass(desc RenderPassDescriptor) (Handle, error)

	// CreateFramebuffer creates a framebuffer binding image views to the
	// attachments of a render pass.
	CreateFramebuffer(desc FramebufferDescriptor) (Handle, error)

	// CreatePipelineLayout creates a pipeline layout from descriptor set
	// layouts, in set-index order.
	CreatePipelineLayout(setLayouts []Handle) (Handle, error)

	// CreateGraphicsPipeline creates a graphics pipeline.
	CreateGraphicsPipeline(desc GraphicsPipelineDescriptor) (Handle, error)

	// CreateDescriptorSetLayout creates a descriptor set layout.
	CreateDescriptorSetLayout(bindings []DescriptorSetLayoutBinding) (Handle, error)

	// CreateDescriptorPool creates a descriptor pool sized for maxSets
	// sets drawing from the given per-type capacities. Pools are created
	// with free-descriptor-set semantics: individual sets may be returned
	// with FreeDescriptorSets.
	CreateDescriptorPool(maxSets uint32, sizes []DescriptorPoolSize) (Handle, error)

	// AllocateDescriptorSets allocates one set per layout from pool.
	AllocateDescriptorSets(pool Handle, layouts []Handle) ([]Handle, error)

	// FreeDescriptorSets returns sets to their pool.
	FreeDescriptorSets(pool Handle, sets []Handle) error

	// UpdateDescriptorSets applies descriptor writes. Sets being written
	// must not be in use by pending command buffers.
	UpdateDescriptorSets(writes []DescriptorWrite) error

	// CreateCommandPool creates a command pool on a queue family.
	// Transient pools hint that their buffers are short-lived.
	CreateCommandPool(family uint32, transient bool) (Handle, error)

	// AllocateCommandBuffers allocates count primary command buffers.
	AllocateCommandBuffers(pool Handle, count uint32) ([]Handle, error)

	// FreeCommandBuffers returns command buffers to their pool.
	FreeCommandBuffers(pool Handle, buffers []Handle) error

	// BeginCommandBuffer puts a command buffer into the recording state.
	// usedOnce hints one-shot submission; simultaneousUse allows the
	// buffer to be pending on several queues at once.
	BeginCommandBuffer(cb Handle, usedOnce, simultaneousUse bool) error

	// EndCommandBuffer finishes recording, making the buffer submittable.
	EndCommandBuffer(cb Handle) error

	// CmdPipelineBarrier records an execution and memory dependency.
	CmdPipelineBarrier(cb Handle, src, dst StageFlags, memory []MemoryBarrier, buffers []BufferBarrier, images []ImageBarrier) error

	// CmdClearColorImage records a clear of image subresource ranges.
	// The image must be in LayoutGeneral or LayoutTransferDst.
	CmdClearColorImage(cb, image Handle, layout ImageLayout, color gputypes.Color, ranges []ImageSubresourceRange) error

	// CmdCopyBuffer records a buffer-to-buffer copy.
	CmdCopyBuffer(cb, src, dst Handle, srcOffset, dstOffset, size uint64) error

	// CmdCopyBufferToImage records a buffer-to-image copy.
	CmdCopyBufferToImage(cb, src, dst Handle, dstLayout ImageLayout, regions []BufferImageCopy) error

	// CmdBeginRenderPass records the start of a render pass instance.
	// clearValues supplies one clear color per attachment whose load op
	// is LoadOpClear.
	CmdBeginRenderPass(cb, renderPass, framebuffer Handle, area Rect2D, clearValues []gputypes.Color) error

	// CmdEndRenderPass records the end of the current render pass instance.
	CmdEndRenderPass(cb Handle) error

	// CmdBindPipeline records a graphics pipeline bind.
	CmdBindPipeline(cb, pipeline Handle) error

	// CmdBindVertexBuffers records vertex buffer binds starting at
	// firstBinding. buffers and offsets must have equal length.
	CmdBindVertexBuffers(cb Handle, firstBinding uint32, buffers []Handle, offsets []uint64) error

	// CmdBindIndexBuffer records an index buffer bind.
	CmdBindIndexBuffer(cb, buffer Handle, offset uint64, format gputypes.IndexFormat) error

	// CmdBindDescriptorSets records descriptor set binds starting at
	// firstSet against the given pipeline layout.
	CmdBindDescriptorSets(cb, layout Handle, firstSet uint32, sets []Handle) error

	// CmdDraw records a non-indexed draw.
	CmdDraw(cb Handle, vertexCount, instanceCount, firstVertex, firstInstance uint32) error

	// CmdDrawIndexed records an indexed draw.
	CmdDrawIndexed(cb Handle, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) error

	// QueueSubmit submits batches to a queue, optionally signaling fence
	// on the host timeline when all batches complete. Safe to call
	// concurrently for distinct queues only.
	QueueSubmit(queue Handle, submits []SubmitInfo, fence Handle) error

	// QueueWaitIdle blocks until all submitted work on queue completes.
	QueueWaitIdle(queue Handle) error

	// DeviceWaitIdle blocks until all queues are idle.
	DeviceWaitIdle() error

	// SurfaceCapabilities reports what the device's surface supports.
	SurfaceCapabilities() (SurfaceCapabilities, error)

	// CreateSwapchain creates a swapchain for the device's surface.
	// Passing the previous swapchain as OldSwapchain allows in-flight
	// frames to drain during recreation.
	CreateSwapchain(desc SwapchainDescriptor) (Handle, error)

	// SwapchainImages returns the images owned by the swapchain. They are
	// destroyed with the swapchain and must not be passed to Destroy.
	SwapchainImages(swapchain Handle) ([]Handle, error)

	// AcquireNextImage blocks until a swapchain image is available, then
	// returns its index. The semaphore and fence (either may be Null, not
	// both) signal when the presentation engine is done reading the image.
	AcquireNextImage(swapchain Handle, timeout time.Duration, semaphore, fence Handle) (uint32, error)

	// QueuePresent queues the image for presentation after waitSemaphore
	// signals. The queue's family must support presentation.
	QueuePresent(queue, swapchain Handle, imageIndex uint32, waitSemaphore Handle) error

	// SetObjectName attaches a debug name to an object. Drivers without
	// debug tooling may ignore it or return an error; callers treat
	// failure as non-fatal.
	SetObjectName(kind ObjectKind, object Handle, name string) error

	// Destroy releases the object. Destroying the null handle is a no-op.
	// The caller guarantees the object is not in use by pending work.
	Destroy(kind ObjectKind, object Handle) error
}

// Surface is the window-system surface a swapchain presents to. The core
// only ever needs its size; platform integration stays with the driver.
type Surface interface {
	// SizePixels returns the current drawable size of the surface.
	SizePixels() (width, height uint32, err error)
}
