package driver

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Handle is a raw driver-owned GPU object handle.
//
// Handles are opaque to the core: they are created by a Device, passed back
// into Device calls, and destroyed through Device.Destroy. The zero Handle
// is the null handle and is valid wherever an optional object is accepted
// (an optional fence, an optional semaphore).
type Handle uint64

// Null is the null object handle.
const Null Handle = 0

// ObjectKind identifies the kind of GPU object a Handle refers to.
// Destruction is dispatched by kind; some kinds (queues, command buffers,
// descriptor sets, swapchain-owned images) have no standalone destroy call
// and are freed with their owner.
type ObjectKind int

const (
	KindUnknown ObjectKind = iota
	KindFence
	KindSemaphore
	KindQueue
	KindCommandPool
	KindCommandBuffer
	KindBuffer
	KindMemory
	KindImage
	KindImageView
	KindSampler
	KindShaderModule
	KindRenderPass
	KindFramebuffer
	KindPipelineLayout
	KindPipeline
	KindDescriptorSetLayout
	KindDescriptorPool
	KindDescriptorSet
	KindSwapchain
)

var objectKindNames = map[ObjectKind]string{
	KindUnknown:             "Unknown",
	KindFence:               "Fence",
	KindSemaphore:           "Semaphore",
	KindQueue:               "Queue",
	KindCommandPool:         "CommandPool",
	KindCommandBuffer:       "CommandBuffer",
	KindBuffer:              "Buffer",
	KindMemory:              "Memory",
	KindImage:               "Image",
	KindImageView:           "ImageView",
	KindSampler:             "Sampler",
	KindShaderModule:        "ShaderModule",
	KindRenderPass:          "RenderPass",
	KindFramebuffer:         "Framebuffer",
	KindPipelineLayout:      "PipelineLayout",
	KindPipeline:            "Pipeline",
	KindDescriptorSetLayout: "DescriptorSetLayout",
	KindDescriptorPool:      "DescriptorPool",
	KindDescriptorSet:       "DescriptorSet",
	KindSwapchain:           "Swapchain",
}

// String returns the string representation of the object kind.
func (k ObjectKind) String() string {
	if name, ok := objectKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ObjectKind(%d)", int(k))
}

// StageFlags is a bitmask of GPU pipeline stages. Stages scope both
// barrier src/dst masks and per-semaphore wait points in a submission.
type StageFlags uint32

const (
	// StageTopOfPipe is the earliest stage; waiting here stalls everything.
	StageTopOfPipe StageFlags = 1 << iota

	// StageTransfer covers copy and clear operations.
	StageTransfer

	// StageVertexInput covers vertex and index buffer reads.
	StageVertexInput

	// StageVertexShader covers vertex shader execution.
	StageVertexShader

	// StageFragmentShader covers fragment shader execution.
	StageFragmentShader

	// StageColorAttachmentOutput covers color attachment writes and blending.
	StageColorAttachmentOutput

	// StageCompute covers compute shader execution.
	StageCompute

	// StageBottomOfPipe is the latest stage; signaling here orders after
	// all prior work, waiting here stalls nothing.
	StageBottomOfPipe
)

// AccessFlags is a bitmask of GPU memory access types used in barriers.
type AccessFlags uint32

// AccessNone declares no accesses.
const AccessNone AccessFlags = 0

const (
	// AccessTransferRead covers reads by copy operations.
	AccessTransferRead AccessFlags = 1 << iota

	// AccessTransferWrite covers writes by copy and clear operations.
	AccessTransferWrite

	// AccessShaderRead covers sampled-image and uniform reads in shaders.
	AccessShaderRead

	// AccessColorAttachmentWrite covers color attachment output writes.
	AccessColorAttachmentWrite

	// AccessMemoryRead covers generic reads, e.g. by the presentation engine.
	AccessMemoryRead
)

// ImageLayout is the GPU-internal arrangement of an image's memory.
// Images transition between layouts through pipeline barriers; using an
// image in the wrong layout is a usage error under the underlying API.
type ImageLayout int

const (
	// LayoutUndefined means contents are unspecified; valid only as an
	// old layout, discarding previous contents.
	LayoutUndefined ImageLayout = iota

	// LayoutGeneral supports all usage at reduced efficiency.
	LayoutGeneral

	// LayoutColorAttachment is optimal for rendering into.
	LayoutColorAttachment

	// LayoutShaderReadOnly is optimal for sampling in shaders.
	LayoutShaderReadOnly

	// LayoutTransferSrc is optimal as a copy source.
	LayoutTransferSrc

	// LayoutTransferDst is optimal as a copy or clear destination.
	LayoutTransferDst

	// LayoutPresentSrc is the layout the presentation engine reads from.
	LayoutPresentSrc
)

// String returns the string representation of the layout.
func (l ImageLayout) String() string {
	switch l {
	case LayoutUndefined:
		return "Undefined"
	case LayoutGeneral:
		return "General"
	case LayoutColorAttachment:
		return "ColorAttachment"
	case LayoutShaderReadOnly:
		return "ShaderReadOnly"
	case LayoutTransferSrc:
		return "TransferSrc"
	case LayoutTransferDst:
		return "TransferDst"
	case LayoutPresentSrc:
		return "PresentSrc"
	default:
		return fmt.Sprintf("ImageLayout(%d)", int(l))
	}
}

// Rect2D is an integer-origin rectangle in pixels.
type Rect2D struct {
	X, Y          int32
	Width, Height uint32
}

// ImageSubresourceRange selects mip levels and array layers of an image.
type ImageSubresourceRange struct {
	Aspect         gputypes.TextureAspect
	BaseMipLevel   uint32
	LevelCount     uint32
	BaseArrayLayer uint32
	LayerCount     uint32
}

// ImageSubresourceLayers selects one mip level and a span of array layers.
type ImageSubresourceLayers struct {
	Aspect         gputypes.TextureAspect
	MipLevel       uint32
	BaseArrayLayer uint32
	LayerCount     uint32
}

// MemoryBarrier is a global memory dependency.
type MemoryBarrier struct {
	SrcAccess AccessFlags
	DstAccess AccessFlags
}

// BufferBarrier is a memory dependency scoped to a buffer range.
type BufferBarrier struct {
	Buffer    Handle
	SrcAccess AccessFlags
	DstAccess AccessFlags
	Offset    uint64
	Size      uint64
}

// ImageBarrier is a memory dependency scoped to an image subresource
// range, optionally transitioning its layout.
type ImageBarrier struct {
	Image     Handle
	Range     ImageSubresourceRange
	OldLayout ImageLayout
	NewLayout ImageLayout
	SrcAccess AccessFlags
	DstAccess AccessFlags
}

// BufferImageCopy describes one region of a buffer-image copy.
type BufferImageCopy struct {
	BufferOffset      uint64
	BufferRowLength   uint32
	BufferImageHeight uint32
	ImageLayers       ImageSubresourceLayers
	ImageOffset       gputypes.Origin3D
	ImageExtent       gputypes.Extent3D
}

// QueueFamilyProperties describes one hardware-reported queue family.
type QueueFamilyProperties struct {
	// Index is the family index used in pool creation and queue lookup.
	Index uint32

	// QueueCount is the number of queues the family exposes.
	QueueCount uint32

	// Capability flags.
	Graphics bool
	Compute  bool
	Transfer bool

	// Present reports whether queues of this family can present to the
	// device's surface.
	Present bool
}

// SemaphoreWait pairs a wait semaphore with the pipeline stage at which
// execution must stall until it is signaled.
type SemaphoreWait struct {
	Semaphore Handle
	Stage     StageFlags
}

// SubmitInfo is one batch within a queue submission. Command buffers
// execute in slice order; waits gate the batch, signals fire after it.
type SubmitInfo struct {
	CommandBuffers []Handle
	Waits          []SemaphoreWait
	Signals        []Handle
}

// MemoryRequirements reports size and alignment for a buffer or image.
type MemoryRequirements struct {
	Size      uint64
	Alignment uint64
}

// ImageDescriptor describes an image to create.
type ImageDescriptor struct {
	Extent        gputypes.Extent3D
	Format        gputypes.TextureFormat
	Usage         gputypes.TextureUsage
	Dimension     gputypes.TextureDimension
	MipLevels     uint32
	ArrayLayers   uint32
	Samples       uint32
	InitialLayout ImageLayout
}

// ImageViewDescriptor describes a view into an image.
type ImageViewDescriptor struct {
	Format    gputypes.TextureFormat
	Dimension gputypes.TextureViewDimension
	Range     ImageSubresourceRange
}

// SamplerDescriptor describes a texture sampler.
type SamplerDescriptor struct {
	MinFilter    gputypes.FilterMode
	MagFilter    gputypes.FilterMode
	AddressModeU gputypes.AddressMode
	AddressModeV gputypes.AddressMode
	AddressModeW gputypes.AddressMode
}

// AttachmentDescription describes one render pass attachment.
type AttachmentDescription struct {
	Format        gputypes.TextureFormat
	Samples       uint32
	LoadOp        gputypes.LoadOp
	StoreOp       gputypes.StoreOp
	InitialLayout ImageLayout
	FinalLayout   ImageLayout
}

// SubpassDescription describes one subpass by attachment indices.
type SubpassDescription struct {
	ColorAttachments []uint32
}

// RenderPassDescriptor describes a render pass to create.
type RenderPassDescriptor struct {
	Attachments []AttachmentDescription
	Subpasses   []SubpassDescription
}

// FramebufferDescriptor describes a framebuffer to create.
type FramebufferDescriptor struct {
	RenderPass  Handle
	Attachments []Handle
	Width       uint32
	Height      uint32
	Layers      uint32
}

// ShaderStageDescriptor binds a shader module to a pipeline stage.
type ShaderStageDescriptor struct {
	Module     Handle
	Stage      gputypes.ShaderStage
	EntryPoint string
}

// Viewport is a simple full-state viewport description.
type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

// GraphicsPipelineDescriptor describes a graphics pipeline to create.
// Fixed-function state beyond what is listed here is plain data owned by
// the caller's tables and intentionally kept minimal.
type GraphicsPipelineDescriptor struct {
	Layout        Handle
	RenderPass    Handle
	Subpass       uint32
	Stages        []ShaderStageDescriptor
	VertexBuffers []gputypes.VertexBufferLayout
	Topology      gputypes.PrimitiveTopology
	Viewport      Viewport
}

// DescriptorType is the kind of resource a descriptor binds.
type DescriptorType int

const (
	// DescriptorUniformBuffer binds a uniform buffer range.
	DescriptorUniformBuffer DescriptorType = iota

	// DescriptorStorageBuffer binds a storage buffer range.
	DescriptorStorageBuffer

	// DescriptorCombinedImageSampler binds an image view plus sampler.
	DescriptorCombinedImageSampler
)

// String returns the string representation of the descriptor type.
func (t DescriptorType) String() string {
	switch t {
	case DescriptorUniformBuffer:
		return "UniformBuffer"
	case DescriptorStorageBuffer:
		return "StorageBuffer"
	case DescriptorCombinedImageSampler:
		return "CombinedImageSampler"
	default:
		return fmt.Sprintf("DescriptorType(%d)", int(t))
	}
}

// DescriptorSetLayoutBinding declares one binding slot of a set layout.
type DescriptorSetLayoutBinding struct {
	Binding uint32
	Type    DescriptorType
	Count   uint32
	Stages  gputypes.ShaderStage
}

// DescriptorPoolSize sizes a pool for one descriptor type.
type DescriptorPoolSize struct {
	Type  DescriptorType
	Count uint32
}

// DescriptorBufferInfo is a buffer range bound by a descriptor write.
type DescriptorBufferInfo struct {
	Buffer Handle
	Offset uint64
	Range  uint64
}

// DescriptorImageInfo is an image binding written by a descriptor write.
type DescriptorImageInfo struct {
	Sampler   Handle
	ImageView Handle
	Layout    ImageLayout
}

// DescriptorWrite updates descriptors within a set.
type DescriptorWrite struct {
	Set          Handle
	Binding      uint32
	ArrayElement uint32
	Type         DescriptorType
	Buffers      []DescriptorBufferInfo
	Images       []DescriptorImageInfo
}

// PresentMode is the swapchain presentation strategy.
type PresentMode int

const (
	// PresentModeFIFO queues frames and presents on vblank. Always available.
	PresentModeFIFO PresentMode = iota

	// PresentModeMailbox replaces the queued frame, trading latency for
	// possible discarded frames.
	PresentModeMailbox

	// PresentModeImmediate presents without vblank synchronization.
	PresentModeImmediate
)

// String returns the string representation of the present mode.
func (m PresentMode) String() string {
	switch m {
	case PresentModeFIFO:
		return "FIFO"
	case PresentModeMailbox:
		return "Mailbox"
	case PresentModeImmediate:
		return "Immediate"
	default:
		return fmt.Sprintf("PresentMode(%d)", int(m))
	}
}

// ExtentUndefined marks a surface extent the windowing system leaves to
// the swapchain; the client-area size is used instead.
const ExtentUndefined uint32 = 0xFFFFFFFF

// SurfaceCapabilities reports what the device surface supports.
type SurfaceCapabilities struct {
	MinImageCount uint32
	MaxImageCount uint32

	// CurrentWidth/CurrentHeight are the surface's fixed extent, or
	// ExtentUndefined when the swapchain chooses.
	CurrentWidth  uint32
	CurrentHeight uint32

	Formats      []gputypes.TextureFormat
	PresentModes []PresentMode
}

// SwapchainDescriptor describes a swapchain to create.
type SwapchainDescriptor struct {
	MinImageCount uint32
	Format        gputypes.TextureFormat
	Width         uint32
	Height        uint32
	Usage         gputypes.TextureUsage
	PresentMode   PresentMode
	OldSwapchain  Handle
}
