package engine

import (
	"github.com/gogpu/gfxcore/driver"
	"github.com/gogpu/gfxcore/gfx"
)

// StageRenderer is one link of the per-frame GPU pipeline. The engine
// calls Setup once after the swapchain exists, then SubmitDraw every
// frame with the previous link's semaphore; the stage submits its work
// waiting on that semaphore and returns the one its own submission
// signals. Nothing in a frame blocks the CPU: the chain lives entirely
// on the GPU timeline.
type StageRenderer interface {
	// Setup prepares per-swapchain-image resources: pre-recorded command
	// buffers, the stage's finished semaphore, pipelines.
	Setup(ctx *gfx.Context, families *gfx.QueueFamilyCollection, swapchain *gfx.Swapchain) error

	// SubmitDraw submits the stage's work for the swapchain image at
	// imageIndex, waiting on waitFor, and returns the semaphore the
	// submission signals. A non-nil fence additionally signals on the
	// host timeline when the work completes.
	SubmitDraw(waitFor *gfx.Semaphore, families *gfx.QueueFamilyCollection, imageIndex uint32, fence *gfx.Fence) (*gfx.Semaphore, error)

	// FinalState reports the pipeline stage, image layout and access the
	// stage leaves the swapchain image in, so the present transition can
	// chain directly after it.
	FinalState() (driver.StageFlags, driver.ImageLayout, driver.AccessFlags)

	// Destroy frees the stage's resources. The engine guarantees the
	// device is idle first.
	Destroy() error
}
