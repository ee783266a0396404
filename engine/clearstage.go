package engine

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gfxcore/driver"
	"github.com/gogpu/gfxcore/gfx"
)

// ClearStage is the minimal built-in stage: it clears the swapchain
// image to a solid color with a transfer clear, no render pass needed.
// It exists both as the default stage of an empty engine and as the
// reference implementation of the StageRenderer contract.
type ClearStage struct {
	color    gputypes.Color
	pool     *gfx.CommandPool
	batch    gfx.BatchHandle
	buffers  []*gfx.CommandBuffer
	finished *gfx.Semaphore
}

// NewClearStage creates a stage clearing every frame to color.
func NewClearStage(color gputypes.Color) *ClearStage {
	return &ClearStage{color: color}
}

// Setup implements StageRenderer. One command buffer per swapchain image
// is recorded up front and resubmitted every frame.
func (s *ClearStage) Setup(ctx *gfx.Context, families *gfx.QueueFamilyCollection, swapchain *gfx.Swapchain) error {
	images := swapchain.Images()
	s.pool = families.Graphics().CommandPools().LongTerm()

	batch, buffers, err := s.pool.CreateCommandBuffers(uint32(len(images)))
	if err != nil {
		return err
	}
	s.batch = batch
	s.buffers = buffers

	for i, image := range images {
		writer, err := buffers[i].Begin(false, false)
		if err != nil {
			return err
		}
		// The acquired image arrives with undefined contents; move it to
		// the transfer-destination layout and clear it there.
		err = writer.PipelineBarrier(
			driver.StageTopOfPipe, driver.StageTransfer,
			nil, nil,
			[]driver.ImageBarrier{{
				Image:     image.ImageHandle(),
				Range:     image.RangeColorBasic(),
				OldLayout: driver.LayoutUndefined,
				NewLayout: driver.LayoutTransferDst,
				SrcAccess: driver.AccessNone,
				DstAccess: driver.AccessTransferWrite,
			}})
		if err != nil {
			return err
		}
		err = writer.ClearColorImage(image, driver.LayoutTransferDst, s.color,
			[]driver.ImageSubresourceRange{image.RangeColorBasic()})
		if err != nil {
			return err
		}
		if err := writer.End(); err != nil {
			return err
		}
	}

	s.finished, err = gfx.NewSemaphore(ctx)
	if err != nil {
		return err
	}
	return s.finished.SetName("clear_stage.finished")
}

// SubmitDraw implements StageRenderer.
func (s *ClearStage) SubmitDraw(waitFor *gfx.Semaphore, families *gfx.QueueFamilyCollection, imageIndex uint32, fence *gfx.Fence) (*gfx.Semaphore, error) {
	if s.buffers == nil {
		return nil, fmt.Errorf("%w: clear stage not set up", gfx.ErrIllegalState)
	}
	if int(imageIndex) >= len(s.buffers) {
		return nil, fmt.Errorf("%w: image index %d of %d", gfx.ErrOutOfRange, imageIndex, len(s.buffers))
	}
	queue, err := families.Graphics().QueueOfPriority(1)
	if err != nil {
		return nil, err
	}
	err = queue.Submit(
		[]*gfx.CommandBuffer{s.buffers[imageIndex]},
		[]gfx.SemaphoreWait{{Semaphore: waitFor, Stage: driver.StageTransfer}},
		[]*gfx.Semaphore{s.finished},
		fence)
	if err != nil {
		return nil, err
	}
	return s.finished, nil
}

// FinalState implements StageRenderer.
func (s *ClearStage) FinalState() (driver.StageFlags, driver.ImageLayout, driver.AccessFlags) {
	return driver.StageTransfer, driver.LayoutTransferDst, driver.AccessTransferWrite
}

// Destroy implements StageRenderer.
func (s *ClearStage) Destroy() error {
	if s.buffers == nil {
		return nil
	}
	if err := s.pool.DestroyCommandBuffers(s.batch); err != nil {
		return err
	}
	s.buffers = nil
	return s.finished.Destroy()
}
