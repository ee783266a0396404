package engine

import (
	"fmt"

	"github.com/gogpu/gfxcore/driver"
	"github.com/gogpu/gfxcore/gfx"
)

// presentTransitioner moves a swapchain image from whatever state the
// last stage left it in to the present-source layout. One transition
// buffer per swapchain image is recorded at setup and resubmitted every
// frame; its semaphore is the one that finally gates presentation.
type presentTransitioner struct {
	pool     *gfx.CommandPool
	batch    gfx.BatchHandle
	buffers  []*gfx.CommandBuffer
	finished *gfx.Semaphore
	srcStage driver.StageFlags
}

func newPresentTransitioner(ctx *gfx.Context, families *gfx.QueueFamilyCollection, swapchain *gfx.Swapchain, srcStage driver.StageFlags, srcLayout driver.ImageLayout, srcAccess driver.AccessFlags) (*presentTransitioner, error) {
	pool := families.Graphics().CommandPools().LongTerm()
	images := swapchain.Images()

	batch, buffers, err := pool.CreateCommandBuffers(uint32(len(images)))
	if err != nil {
		return nil, err
	}
	for i, image := range images {
		writer, err := buffers[i].Begin(false, false)
		if err != nil {
			return nil, err
		}
		err = writer.PipelineBarrier(
			srcStage, driver.StageBottomOfPipe,
			nil, nil,
			[]driver.ImageBarrier{{
				Image:     image.ImageHandle(),
				Range:     image.RangeColorBasic(),
				OldLayout: srcLayout,
				NewLayout: driver.LayoutPresentSrc,
				SrcAccess: srcAccess,
				DstAccess: driver.AccessMemoryRead,
			}})
		if err != nil {
			return nil, err
		}
		if err := writer.End(); err != nil {
			return nil, err
		}
	}

	finished, err := gfx.NewSemaphore(ctx)
	if err != nil {
		return nil, err
	}
	if err := finished.SetName("present_transitioner.finished"); err != nil {
		return nil, err
	}
	return &presentTransitioner{
		pool:     pool,
		batch:    batch,
		buffers:  buffers,
		finished: finished,
		srcStage: srcStage,
	}, nil
}

// submit queues the transition for imageIndex after waitFor and returns
// the semaphore presentation must wait on.
func (t *presentTransitioner) submit(waitFor *gfx.Semaphore, families *gfx.QueueFamilyCollection, imageIndex uint32) (*gfx.Semaphore, error) {
	if int(imageIndex) >= len(t.buffers) {
		return nil, fmt.Errorf("%w: image index %d of %d", gfx.ErrOutOfRange, imageIndex, len(t.buffers))
	}
	queue, err := families.Graphics().QueueOfPriority(1)
	if err != nil {
		return nil, err
	}
	err = queue.Submit(
		[]*gfx.CommandBuffer{t.buffers[imageIndex]},
		[]gfx.SemaphoreWait{{Semaphore: waitFor, Stage: driver.StageBottomOfPipe}},
		[]*gfx.Semaphore{t.finished},
		nil)
	if err != nil {
		return nil, err
	}
	return t.finished, nil
}

func (t *presentTransitioner) destroy() error {
	if err := t.pool.DestroyCommandBuffers(t.batch); err != nil {
		return err
	}
	return t.finished.Destroy()
}
