// Package engine runs the per-frame loop over the gfx layer.
//
// A frame is a chain of queue submissions linked by semaphores: the
// swapchain acquire signals the first link, every stage waits on its
// predecessor and signals its own semaphore, the present transitioner
// moves the image to the present-source layout, and presentation waits
// on the transitioner. The CPU never blocks inside Draw; only Stop
// drains the device.
package engine

import (
	"log/slog"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gfxcore"
	"github.com/gogpu/gfxcore/gfx"
)

// Engine owns the swapchain and drives the stage chain once per Draw.
type Engine struct {
	ctx            *gfx.Context
	families       *gfx.QueueFamilyCollection
	swapchain      *gfx.Swapchain
	imageAvailable *gfx.Semaphore
	stages         []StageRenderer
	transitioner   *presentTransitioner
}

// New builds an engine over a set-up queue family collection. With no
// stages, a black ClearStage is installed so the engine always presents
// a defined image. The present transition chains after the final
// stage's reported state.
func New(ctx *gfx.Context, families *gfx.QueueFamilyCollection, stages ...StageRenderer) (*Engine, error) {
	if len(stages) == 0 {
		stages = []StageRenderer{NewClearStage(gputypes.Color{A: 1})}
	}

	swapchain, err := gfx.NewSwapchain(ctx)
	if err != nil {
		return nil, err
	}
	if err := swapchain.SetName("engine.swapchain"); err != nil {
		return nil, err
	}
	imageAvailable, err := gfx.NewSemaphore(ctx)
	if err != nil {
		return nil, err
	}
	if err := imageAvailable.SetName("engine.image_available"); err != nil {
		return nil, err
	}

	for _, stage := range stages {
		if err := stage.Setup(ctx, families, swapchain); err != nil {
			return nil, err
		}
	}
	srcStage, srcLayout, srcAccess := stages[len(stages)-1].FinalState()
	transitioner, err := newPresentTransitioner(ctx, families, swapchain, srcStage, srcLayout, srcAccess)
	if err != nil {
		return nil, err
	}

	gfxcore.Logger().Info("engine ready",
		slog.Int("stages", len(stages)),
		slog.Int("swapchain_images", len(swapchain.Images())))
	return &Engine{
		ctx:            ctx,
		families:       families,
		swapchain:      swapchain,
		imageAvailable: imageAvailable,
		stages:         stages,
		transitioner:   transitioner,
	}, nil
}

// Swapchain returns the engine's swapchain.
func (e *Engine) Swapchain() *gfx.Swapchain { return e.swapchain }

// Draw runs one frame: acquire an image, fold it through the stage
// chain, transition it for presentation and present it. Every link waits
// on its predecessor's semaphore on the GPU timeline; Draw itself never
// blocks on GPU work.
func (e *Engine) Draw() error {
	index, err := e.swapchain.AcquireNextImage(0, e.imageAvailable, nil)
	if err != nil {
		return err
	}

	wait := e.imageAvailable
	for _, stage := range e.stages {
		wait, err = stage.SubmitDraw(wait, e.families, index, nil)
		if err != nil {
			return err
		}
	}
	rendered, err := e.transitioner.submit(wait, e.families, index)
	if err != nil {
		return err
	}

	queue, err := e.families.Present().QueueOfPriority(1)
	if err != nil {
		return err
	}
	return e.swapchain.Present(index, queue, rendered)
}

// Stop drains the device. Call it before tearing down stages or the
// context; it is the frame loop's only full synchronization point.
func (e *Engine) Stop() error {
	return e.ctx.WaitIdle()
}

// Destroy stops the engine and frees everything it owns: stages, the
// present transitioner, the acquire semaphore and the swapchain.
func (e *Engine) Destroy() error {
	if err := e.Stop(); err != nil {
		return err
	}
	for _, stage := range e.stages {
		if err := stage.Destroy(); err != nil {
			return err
		}
	}
	if err := e.transitioner.destroy(); err != nil {
		return err
	}
	if err := e.imageAvailable.Destroy(); err != nil {
		return err
	}
	return e.swapchain.Destroy()
}
