// Package gfxcore is the GPU resource and command-submission core of a
// small real-time rendering engine built on an explicit, Vulkan-style
// graphics API.
//
// # Overview
//
// Explicit GPU APIs trade driver magic for manual lifetime, recording and
// synchronization management. gfxcore makes that tractable:
//
//   - handle: a generation-free handle->value cache with monotonically
//     increasing indices, so stale handles can never alias a new object.
//   - driver: the raw device boundary. Everything the core asks of the GPU
//     goes through driver.Device; backends register themselves the way
//     rendering backends register in the GoGPU ecosystem. The driver/null
//     recording driver runs everywhere and backs the test suite.
//   - gfx: ownership wrappers tying every GPU object to a shared Context,
//     the queue-family/command-pool/command-buffer hierarchy, and a scoped
//     recording state machine (Writer -> ActiveRenderPass ->
//     ActiveGraphicsPipeline) that makes illegal call sequences
//     unrepresentable instead of undefined behavior.
//   - engine: the per-frame loop. Stages chain entirely on the GPU
//     timeline: each stage waits on the previous stage's semaphore and
//     signals its own, with the swapchain's acquire semaphore seeding the
//     chain and the last signal gating presentation.
//
// # Quick Start
//
//	dev := null.New()
//	ctx, err := gfx.NewContext(dev, null.NewSurface(1280, 720))
//	if err != nil { ... }
//	defer ctx.Close()
//
//	families, err := gfx.NewQueueFamilyCollection(ctx)
//	if err != nil { ... }
//	if err := families.Setup(ctx); err != nil { ... }
//
//	eng, err := engine.New(ctx, families, engine.NewClearStage(...))
//	if err != nil { ... }
//	for running {
//	    if err := eng.Draw(); err != nil { ... }
//	}
//	eng.Stop()
//
// # Scheduling Model
//
// A single control thread issues all recording and submission calls; the
// concurrency is between the CPU issuing work and the GPU executing it.
// Queue.Wait and Fence.Wait are the only thread-blocking operations and
// belong to one-shot setup paths, never the steady-state frame loop.
package gfxcore

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
