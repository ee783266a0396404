package gfx

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gfxcore/driver"
)

// Writer is the scoped recording context for a command buffer. It exposes
// the commands legal anywhere in a recording, gated by the buffer's queue
// kind; render-pass-scoped commands are only reachable through the
// ActiveRenderPass it hands out. End must be called exactly once before
// the buffer can be submitted or re-begun.
//
// Go has no scope-exit destructors, so the chain is an explicit guard
// chain: each tier's End closes that tier, and a tier refuses to operate
// while an inner tier is still open.
type Writer struct {
	buffer *CommandBuffer
	inPass bool
	ended  bool
}

func (w *Writer) verifyOpen() error {
	if w.ended {
		return fmt.Errorf("%w: writer for %q has ended", ErrIllegalState, w.buffer.Name())
	}
	if w.inPass {
		return fmt.Errorf("%w: render pass still open on %q", ErrIllegalState, w.buffer.Name())
	}
	return nil
}

// End finishes recording and returns the buffer to the idle state.
// Calling End with a render pass still open, or twice, is an error.
func (w *Writer) End() error {
	if err := w.verifyOpen(); err != nil {
		return err
	}
	dev, release, err := w.buffer.ctx.Borrow()
	if err != nil {
		return err
	}
	defer release()
	if err := dev.EndCommandBuffer(w.buffer.handle); err != nil {
		return fmt.Errorf("gfx: end command buffer: %w", err)
	}
	w.ended = true
	w.buffer.writing = false
	return nil
}

// PipelineBarrier records an execution and memory dependency. Legal on
// transfer, graphics and compute buffers.
func (w *Writer) PipelineBarrier(src, dst driver.StageFlags, memory []driver.MemoryBarrier, buffers []driver.BufferBarrier, images []driver.ImageBarrier) error {
	if err := w.verifyOpen(); err != nil {
		return err
	}
	if err := w.buffer.VerifyKind(QueueTransfer, QueueGraphics, QueueCompute); err != nil {
		return err
	}
	dev, release, err := w.buffer.ctx.Borrow()
	if err != nil {
		return err
	}
	defer release()
	if err := dev.CmdPipelineBarrier(w.buffer.handle, src, dst, memory, buffers, images); err != nil {
		return fmt.Errorf("gfx: pipeline barrier: %w", err)
	}
	return nil
}

// ClearColorImage records a clear of the given subresource ranges. The
// image must currently be in layout. Graphics and compute only.
func (w *Writer) ClearColorImage(image Image, layout driver.ImageLayout, color gputypes.Color, ranges []driver.ImageSubresourceRange) error {
	if err := w.verifyOpen(); err != nil {
		return err
	}
	if err := w.buffer.VerifyKind(QueueGraphics, QueueCompute); err != nil {
		return err
	}
	dev, release, err := w.buffer.ctx.Borrow()
	if err != nil {
		return err
	}
	defer release()
	if err := dev.CmdClearColorImage(w.buffer.handle, image.ImageHandle(), layout, color, ranges); err != nil {
		return fmt.Errorf("gfx: clear color image: %w", err)
	}
	return nil
}

// CopyBuffer records a buffer-to-buffer copy.
func (w *Writer) CopyBuffer(src, dst *Buffer, srcOffset, dstOffset, size uint64) error {
	if err := w.verifyOpen(); err != nil {
		return err
	}
	if err := w.buffer.VerifyKind(QueueTransfer, QueueGraphics, QueueCompute); err != nil {
		return err
	}
	if srcOffset+size > src.Size() || dstOffset+size > dst.Size() {
		return fmt.Errorf("%w: copy of %d bytes exceeds buffer bounds", ErrOutOfRange, size)
	}
	dev, release, err := w.buffer.ctx.Borrow()
	if err != nil {
		return err
	}
	defer release()
	if err := dev.CmdCopyBuffer(w.buffer.handle, src.Handle(), dst.Handle(), srcOffset, dstOffset, size); err != nil {
		return fmt.Errorf("gfx: copy buffer: %w", err)
	}
	return nil
}

// CopyBufferToImage records a buffer-to-image copy. Every region must lie
// inside the destination image.
func (w *Writer) CopyBufferToImage(src *Buffer, dst Image, dstLayout driver.ImageLayout, regions []driver.BufferImageCopy) error {
	if err := w.verifyOpen(); err != nil {
		return err
	}
	if err := w.buffer.VerifyKind(QueueTransfer, QueueGraphics, QueueCompute); err != nil {
		return err
	}
	for _, region := range regions {
		if err := dst.VerifyRegion(region.ImageOffset, region.ImageExtent); err != nil {
			return err
		}
	}
	dev, release, err := w.buffer.ctx.Borrow()
	if err != nil {
		return err
	}
	defer release()
	if err := dev.CmdCopyBufferToImage(w.buffer.handle, src.Handle(), dst.ImageHandle(), dstLayout, regions); err != nil {
		return fmt.Errorf("gfx: copy buffer to image: %w", err)
	}
	return nil
}

// BeginRenderPass opens a render pass instance and returns the scoped
// context for render-pass commands. Graphics buffers only. The writer
// refuses further commands until the returned pass is ended.
func (w *Writer) BeginRenderPass(pass *RenderPass, framebuffer *Framebuffer, area driver.Rect2D, clearValues []gputypes.Color) (*ActiveRenderPass, error) {
	if err := w.verifyOpen(); err != nil {
		return nil, err
	}
	if err := w.buffer.VerifyKind(QueueGraphics); err != nil {
		return nil, err
	}
	dev, release, err := w.buffer.ctx.Borrow()
	if err != nil {
		return nil, err
	}
	defer release()
	if err := dev.CmdBeginRenderPass(w.buffer.handle, pass.Handle(), framebuffer.Handle(), area, clearValues); err != nil {
		return nil, fmt.Errorf("gfx: begin render pass: %w", err)
	}
	w.inPass = true
	return &ActiveRenderPass{writer: w}, nil
}

// ActiveRenderPass is the recording context inside an open render pass.
// Ending it issues the matching end-render-pass call, exactly once.
type ActiveRenderPass struct {
	writer *Writer
	ended  bool
}

func (p *ActiveRenderPass) verifyOpen() error {
	if p.ended {
		return fmt.Errorf("%w: render pass on %q has ended", ErrIllegalState, p.writer.buffer.Name())
	}
	return nil
}

// End closes the render pass and returns control to the writer.
func (p *ActiveRenderPass) End() error {
	if err := p.verifyOpen(); err != nil {
		return err
	}
	dev, release, err := p.writer.buffer.ctx.Borrow()
	if err != nil {
		return err
	}
	defer release()
	if err := dev.CmdEndRenderPass(p.writer.buffer.handle); err != nil {
		return fmt.Errorf("gfx: end render pass: %w", err)
	}
	p.ended = true
	p.writer.inPass = false
	return nil
}

// BindGraphicsPipeline binds pipeline and returns the context exposing
// draw commands. It is the only way to reach a draw.
func (p *ActiveRenderPass) BindGraphicsPipeline(pipeline *GraphicsPipeline) (*ActiveGraphicsPipeline, error) {
	if err := p.verifyOpen(); err != nil {
		return nil, err
	}
	dev, release, err := p.writer.buffer.ctx.Borrow()
	if err != nil {
		return nil, err
	}
	defer release()
	if err := dev.CmdBindPipeline(p.writer.buffer.handle, pipeline.Handle()); err != nil {
		return nil, fmt.Errorf("gfx: bind graphics pipeline: %w", err)
	}
	return &ActiveGraphicsPipeline{pass: p, pipeline: pipeline}, nil
}

// ActiveGraphicsPipeline is the recording context with a graphics
// pipeline bound inside an open render pass.
type ActiveGraphicsPipeline struct {
	pass     *ActiveRenderPass
	pipeline *GraphicsPipeline
}

// Pipeline returns the bound pipeline.
func (g *ActiveGraphicsPipeline) Pipeline() *GraphicsPipeline { return g.pipeline }

// BindVertexBuffers binds vertex buffers starting at firstBinding.
func (g *ActiveGraphicsPipeline) BindVertexBuffers(firstBinding uint32, buffers []*Buffer, offsets []uint64) error {
	if err := g.pass.verifyOpen(); err != nil {
		return err
	}
	if len(buffers) != len(offsets) {
		return fmt.Errorf("%w: %d vertex buffers with %d offsets", ErrOutOfRange, len(buffers), len(offsets))
	}
	raws := make([]driver.Handle, len(buffers))
	for i, b := range buffers {
		raws[i] = b.Handle()
	}
	dev, release, err := g.pass.writer.buffer.ctx.Borrow()
	if err != nil {
		return err
	}
	defer release()
	if err := dev.CmdBindVertexBuffers(g.pass.writer.buffer.handle, firstBinding, raws, offsets); err != nil {
		return fmt.Errorf("gfx: bind vertex buffers: %w", err)
	}
	return nil
}

// BindIndexBuffer binds an index buffer at offset with the given index
// format.
func (g *ActiveGraphicsPipeline) BindIndexBuffer(buffer *Buffer, offset uint64, format gputypes.IndexFormat) error {
	if err := g.pass.verifyOpen(); err != nil {
		return err
	}
	dev, release, err := g.pass.writer.buffer.ctx.Borrow()
	if err != nil {
		return err
	}
	defer release()
	if err := dev.CmdBindIndexBuffer(g.pass.writer.buffer.handle, buffer.Handle(), offset, format); err != nil {
		return fmt.Errorf("gfx: bind index buffer: %w", err)
	}
	return nil
}

// BindDescriptorSets binds descriptor sets starting at firstSet against
// the bound pipeline's layout.
func (g *ActiveGraphicsPipeline) BindDescriptorSets(sets []*DescriptorSet, firstSet uint32) error {
	if err := g.pass.verifyOpen(); err != nil {
		return err
	}
	raws := make([]driver.Handle, len(sets))
	for i, s := range sets {
		raws[i] = s.Handle()
	}
	dev, release, err := g.pass.writer.buffer.ctx.Borrow()
	if err != nil {
		return err
	}
	defer release()
	if err := dev.CmdBindDescriptorSets(g.pass.writer.buffer.handle, g.pipeline.Layout().Handle(), firstSet, raws); err != nil {
		return fmt.Errorf("gfx: bind descriptor sets: %w", err)
	}
	return nil
}

// Draw records a non-indexed draw. Zero vertex or instance counts are
// rejected before any driver call.
func (g *ActiveGraphicsPipeline) Draw(firstVertex, vertexCount, firstInstance, instanceCount uint32) error {
	if err := g.pass.verifyOpen(); err != nil {
		return err
	}
	if vertexCount == 0 {
		return fmt.Errorf("%w: vertex count is zero", ErrOutOfRange)
	}
	if instanceCount == 0 {
		return fmt.Errorf("%w: instance count is zero", ErrOutOfRange)
	}
	dev, release, err := g.pass.writer.buffer.ctx.Borrow()
	if err != nil {
		return err
	}
	defer release()
	if err := dev.CmdDraw(g.pass.writer.buffer.handle, vertexCount, instanceCount, firstVertex, firstInstance); err != nil {
		return fmt.Errorf("gfx: draw: %w", err)
	}
	return nil
}

// DrawIndexed records an indexed draw. Zero index or instance counts are
// rejected before any driver call.
func (g *ActiveGraphicsPipeline) DrawIndexed(firstIndex, indexCount uint32, vertexOffset int32, firstInstance, instanceCount uint32) error {
	if err := g.pass.verifyOpen(); err != nil {
		return err
	}
	if indexCount == 0 {
		return fmt.Errorf("%w: index count is zero", ErrOutOfRange)
	}
	if instanceCount == 0 {
		return fmt.Errorf("%w: instance count is zero", ErrOutOfRange)
	}
	dev, release, err := g.pass.writer.buffer.ctx.Borrow()
	if err != nil {
		return err
	}
	defer release()
	if err := dev.CmdDrawIndexed(g.pass.writer.buffer.handle, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance); err != nil {
		return fmt.Errorf("gfx: draw indexed: %w", err)
	}
	return nil
}
