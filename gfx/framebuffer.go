package gfx

import (
	"fmt"

	"github.com/gogpu/gfxcore/driver"
)

// Framebuffer binds concrete image views to a render pass's attachment
// slots. The framebuffer owns its views: destroying it frees them too.
type Framebuffer struct {
	Object
	views         []*ImageView
	width, height uint32
}

// NewFramebuffer creates a framebuffer of the given extent over views.
// The view count must match the pass's attachment count.
func NewFramebuffer(ctx *Context, pass *RenderPass, views []*ImageView, width, height uint32) (*Framebuffer, error) {
	if len(views) != pass.AttachmentCount() {
		return nil, fmt.Errorf("%w: %d views for a pass with %d attachments",
			ErrOutOfRange, len(views), pass.AttachmentCount())
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: zero-extent framebuffer %dx%d", ErrOutOfRange, width, height)
	}
	attachments := make([]driver.Handle, len(views))
	for i, v := range views {
		attachments[i] = v.Handle()
	}
	dev, release, err := ctx.Borrow()
	if err != nil {
		return nil, err
	}
	defer release()
	raw, err := dev.CreateFramebuffer(driver.FramebufferDescriptor{
		RenderPass:  pass.Handle(),
		Attachments: attachments,
		Width:       width,
		Height:      height,
		Layers:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("gfx: create framebuffer: %w", err)
	}
	return &Framebuffer{
		Object: NewObject(ctx, raw, driver.KindFramebuffer, false),
		views:  views,
		width:  width,
		height: height,
	}, nil
}

// Width returns the framebuffer width in pixels.
func (f *Framebuffer) Width() uint32 { return f.width }

// Height returns the framebuffer height in pixels.
func (f *Framebuffer) Height() uint32 { return f.height }

// RenderArea returns the rectangle covering the whole framebuffer.
func (f *Framebuffer) RenderArea() driver.Rect2D {
	return driver.Rect2D{Width: f.width, Height: f.height}
}

// SetName renames the framebuffer and its attachment views.
func (f *Framebuffer) SetName(name string) error {
	if err := f.Object.SetName(name); err != nil {
		return err
	}
	for i, v := range f.views {
		if err := v.SetName(fmt.Sprintf("%s.attachments[%d]", name, i)); err != nil {
			return err
		}
	}
	return nil
}

// Destroy frees the framebuffer, then its attachment views.
func (f *Framebuffer) Destroy() error {
	if err := f.Object.Destroy(); err != nil {
		return err
	}
	for _, v := range f.views {
		if err := v.Destroy(); err != nil {
			return err
		}
	}
	return nil
}
