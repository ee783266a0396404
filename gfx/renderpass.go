package gfx

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gfxcore/driver"
)

// RenderPass describes the attachments a pass renders into and the
// layout transitions that frame it.
type RenderPass struct {
	Object
	attachmentCount int
}

// NewRenderPass creates a render pass from explicit attachment and
// subpass descriptions.
func NewRenderPass(ctx *Context, desc driver.RenderPassDescriptor) (*RenderPass, error) {
	if len(desc.Attachments) == 0 {
		return nil, fmt.Errorf("%w: render pass with no attachments", ErrOutOfRange)
	}
	if len(desc.Subpasses) == 0 {
		desc.Subpasses = []driver.SubpassDescription{{
			ColorAttachments: []uint32{0},
		}}
	}
	for _, sub := range desc.Subpasses {
		for _, ref := range sub.ColorAttachments {
			if int(ref) >= len(desc.Attachments) {
				return nil, fmt.Errorf("%w: subpass references attachment %d of %d",
					ErrOutOfRange, ref, len(desc.Attachments))
			}
		}
	}
	dev, release, err := ctx.Borrow()
	if err != nil {
		return nil, err
	}
	defer release()
	raw, err := dev.CreateRenderPass(desc)
	if err != nil {
		return nil, fmt.Errorf("gfx: create render pass: %w", err)
	}
	return &RenderPass{
		Object:          NewObject(ctx, raw, driver.KindRenderPass, false),
		attachmentCount: len(desc.Attachments),
	}, nil
}

// NewColorRenderPass creates the common single-subpass pass over one
// color attachment: cleared on load, stored on finish, transitioned
// from initialLayout to finalLayout.
func NewColorRenderPass(ctx *Context, format gputypes.TextureFormat, initialLayout, finalLayout driver.ImageLayout) (*RenderPass, error) {
	return NewRenderPass(ctx, driver.RenderPassDescriptor{
		Attachments: []driver.AttachmentDescription{{
			Format:        format,
			Samples:       1,
			LoadOp:        gputypes.LoadOpClear,
			StoreOp:       gputypes.StoreOpStore,
			InitialLayout: initialLayout,
			FinalLayout:   finalLayout,
		}},
	})
}

// AttachmentCount returns the number of attachments the pass declares.
// Framebuffers must supply exactly this many views.
func (r *RenderPass) AttachmentCount() int { return r.attachmentCount }
