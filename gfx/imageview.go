package gfx

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gfxcore/driver"
)

// ImageView is a typed view into a subresource range of an image. Views
// do not own the image; destroying a view leaves the image intact.
type ImageView struct {
	Object
	format gputypes.TextureFormat
}

func newImageView(ctx *Context, img Image, rng driver.ImageSubresourceRange) (*ImageView, error) {
	dev, release, err := ctx.Borrow()
	if err != nil {
		return nil, err
	}
	defer release()
	raw, err := dev.CreateImageView(img.ImageHandle(), driver.ImageViewDescriptor{
		Format:    img.Format(),
		Dimension: gputypes.TextureViewDimension2D,
		Range:     rng,
	})
	if err != nil {
		return nil, fmt.Errorf("gfx: create image view: %w", err)
	}
	return &ImageView{
		Object: NewObject(ctx, raw, driver.KindImageView, false),
		format: img.Format(),
	}, nil
}

// Format returns the view's texel format.
func (v *ImageView) Format() gputypes.TextureFormat { return v.format }
