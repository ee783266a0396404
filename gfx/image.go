package gfx

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/gogpu/gputypes"
	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/gfxcore/driver"
)

// Image is any GPU image the recording and upload paths can operate on:
// engine-owned Image2D instances as well as protected swapchain images.
type Image interface {
	// ImageHandle returns the raw image handle.
	ImageHandle() driver.Handle

	// Format returns the texel format.
	Format() gputypes.TextureFormat

	// Extent returns the image extent.
	Extent() gputypes.Extent3D

	// RangeColorBasic returns the subresource range covering the color
	// aspect of mip 0, layer 0.
	RangeColorBasic() driver.ImageSubresourceRange

	// VerifyRegion checks that the region lies inside the image and
	// returns ErrOutOfRange otherwise.
	VerifyRegion(offset gputypes.Origin3D, extent gputypes.Extent3D) error
}

// verifyRegionInside is the shared region check for all Image
// implementations.
func verifyRegionInside(img gputypes.Extent3D, offset gputypes.Origin3D, extent gputypes.Extent3D) error {
	// Sums in uint64: an offset near the uint32 limit must not wrap past
	// the bounds check.
	if uint64(offset.X)+uint64(extent.Width) > uint64(img.Width) ||
		uint64(offset.Y)+uint64(extent.Height) > uint64(img.Height) ||
		uint64(offset.Z)+uint64(extent.DepthOrArrayLayers) > uint64(img.DepthOrArrayLayers) {
		return fmt.Errorf("%w: region %dx%dx%d at (%d, %d, %d) outside image %dx%dx%d",
			ErrOutOfRange,
			extent.Width, extent.Height, extent.DepthOrArrayLayers,
			offset.X, offset.Y, offset.Z,
			img.Width, img.Height, img.DepthOrArrayLayers)
	}
	return nil
}

// Image2D is an engine-owned two-dimensional image with its backing
// memory. The image owns the memory.
type Image2D struct {
	Object
	memory *Memory
	format gputypes.TextureFormat
	extent gputypes.Extent3D
}

// NewImage2D creates a width x height image and binds fresh device-local
// memory to it.
func NewImage2D(ctx *Context, width, height uint32, format gputypes.TextureFormat, usage gputypes.TextureUsage) (*Image2D, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: zero-extent image %dx%d", ErrOutOfRange, width, height)
	}
	extent := gputypes.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1}

	dev, release, err := ctx.Borrow()
	if err != nil {
		return nil, err
	}
	raw, err := dev.CreateImage(driver.ImageDescriptor{
		Extent:        extent,
		Format:        format,
		Usage:         usage,
		Dimension:     gputypes.TextureDimension2D,
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       1,
		InitialLayout: driver.LayoutUndefined,
	})
	if err != nil {
		release()
		return nil, fmt.Errorf("gfx: create image: %w", err)
	}
	reqs, err := dev.ImageMemoryRequirements(raw)
	release()
	if err != nil {
		return nil, fmt.Errorf("gfx: image memory requirements: %w", err)
	}

	memory, err := NewMemory(ctx, reqs.Size, false)
	if err != nil {
		return nil, err
	}

	dev, release, err = ctx.Borrow()
	if err != nil {
		return nil, err
	}
	defer release()
	if err := dev.BindImageMemory(raw, memory.Handle()); err != nil {
		return nil, fmt.Errorf("gfx: bind image memory: %w", err)
	}
	return &Image2D{
		Object: NewObject(ctx, raw, driver.KindImage, false),
		memory: memory,
		format: format,
		extent: extent,
	}, nil
}

// ImageHandle implements Image.
func (i *Image2D) ImageHandle() driver.Handle { return i.Handle() }

// Format implements Image.
func (i *Image2D) Format() gputypes.TextureFormat { return i.format }

// Extent implements Image.
func (i *Image2D) Extent() gputypes.Extent3D { return i.extent }

// Memory returns the backing memory.
func (i *Image2D) Memory() *Memory { return i.memory }

// RangeColorBasic implements Image.
func (i *Image2D) RangeColorBasic() driver.ImageSubresourceRange {
	return driver.ImageSubresourceRange{
		Aspect:     gputypes.TextureAspectAll,
		LevelCount: 1,
		LayerCount: 1,
	}
}

// VerifyRegion implements Image.
func (i *Image2D) VerifyRegion(offset gputypes.Origin3D, extent gputypes.Extent3D) error {
	return verifyRegionInside(i.extent, offset, extent)
}

// View creates an image view covering the given subresource range.
func (i *Image2D) View(rng driver.ImageSubresourceRange) (*ImageView, error) {
	view, err := newImageView(i.ctx, i, rng)
	if err != nil {
		return nil, err
	}
	if err := view.SetName(fmt.Sprintf("View into %s", i.Name())); err != nil {
		return nil, err
	}
	return view, nil
}

// SetName renames the image and its backing memory.
func (i *Image2D) SetName(name string) error {
	if err := i.Object.SetName(name); err != nil {
		return err
	}
	return i.memory.SetName(name + ".memory")
}

// Destroy frees the image, then its backing memory.
func (i *Image2D) Destroy() error {
	if err := i.Object.Destroy(); err != nil {
		return err
	}
	return i.memory.Destroy()
}

// LoadImage uploads src into the image through a staging buffer on the
// transfer queue: transition to the transfer-destination layout, copy,
// transition to shader-read-only. src is converted to tightly packed
// RGBA and scaled to the image extent if the sizes differ.
//
// The upload blocks on Queue.Wait before freeing the staging buffer —
// the one sanctioned setup-path use of a full queue drain.
func (i *Image2D) LoadImage(src image.Image, families *QueueFamilyCollection) error {
	pixels := rgbaPixels(src, int(i.extent.Width), int(i.extent.Height))
	staging, err := NewBufferFromBytes(i.ctx, pixels, gputypes.BufferUsageCopySrc)
	if err != nil {
		return err
	}
	defer staging.Destroy()
	if err := staging.SetName(i.Name() + ".staging"); err != nil {
		return err
	}

	pool := families.Transfer().CommandPools().Transient()
	batch, cbs, err := pool.CreateCommandBuffers(1)
	if err != nil {
		return err
	}
	defer pool.DestroyCommandBuffers(batch)

	writer, err := cbs[0].Begin(true, false)
	if err != nil {
		return err
	}
	err = writer.PipelineBarrier(
		driver.StageTopOfPipe, driver.StageTransfer,
		nil, nil,
		[]driver.ImageBarrier{{
			Image:     i.Handle(),
			Range:     i.RangeColorBasic(),
			OldLayout: driver.LayoutUndefined,
			NewLayout: driver.LayoutTransferDst,
			SrcAccess: driver.AccessNone,
			DstAccess: driver.AccessTransferWrite,
		}})
	if err != nil {
		return err
	}
	err = writer.CopyBufferToImage(staging, i, driver.LayoutTransferDst,
		[]driver.BufferImageCopy{{
			ImageLayers: driver.ImageSubresourceLayers{
				Aspect:     gputypes.TextureAspectAll,
				LayerCount: 1,
			},
			ImageExtent: i.extent,
		}})
	if err != nil {
		return err
	}
	err = writer.PipelineBarrier(
		driver.StageTransfer, driver.StageBottomOfPipe,
		nil, nil,
		[]driver.ImageBarrier{{
			Image:     i.Handle(),
			Range:     i.RangeColorBasic(),
			OldLayout: driver.LayoutTransferDst,
			NewLayout: driver.LayoutShaderReadOnly,
			SrcAccess: driver.AccessTransferWrite,
			DstAccess: driver.AccessShaderRead,
		}})
	if err != nil {
		return err
	}
	if err := writer.End(); err != nil {
		return err
	}

	queue, err := families.Transfer().QueueOfPriority(0)
	if err != nil {
		return err
	}
	if err := queue.Submit(cbs, nil, nil, nil); err != nil {
		return err
	}
	return queue.Wait()
}

// rgbaPixels converts src to tightly packed RGBA bytes of the given
// size, scaling when the sizes differ.
func rgbaPixels(src image.Image, width, height int) []byte {
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if bounds.Dx() == width && bounds.Dy() == height {
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
	} else {
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, xdraw.Src, nil)
	}
	return dst.Pix
}
