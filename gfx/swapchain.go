package gfx

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gfxcore"
	"github.com/gogpu/gfxcore/driver"
)

// Swapchain is the rotating set of presentable images backing the
// surface. Its images are driver-owned and wrapped as protected objects;
// they are reclaimed when the swapchain is destroyed.
type Swapchain struct {
	Object
	format gputypes.TextureFormat
	extent gputypes.Extent3D
	images []*SwapchainImage
}

// NewSwapchain creates a swapchain against the context's surface. The
// format prefers the host provider's surface format when one is shared,
// then BGRA8; the present mode prefers mailbox, falling back to FIFO;
// the image count splits the difference between the surface minimum and
// maximum, weighted toward the minimum.
func NewSwapchain(ctx *Context) (*Swapchain, error) {
	dev, release, err := ctx.Borrow()
	if err != nil {
		return nil, err
	}
	caps, err := dev.SurfaceCapabilities()
	if err != nil {
		release()
		return nil, fmt.Errorf("gfx: surface capabilities: %w", err)
	}
	release()

	width, height := caps.CurrentWidth, caps.CurrentHeight
	if width == driver.ExtentUndefined || height == driver.ExtentUndefined {
		width, height, err = ctx.Surface().SizePixels()
		if err != nil {
			return nil, fmt.Errorf("gfx: surface size: %w", err)
		}
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: zero-extent surface %dx%d", ErrOutOfRange, width, height)
	}

	format := chooseSurfaceFormat(ctx.Provider().SurfaceFormat(), caps.Formats)
	mode := choosePresentMode(caps.PresentModes)
	imageCount := max((caps.MaxImageCount+2*caps.MinImageCount)/3, caps.MinImageCount)

	dev, release, err = ctx.Borrow()
	if err != nil {
		return nil, err
	}
	raw, err := dev.CreateSwapchain(driver.SwapchainDescriptor{
		MinImageCount: imageCount,
		Format:        format,
		Width:         width,
		Height:        height,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopyDst,
		PresentMode:   mode,
	})
	if err != nil {
		release()
		return nil, fmt.Errorf("gfx: create swapchain: %w", err)
	}
	raws, err := dev.SwapchainImages(raw)
	release()
	if err != nil {
		return nil, fmt.Errorf("gfx: swapchain images: %w", err)
	}

	extent := gputypes.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1}
	sc := &Swapchain{
		Object: NewObject(ctx, raw, driver.KindSwapchain, false),
		format: format,
		extent: extent,
	}
	for i, rawImage := range raws {
		img := &SwapchainImage{
			// Owned by the swapchain, reclaimed with it.
			Object: NewObject(ctx, rawImage, driver.KindImage, true),
			format: format,
			extent: extent,
		}
		if err := img.SetName(fmt.Sprintf("%s.images[%d]", sc.Name(), i)); err != nil {
			return nil, err
		}
		sc.images = append(sc.images, img)
	}

	gfxcore.Logger().Info("swapchain created",
		slog.Uint64("width", uint64(width)),
		slog.Uint64("height", uint64(height)),
		slog.Int("images", len(sc.images)),
		slog.String("present_mode", mode.String()))
	return sc, nil
}

// chooseSurfaceFormat picks the host provider's surface format when the
// surface supports it, then BGRA8, then the first reported format.
func chooseSurfaceFormat(preferred gputypes.TextureFormat, formats []gputypes.TextureFormat) gputypes.TextureFormat {
	if preferred != gputypes.TextureFormatUndefined {
		for _, f := range formats {
			if f == preferred {
				return f
			}
		}
	}
	for _, f := range formats {
		if f == gputypes.TextureFormatBGRA8Unorm {
			return f
		}
	}
	if len(formats) > 0 {
		return formats[0]
	}
	return gputypes.TextureFormatBGRA8Unorm
}

// choosePresentMode prefers mailbox; FIFO is always available.
func choosePresentMode(modes []driver.PresentMode) driver.PresentMode {
	for _, m := range modes {
		if m == driver.PresentModeMailbox {
			return m
		}
	}
	return driver.PresentModeFIFO
}

// Format returns the swapchain image format.
func (s *Swapchain) Format() gputypes.TextureFormat { return s.format }

// Extent returns the swapchain image extent.
func (s *Swapchain) Extent() gputypes.Extent3D { return s.extent }

// Images returns the swapchain's images in acquisition-index order.
func (s *Swapchain) Images() []*SwapchainImage { return s.images }

// AcquireNextImage blocks until an image is available and returns its
// index. The image is only safe to record against once the given
// semaphore or fence signals; at least one must be provided. A timeout
// of zero or less waits indefinitely.
func (s *Swapchain) AcquireNextImage(timeout time.Duration, semaphore *Semaphore, fence *Fence) (uint32, error) {
	if semaphore == nil && fence == nil {
		return 0, fmt.Errorf("%w: acquire needs a semaphore or a fence", ErrIllegalState)
	}
	var rawSemaphore, rawFence driver.Handle
	if semaphore != nil {
		rawSemaphore = semaphore.Handle()
	}
	if fence != nil {
		rawFence = fence.Handle()
	}
	if timeout <= 0 {
		timeout = time.Duration(1<<63 - 1)
	}
	dev, release, err := s.ctx.Borrow()
	if err != nil {
		return 0, err
	}
	defer release()
	index, err := dev.AcquireNextImage(s.handle, timeout, rawSemaphore, rawFence)
	if err != nil {
		return 0, fmt.Errorf("gfx: acquire next image: %w", err)
	}
	return index, nil
}

// Present hands the image at index to the presentation engine on queue,
// waiting for waitSemaphore before the image is read.
func (s *Swapchain) Present(index uint32, queue *Queue, waitSemaphore *Semaphore) error {
	if int(index) >= len(s.images) {
		return fmt.Errorf("%w: image index %d of %d", ErrOutOfRange, index, len(s.images))
	}
	var rawWait driver.Handle
	if waitSemaphore != nil {
		rawWait = waitSemaphore.Handle()
	}
	dev, release, err := s.ctx.Borrow()
	if err != nil {
		return err
	}
	defer release()
	if err := dev.QueuePresent(queue.Handle(), s.handle, index, rawWait); err != nil {
		return fmt.Errorf("gfx: queue present: %w", err)
	}
	return nil
}

// SetName renames the swapchain and its images.
func (s *Swapchain) SetName(name string) error {
	if err := s.Object.SetName(name); err != nil {
		return err
	}
	for i, img := range s.images {
		if err := img.SetName(fmt.Sprintf("%s.images[%d]", name, i)); err != nil {
			return err
		}
	}
	return nil
}

// SwapchainImage is one presentable image. It is driver-owned: Destroy
// is a no-op and the image lives until its swapchain is destroyed.
type SwapchainImage struct {
	Object
	format gputypes.TextureFormat
	extent gputypes.Extent3D
}

// ImageHandle implements Image.
func (i *SwapchainImage) ImageHandle() driver.Handle { return i.Handle() }

// Format implements Image.
func (i *SwapchainImage) Format() gputypes.TextureFormat { return i.format }

// Extent implements Image.
func (i *SwapchainImage) Extent() gputypes.Extent3D { return i.extent }

// RangeColorBasic implements Image.
func (i *SwapchainImage) RangeColorBasic() driver.ImageSubresourceRange {
	return driver.ImageSubresourceRange{
		Aspect:     gputypes.TextureAspectAll,
		LevelCount: 1,
		LayerCount: 1,
	}
}

// VerifyRegion implements Image.
func (i *SwapchainImage) VerifyRegion(offset gputypes.Origin3D, extent gputypes.Extent3D) error {
	return verifyRegionInside(i.extent, offset, extent)
}

// View creates an image view covering the given subresource range.
func (i *SwapchainImage) View(rng driver.ImageSubresourceRange) (*ImageView, error) {
	view, err := newImageView(i.ctx, i, rng)
	if err != nil {
		return nil, err
	}
	if err := view.SetName(fmt.Sprintf("View into %s", i.Name())); err != nil {
		return nil, err
	}
	return view, nil
}
