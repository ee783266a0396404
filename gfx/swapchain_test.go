package gfx

import (
	"errors"
	"testing"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gfxcore/driver"
	"github.com/gogpu/gfxcore/driver/null"
)

func TestSwapchainPreferredFormatAndMode(t *testing.T) {
	ctx, dev := newTestContext(t)

	sc, err := NewSwapchain(ctx)
	if err != nil {
		t.Fatalf("NewSwapchain: %v", err)
	}
	if got := sc.Format(); got != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("format %v, want BGRA8Unorm", got)
	}
	// The surface reports an undefined extent, so the swapchain falls back
	// to the client-area size.
	if sc.Extent().Width != 640 || sc.Extent().Height != 480 {
		t.Errorf("extent %dx%d, want 640x480", sc.Extent().Width, sc.Extent().Height)
	}
	// (max + 2*min)/3 with the null device's min 2, max 8.
	if got := len(sc.Images()); got != 4 {
		t.Errorf("%d images, want 4", got)
	}
	if got := dev.LiveCount(driver.KindSwapchain); got != 1 {
		t.Errorf("%d live swapchains, want 1", got)
	}
}

func TestSwapchainImagesAreProtected(t *testing.T) {
	ctx, dev := newTestContext(t)

	sc, err := NewSwapchain(ctx)
	if err != nil {
		t.Fatalf("NewSwapchain: %v", err)
	}
	img := sc.Images()[0]
	if !img.Protected() {
		t.Fatal("swapchain images must be protected")
	}
	if err := img.Destroy(); err != nil {
		t.Fatalf("Destroy on swapchain image: %v", err)
	}
	if got := dev.DestroyCount(driver.KindImage); got != 0 {
		t.Fatalf("%d images destroyed, want 0", got)
	}

	// The images go away with their swapchain.
	if err := sc.Destroy(); err != nil {
		t.Fatalf("swapchain Destroy: %v", err)
	}
	if got := dev.DestroyCount(driver.KindImage); got != len(sc.Images()) {
		t.Fatalf("%d images reclaimed, want %d", got, len(sc.Images()))
	}
}

func TestSwapchainImageNames(t *testing.T) {
	ctx, _ := newTestContext(t)

	sc, err := NewSwapchain(ctx)
	if err != nil {
		t.Fatalf("NewSwapchain: %v", err)
	}
	if err := sc.SetName("main_swapchain"); err != nil {
		t.Fatalf("SetName: %v", err)
	}
	if got := sc.Images()[2].Name(); got != "main_swapchain.images[2]" {
		t.Fatalf("image name %q, want main_swapchain.images[2]", got)
	}
}

func TestAcquireRotatesImages(t *testing.T) {
	ctx, _ := newTestContext(t)

	sc, err := NewSwapchain(ctx)
	if err != nil {
		t.Fatalf("NewSwapchain: %v", err)
	}
	sem, err := NewSemaphore(ctx)
	if err != nil {
		t.Fatalf("NewSemaphore: %v", err)
	}

	count := uint32(len(sc.Images()))
	for want := range count {
		got, err := sc.AcquireNextImage(time.Second, sem, nil)
		if err != nil {
			t.Fatalf("AcquireNextImage: %v", err)
		}
		if got != want {
			t.Fatalf("acquired image %d, want %d", got, want)
		}
	}
	// Wraps around after a full rotation.
	got, err := sc.AcquireNextImage(time.Second, sem, nil)
	if err != nil {
		t.Fatalf("AcquireNextImage: %v", err)
	}
	if got != 0 {
		t.Fatalf("acquired image %d after full rotation, want 0", got)
	}
}

func TestAcquireNeedsSignalTarget(t *testing.T) {
	ctx, _ := newTestContext(t)

	sc, err := NewSwapchain(ctx)
	if err != nil {
		t.Fatalf("NewSwapchain: %v", err)
	}
	if _, err := sc.AcquireNextImage(time.Second, nil, nil); !errors.Is(err, ErrIllegalState) {
		t.Fatalf("acquire without semaphore or fence: got %v, want ErrIllegalState", err)
	}
}

func TestPresentRecordsWaitSemaphore(t *testing.T) {
	ctx, dev := newTestContext(t)
	families := setupFamilies(t, ctx)

	sc, err := NewSwapchain(ctx)
	if err != nil {
		t.Fatalf("NewSwapchain: %v", err)
	}
	rendered, err := NewSemaphore(ctx)
	if err != nil {
		t.Fatalf("NewSemaphore: %v", err)
	}
	queue, err := families.Present().QueueOfPriority(1)
	if err != nil {
		t.Fatalf("QueueOfPriority: %v", err)
	}

	if err := sc.Present(2, queue, rendered); err != nil {
		t.Fatalf("Present: %v", err)
	}
	presents := dev.Presents()
	if len(presents) != 1 {
		t.Fatalf("got %d presents, want 1", len(presents))
	}
	if presents[0].ImageIndex != 2 || presents[0].WaitSemaphore != rendered.Handle() {
		t.Fatalf("present = %+v, want image 2 waiting on %v", presents[0], rendered.Handle())
	}

	if err := sc.Present(99, queue, rendered); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("present of bad index: got %v, want ErrOutOfRange", err)
	}
}

// hostProvider simulates a windowing layer sharing its GPU context,
// exposing the surface format it already renders in.
type hostProvider struct {
	driver.NullProvider
	format gputypes.TextureFormat
}

func (p hostProvider) SurfaceFormat() gputypes.TextureFormat { return p.format }

func TestSwapchainPrefersProviderFormat(t *testing.T) {
	dev := null.New()
	ctx, err := NewContextWithProvider(dev, null.NewSurface(640, 480),
		hostProvider{format: gputypes.TextureFormatRGBA8Unorm})
	if err != nil {
		t.Fatalf("NewContextWithProvider: %v", err)
	}

	sc, err := NewSwapchain(ctx)
	if err != nil {
		t.Fatalf("NewSwapchain: %v", err)
	}
	// The host's format beats the BGRA8 default when the surface lists it.
	if got := sc.Format(); got != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("format %v, want the provider's RGBA8Unorm", got)
	}

	// A provider with no opinion keeps the BGRA8 preference.
	plain, _ := newTestContext(t)
	sc2, err := NewSwapchain(plain)
	if err != nil {
		t.Fatalf("NewSwapchain: %v", err)
	}
	if got := sc2.Format(); got != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("format %v, want BGRA8Unorm", got)
	}
}
