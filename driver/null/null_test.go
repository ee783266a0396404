package null

import (
	"errors"
	"testing"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gfxcore/driver"
)

func TestRegisteredAsNull(t *testing.T) {
	if !driver.IsRegistered(driver.DriverNull) {
		t.Fatal("null driver not registered under driver.DriverNull")
	}
	dev, err := driver.Open(driver.DriverNull)
	if err != nil {
		t.Fatalf("Open(null) error = %v", err)
	}
	if dev.Name() != driver.DriverNull {
		t.Errorf("Name() = %q, want %q", dev.Name(), driver.DriverNull)
	}
}

func TestDeviceQueueBounds(t *testing.T) {
	d := New()

	q0, err := d.DeviceQueue(0, 0)
	if err != nil {
		t.Fatalf("DeviceQueue(0, 0) error = %v", err)
	}
	if q0 == driver.Null {
		t.Fatal("DeviceQueue returned null handle")
	}

	// Same (family, index) yields the same handle.
	again, err := d.DeviceQueue(0, 0)
	if err != nil {
		t.Fatalf("DeviceQueue(0, 0) second call error = %v", err)
	}
	if again != q0 {
		t.Errorf("DeviceQueue(0, 0) = %v on repeat, want stable %v", again, q0)
	}

	if _, err := d.DeviceQueue(0, 99); err == nil {
		t.Error("DeviceQueue with out-of-range index succeeded")
	}
	if _, err := d.DeviceQueue(42, 0); err == nil {
		t.Error("DeviceQueue with unknown family succeeded")
	}
}

func TestFenceLifecycle(t *testing.T) {
	d := New()

	f, err := d.CreateFence(false)
	if err != nil {
		t.Fatalf("CreateFence() error = %v", err)
	}

	signaled, err := d.FenceStatus(f)
	if err != nil {
		t.Fatalf("FenceStatus() error = %v", err)
	}
	if signaled {
		t.Error("fresh unsignaled fence reports signaled")
	}

	// Waiting on a fence no work will ever signal fails fast.
	if err := d.WaitForFence(f, time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Errorf("WaitForFence(unsignaled) error = %v, want ErrTimeout", err)
	}

	// A submission with the fence signals it.
	q, _ := d.DeviceQueue(0, 0)
	if err := d.QueueSubmit(q, nil, f); err != nil {
		t.Fatalf("QueueSubmit() error = %v", err)
	}
	if err := d.WaitForFence(f, time.Millisecond); err != nil {
		t.Errorf("WaitForFence(signaled) error = %v", err)
	}

	if err := d.ResetFence(f); err != nil {
		t.Fatalf("ResetFence() error = %v", err)
	}
	if signaled, _ := d.FenceStatus(f); signaled {
		t.Error("fence still signaled after ResetFence")
	}
}

func TestCommandRecordingState(t *testing.T) {
	d := New()
	pool, err := d.CreateCommandPool(0, true)
	if err != nil {
		t.Fatalf("CreateCommandPool() error = %v", err)
	}
	cbs, err := d.AllocateCommandBuffers(pool, 1)
	if err != nil {
		t.Fatalf("AllocateCommandBuffers() error = %v", err)
	}
	cb := cbs[0]

	// Recording before Begin is rejected.
	if err := d.CmdDraw(cb, 3, 1, 0, 0); !errors.Is(err, ErrNotRecording) {
		t.Errorf("CmdDraw before Begin error = %v, want ErrNotRecording", err)
	}

	if err := d.BeginCommandBuffer(cb, true, false); err != nil {
		t.Fatalf("BeginCommandBuffer() error = %v", err)
	}
	if err := d.CmdDraw(cb, 3, 1, 0, 0); err != nil {
		t.Fatalf("CmdDraw() error = %v", err)
	}
	if err := d.EndCommandBuffer(cb); err != nil {
		t.Fatalf("EndCommandBuffer() error = %v", err)
	}

	// Recording after End is rejected again.
	if err := d.CmdDraw(cb, 3, 1, 0, 0); !errors.Is(err, ErrNotRecording) {
		t.Errorf("CmdDraw after End error = %v, want ErrNotRecording", err)
	}

	cmds := d.Commands(cb)
	if len(cmds) != 1 || cmds[0] != "Draw vertices=3 instances=1" {
		t.Errorf("Commands() = %v, want one Draw entry", cmds)
	}

	// The log outlives the buffer; the handle does not.
	if err := d.FreeCommandBuffers(pool, cbs); err != nil {
		t.Fatalf("FreeCommandBuffers() error = %v", err)
	}
	if cmds := d.Commands(cb); len(cmds) != 1 {
		t.Errorf("Commands() after free = %v, want the recorded Draw retained", cmds)
	}
	if err := d.BeginCommandBuffer(cb, true, false); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("BeginCommandBuffer on freed handle error = %v, want ErrUnknownHandle", err)
	}
}

func TestSubmitRecordsBatches(t *testing.T) {
	d := New()
	q, _ := d.DeviceQueue(0, 0)
	sem, _ := d.CreateSemaphore()
	pool, _ := d.CreateCommandPool(0, false)
	cbs, _ := d.AllocateCommandBuffers(pool, 1)
	d.BeginCommandBuffer(cbs[0], true, false)
	d.EndCommandBuffer(cbs[0])

	batch := driver.SubmitInfo{
		CommandBuffers: cbs,
		Waits:          []driver.SemaphoreWait{{Semaphore: sem, Stage: driver.StageColorAttachmentOutput}},
		Signals:        []driver.Handle{sem},
	}
	if err := d.QueueSubmit(q, []driver.SubmitInfo{batch}, driver.Null); err != nil {
		t.Fatalf("QueueSubmit() error = %v", err)
	}

	subs := d.Submissions()
	if len(subs) != 1 {
		t.Fatalf("Submissions() count = %d, want 1", len(subs))
	}
	got := subs[0]
	if got.Queue != q {
		t.Errorf("recorded queue = %v, want %v", got.Queue, q)
	}
	if len(got.Batches) != 1 || len(got.Batches[0].Waits) != 1 || got.Batches[0].Waits[0].Semaphore != sem {
		t.Errorf("recorded batches = %+v, want the submitted wait on %v", got.Batches, sem)
	}
}

func TestSubmitWhileRecordingFails(t *testing.T) {
	d := New()
	q, _ := d.DeviceQueue(0, 0)
	pool, _ := d.CreateCommandPool(0, false)
	cbs, _ := d.AllocateCommandBuffers(pool, 1)
	d.BeginCommandBuffer(cbs[0], true, false)

	err := d.QueueSubmit(q, []driver.SubmitInfo{{CommandBuffers: cbs}}, driver.Null)
	if err == nil {
		t.Error("QueueSubmit of a recording command buffer succeeded")
	}
}

func TestDestroyCounting(t *testing.T) {
	d := New()

	f1, _ := d.CreateFence(false)
	f2, _ := d.CreateFence(false)
	if got := d.LiveCount(driver.KindFence); got != 2 {
		t.Fatalf("LiveCount(Fence) = %d, want 2", got)
	}

	if err := d.Destroy(driver.KindFence, f1); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if got := d.DestroyCount(driver.KindFence); got != 1 {
		t.Errorf("DestroyCount(Fence) = %d, want 1", got)
	}

	// Double destroy is detectable.
	if err := d.Destroy(driver.KindFence, f1); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("double Destroy error = %v, want ErrUnknownHandle", err)
	}

	// Wrong kind is detectable.
	if err := d.Destroy(driver.KindSemaphore, f2); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("Destroy with wrong kind error = %v, want ErrUnknownHandle", err)
	}

	// Null handle destroy is a no-op.
	if err := d.Destroy(driver.KindFence, driver.Null); err != nil {
		t.Errorf("Destroy(Null) error = %v", err)
	}
}

func TestSwapchainAcquireRoundRobin(t *testing.T) {
	d := New()
	sc, err := d.CreateSwapchain(driver.SwapchainDescriptor{
		MinImageCount: 3,
		Format:        gputypes.TextureFormatBGRA8Unorm,
		Width:         640,
		Height:        480,
	})
	if err != nil {
		t.Fatalf("CreateSwapchain() error = %v", err)
	}

	images, err := d.SwapchainImages(sc)
	if err != nil {
		t.Fatalf("SwapchainImages() error = %v", err)
	}
	if len(images) != 3 {
		t.Fatalf("SwapchainImages() count = %d, want 3", len(images))
	}

	sem, _ := d.CreateSemaphore()
	for want := range uint32(6) {
		idx, err := d.AcquireNextImage(sc, time.Second, sem, driver.Null)
		if err != nil {
			t.Fatalf("AcquireNextImage() error = %v", err)
		}
		if idx != want%3 {
			t.Errorf("acquire %d returned index %d, want %d", want, idx, want%3)
		}
	}

	// Destroying the swapchain takes its images with it.
	if err := d.Destroy(driver.KindSwapchain, sc); err != nil {
		t.Fatalf("Destroy(swapchain) error = %v", err)
	}
	if got := d.LiveCount(driver.KindImage); got != 0 {
		t.Errorf("LiveCount(Image) after swapchain destroy = %d, want 0", got)
	}
}

func TestPresentRecorded(t *testing.T) {
	d := New()
	q, _ := d.DeviceQueue(0, 0)
	sem, _ := d.CreateSemaphore()
	sc, _ := d.CreateSwapchain(driver.SwapchainDescriptor{
		MinImageCount: 2, Width: 64, Height: 64,
	})

	if err := d.QueuePresent(q, sc, 1, sem); err != nil {
		t.Fatalf("QueuePresent() error = %v", err)
	}
	if err := d.QueuePresent(q, sc, 5, sem); err == nil {
		t.Error("QueuePresent with out-of-range index succeeded")
	}

	presents := d.Presents()
	if len(presents) != 1 {
		t.Fatalf("Presents() count = %d, want 1", len(presents))
	}
	if presents[0].ImageIndex != 1 || presents[0].WaitSemaphore != sem {
		t.Errorf("recorded present = %+v, want index 1 waiting on %v", presents[0], sem)
	}
}

func TestMapMemoryRoundTrip(t *testing.T) {
	d := New()

	mem, err := d.AllocateMemory(64, true)
	if err != nil {
		t.Fatalf("AllocateMemory() error = %v", err)
	}

	data, err := d.MapMemory(mem, 16, 4)
	if err != nil {
		t.Fatalf("MapMemory() error = %v", err)
	}
	copy(data, []byte{1, 2, 3, 4})
	if err := d.UnmapMemory(mem); err != nil {
		t.Fatalf("UnmapMemory() error = %v", err)
	}

	again, err := d.MapMemory(mem, 16, 4)
	if err != nil {
		t.Fatalf("second MapMemory() error = %v", err)
	}
	if again[0] != 1 || again[3] != 4 {
		t.Errorf("mapped data = %v, want write to persist", again)
	}

	if _, err := d.MapMemory(mem, 60, 8); err == nil {
		t.Error("MapMemory past end of allocation succeeded")
	}

	deviceLocal, _ := d.AllocateMemory(64, false)
	if _, err := d.MapMemory(deviceLocal, 0, 4); err == nil {
		t.Error("MapMemory of device-local memory succeeded")
	}
}

func TestObjectNames(t *testing.T) {
	d := New()
	f, _ := d.CreateFence(false)

	if err := d.SetObjectName(driver.KindFence, f, "frame fence"); err != nil {
		t.Fatalf("SetObjectName() error = %v", err)
	}
	if got := d.ObjectName(f); got != "frame fence" {
		t.Errorf("ObjectName() = %q, want %q", got, "frame fence")
	}

	if err := d.SetObjectName(driver.KindFence, driver.Handle(9999), "x"); err == nil {
		t.Error("SetObjectName on unknown handle succeeded")
	}
}

func TestFailNextInjection(t *testing.T) {
	d := New()
	boom := errors.New("boom")
	d.FailNext("CreateFence", boom)

	if _, err := d.CreateFence(false); !errors.Is(err, boom) {
		t.Errorf("CreateFence error = %v, want injected boom", err)
	}

	// One-shot: the next call succeeds.
	if _, err := d.CreateFence(false); err != nil {
		t.Errorf("CreateFence after injection error = %v", err)
	}
}
