package engine

import (
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gfxcore/driver"
	"github.com/gogpu/gfxcore/driver/null"
	"github.com/gogpu/gfxcore/gfx"
)

func newTestEngine(t *testing.T, stages ...StageRenderer) (*Engine, *null.Device) {
	t.Helper()
	dev := null.New()
	ctx, err := gfx.NewContext(dev, null.NewSurface(640, 480))
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	families, err := gfx.NewQueueFamilyCollection(ctx)
	if err != nil {
		t.Fatalf("NewQueueFamilyCollection: %v", err)
	}
	if err := families.Setup(ctx); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	eng, err := New(ctx, families, stages...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return eng, dev
}

func TestDrawChainsSemaphoresToPresent(t *testing.T) {
	eng, dev := newTestEngine(t)

	if err := eng.Draw(); err != nil {
		t.Fatalf("Draw: %v", err)
	}

	// One frame with the default clear stage submits twice: the stage and
	// the present transition.
	subs := dev.Submissions()
	if len(subs) != 2 {
		t.Fatalf("got %d submissions, want 2", len(subs))
	}
	stage := subs[0].Batches[0]
	transition := subs[1].Batches[0]

	if len(stage.Waits) != 1 || stage.Waits[0].Semaphore != eng.imageAvailable.Handle() {
		t.Errorf("stage waits %+v, want the acquire semaphore %v", stage.Waits, eng.imageAvailable.Handle())
	}
	if len(stage.Signals) != 1 {
		t.Fatalf("stage signals %d semaphores, want 1", len(stage.Signals))
	}
	if len(transition.Waits) != 1 || transition.Waits[0].Semaphore != stage.Signals[0] {
		t.Errorf("transition waits %+v, want the stage's signal %v", transition.Waits, stage.Signals[0])
	}
	if len(transition.Signals) != 1 {
		t.Fatalf("transition signals %d semaphores, want 1", len(transition.Signals))
	}

	presents := dev.Presents()
	if len(presents) != 1 {
		t.Fatalf("got %d presents, want 1", len(presents))
	}
	// Only the transition's signal gates presentation.
	if presents[0].WaitSemaphore != transition.Signals[0] {
		t.Errorf("present waits on %v, want the transition's signal %v",
			presents[0].WaitSemaphore, transition.Signals[0])
	}
	if presents[0].WaitSemaphore == stage.Signals[0] {
		t.Error("present must not wait on an intermediate stage semaphore")
	}
}

func TestDrawWithMultipleStages(t *testing.T) {
	stageA := NewClearStage(gputypes.Color{R: 1, A: 1})
	stageB := NewClearStage(gputypes.Color{B: 1, A: 1})
	eng, dev := newTestEngine(t, stageA, stageB)

	if err := eng.Draw(); err != nil {
		t.Fatalf("Draw: %v", err)
	}

	subs := dev.Submissions()
	if len(subs) != 3 {
		t.Fatalf("got %d submissions, want 3 (two stages + transition)", len(subs))
	}
	// Each submission waits on exactly the previous one's signal.
	prev := eng.imageAvailable.Handle()
	for i, sub := range subs {
		batch := sub.Batches[0]
		if len(batch.Waits) != 1 || batch.Waits[0].Semaphore != prev {
			t.Fatalf("submission %d waits %+v, want %v", i, batch.Waits, prev)
		}
		if len(batch.Signals) != 1 {
			t.Fatalf("submission %d signals %d semaphores, want 1", i, len(batch.Signals))
		}
		prev = batch.Signals[0]
	}
	if got := dev.Presents()[0].WaitSemaphore; got != prev {
		t.Fatalf("present waits on %v, want the chain's last signal %v", got, prev)
	}
}

func TestDrawAdvancesImageIndex(t *testing.T) {
	eng, dev := newTestEngine(t)

	frames := len(eng.Swapchain().Images()) + 1
	for range frames {
		if err := eng.Draw(); err != nil {
			t.Fatalf("Draw: %v", err)
		}
	}
	presents := dev.Presents()
	if len(presents) != frames {
		t.Fatalf("got %d presents, want %d", len(presents), frames)
	}
	count := uint32(len(eng.Swapchain().Images()))
	for i, p := range presents {
		if want := uint32(i) % count; p.ImageIndex != want {
			t.Errorf("frame %d presented image %d, want %d", i, p.ImageIndex, want)
		}
	}
}

func TestClearStagePreRecordsPerImage(t *testing.T) {
	eng, dev := newTestEngine(t)

	if err := eng.Draw(); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	stageCB := dev.Submissions()[0].Batches[0].CommandBuffers[0]
	cmds := dev.Commands(stageCB)
	if len(cmds) != 2 {
		t.Fatalf("clear stage recorded %d commands, want 2: %v", len(cmds), cmds)
	}
	if cmds[0][:15] != "PipelineBarrier" || cmds[1][:15] != "ClearColorImage" {
		t.Fatalf("unexpected clear recording: %v", cmds)
	}
}

func TestClearStageFinalState(t *testing.T) {
	stage := NewClearStage(gputypes.Color{})
	gotStage, gotLayout, gotAccess := stage.FinalState()
	if gotStage != driver.StageTransfer {
		t.Errorf("stage %v, want Transfer", gotStage)
	}
	if gotLayout != driver.LayoutTransferDst {
		t.Errorf("layout %v, want TransferDst", gotLayout)
	}
	if gotAccess != driver.AccessTransferWrite {
		t.Errorf("access %v, want TransferWrite", gotAccess)
	}
}

func TestDestroyReleasesEngineResources(t *testing.T) {
	eng, dev := newTestEngine(t)

	if err := eng.Draw(); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if err := eng.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	// Two pre-recorded batches: the clear stage's and the transitioner's,
	// one buffer per swapchain image each.
	images := len(eng.Swapchain().Images())
	if got := dev.DestroyCount(driver.KindCommandBuffer); got != 2*images {
		t.Errorf("%d command buffers freed, want %d", got, 2*images)
	}
	if got := dev.DestroyCount(driver.KindSemaphore); got != 3 {
		t.Errorf("%d semaphores destroyed, want 3 (acquire + stage + transition)", got)
	}
	if got := dev.DestroyCount(driver.KindSwapchain); got != 1 {
		t.Errorf("%d swapchains destroyed, want 1", got)
	}
}
