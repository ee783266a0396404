package gfx

import (
	"errors"
	"testing"
	"time"

	"github.com/gogpu/gfxcore/driver/null"
)

func TestFenceStartsUnsignaled(t *testing.T) {
	ctx, _ := newTestContext(t)

	fence, err := NewFence(ctx, false)
	if err != nil {
		t.Fatalf("NewFence: %v", err)
	}
	status, err := fence.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != FenceUnsignaled {
		t.Fatalf("status %v, want Unsignaled", status)
	}
}

func TestFencePreSignaled(t *testing.T) {
	ctx, _ := newTestContext(t)

	fence, err := NewFence(ctx, true)
	if err != nil {
		t.Fatalf("NewFence: %v", err)
	}
	signaled, err := fence.Signaled()
	if err != nil {
		t.Fatalf("Signaled: %v", err)
	}
	if !signaled {
		t.Fatal("pre-signaled fence reports unsignaled")
	}
	if err := fence.Wait(time.Second); err != nil {
		t.Fatalf("Wait on signaled fence: %v", err)
	}

	if err := fence.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	signaled, err = fence.Signaled()
	if err != nil {
		t.Fatalf("Signaled after Reset: %v", err)
	}
	if signaled {
		t.Fatal("fence still signaled after Reset")
	}
}

func TestFenceWaitTimeout(t *testing.T) {
	ctx, _ := newTestContext(t)

	fence, err := NewFence(ctx, false)
	if err != nil {
		t.Fatalf("NewFence: %v", err)
	}
	// On the null device work completes instantly, so an unsignaled fence
	// can never signal; the wait fails rather than sleeping.
	if err := fence.Wait(time.Millisecond); !errors.Is(err, null.ErrTimeout) {
		t.Fatalf("Wait: got %v, want ErrTimeout", err)
	}
}

func TestFenceSignaledBySubmit(t *testing.T) {
	ctx, _ := newTestContext(t)
	families := setupFamilies(t, ctx)

	fence, err := NewFence(ctx, false)
	if err != nil {
		t.Fatalf("NewFence: %v", err)
	}
	queue, err := families.Graphics().QueueOfPriority(1)
	if err != nil {
		t.Fatalf("QueueOfPriority: %v", err)
	}
	if err := queue.Submit(nil, nil, nil, fence); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	signaled, err := fence.Signaled()
	if err != nil {
		t.Fatalf("Signaled: %v", err)
	}
	if !signaled {
		t.Fatal("fence not signaled after its submission completed")
	}
}

func TestFenceStatusString(t *testing.T) {
	tests := []struct {
		status FenceStatus
		want   string
	}{
		{FenceUnsignaled, "Unsignaled"},
		{FenceSignaled, "Signaled"},
		{FenceStatus(7), "FenceStatus(7)"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("FenceStatus(%d).String() = %q, want %q", int(tt.status), got, tt.want)
		}
	}
}
