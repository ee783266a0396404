package gfx

import (
	"fmt"
	"time"

	"github.com/gogpu/gfxcore/driver"
)

// Semaphore is a GPU-timeline execution dependency. It is signaled by a
// queue submission (or an image acquire) and consumed by a later
// submission's wait; it is never observable from the host. Each signal is
// consumed exactly once.
type Semaphore struct {
	Object
}

// NewSemaphore creates a semaphore in the unsignaled state.
func NewSemaphore(ctx *Context) (*Semaphore, error) {
	dev, release, err := ctx.Borrow()
	if err != nil {
		return nil, err
	}
	defer release()
	raw, err := dev.CreateSemaphore()
	if err != nil {
		return nil, fmt.Errorf("gfx: create semaphore: %w", err)
	}
	return &Semaphore{Object: NewObject(ctx, raw, driver.KindSemaphore, false)}, nil
}

// FenceStatus is the host-observable state of a fence.
type FenceStatus int

const (
	// FenceUnsignaled means the submission gating the fence has not
	// completed.
	FenceUnsignaled FenceStatus = iota

	// FenceSignaled means all work gating the fence has completed.
	FenceSignaled
)

// String returns the string representation of the status.
func (s FenceStatus) String() string {
	switch s {
	case FenceUnsignaled:
		return "Unsignaled"
	case FenceSignaled:
		return "Signaled"
	default:
		return fmt.Sprintf("FenceStatus(%d)", int(s))
	}
}

// Fence is a host-observable completion signal with explicit status,
// wait, and reset operations.
type Fence struct {
	Object
}

// NewFence creates a fence, optionally already signaled. Pre-signaled
// fences let a frame loop wait on "the previous frame" before the first
// frame exists.
func NewFence(ctx *Context, signaled bool) (*Fence, error) {
	dev, release, err := ctx.Borrow()
	if err != nil {
		return nil, err
	}
	defer release()
	raw, err := dev.CreateFence(signaled)
	if err != nil {
		return nil, fmt.Errorf("gfx: create fence: %w", err)
	}
	return &Fence{Object: NewObject(ctx, raw, driver.KindFence, false)}, nil
}

// Status polls the fence without blocking.
func (f *Fence) Status() (FenceStatus, error) {
	dev, release, err := f.ctx.Borrow()
	if err != nil {
		return FenceUnsignaled, err
	}
	defer release()
	signaled, err := dev.FenceStatus(f.handle)
	if err != nil {
		return FenceUnsignaled, fmt.Errorf("gfx: fence status: %w", err)
	}
	if signaled {
		return FenceSignaled, nil
	}
	return FenceUnsignaled, nil
}

// Signaled reports whether the fence is signaled.
func (f *Fence) Signaled() (bool, error) {
	status, err := f.Status()
	if err != nil {
		return false, err
	}
	return status == FenceSignaled, nil
}

// Wait blocks the calling thread until the fence signals or timeout
// elapses. A non-positive timeout waits indefinitely. This is one of the
// two thread-blocking operations in the package; keep it off the
// steady-state frame path.
func (f *Fence) Wait(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = time.Duration(1<<63 - 1)
	}
	dev, release, err := f.ctx.Borrow()
	if err != nil {
		return err
	}
	defer release()
	if err := dev.WaitForFence(f.handle, timeout); err != nil {
		return fmt.Errorf("gfx: fence wait: %w", err)
	}
	return nil
}

// Reset returns a signaled fence to the unsignaled state for reuse.
func (f *Fence) Reset() error {
	dev, release, err := f.ctx.Borrow()
	if err != nil {
		return err
	}
	defer release()
	if err := dev.ResetFence(f.handle); err != nil {
		return fmt.Errorf("gfx: fence reset: %w", err)
	}
	return nil
}
