// Package gfx is the resource and command-submission core: ownership
// wrappers tying GPU objects to a shared Context, the queue-family /
// command-pool / command-buffer hierarchy, a scoped recording state
// machine, and the synchronization primitives the frame loop chains on.
//
// All of gfx is single-threaded by design: one control thread records and
// submits, the GPU executes asynchronously. The Context's borrow check
// exists to catch re-entrant exclusive access bugs on that one thread, not
// to make the package concurrency-safe.
package gfx

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gfxcore"
	"github.com/gogpu/gfxcore/driver"
)

// Context is the shared device bundle every GPU object holds a reference
// to. It is created once at startup, owned by the engine, and borrowed
// (never owned) by every object created against it. Exactly one Context
// exists per running engine instance.
type Context struct {
	device   driver.Device
	surface  driver.Surface
	provider driver.Provider

	// borrows tracks the runtime borrow state: 0 free, >0 that many
	// shared borrows, -1 exclusively borrowed.
	borrows int

	closed bool
}

// NewContext creates a context over an opened device and its surface.
func NewContext(device driver.Device, surface driver.Surface) (*Context, error) {
	if device == nil {
		return nil, errors.New("gfx: nil device")
	}
	gfxcore.Logger().Info("context created", slog.String("driver", device.Name()))
	return &Context{
		device:   device,
		surface:  surface,
		provider: driver.NullProvider{},
	}, nil
}

// NewContextWithProvider creates a context whose device wraps GPU context
// objects shared with a host application.
func NewContextWithProvider(device driver.Device, surface driver.Surface, provider driver.Provider) (*Context, error) {
	ctx, err := NewContext(device, surface)
	if err != nil {
		return nil, err
	}
	if provider != nil {
		ctx.provider = provider
	}
	return ctx, nil
}

// Surface returns the window-system surface the context presents to.
func (c *Context) Surface() driver.Surface { return c.surface }

// Provider returns the host-shared GPU context objects, or the null
// provider when the device owns its context outright.
func (c *Context) Provider() driver.Provider { return c.provider }

// Borrow acquires shared access to the device. The returned release
// function must be called when the borrow ends; borrows do not nest
// across an exclusive borrow.
func (c *Context) Borrow() (driver.Device, func(), error) {
	if c.closed {
		return nil, nil, fmt.Errorf("%w: context is closed", ErrIllegalState)
	}
	if c.borrows < 0 {
		return nil, nil, fmt.Errorf("%w: shared borrow while exclusively borrowed", ErrBorrowConflict)
	}
	c.borrows++
	released := false
	return c.device, func() {
		if !released {
			released = true
			c.borrows--
		}
	}, nil
}

// BorrowMut acquires exclusive access to the device. Re-entrant exclusive
// access, or exclusive access while shared borrows are live, is a
// programming error surfaced as ErrBorrowConflict.
func (c *Context) BorrowMut() (driver.Device, func(), error) {
	if c.closed {
		return nil, nil, fmt.Errorf("%w: context is closed", ErrIllegalState)
	}
	if c.borrows != 0 {
		return nil, nil, fmt.Errorf("%w: exclusive borrow while context is borrowed", ErrBorrowConflict)
	}
	c.borrows = -1
	released := false
	return c.device, func() {
		if !released {
			released = true
			c.borrows = 0
		}
	}, nil
}

// WaitIdle blocks until every queue on the device has drained. Used for
// the explicit idle-then-teardown sequence and nowhere on the frame path.
func (c *Context) WaitIdle() error {
	dev, release, err := c.Borrow()
	if err != nil {
		return err
	}
	defer release()
	if err := dev.DeviceWaitIdle(); err != nil {
		return fmt.Errorf("gfx: device idle wait: %w", err)
	}
	return nil
}

// Close waits for the device to go idle and shuts the context down.
// Objects created against the context must be destroyed before Close.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	if err := c.WaitIdle(); err != nil {
		return err
	}
	c.closed = true
	gfxcore.Logger().Info("context closed", slog.String("driver", c.device.Name()))
	return nil
}
