package gfx

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/gfxcore"
	"github.com/gogpu/gfxcore/driver"
)

// Object pairs one raw GPU handle with the Context it was created
// against, a debug name, and a protected flag. It owns destruction of the
// handle: every resource type in this package embeds an Object and
// releases its GPU side through Destroy.
//
// A protected Object wraps a handle whose underlying resource is owned
// elsewhere (swapchain-provided images, device-owned queues); Destroy on
// it is a no-op. At most one Object logically owns a given raw handle
// unless it is protected.
type Object struct {
	ctx       *Context
	handle    driver.Handle
	kind      driver.ObjectKind
	protected bool
	name      string
	destroyed bool
}

// NewObject wraps raw under ctx, taking ownership of its destruction
// unless protected.
func NewObject(ctx *Context, raw driver.Handle, kind driver.ObjectKind, protected bool) Object {
	return Object{
		ctx:       ctx,
		handle:    raw,
		kind:      kind,
		protected: protected,
		name:      "Unnamed",
	}
}

// Context returns the context the object was created against.
func (o *Object) Context() *Context { return o.ctx }

// Handle returns the wrapped raw handle.
func (o *Object) Handle() driver.Handle { return o.handle }

// Kind returns the GPU object kind of the wrapped handle.
func (o *Object) Kind() driver.ObjectKind { return o.kind }

// Protected reports whether destruction rights belong elsewhere.
func (o *Object) Protected() bool { return o.protected }

// Name returns the debug name. Objects start out as "Unnamed".
func (o *Object) Name() string { return o.name }

// SetName renames the object locally and issues a best-effort debug
// annotation call into the driver. An annotation failure is returned but
// does not roll back the local rename.
func (o *Object) SetName(name string) error {
	o.name = name
	dev, release, err := o.ctx.Borrow()
	if err != nil {
		return err
	}
	defer release()
	if err := dev.SetObjectName(o.kind, o.handle, name); err != nil {
		gfxcore.Logger().Warn("debug name annotation failed",
			slog.String("name", name), slog.Any("error", err))
		return fmt.Errorf("gfx: annotate %q: %w", name, err)
	}
	return nil
}

// Destroy releases the underlying GPU resource. Protected objects are
// never destroyed. Destroy is idempotent; the first call wins.
func (o *Object) Destroy() error {
	if o.protected || o.destroyed {
		return nil
	}
	o.destroyed = true
	gfxcore.Logger().Debug("destroying object",
		slog.String("name", o.name), slog.String("kind", o.kind.String()))
	dev, release, err := o.ctx.Borrow()
	if err != nil {
		return err
	}
	defer release()
	if err := dev.Destroy(o.kind, o.handle); err != nil {
		gfxcore.Logger().Warn("destroy failed",
			slog.String("name", o.name), slog.Any("error", err))
		return fmt.Errorf("gfx: destroy %q: %w", o.name, err)
	}
	return nil
}
