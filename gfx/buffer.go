package gfx

import (
	"fmt"
	"io"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gfxcore/driver"
)

// Buffer is a GPU buffer with its backing memory. The buffer owns the
// memory: destroying the buffer frees both.
type Buffer struct {
	Object
	memory *Memory
	size   uint64
	usage  gputypes.BufferUsage
}

// NewBuffer creates a buffer of size bytes and binds fresh memory to it.
// Host-visible buffers can be written through Map; device-local buffers
// are filled by copy commands.
func NewBuffer(ctx *Context, size uint64, usage gputypes.BufferUsage, hostVisible bool) (*Buffer, error) {
	if size == 0 {
		return nil, fmt.Errorf("%w: zero-size buffer", ErrOutOfRange)
	}
	dev, release, err := ctx.Borrow()
	if err != nil {
		return nil, err
	}
	raw, err := dev.CreateBuffer(size, usage)
	if err != nil {
		release()
		return nil, fmt.Errorf("gfx: create buffer: %w", err)
	}
	reqs, err := dev.BufferMemoryRequirements(raw)
	release()
	if err != nil {
		return nil, fmt.Errorf("gfx: buffer memory requirements: %w", err)
	}

	allocSize := max(reqs.Size, size)
	memory, err := NewMemory(ctx, allocSize, hostVisible)
	if err != nil {
		return nil, err
	}

	dev, release, err = ctx.Borrow()
	if err != nil {
		return nil, err
	}
	defer release()
	if err := dev.BindBufferMemory(raw, memory.Handle()); err != nil {
		return nil, fmt.Errorf("gfx: bind buffer memory: %w", err)
	}
	return &Buffer{
		Object: NewObject(ctx, raw, driver.KindBuffer, false),
		memory: memory,
		size:   size,
		usage:  usage,
	}, nil
}

// NewBufferFromBytes creates a host-visible buffer pre-filled with data.
// Typically a staging buffer for a later device-local copy.
func NewBufferFromBytes(ctx *Context, data []byte, usage gputypes.BufferUsage) (*Buffer, error) {
	buf, err := NewBuffer(ctx, uint64(len(data)), usage, true)
	if err != nil {
		return nil, err
	}
	dst, err := buf.memory.MapAll()
	if err != nil {
		buf.Destroy()
		return nil, err
	}
	copy(dst, data)
	if err := buf.memory.Unmap(); err != nil {
		buf.Destroy()
		return nil, err
	}
	return buf, nil
}

// NewBufferFromReader creates a host-visible buffer filled from r until
// EOF. The core treats r as an opaque byte source.
func NewBufferFromReader(ctx *Context, r io.Reader, usage gputypes.BufferUsage) (*Buffer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gfx: read buffer contents: %w", err)
	}
	return NewBufferFromBytes(ctx, data, usage)
}

// Size returns the buffer size in bytes.
func (b *Buffer) Size() uint64 { return b.size }

// Usage returns the usage flags the buffer was created with.
func (b *Buffer) Usage() gputypes.BufferUsage { return b.usage }

// Memory returns the backing memory.
func (b *Buffer) Memory() *Memory { return b.memory }

// SetName renames the buffer and its backing memory.
func (b *Buffer) SetName(name string) error {
	if err := b.Object.SetName(name); err != nil {
		return err
	}
	return b.memory.SetName(name + ".memory")
}

// Destroy frees the buffer, then its backing memory.
func (b *Buffer) Destroy() error {
	if err := b.Object.Destroy(); err != nil {
		return err
	}
	return b.memory.Destroy()
}
