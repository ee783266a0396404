package gfx

import (
	"fmt"

	"github.com/gogpu/gfxcore/driver"
)

// Memory is one device memory allocation. Host-visible allocations can be
// mapped into the address space; device-local ones cannot.
type Memory struct {
	Object
	size        uint64
	hostVisible bool
	mapped      bool
}

// NewMemory allocates size bytes of device memory.
func NewMemory(ctx *Context, size uint64, hostVisible bool) (*Memory, error) {
	if size == 0 {
		return nil, fmt.Errorf("%w: zero-size memory allocation", ErrOutOfRange)
	}
	dev, release, err := ctx.Borrow()
	if err != nil {
		return nil, err
	}
	defer release()
	raw, err := dev.AllocateMemory(size, hostVisible)
	if err != nil {
		return nil, fmt.Errorf("gfx: allocate memory: %w", err)
	}
	return &Memory{
		Object:      NewObject(ctx, raw, driver.KindMemory, false),
		size:        size,
		hostVisible: hostVisible,
	}, nil
}

// Size returns the allocation size in bytes.
func (m *Memory) Size() uint64 { return m.size }

// HostVisible reports whether the allocation can be mapped.
func (m *Memory) HostVisible() bool { return m.hostVisible }

// Map maps the byte range [offset, offset+size) and returns it. Only one
// mapping may be active at a time; Unmap releases it.
func (m *Memory) Map(offset, size uint64) ([]byte, error) {
	if !m.hostVisible {
		return nil, fmt.Errorf("%w: memory %q is not host-visible", ErrIllegalState, m.Name())
	}
	if m.mapped {
		return nil, fmt.Errorf("%w: memory %q is already mapped", ErrIllegalState, m.Name())
	}
	if offset+size > m.size {
		return nil, fmt.Errorf("%w: map range [%d, %d) exceeds allocation size %d",
			ErrOutOfRange, offset, offset+size, m.size)
	}
	dev, release, err := m.ctx.Borrow()
	if err != nil {
		return nil, err
	}
	defer release()
	data, err := dev.MapMemory(m.handle, offset, size)
	if err != nil {
		return nil, fmt.Errorf("gfx: map memory: %w", err)
	}
	m.mapped = true
	return data, nil
}

// MapAll maps the whole allocation.
func (m *Memory) MapAll() ([]byte, error) {
	return m.Map(0, m.size)
}

// Unmap releases the active mapping. Unmapping unmapped memory is a
// no-op.
func (m *Memory) Unmap() error {
	if !m.mapped {
		return nil
	}
	dev, release, err := m.ctx.Borrow()
	if err != nil {
		return err
	}
	defer release()
	if err := dev.UnmapMemory(m.handle); err != nil {
		return fmt.Errorf("gfx: unmap memory: %w", err)
	}
	m.mapped = false
	return nil
}
