package gfx

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gfxcore/driver"
)

// DefaultSamplerDescriptor returns the engine default: linear filtering
// with clamp-to-edge addressing on all axes.
func DefaultSamplerDescriptor() driver.SamplerDescriptor {
	return driver.SamplerDescriptor{
		MinFilter:    gputypes.FilterModeLinear,
		MagFilter:    gputypes.FilterModeLinear,
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
	}
}

// Sampler controls how shaders filter and address texture reads.
type Sampler struct {
	Object
}

// NewSampler creates a sampler from desc.
func NewSampler(ctx *Context, desc driver.SamplerDescriptor) (*Sampler, error) {
	dev, release, err := ctx.Borrow()
	if err != nil {
		return nil, err
	}
	defer release()
	raw, err := dev.CreateSampler(desc)
	if err != nil {
		return nil, fmt.Errorf("gfx: create sampler: %w", err)
	}
	return &Sampler{Object: NewObject(ctx, raw, driver.KindSampler, false)}, nil
}
