package gfx

import (
	"fmt"
	"io"

	"github.com/gogpu/naga"

	"github.com/gogpu/gfxcore/driver"
)

// ShaderModule is one compiled SPIR-V module. A module may hold several
// entry points; a pipeline stage selects one by name.
type ShaderModule struct {
	Object
}

// NewShaderModule creates a module from SPIR-V words.
func NewShaderModule(ctx *Context, code []uint32) (*ShaderModule, error) {
	if len(code) == 0 {
		return nil, fmt.Errorf("%w: empty shader code", ErrOutOfRange)
	}
	dev, release, err := ctx.Borrow()
	if err != nil {
		return nil, err
	}
	defer release()
	raw, err := dev.CreateShaderModule(code)
	if err != nil {
		return nil, fmt.Errorf("gfx: create shader module: %w", err)
	}
	return &ShaderModule{Object: NewObject(ctx, raw, driver.KindShaderModule, false)}, nil
}

// NewShaderModuleFromReader reads SPIR-V bytes from r until EOF and
// creates a module from them.
func NewShaderModuleFromReader(ctx *Context, r io.Reader) (*ShaderModule, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gfx: read shader code: %w", err)
	}
	code, err := spirvWords(data)
	if err != nil {
		return nil, err
	}
	return NewShaderModule(ctx, code)
}

// CompileWGSL compiles WGSL source to a shader module.
func CompileWGSL(ctx *Context, wgslSource string) (*ShaderModule, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("gfx: compile shader: %w", err)
	}
	code, err := spirvWords(spirvBytes)
	if err != nil {
		return nil, err
	}
	return NewShaderModule(ctx, code)
}

// spirvWords converts SPIR-V bytes to little-endian 32-bit words.
func spirvWords(data []byte) ([]uint32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: SPIR-V length %d is not a multiple of 4", ErrOutOfRange, len(data))
	}
	code := make([]uint32, len(data)/4)
	for i := range code {
		code[i] = uint32(data[i*4]) |
			uint32(data[i*4+1])<<8 |
			uint32(data[i*4+2])<<16 |
			uint32(data[i*4+3])<<24
	}
	return code, nil
}
