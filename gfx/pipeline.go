package gfx

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gfxcore/driver"
)

// PipelineLayout is the set-layout sequence a pipeline binds resources
// against. The layout keeps its set layouts alive but does not own them.
type PipelineLayout struct {
	Object
	setLayouts []*DescriptorSetLayout
}

// NewPipelineLayout creates a layout over the given set layouts, in
// binding order.
func NewPipelineLayout(ctx *Context, setLayouts []*DescriptorSetLayout) (*PipelineLayout, error) {
	raws := make([]driver.Handle, len(setLayouts))
	for i, l := range setLayouts {
		raws[i] = l.Handle()
	}
	dev, release, err := ctx.Borrow()
	if err != nil {
		return nil, err
	}
	defer release()
	raw, err := dev.CreatePipelineLayout(raws)
	if err != nil {
		return nil, fmt.Errorf("gfx: create pipeline layout: %w", err)
	}
	return &PipelineLayout{
		Object:     NewObject(ctx, raw, driver.KindPipelineLayout, false),
		setLayouts: setLayouts,
	}, nil
}

// SetLayouts returns the layout's set layouts in binding order.
func (l *PipelineLayout) SetLayouts() []*DescriptorSetLayout { return l.setLayouts }

// ShaderStage binds one entry point of a module to a pipeline stage.
type ShaderStage struct {
	Module     *ShaderModule
	Stage      gputypes.ShaderStage
	EntryPoint string
}

// GraphicsPipelineDescriptor describes a graphics pipeline to create.
type GraphicsPipelineDescriptor struct {
	Layout        *PipelineLayout
	RenderPass    *RenderPass
	Subpass       uint32
	Stages        []ShaderStage
	VertexBuffers []gputypes.VertexBufferLayout
	Topology      gputypes.PrimitiveTopology
	Viewport      driver.Viewport
}

// GraphicsPipeline is one compiled graphics pipeline state object.
type GraphicsPipeline struct {
	Object
	layout *PipelineLayout
}

// NewGraphicsPipeline creates a graphics pipeline from desc. At least
// one shader stage is required.
func NewGraphicsPipeline(ctx *Context, desc GraphicsPipelineDescriptor) (*GraphicsPipeline, error) {
	if len(desc.Stages) == 0 {
		return nil, fmt.Errorf("%w: graphics pipeline with no shader stages", ErrOutOfRange)
	}
	stages := make([]driver.ShaderStageDescriptor, len(desc.Stages))
	for i, s := range desc.Stages {
		stages[i] = driver.ShaderStageDescriptor{
			Module:     s.Module.Handle(),
			Stage:      s.Stage,
			EntryPoint: s.EntryPoint,
		}
	}
	dev, release, err := ctx.Borrow()
	if err != nil {
		return nil, err
	}
	defer release()
	raw, err := dev.CreateGraphicsPipeline(driver.GraphicsPipelineDescriptor{
		Layout:        desc.Layout.Handle(),
		RenderPass:    desc.RenderPass.Handle(),
		Subpass:       desc.Subpass,
		Stages:        stages,
		VertexBuffers: desc.VertexBuffers,
		Topology:      desc.Topology,
		Viewport:      desc.Viewport,
	})
	if err != nil {
		return nil, fmt.Errorf("gfx: create graphics pipeline: %w", err)
	}
	return &GraphicsPipeline{
		Object: NewObject(ctx, raw, driver.KindPipeline, false),
		layout: desc.Layout,
	}, nil
}

// Layout returns the pipeline's layout.
func (p *GraphicsPipeline) Layout() *PipelineLayout { return p.layout }
