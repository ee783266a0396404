package gfx

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gfxcore/driver"
)

func newUniformSetLayout(t *testing.T, ctx *Context) *DescriptorSetLayout {
	t.Helper()
	layout, err := NewDescriptorSetLayout(ctx, []driver.DescriptorSetLayoutBinding{{
		Binding: 0,
		Type:    driver.DescriptorUniformBuffer,
		Count:   1,
		Stages:  gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
	}})
	if err != nil {
		t.Fatalf("NewDescriptorSetLayout: %v", err)
	}
	return layout
}

func newUniformPool(t *testing.T, ctx *Context) *DescriptorPool {
	t.Helper()
	pool, err := NewDescriptorPool(ctx, 8, []driver.DescriptorPoolSize{
		{Type: driver.DescriptorUniformBuffer, Count: 8},
	})
	if err != nil {
		t.Fatalf("NewDescriptorPool: %v", err)
	}
	return pool
}

func TestDescriptorPoolZeroCapacity(t *testing.T) {
	ctx, _ := newTestContext(t)
	if _, err := NewDescriptorPool(ctx, 0, nil); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("zero-capacity pool: got %v, want ErrOutOfRange", err)
	}
}

func TestDescriptorSetBatchLifecycle(t *testing.T) {
	ctx, dev := newTestContext(t)
	layout := newUniformSetLayout(t, ctx)
	pool := newUniformPool(t, ctx)

	h, sets, err := pool.CreateDescriptorSets([]*DescriptorSetLayout{layout, layout})
	if err != nil {
		t.Fatalf("CreateDescriptorSets: %v", err)
	}
	if len(sets) != 2 {
		t.Fatalf("got %d sets, want 2", len(sets))
	}
	for _, set := range sets {
		if set.Layout() != layout {
			t.Error("set does not reference its layout")
		}
		if !set.Protected() {
			t.Error("descriptor sets must be protected")
		}
	}

	got, err := pool.DescriptorSets(h)
	if err != nil {
		t.Fatalf("DescriptorSets: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("lookup returned %d sets, want 2", len(got))
	}

	if err := pool.DestroyDescriptorSets(h); err != nil {
		t.Fatalf("DestroyDescriptorSets: %v", err)
	}
	if _, err := pool.DescriptorSets(h); !errors.Is(err, ErrNotFound) {
		t.Fatalf("lookup of freed batch: got %v, want ErrNotFound", err)
	}
	if got := dev.DestroyCount(driver.KindDescriptorSet); got != 2 {
		t.Fatalf("%d sets freed, want 2", got)
	}
}

func TestWriteUniformBuffersRangeCheck(t *testing.T) {
	ctx, _ := newTestContext(t)
	layout := newUniformSetLayout(t, ctx)
	pool := newUniformPool(t, ctx)

	_, sets, err := pool.CreateDescriptorSets([]*DescriptorSetLayout{layout})
	if err != nil {
		t.Fatalf("CreateDescriptorSets: %v", err)
	}
	buf, err := NewBuffer(ctx, 64, gputypes.BufferUsageUniform, false)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}

	err = sets[0].WriteUniformBuffers(0, 0, []BufferRange{{Buffer: buf, Offset: 32, Range: 64}})
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("out-of-range write: got %v, want ErrOutOfRange", err)
	}
	if err := sets[0].WriteUniformBuffers(0, 0, []BufferRange{{Buffer: buf, Offset: 0, Range: 64}}); err != nil {
		t.Fatalf("in-range write: %v", err)
	}
}

func TestWriteCombinedImageSampler(t *testing.T) {
	ctx, _ := newTestContext(t)

	layout, err := NewDescriptorSetLayout(ctx, []driver.DescriptorSetLayoutBinding{{
		Binding: 0,
		Type:    driver.DescriptorCombinedImageSampler,
		Count:   1,
		Stages:  gputypes.ShaderStageFragment,
	}})
	if err != nil {
		t.Fatalf("NewDescriptorSetLayout: %v", err)
	}
	pool, err := NewDescriptorPool(ctx, 1, []driver.DescriptorPoolSize{
		{Type: driver.DescriptorCombinedImageSampler, Count: 1},
	})
	if err != nil {
		t.Fatalf("NewDescriptorPool: %v", err)
	}
	_, sets, err := pool.CreateDescriptorSets([]*DescriptorSetLayout{layout})
	if err != nil {
		t.Fatalf("CreateDescriptorSets: %v", err)
	}

	img, err := NewImage2D(ctx, 8, 8, gputypes.TextureFormatRGBA8Unorm, gputypes.TextureUsageTextureBinding)
	if err != nil {
		t.Fatalf("NewImage2D: %v", err)
	}
	view, err := img.View(img.RangeColorBasic())
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	sampler, err := NewSampler(ctx, DefaultSamplerDescriptor())
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}
	if err := sets[0].WriteCombinedImageSampler(0, 0, view, sampler, driver.LayoutShaderReadOnly); err != nil {
		t.Fatalf("WriteCombinedImageSampler: %v", err)
	}
}

func TestDescriptorPoolDestroyFreesBatches(t *testing.T) {
	ctx, dev := newTestContext(t)
	layout := newUniformSetLayout(t, ctx)
	pool := newUniformPool(t, ctx)

	if _, _, err := pool.CreateDescriptorSets([]*DescriptorSetLayout{layout}); err != nil {
		t.Fatalf("CreateDescriptorSets: %v", err)
	}
	if err := pool.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if got := dev.DestroyCount(driver.KindDescriptorSet); got != 1 {
		t.Errorf("%d sets freed, want 1", got)
	}
	if got := dev.DestroyCount(driver.KindDescriptorPool); got != 1 {
		t.Errorf("%d pools destroyed, want 1", got)
	}
}

func TestCreateDescriptorSetsUnwindsOnNameFailure(t *testing.T) {
	ctx, dev := newTestContext(t)
	layout := newUniformSetLayout(t, ctx)
	pool := newUniformPool(t, ctx)

	boom := errors.New("boom")
	dev.FailNext("SetObjectName", boom)
	_, _, err := pool.CreateDescriptorSets([]*DescriptorSetLayout{layout, layout})
	if !errors.Is(err, boom) {
		t.Fatalf("CreateDescriptorSets: got %v, want the injected naming failure", err)
	}

	// The failed batch is fully unwound: nothing stays in the pool.
	if got := dev.LiveCount(driver.KindDescriptorSet); got != 0 {
		t.Errorf("%d descriptor sets left live after failed create, want 0", got)
	}
	if got := dev.DestroyCount(driver.KindDescriptorSet); got != 2 {
		t.Errorf("%d descriptor sets freed, want 2", got)
	}
}
