package gfx

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/gfxcore/driver"
	"github.com/gogpu/gfxcore/driver/null"
)

func TestCollectionRoleSelection(t *testing.T) {
	ctx, _ := newTestContext(t)

	families, err := NewQueueFamilyCollection(ctx)
	if err != nil {
		t.Fatalf("NewQueueFamilyCollection: %v", err)
	}
	// The null device's family 0 is the do-everything family, so all three
	// roles resolve to it.
	if got := families.Present().Index(); got != 0 {
		t.Errorf("present family index %d, want 0", got)
	}
	if got := families.Graphics().Index(); got != 0 {
		t.Errorf("graphics family index %d, want 0", got)
	}
	if got := families.Transfer().Index(); got != 0 {
		t.Errorf("transfer family index %d, want 0", got)
	}
}

func TestGraphicsFamilyMustPresent(t *testing.T) {
	dev := null.NewWithFamilies([]driver.QueueFamilyProperties{
		{Index: 0, QueueCount: 1, Graphics: true, Compute: true, Transfer: true},
		{Index: 1, QueueCount: 1, Transfer: true, Present: true},
	})
	ctx, err := NewContext(dev, null.NewSurface(64, 64))
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	// Family 0 draws but cannot present; the graphics role requires both.
	if _, err := NewQueueFamilyCollection(ctx); err == nil {
		t.Fatal("expected no graphics+present family to be an error")
	}
}

func TestQueuePrioritiesDescend(t *testing.T) {
	f := QueueFamily{queueCount: 4}
	got := f.QueuePriorities()
	want := []float32{1, 0.75, 0.5, 0.25}
	if !slices.Equal(got, want) {
		t.Fatalf("QueuePriorities() = %v, want %v", got, want)
	}
}

func TestReduceFamilyPrioritiesToUnique(t *testing.T) {
	tests := []struct {
		name string
		in   []FamilyPriorities
		want []FamilyPriorities
	}{
		{
			name: "distinct indices kept",
			in: []FamilyPriorities{
				{Index: 0, Priorities: []float32{1}},
				{Index: 1, Priorities: []float32{1, 0.5}},
			},
			want: []FamilyPriorities{
				{Index: 0, Priorities: []float32{1}},
				{Index: 1, Priorities: []float32{1, 0.5}},
			},
		},
		{
			name: "duplicate keeps greater list",
			in: []FamilyPriorities{
				{Index: 0, Priorities: []float32{1, 0.5}},
				{Index: 0, Priorities: []float32{1, 0.75}},
			},
			want: []FamilyPriorities{
				{Index: 0, Priorities: []float32{1, 0.75}},
			},
		},
		{
			name: "longer list wins on shared prefix",
			in: []FamilyPriorities{
				{Index: 0, Priorities: []float32{1, 0.5, 0.25}},
				{Index: 0, Priorities: []float32{1, 0.5}},
			},
			want: []FamilyPriorities{
				{Index: 0, Priorities: []float32{1, 0.5, 0.25}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reduceFamilyPrioritiesToUnique(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d entries, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].Index != tt.want[i].Index || !slices.Equal(got[i].Priorities, tt.want[i].Priorities) {
					t.Errorf("entry %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCollectionQueuePrioritiesDeduplicated(t *testing.T) {
	ctx, _ := newTestContext(t)

	families, err := NewQueueFamilyCollection(ctx)
	if err != nil {
		t.Fatalf("NewQueueFamilyCollection: %v", err)
	}
	// All three roles share family 0 on the null device; one entry remains.
	got := families.QueuePriorities()
	if len(got) != 1 {
		t.Fatalf("got %d family entries, want 1", len(got))
	}
	if got[0].Index != 0 || len(got[0].Priorities) != 3 {
		t.Fatalf("got %+v, want family 0 with 3 priorities", got[0])
	}
}

func TestQueueOfPriority(t *testing.T) {
	ctx, _ := newTestContext(t)
	families := setupFamilies(t, ctx)
	graphics := families.Graphics() // 3 queues on the null device

	tests := []struct {
		priority float32
		want     int
	}{
		{1.0, 0},
		{0.9, 0},
		{0.5, 1},
		{0.0, 2},
		{-1.0, 2}, // clamped to 0
		{2.0, 0},  // clamped to 1
	}
	for _, tt := range tests {
		queue, err := graphics.QueueOfPriority(tt.priority)
		if err != nil {
			t.Fatalf("QueueOfPriority(%v): %v", tt.priority, err)
		}
		if queue != graphics.Queues()[tt.want] {
			t.Errorf("QueueOfPriority(%v) = %v, want queue %d", tt.priority, queue.Name(), tt.want)
		}
	}
}

func TestQueueOfPriorityBeforeSetup(t *testing.T) {
	ctx, _ := newTestContext(t)
	families, err := NewQueueFamilyCollection(ctx)
	if err != nil {
		t.Fatalf("NewQueueFamilyCollection: %v", err)
	}
	if _, err := families.Graphics().QueueOfPriority(1); !errors.Is(err, ErrIllegalState) {
		t.Fatalf("QueueOfPriority before Setup: got %v, want ErrIllegalState", err)
	}
}

func TestQueueNInPriorityRange(t *testing.T) {
	ctx, _ := newTestContext(t)
	families := setupFamilies(t, ctx)
	graphics := families.Graphics() // 3 queues

	tests := []struct {
		name   string
		n      int
		lo, hi float32
		want   int
	}{
		{"window top half first", 0, 0.5, 1.0, 0},
		{"window top half second", 1, 0.5, 1.0, 1},
		{"ordinal wraps", 2, 0.5, 1.0, 0},
		{"reversed bounds reordered", 1, 1.0, 0.5, 1},
		{"zero-width window", 5, 1.0, 1.0, 0},
		{"bounds clamped", 0, -2.0, 3.0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue, err := graphics.QueueNInPriorityRange(tt.n, tt.lo, tt.hi)
			if err != nil {
				t.Fatalf("QueueNInPriorityRange(%d, %v, %v): %v", tt.n, tt.lo, tt.hi, err)
			}
			if queue != graphics.Queues()[tt.want] {
				t.Errorf("got %v, want queue %d", queue.Name(), tt.want)
			}
		})
	}
}

func TestQueueNInPriorityRangeNegativeOrdinal(t *testing.T) {
	ctx, _ := newTestContext(t)
	families := setupFamilies(t, ctx)

	if _, err := families.Graphics().QueueNInPriorityRange(-1, 0, 1); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("negative ordinal: got %v, want ErrOutOfRange", err)
	}
}

func TestSetupTwiceFails(t *testing.T) {
	ctx, _ := newTestContext(t)
	families := setupFamilies(t, ctx)

	if err := families.Present().Setup(ctx); !errors.Is(err, ErrIllegalState) {
		t.Fatalf("second Setup: got %v, want ErrIllegalState", err)
	}
}

func TestSetupNamesQueues(t *testing.T) {
	ctx, dev := newTestContext(t)
	families := setupFamilies(t, ctx)

	queue := families.Graphics().Queues()[1]
	if got, want := queue.Name(), "queue_family_collection.graphics.queues[1]"; got != want {
		t.Errorf("queue name %q, want %q", got, want)
	}
	// All three roles resolve to hardware family 0 on the null device and
	// Setup runs present, graphics, transfer in order, so the shared
	// driver handle ends up carrying the last role's name.
	if got, want := dev.ObjectName(queue.Handle()), "queue_family_collection.transfer.queues[1]"; got != want {
		t.Errorf("driver-side queue name %q, want %q", got, want)
	}
}

func TestSubmitChainsSemaphores(t *testing.T) {
	ctx, dev := newTestContext(t)
	families := setupFamilies(t, ctx)

	wait, err := NewSemaphore(ctx)
	if err != nil {
		t.Fatalf("NewSemaphore: %v", err)
	}
	signal, err := NewSemaphore(ctx)
	if err != nil {
		t.Fatalf("NewSemaphore: %v", err)
	}
	queue, err := families.Graphics().QueueOfPriority(1)
	if err != nil {
		t.Fatalf("QueueOfPriority: %v", err)
	}
	err = queue.Submit(nil,
		[]SemaphoreWait{{Semaphore: wait, Stage: driver.StageColorAttachmentOutput}},
		[]*Semaphore{signal}, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	subs := dev.Submissions()
	if len(subs) != 1 || len(subs[0].Batches) != 1 {
		t.Fatalf("got %d submissions, want 1 with 1 batch", len(subs))
	}
	batch := subs[0].Batches[0]
	if len(batch.Waits) != 1 || batch.Waits[0].Semaphore != wait.Handle() {
		t.Errorf("batch waits = %+v, want wait on %v", batch.Waits, wait.Handle())
	}
	if batch.Waits[0].Stage != driver.StageColorAttachmentOutput {
		t.Errorf("wait stage = %v, want ColorAttachmentOutput", batch.Waits[0].Stage)
	}
	if len(batch.Signals) != 1 || batch.Signals[0] != signal.Handle() {
		t.Errorf("batch signals = %+v, want signal of %v", batch.Signals, signal.Handle())
	}
}

func TestSubmitRejectsRecordingBuffer(t *testing.T) {
	ctx, dev := newTestContext(t)
	families := setupFamilies(t, ctx)

	_, cbs, err := families.Graphics().CommandPools().Transient().CreateCommandBuffers(1)
	if err != nil {
		t.Fatalf("CreateCommandBuffers: %v", err)
	}
	if _, err := cbs[0].Begin(true, false); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	queue, err := families.Graphics().QueueOfPriority(1)
	if err != nil {
		t.Fatalf("QueueOfPriority: %v", err)
	}

	// A buffer still being recorded never reaches the driver.
	if err := queue.Submit(cbs, nil, nil, nil); !errors.Is(err, ErrIllegalState) {
		t.Fatalf("Submit of recording buffer: got %v, want ErrIllegalState", err)
	}
	if got := len(dev.Submissions()); got != 0 {
		t.Fatalf("got %d submissions, want 0", got)
	}
}
