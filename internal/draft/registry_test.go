package draft

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workflow-governance/backend/internal/clock"
	"workflow-governance/backend/pkg/models"
)

func TestRegistry_StoresAreScopedPerClient(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC))
	reg := NewRegistry(NewMemoryKV(), WithClock(clk))

	a := reg.For("tab-a")
	assert.Same(t, a, reg.For("tab-a"))
	b := reg.For("tab-b")
	assert.NotSame(t, a, b)

	w := models.Workflow{WorkflowContent: models.WorkflowContent{Name: "From tab A"}}
	require.NoError(t, a.Save(ctx, w))

	assert.True(t, a.Exists(ctx))
	assert.False(t, b.Exists(ctx))
}

func TestRegistry_Flush(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC))
	reg := NewRegistry(NewMemoryKV(), WithClock(clk), WithAutoSaveDelay(time.Second))

	s := reg.For("tab-a")
	s.AutoSave(ctx, models.Workflow{WorkflowContent: models.WorkflowContent{Name: "pending"}})
	reg.For("tab-b")

	assert.Equal(t, 1, reg.Flush())
	assert.True(t, s.Exists(ctx))
	assert.Equal(t, 0, reg.Flush())
}

func TestRegistry_EvictsIdleStores(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC))
	reg := NewRegistry(NewMemoryKV(), WithClock(clk), WithAutoSaveDelay(time.Hour))

	idle := reg.For("tab-a")
	require.NoError(t, idle.Save(ctx, models.Workflow{WorkflowContent: models.WorkflowContent{Name: "saved"}}))
	pending := reg.For("tab-b")
	pending.AutoSave(ctx, models.Workflow{WorkflowContent: models.WorkflowContent{Name: "pending"}})
	require.Equal(t, 2, reg.Len())

	clk.Advance(IdleEviction)
	reg.For("tab-c")

	assert.Equal(t, 2, reg.Len())
	assert.Same(t, pending, reg.For("tab-b"))
	again := reg.For("tab-a")
	assert.NotSame(t, idle, again)
	assert.True(t, again.Exists(ctx))
}

func TestRegistry_ClearForgetsStore(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC))
	reg := NewRegistry(NewMemoryKV(), WithClock(clk), WithAutoSaveDelay(time.Second))

	s := reg.For("tab-a")
	s.AutoSave(ctx, models.Workflow{WorkflowContent: models.WorkflowContent{Name: "pending"}})

	require.NoError(t, reg.Clear(ctx, "tab-a"))
	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, DebounceCancelled, s.AutoSaveState())
	assert.False(t, reg.For("tab-a").Exists(ctx))

	require.NoError(t, reg.Clear(ctx, "never-used"))
}
