package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pangents/orchestrator/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	store, err := NewStore(db, zaptest.NewLogger(t))
	require.NoError(t, err)
	return store
}

func sampleDefinition(name string) *Definition {
	return &Definition{
		Name: name,
		Nodes: []Node{
			{ID: "t1", Type: NodeTypeTrigger, Data: map[string]any{"payload": map[string]any{"x": float64(1)}}},
			{ID: "n1", Type: NodeTypeCustom, Data: map[string]any{"label": "carrier_vetting", "dot": "125550"}},
			{ID: "o1", Type: NodeTypeOutput},
		},
		Edges: []Edge{
			{Source: "t1", Target: "n1"},
			{Source: "n1", Target: "o1"},
		},
	}
}

func TestStore_CreateGeneratesID(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Create(context.Background(), "acme", sampleDefinition("vetting"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "wf_"), "generated ids carry the wf_ prefix, got %s", id)
	assert.Len(t, id, 11)
}

func TestStore_CreateKeepsClientID(t *testing.T) {
	store := newTestStore(t)

	def := sampleDefinition("vetting")
	def.ID = "my-workflow"
	id, err := store.Create(context.Background(), "acme", def)
	require.NoError(t, err)
	assert.Equal(t, "my-workflow", id)
}

func TestStore_ReplaceRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	def := sampleDefinition("vetting")
	require.NoError(t, store.Replace(ctx, "acme", "wf_1", def))

	got, err := store.Get(ctx, "acme", "wf_1")
	require.NoError(t, err)

	assert.Equal(t, "wf_1", got.ID)
	assert.Equal(t, "acme", got.TenantID)
	assert.Equal(t, def.Name, got.Name)
	assert.Equal(t, def.Nodes, got.Nodes)
	assert.Equal(t, def.Edges, got.Edges)
	assert.False(t, got.UpdatedAt.IsZero(), "updated_at is server-stamped")
}

func TestStore_ReplaceOverwritesInFull(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Replace(ctx, "acme", "wf_1", sampleDefinition("first")))
	first, err := store.Get(ctx, "acme", "wf_1")
	require.NoError(t, err)

	replacement := &Definition{Name: "second", Nodes: []Node{{ID: "only", Type: NodeTypeTrigger}}}
	require.NoError(t, store.Replace(ctx, "acme", "wf_1", replacement))

	got, err := store.Get(ctx, "acme", "wf_1")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Name)
	assert.Len(t, got.Nodes, 1)
	assert.Empty(t, got.Edges)
	assert.False(t, got.UpdatedAt.Before(first.UpdatedAt))
}

func TestStore_GetNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "acme", "missing")
	require.Error(t, err)

	var typed *types.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, types.ErrNotFound, typed.Code)
}

func TestStore_TenantIsolation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Replace(ctx, "acme", "wf_1", sampleDefinition("acme wf")))

	_, err := store.Get(ctx, "globex", "wf_1")
	require.Error(t, err, "another tenant must not see the workflow")

	// Same id, different tenant, independent records.
	require.NoError(t, store.Replace(ctx, "globex", "wf_1", sampleDefinition("globex wf")))
	acme, err := store.Get(ctx, "acme", "wf_1")
	require.NoError(t, err)
	assert.Equal(t, "acme wf", acme.Name)

	list, err := store.List(ctx, "globex")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "globex wf", list[0].Name)
}

func TestStore_ListNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Replace(ctx, "acme", "wf_old", sampleDefinition("old")))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, store.Replace(ctx, "acme", "wf_new", sampleDefinition("new")))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, store.Replace(ctx, "acme", "wf_old", sampleDefinition("old touched")))

	list, err := store.List(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "wf_old", list[0].ID, "a touched workflow moves to the front")
	assert.Equal(t, "wf_new", list[1].ID)
}

func TestStore_DeleteIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Replace(ctx, "acme", "wf_1", sampleDefinition("doomed")))
	require.NoError(t, store.Delete(ctx, "acme", "wf_1"))
	require.NoError(t, store.Delete(ctx, "acme", "wf_1"), "deleting an absent id is not an error")

	_, err := store.Get(ctx, "acme", "wf_1")
	assert.Error(t, err)
}
