package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the DocumentStore behaviour every
// implementation must share.
func runStoreContract(t *testing.T, store DocumentStore) {
	ctx := context.Background()

	t.Run("Insert and GetByID", func(t *testing.T) {
		rec, err := store.Insert(ctx, "workflows", Record{
			"name":     "Intake",
			"metadata": map[string]any{"status": "draft"},
		})
		require.NoError(t, err)
		require.NotEmpty(t, rec.ID())

		got, err := store.GetByID(ctx, "workflows", rec.ID())
		require.NoError(t, err)
		assert.Equal(t, "Intake", got["name"])
		assert.Equal(t, rec.ID(), got.ID())
	})

	t.Run("GetByID missing", func(t *testing.T) {
		_, err := store.GetByID(ctx, "workflows", "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Update replaces the document", func(t *testing.T) {
		rec, err := store.Insert(ctx, "workflows", Record{"name": "Old", "extra": true})
		require.NoError(t, err)

		_, err = store.Update(ctx, "workflows", rec.ID(), Record{"name": "New"})
		require.NoError(t, err)

		got, err := store.GetByID(ctx, "workflows", rec.ID())
		require.NoError(t, err)
		assert.Equal(t, "New", got["name"])
		assert.NotContains(t, got, "extra")
	})

	t.Run("Update missing", func(t *testing.T) {
		_, err := store.Update(ctx, "workflows", "00000000-0000-0000-0000-000000000001", Record{"name": "x"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		rec, err := store.Insert(ctx, "workflows", Record{"name": "Doomed"})
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, "workflows", rec.ID()))
		_, err = store.GetByID(ctx, "workflows", rec.ID())
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, store.Delete(ctx, "workflows", rec.ID()), ErrNotFound)
	})

	t.Run("Query filters, orders and pages", func(t *testing.T) {
		for _, e := range []struct {
			wf  string
			seq float64
		}{{"wf-a", 1}, {"wf-b", 2}, {"wf-a", 3}, {"wf-a", 2}} {
			_, err := store.Insert(ctx, "audit_log", Record{"workflowId": e.wf, "seq": e.seq})
			require.NoError(t, err)
		}

		all, err := store.Query(ctx, "audit_log", Filter{"workflowId": "wf-a"}, nil, nil)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []any{1.0, 3.0, 2.0}, []any{all[0]["seq"], all[1]["seq"], all[2]["seq"]})

		sorted, err := store.Query(ctx, "audit_log", Filter{"workflowId": "wf-a"}, &Order{Field: "seq", Desc: true}, &Range{Limit: 2})
		require.NoError(t, err)
		require.Len(t, sorted, 2)
		assert.Equal(t, 3.0, sorted[0]["seq"])

		paged, err := store.Query(ctx, "audit_log", Filter{"workflowId": "wf-a"}, nil, &Range{Offset: 1, Limit: 1})
		require.NoError(t, err)
		require.Len(t, paged, 1)
		assert.Equal(t, 3.0, paged[0]["seq"])
	})

	t.Run("Query nested filter", func(t *testing.T) {
		_, err := store.Insert(ctx, "nested", Record{"metadata": map[string]any{"status": "published", "createdBy": "u1"}})
		require.NoError(t, err)
		_, err = store.Insert(ctx, "nested", Record{"metadata": map[string]any{"status": "draft", "createdBy": "u1"}})
		require.NoError(t, err)

		got, err := store.Query(ctx, "nested", Filter{"metadata.status": "published"}, nil, nil)
		require.NoError(t, err)
		assert.Len(t, got, 1)

		got, err = store.Query(ctx, "nested", Filter{"metadata.createdBy": "u1"}, nil, nil)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}
