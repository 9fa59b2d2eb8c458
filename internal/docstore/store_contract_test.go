//go:build unit || integration

package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDoc struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Order int    `json:"order"`
}

// runStoreContract exercises the behaviour every Store implementation shares.
func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("create and find by id", func(t *testing.T) {
		created, err := store.Create(ctx, "things", testDoc{Name: "alpha", Kind: "a", Order: 2})
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)
		assert.False(t, created.CreatedAt.IsZero())

		found, err := store.FindByID(ctx, "things", created.ID)
		require.NoError(t, err)
		var got testDoc
		require.NoError(t, found.Decode(&got))
		assert.Equal(t, testDoc{Name: "alpha", Kind: "a", Order: 2}, got)
	})

	t.Run("find by id missing", func(t *testing.T) {
		_, err := store.FindByID(ctx, "things", "does-not-exist")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("where sort and limit", func(t *testing.T) {
		for _, d := range []testDoc{{"b", "x", 1}, {"c", "x", 3}, {"a", "x", 2}, {"z", "y", 9}} {
			_, err := store.Create(ctx, "filtered", d)
			require.NoError(t, err)
		}

		docs, err := store.Find(ctx, "filtered", Query{Where: map[string]string{"kind": "x"}, Sort: "name"})
		require.NoError(t, err)
		require.Len(t, docs, 3)
		names := make([]string, 0, len(docs))
		for _, d := range docs {
			var td testDoc
			require.NoError(t, d.Decode(&td))
			names = append(names, td.Name)
		}
		assert.Equal(t, []string{"a", "b", "c"}, names)

		docs, err = store.Find(ctx, "filtered", Query{Where: map[string]string{"kind": "x"}, Sort: "-name", Limit: 1})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		var first testDoc
		require.NoError(t, docs[0].Decode(&first))
		assert.Equal(t, "c", first.Name)
	})

	t.Run("default limit and no limit", func(t *testing.T) {
		for i := 0; i < DefaultLimit+5; i++ {
			_, err := store.Create(ctx, "many", testDoc{Name: fmt.Sprintf("doc-%03d", i), Kind: "m"})
			require.NoError(t, err)
		}

		docs, err := store.Find(ctx, "many", Query{})
		require.NoError(t, err)
		assert.Len(t, docs, DefaultLimit)

		docs, err = store.Find(ctx, "many", Query{Limit: NoLimit, Sort: "name"})
		require.NoError(t, err)
		assert.Len(t, docs, DefaultLimit+5)
	})

	t.Run("invalid field is rejected", func(t *testing.T) {
		_, err := store.Find(ctx, "filtered", Query{Where: map[string]string{"kind') OR 1=1 --": "x"}})
		assert.Error(t, err)
	})

	t.Run("update replaces body", func(t *testing.T) {
		created, err := store.Create(ctx, "things", testDoc{Name: "before"})
		require.NoError(t, err)

		updated, err := store.Update(ctx, "things", created.ID, json.RawMessage(`{"name":"after"}`))
		require.NoError(t, err)
		var got testDoc
		require.NoError(t, updated.Decode(&got))
		assert.Equal(t, "after", got.Name)
		assert.Equal(t, created.ID, updated.ID)
	})

	t.Run("update missing", func(t *testing.T) {
		_, err := store.Update(ctx, "things", "does-not-exist", testDoc{})
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("globals fall back to locale-less", func(t *testing.T) {
		_, err := store.FindGlobal(ctx, "settings", "en")
		assert.True(t, errors.Is(err, ErrNotFound))

		_, err = store.UpdateGlobal(ctx, "settings", "", testDoc{Name: "base"})
		require.NoError(t, err)
		_, err = store.UpdateGlobal(ctx, "settings", "de", testDoc{Name: "german"})
		require.NoError(t, err)

		var got testDoc
		doc, err := store.FindGlobal(ctx, "settings", "en")
		require.NoError(t, err)
		require.NoError(t, doc.Decode(&got))
		assert.Equal(t, "base", got.Name)

		doc, err = store.FindGlobal(ctx, "settings", "de")
		require.NoError(t, err)
		require.NoError(t, doc.Decode(&got))
		assert.Equal(t, "german", got.Name)

		_, err = store.UpdateGlobal(ctx, "settings", "", testDoc{Name: "base v2"})
		require.NoError(t, err)
		doc, err = store.FindGlobal(ctx, "settings", "")
		require.NoError(t, err)
		require.NoError(t, doc.Decode(&got))
		assert.Equal(t, "base v2", got.Name)
	})
}
