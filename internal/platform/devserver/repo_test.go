package devserver

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/maternity/internal/platform/db"
)

func exerciseRepository(t *testing.T, repo Repository, collection string) {
	ctx := context.Background()

	docs, err := repo.List(ctx, collection)
	require.NoError(t, err)
	assert.Empty(t, docs)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Put(ctx, collection, "p1", Document{"id": id, "n": id}))
	}
	require.NoError(t, repo.Put(ctx, collection, "p2", Document{"id": "d"}))

	// Replacing keeps position.
	require.NoError(t, repo.Put(ctx, collection, "p1", Document{"id": "a", "n": "A"}))

	docs, err = repo.List(ctx, collection)
	require.NoError(t, err)
	require.Len(t, docs, 4)
	assert.Equal(t, "a", docs[0].ID())
	assert.Equal(t, "A", docs[0].String("n"))

	children, err := repo.ListByParent(ctx, collection, "p1")
	require.NoError(t, err)
	assert.Len(t, children, 3)

	got, err := repo.Get(ctx, collection, "b")
	require.NoError(t, err)
	assert.Equal(t, "b", got.String("n"))

	require.NoError(t, repo.Delete(ctx, collection, "b"))
	_, err = repo.Get(ctx, collection, "b")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, collection, "b"), ErrNotFound)
}

func TestMemoryRepo(t *testing.T) {
	exerciseRepository(t, NewMemoryRepo(), "patients")
}

func TestMemoryRepo_ReturnsCopies(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	require.NoError(t, repo.Put(ctx, "patients", "", Document{"id": "a", "firstName": "Awa"}))

	got, err := repo.Get(ctx, "patients", "a")
	require.NoError(t, err)
	got["firstName"] = "changed"

	again, err := repo.Get(ctx, "patients", "a")
	require.NoError(t, err)
	assert.Equal(t, "Awa", again.String("firstName"))

	assert.Error(t, repo.Put(ctx, "patients", "", Document{"firstName": "no id"}))
}

// TestPGRepo runs against a real database when DATABASE_URL is set.
func TestPGRepo(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, url, 2, 1)
	require.NoError(t, err)
	defer pool.Close()

	_, err = db.NewMigrator(pool, db.Migrations()).Up(ctx)
	require.NoError(t, err)

	exerciseRepository(t, NewPGRepo(pool), "test_"+uuid.New().String()[:8])
}
