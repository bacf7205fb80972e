package user_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/go-task-api/internal/database/databasetest"
	"github.com/redmonkez12/go-task-api/internal/user"
)

func TestRepository_CreateAndGet(t *testing.T) {
	repo := user.NewRepository(databasetest.NewSQLite(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, "a@x.com", "opaque-hash")
	require.NoError(t, err)
	assert.Positive(t, created.ID)
	assert.Equal(t, "a@x.com", created.Email)

	byEmail, err := repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Equal(t, "opaque-hash", byEmail.PasswordHash)
}

func TestRepository_NotFound(t *testing.T) {
	repo := user.NewRepository(databasetest.NewSQLite(t))
	ctx := context.Background()

	_, err := repo.GetByEmail(ctx, "missing@x.com")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestRepository_CreateDuplicateEmail(t *testing.T) {
	db := databasetest.NewSQLite(t)
	repo := user.NewRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, "a@x.com", "h1")
	require.NoError(t, err)

	_, err = repo.Create(ctx, "a@x.com", "h2")
	assert.ErrorIs(t, err, user.ErrDuplicateEmail)

	assert.Equal(t, 1, databasetest.CountUsersByEmail(t, db, "a@x.com"))
}

func TestRepository_ConcurrentCreateKeepsOneRecord(t *testing.T) {
	db := databasetest.NewSQLite(t)
	repo := user.NewRepository(db)
	ctx := context.Background()

	const workers = 8
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		successes  int
		duplicates int
	)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(ctx, "race@x.com", "h")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case assert.ErrorIs(t, err, user.ErrDuplicateEmail):
				duplicates++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, duplicates)

	assert.Equal(t, 1, databasetest.CountUsersByEmail(t, db, "race@x.com"))
}
