//go:build integration_test || all_tests

package users

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heksidee/blogAppPipeline/internal/db"
)

func testRepoSetup(t *testing.T) (*Repo, func()) {
	t.Helper()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	t.Logf("using postres host: %s", host)

	dbPool, err := db.NewDBPool(timeoutCtx, db.NewDBPoolParams{
		DBHost:         host,
		DBPort:         "5432",
		DBName:         "blogapp",
		TracingEnabled: false,
	})
	require.NoError(t, err)

	return NewRepo(dbPool), func() {
		dbPool.Close()
	}
}

func TestRepo_Create_Get(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	usersCount, err := repo.Count(ctx)
	require.NoError(t, err)

	user := &User{
		Username:     gofakeit.Username(),
		Name:         gofakeit.Name(),
		PasswordHash: "hash",
	}
	require.NoError(t, repo.Create(ctx, user))
	require.NotEmpty(t, user.ID)

	usersCountAfter, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, usersCount+1, usersCountAfter)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Username, byID.Username)
	assert.Equal(t, []string{}, byID.BlogIDs)

	byUsername, err := repo.GetByUsername(ctx, user.Username)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byUsername.ID)
	assert.Equal(t, "hash", byUsername.PasswordHash)

	_, err = repo.GetByID(ctx, "no-such-user")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = repo.GetByUsername(ctx, "no-such-username")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRepo_Create_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	username := gofakeit.Username()
	require.NoError(t, repo.Create(ctx, &User{
		Username:     username,
		Name:         gofakeit.Name(),
		PasswordHash: "hash",
	}))

	err := repo.Create(ctx, &User{
		Username:     username,
		Name:         gofakeit.Name(),
		PasswordHash: "otherhash",
	})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRepo_BlogRefs(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	user := &User{
		Username:     gofakeit.Username(),
		Name:         gofakeit.Name(),
		PasswordHash: "hash",
	}
	require.NoError(t, repo.Create(ctx, user))

	require.NoError(t, repo.AddBlogRef(ctx, user.ID, "b1"))
	require.NoError(t, repo.AddBlogRef(ctx, user.ID, "b2"))

	stored, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "b2"}, stored.BlogIDs)

	require.NoError(t, repo.RemoveBlogRef(ctx, user.ID, "b1"))
	// removing an id that is not there is a no-op
	require.NoError(t, repo.RemoveBlogRef(ctx, user.ID, "b1"))

	stored, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"b2"}, stored.BlogIDs)

	assert.ErrorIs(t, repo.AddBlogRef(ctx, "no-such-user", "b1"), ErrUserNotFound)
	assert.ErrorIs(t, repo.RemoveBlogRef(ctx, "no-such-user", "b1"), ErrUserNotFound)
}

func TestRepo_All(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	usersCount, err := repo.Count(ctx)
	require.NoError(t, err)

	addedCount := 3
	for i := 0; i < addedCount; i++ {
		require.NoError(t, repo.Create(ctx, &User{
			Username:     gofakeit.Username(),
			Name:         gofakeit.Name(),
			PasswordHash: "hash",
		}))
	}

	allUsers, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Len(t, allUsers, usersCount+addedCount)
}
