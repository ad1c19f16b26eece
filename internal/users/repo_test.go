package users

import (
	"context"
	"testing"
	"time"

	"github.com/jgechelper/backend/internal/repo"
	"github.com/jgechelper/backend/pkg/db/models"
	"github.com/jgechelper/backend/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrator().DropTable(&models.User{}))
	require.NoError(t, db.AutoMigrate(&models.User{}))
	return db
}

func TestSQLRepositoryCreateIfAbsentKeepsStoredRole(t *testing.T) {
	r := NewSQLRepository(setupUsersTestDB(t))
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	created, err := r.CreateIfAbsent(ctx, Record{ID: "u1", Email: "a@jgec.ac.in", Role: enums.RoleAdmin, CreatedAt: now, LastLogin: now})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = r.CreateIfAbsent(ctx, Record{ID: "u1", Email: "a@jgec.ac.in", Role: enums.RoleUser, CreatedAt: now, LastLogin: now})
	require.NoError(t, err)
	assert.False(t, created)

	got, err := r.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, enums.RoleAdmin, got.Role)
	assert.Equal(t, enums.UserStatusActive, got.Status)
}

func TestSQLRepositoryGetMissing(t *testing.T) {
	r := NewSQLRepository(setupUsersTestDB(t))
	_, err := r.Get(context.Background(), "nobody")
	require.ErrorIs(t, err, repo.ErrNotFound)
}

func TestSQLRepositoryTouchAndStatus(t *testing.T) {
	r := NewSQLRepository(setupUsersTestDB(t))
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := r.CreateIfAbsent(ctx, Record{ID: "u2", Email: "b@jgec.ac.in", Role: enums.RoleUser, CreatedAt: start, LastLogin: start})
	require.NoError(t, err)

	later := start.Add(2 * time.Hour)
	require.NoError(t, r.TouchLastLogin(ctx, "u2", later))
	require.NoError(t, r.SetStatus(ctx, "u2", enums.UserStatusBanned))

	got, err := r.Get(ctx, "u2")
	require.NoError(t, err)
	assert.True(t, got.LastLogin.Equal(later))
	assert.True(t, got.Banned())

	require.ErrorIs(t, r.SetStatus(ctx, "ghost", enums.UserStatusBanned), repo.ErrNotFound)
	require.ErrorIs(t, r.TouchLastLogin(ctx, "ghost", later), repo.ErrNotFound)
}

func TestSQLRepositoryListAndCount(t *testing.T) {
	r := NewSQLRepository(setupUsersTestDB(t))
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "mid", "new"} {
		at := base.Add(time.Duration(i) * time.Hour)
		_, err := r.CreateIfAbsent(ctx, Record{ID: id, Email: id + "@jgec.ac.in", Role: enums.RoleUser, CreatedAt: at, LastLogin: at})
		require.NoError(t, err)
	}

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "new", list[0].ID)

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}
