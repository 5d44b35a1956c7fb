package integration

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/taskdesk/eligibility-service/internal/database"
	"github.com/taskdesk/eligibility-service/internal/eligibility"
	"github.com/taskdesk/eligibility-service/internal/jobs"
)

func setupTestDatabase(ctx context.Context) (*postgres.PostgresContainer, error) {
	return postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForListeningPort("5432/tcp").
					WithStartupTimeout(60*time.Second),
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(1).
					WithStartupTimeout(60*time.Second),
			),
		),
	)
}

// TestPostgresStore exercises the authoritative store against a real
// database: replace semantics, rank ordering and the per-user index.
func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := setupTestDatabase(ctx)
	require.NoError(t, err)
	defer container.Terminate(ctx)

	connStr, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	require.NoError(t, database.Connect(ctx, connStr, 10, 2, 0, 0))
	defer database.Close()
	require.NoError(t, database.EnsureSchema(ctx))

	store := eligibility.NewPostgresStore(database.Pool)

	t.Run("SaveAndLoadPreservesRankOrder", func(t *testing.T) {
		ranked := []eligibility.RankedUser{
			{UserID: 9, Score: 310},
			{UserID: 2, Score: 295},
			{UserID: 14, Score: 295},
			{UserID: 1, Score: 120},
		}
		require.NoError(t, store.Save(ctx, 100, ranked))

		loaded, err := store.LoadByTask(ctx, 100)
		require.NoError(t, err)
		// Order must be the saved rank, not user_id or insertion order.
		assert.Equal(t, ranked, loaded)
	})

	t.Run("SaveReplacesPriorResult", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, 101, []eligibility.RankedUser{
			{UserID: 1, Score: 200},
			{UserID: 2, Score: 190},
			{UserID: 3, Score: 180},
		}))
		require.NoError(t, store.Save(ctx, 101, []eligibility.RankedUser{
			{UserID: 2, Score: 250},
		}))

		loaded, err := store.LoadByTask(ctx, 101)
		require.NoError(t, err)
		require.Len(t, loaded, 1)
		assert.Equal(t, 2, loaded[0].UserID)
		assert.Equal(t, 250, loaded[0].Score)

		// User 1 lost its eligibility for the task.
		tasks, err := store.TasksForUser(ctx, 1)
		require.NoError(t, err)
		assert.NotContains(t, tasks, 101)
	})

	t.Run("EmptyResultClearsTheTask", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, 102, []eligibility.RankedUser{{UserID: 5, Score: 100}}))
		require.NoError(t, store.Save(ctx, 102, nil))

		loaded, err := store.LoadByTask(ctx, 102)
		require.NoError(t, err)
		assert.Empty(t, loaded)
	})

	t.Run("UnknownTaskYieldsEmptyResult", func(t *testing.T) {
		loaded, err := store.LoadByTask(ctx, 99999)
		require.NoError(t, err)
		assert.Empty(t, loaded)
	})

	t.Run("TasksForUserSortedAscending", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, 205, []eligibility.RankedUser{{UserID: 77, Score: 100}}))
		require.NoError(t, store.Save(ctx, 203, []eligibility.RankedUser{{UserID: 77, Score: 90}}))
		require.NoError(t, store.Save(ctx, 204, []eligibility.RankedUser{{UserID: 77, Score: 95}}))

		tasks, err := store.TasksForUser(ctx, 77)
		require.NoError(t, err)
		assert.Equal(t, []int{203, 204, 205}, tasks)
	})

	t.Run("TaskIDsListsPersistedTasks", func(t *testing.T) {
		ids, err := store.TaskIDs(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, 100)
		assert.Contains(t, ids, 205)
	})
}

// TestRepositoryAgainstPostgres verifies the layered repository end to end
// with a real store and no cache: writes land in Postgres, reads come back
// through the store layer, and Warm repopulates the mirror.
func TestRepositoryAgainstPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := setupTestDatabase(ctx)
	require.NoError(t, err)
	defer container.Terminate(ctx)

	connStr, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	require.NoError(t, database.Connect(ctx, connStr, 10, 2, 0, 0))
	defer database.Close()
	require.NoError(t, database.EnsureSchema(ctx))

	store := eligibility.NewPostgresStore(database.Pool)
	repo := eligibility.NewRepository(store, nil, zerolog.Nop())

	ranked := []eligibility.RankedUser{
		{UserID: 3, Score: 300},
		{UserID: 8, Score: 280},
	}
	repo.Save(ctx, 500, ranked)

	assert.Equal(t, ranked, repo.LoadByTask(ctx, 500))
	assert.Equal(t, []int{500}, repo.TasksForUser(ctx, 3))

	warmed, err := repo.Warm(ctx, 4)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, warmed, 1)
}

// TestCleanupStaleResults verifies the retention job deletes only rows older
// than the cutoff.
func TestCleanupStaleResults(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := setupTestDatabase(ctx)
	require.NoError(t, err)
	defer container.Terminate(ctx)

	connStr, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	require.NoError(t, database.Connect(ctx, connStr, 10, 2, 0, 0))
	defer database.Close()
	require.NoError(t, database.EnsureSchema(ctx))

	pool := database.Pool()
	_, err = pool.Exec(ctx, `
		INSERT INTO task_eligible_users (task_id, user_id, score, rank, computed_at)
		VALUES
			(1, 1, 100, 0, NOW() - INTERVAL '10 days'),
			(2, 1, 100, 0, NOW())
	`)
	require.NoError(t, err)

	deleted, err := jobs.CleanupStaleResults(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	var remaining int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM task_eligible_users`).Scan(&remaining))
	assert.Equal(t, 1, remaining)
}
