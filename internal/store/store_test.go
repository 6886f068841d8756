package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iambrandonn/liaison/internal/protocol"
)

func sampleTask(id, thread string) *protocol.Task {
	return &protocol.Task{
		ID:                id,
		Name:              "Q1 report",
		DueDate:           "2026-02-27",
		DelegatorAddress:  "dana@example.com",
		DelegateAddress:   "sam@example.com",
		ThreadID:          thread,
		Status:            protocol.StatusActive,
		ConversationState: protocol.ConvActive,
		CreatedAt:         time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

// openStores builds each Repository implementation backed by a temp dir
func openStores(t *testing.T) map[string]Repository {
	t.Helper()
	fileStore, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return map[string]Repository{
		"memory": NewMemoryStore(),
		"file":   fileStore,
	}
}

func TestSaveAndGetTask(t *testing.T) {
	for name, repo := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			defer repo.Close()
			ctx := context.Background()

			task := sampleTask("t1", "thread-1")
			require.NoError(t, repo.SaveTask(ctx, task))

			got, err := repo.GetTask(ctx, "t1")
			require.NoError(t, err)
			require.Equal(t, "Q1 report", got.Name)
			require.Equal(t, "thread-1", got.ThreadID)
			require.Equal(t, protocol.StatusActive, got.Status)
			require.False(t, got.UpdatedAt.IsZero())
		})
	}
}

func TestGetTaskNotFound(t *testing.T) {
	for name, repo := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			defer repo.Close()

			_, err := repo.GetTask(context.Background(), "missing")
			require.Error(t, err)
			var notFound *NotFoundError
			require.ErrorAs(t, err, &notFound)
			require.Equal(t, "missing", notFound.TaskID)
		})
	}
}

func TestFindByThread(t *testing.T) {
	for name, repo := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			defer repo.Close()
			ctx := context.Background()

			require.NoError(t, repo.SaveTask(ctx, sampleTask("t1", "thread-1")))
			require.NoError(t, repo.SaveTask(ctx, sampleTask("t2", "thread-2")))
			require.NoError(t, repo.SaveTask(ctx, sampleTask("t3", "")))

			got, err := repo.FindByThread(ctx, "thread-2")
			require.NoError(t, err)
			require.Equal(t, "t2", got.ID)

			_, err = repo.FindByThread(ctx, "thread-9")
			var notFound *NotFoundError
			require.ErrorAs(t, err, &notFound)
			require.Equal(t, "thread-9", notFound.ThreadID)

			// An empty thread id never matches a task without one
			_, err = repo.FindByThread(ctx, "")
			require.Error(t, err)
		})
	}
}

func TestListTasksOrderedByID(t *testing.T) {
	for name, repo := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			defer repo.Close()
			ctx := context.Background()

			for _, id := range []string{"c", "a", "b"} {
				require.NoError(t, repo.SaveTask(ctx, sampleTask(id, "")))
			}

			tasks, err := repo.ListTasks(ctx)
			require.NoError(t, err)
			require.Len(t, tasks, 3)
			require.Equal(t, "a", tasks[0].ID)
			require.Equal(t, "b", tasks[1].ID)
			require.Equal(t, "c", tasks[2].ID)
		})
	}
}

func TestSaveTaskOverwrites(t *testing.T) {
	for name, repo := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			defer repo.Close()
			ctx := context.Background()

			task := sampleTask("t1", "thread-1")
			require.NoError(t, repo.SaveTask(ctx, task))

			task.DueDate = "2026-03-05"
			require.NoError(t, repo.SaveTask(ctx, task))

			got, err := repo.GetTask(ctx, "t1")
			require.NoError(t, err)
			require.Equal(t, "2026-03-05", got.DueDate)
		})
	}
}

// The store must hand back copies: mutating a loaded task must not leak
// into the stored record until SaveTask.
func TestGetTaskIsolation(t *testing.T) {
	for name, repo := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			defer repo.Close()
			ctx := context.Background()

			require.NoError(t, repo.SaveTask(ctx, sampleTask("t1", "thread-1")))

			first, err := repo.GetTask(ctx, "t1")
			require.NoError(t, err)
			first.Name = "mutated"

			second, err := repo.GetTask(ctx, "t1")
			require.NoError(t, err)
			require.Equal(t, "Q1 report", second.Name)
		})
	}
}
