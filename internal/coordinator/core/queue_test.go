package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func taskIDs(tasks []Task) []int64 {
	ids := make([]int64, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	return ids
}

func TestTaskQueue_PopEmpty(t *testing.T) {
	q := NewTaskQueue()
	task, ok := q.Pop()
	if ok {
		t.Errorf("expected Pop on empty queue to fail, got %v", task)
	}
	if q.Len() != 0 {
		t.Errorf("expected length 0, got %d", q.Len())
	}
}

func TestTaskQueue_FIFO(t *testing.T) {
	q := NewTaskQueue()
	q.Push(Task{ID: 1})
	q.PushAll([]Task{{ID: 2}, {ID: 3}})
	q.Push(Task{ID: 4})

	require.Equal(t, 4, q.Len())
	require.Equal(t, []int64{1, 2, 3, 4}, taskIDs(q.Tasks()))

	task, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, int64(1), task.ID)

	require.Equal(t, []int64{2, 3}, taskIDs(q.PopN(2)))
	require.Equal(t, []int64{4}, taskIDs(q.Drain()))
	require.Zero(t, q.Len())
}

func TestTaskQueue_PopN(t *testing.T) {
	tests := []struct {
		name    string
		queued  int
		n       int
		want    []int64
		wantLen int
	}{
		{name: "fewer than queued", queued: 3, n: 2, want: []int64{1, 2}, wantLen: 1},
		{name: "more than queued", queued: 2, n: 5, want: []int64{1, 2}, wantLen: 0},
		{name: "zero", queued: 2, n: 0, want: nil, wantLen: 2},
		{name: "negative", queued: 2, n: -1, want: nil, wantLen: 2},
		{name: "empty queue", queued: 0, n: 3, want: nil, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewTaskQueue()
			for i := 1; i <= tt.queued; i++ {
				q.Push(Task{ID: int64(i)})
			}

			got := q.PopN(tt.n)
			if tt.want == nil {
				require.Empty(t, got)
			} else {
				require.Equal(t, tt.want, taskIDs(got))
			}
			require.Equal(t, tt.wantLen, q.Len())
		})
	}
}

func TestTaskQueue_InterleavedPushPopKeepsOrder(t *testing.T) {
	q := NewTaskQueue()
	var want []int64
	next := int64(1)

	// Push two, pop one, many times over, so the head offset crosses the
	// compaction threshold while tasks remain queued.
	for range 200 {
		q.Push(Task{ID: next})
		q.Push(Task{ID: next + 1})
		want = append(want, next, next+1)
		next += 2

		task, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, want[0], task.ID)
		want = want[1:]
	}

	require.Equal(t, want, taskIDs(q.Drain()))
}

func TestTaskQueue_TasksReturnsCopy(t *testing.T) {
	q := NewTaskQueue()
	q.Push(Task{ID: 1})

	snapshot := q.Tasks()
	snapshot[0].ID = 42

	task, _ := q.Pop()
	require.Equal(t, int64(1), task.ID)
}
