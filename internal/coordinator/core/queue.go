package core

// TaskQueue is a FIFO of tasks. It is not safe for concurrent use; the
// TaskManager guards all of its queues with a single lock.
type TaskQueue struct {
	tasks []Task
	head  int
}

func NewTaskQueue() *TaskQueue {
	return &TaskQueue{}
}

func (q *TaskQueue) Push(task Task) {
	q.tasks = append(q.tasks, task)
}

func (q *TaskQueue) PushAll(tasks []Task) {
	q.tasks = append(q.tasks, tasks...)
}

// Pop removes the head of the queue. ok is false when the queue is empty.
func (q *TaskQueue) Pop() (task Task, ok bool) {
	if q.Len() == 0 {
		return Task{}, false
	}
	task = q.tasks[q.head]
	q.tasks[q.head] = Task{}
	q.head++
	q.compact()
	return task, true
}

// PopN removes up to n tasks from the head of the queue.
func (q *TaskQueue) PopN(n int) []Task {
	n = min(n, q.Len())
	if n <= 0 {
		return nil
	}
	out := make([]Task, n)
	copy(out, q.tasks[q.head:q.head+n])
	clear(q.tasks[q.head : q.head+n])
	q.head += n
	q.compact()
	return out
}

// Drain removes and returns every task in FIFO order.
func (q *TaskQueue) Drain() []Task {
	return q.PopN(q.Len())
}

func (q *TaskQueue) Len() int {
	return len(q.tasks) - q.head
}

// Tasks returns a copy of the queued tasks, head first.
func (q *TaskQueue) Tasks() []Task {
	out := make([]Task, q.Len())
	copy(out, q.tasks[q.head:])
	return out
}

func (q *TaskQueue) compact() {
	switch {
	case q.head == len(q.tasks):
		q.tasks = q.tasks[:0]
		q.head = 0
	case q.head > 64 && q.head*2 >= len(q.tasks):
		n := copy(q.tasks, q.tasks[q.head:])
		clear(q.tasks[n:])
		q.tasks = q.tasks[:n]
		q.head = 0
	}
}
