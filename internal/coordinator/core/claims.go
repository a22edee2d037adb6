package core

import (
	"cmp"
	"slices"
)

// ClaimTable maps task IDs to the connection currently holding them.
// Like TaskQueue it relies on the TaskManager lock.
type ClaimTable struct {
	claims map[int64]*ConnectedTask
	seq    uint64
}

func NewClaimTable() *ClaimTable {
	return &ClaimTable{claims: make(map[int64]*ConnectedTask)}
}

func (c *ClaimTable) Claim(task Task, connectionID string) {
	c.seq++
	c.claims[task.ID] = &ConnectedTask{
		Task:         task,
		ConnectionID: connectionID,
		seq:          c.seq,
	}
}

func (c *ClaimTable) Get(taskID int64) (ConnectedTask, bool) {
	ct, ok := c.claims[taskID]
	if !ok {
		return ConnectedTask{}, false
	}
	return *ct, true
}

func (c *ClaimTable) Remove(taskID int64) (ConnectedTask, bool) {
	ct, ok := c.claims[taskID]
	if !ok {
		return ConnectedTask{}, false
	}
	delete(c.claims, taskID)
	return *ct, true
}

// Release removes every claim held by connectionID and returns the tasks in
// the order they were claimed.
func (c *ClaimTable) Release(connectionID string) []Task {
	var released []*ConnectedTask
	for id, ct := range c.claims {
		if ct.ConnectionID == connectionID {
			released = append(released, ct)
			delete(c.claims, id)
		}
	}
	slices.SortFunc(released, func(a, b *ConnectedTask) int {
		return cmp.Compare(a.seq, b.seq)
	})

	tasks := make([]Task, len(released))
	for i, ct := range released {
		tasks[i] = ct.Task
	}
	return tasks
}

func (c *ClaimTable) Len() int {
	return len(c.claims)
}
