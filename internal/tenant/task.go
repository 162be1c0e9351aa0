// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package tenant

import (
	"container/ring"
	"strconv"
	"sync"
	"time"
)

// TaskStatus is a write task's position in its Enqueued -> Processing ->
// (Succeeded | Failed) lifecycle.
type TaskStatus string

const (
	TaskEnqueued   TaskStatus = "enqueued"
	TaskProcessing TaskStatus = "processing"
	TaskSucceeded  TaskStatus = "succeeded"
	TaskFailed     TaskStatus = "failed"
)

// DocFailure records one document rejected from a batch without failing
// the task as a whole.
type DocFailure struct {
	DocID   string `json:"objectID"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// TaskInfo is the queryable record of one write task.
type TaskInfo struct {
	ID                string       `json:"taskID"`
	NumericID         int64        `json:"-"`
	Status            TaskStatus   `json:"status"`
	FailureReason     string       `json:"failureReason,omitempty"`
	ReceivedDocuments int          `json:"receivedDocuments"`
	IndexedDocuments  int          `json:"indexedDocuments"`
	RejectedDocuments []DocFailure `json:"rejectedDocuments,omitempty"`
	RejectedCount     int          `json:"rejectedCount"`
	CreatedAt         time.Time    `json:"createdAt"`
}

// taskRing is a bounded FIFO of the most recent 1000 tasks per tenant,
// keyed by numeric task ID for O(1) lookup; older entries are evicted as
// new ones arrive rather than growing unbounded.
type taskRing struct {
	mu      sync.Mutex
	cap     int
	nextID  int64
	byID    map[int64]*TaskInfo
	order   *ring.Ring // each element holds an int64 task ID once populated
	filled  int
}

const defaultTaskRingCapacity = 1000

func newTaskRing() *taskRing {
	return &taskRing{
		cap:   defaultTaskRingCapacity,
		byID:  make(map[int64]*TaskInfo, defaultTaskRingCapacity),
		order: ring.New(defaultTaskRingCapacity),
	}
}

// create allocates a new task record and returns it. The caller mutates
// the returned pointer directly as the write progresses.
func (r *taskRing) create(received int) *TaskInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	task := &TaskInfo{
		ID:                formatTaskID(id),
		NumericID:         id,
		Status:            TaskEnqueued,
		ReceivedDocuments: received,
		CreatedAt:         time.Now(),
	}

	if r.filled >= r.cap {
		if evictID, ok := r.order.Value.(int64); ok {
			delete(r.byID, evictID)
		}
	} else {
		r.filled++
	}
	r.order.Value = id
	r.order = r.order.Next()

	r.byID[id] = task
	return task
}

// get looks up a task by its numeric ID.
func (r *taskRing) get(id int64) (*TaskInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	return t, ok
}

func formatTaskID(id int64) string {
	return strconv.FormatInt(id, 10)
}
