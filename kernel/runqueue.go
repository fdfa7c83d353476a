package kernel

// runQueue is a ring of task IDs. A task is queued at most once, so the ring
// never needs more than maxTasks slots.
type runQueue struct {
	head  uint8
	tail  uint8
	slots [maxTasks]TaskID
}

func (q *runQueue) push(id TaskID) bool {
	if q.head-q.tail >= maxTasks {
		return false
	}
	q.slots[q.head%maxTasks] = id
	q.head++
	return true
}

func (q *runQueue) pop() (TaskID, bool) {
	if q.tail == q.head {
		return 0, false
	}
	id := q.slots[q.tail%maxTasks]
	q.tail++
	return id, true
}

func (q *runQueue) len() int { return int(q.head - q.tail) }
