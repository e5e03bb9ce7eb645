// Package channel implements queue.Queue with a buffered go channel,
// for in-process deployments and tests.
package channel

import (
	"github.com/codequay/judgecore/model"
	"github.com/codequay/judgecore/queue"
)

const buffSize = 512

// Queue implements queue.Queue by go channel
type Queue struct {
	queue chan queue.Task
}

// New creates a new Queue with a buffered go channel
func New() *Queue {
	return &Queue{
		queue: make(chan queue.Task, buffSize),
	}
}

var _ queue.Queue = (*Queue)(nil)

// Send puts a task into the queue
func (q *Queue) Send(t *model.JudgeTask) (<-chan *model.JudgeResult, error) {
	ch := make(chan *model.JudgeResult, 1)
	q.queue <- task{
		task:   t,
		result: ch,
	}
	return ch, nil
}

// C returns the underlying channel
func (q *Queue) C() <-chan queue.Task {
	return q.queue
}

type task struct {
	task   *model.JudgeTask
	result chan<- *model.JudgeResult
}

func (t task) Task() *model.JudgeTask {
	return t.task
}

func (t task) Done(r *model.JudgeResult) {
	t.result <- r
}
