// Package queue defines the ingestion contract between the judging
// daemon and the external queue collaborator. A judge task is delivered
// once per judgement attempt; the result travels back through the
// task's completion callback.
package queue

import "github.com/codequay/judgecore/model"

// Sender is used to submit a judge task into the queue
type Sender interface {
	// Send enqueues a task and returns the channel its result will be
	// delivered on
	Send(*model.JudgeTask) (<-chan *model.JudgeResult, error)
}

// Receiver is used to consume judge tasks from the queue
type Receiver interface {
	// C gets the channel to receive tasks
	C() <-chan Task
}

// Queue provides an asynchronous message queue for judge tasks
type Queue interface {
	Sender
	Receiver
}

// Task represents a single judgement attempt
type Task interface {
	// Task gets the judge task parameter
	Task() *model.JudgeTask

	// Done delivers the result (should be called exactly once at end)
	Done(*model.JudgeResult)
}
