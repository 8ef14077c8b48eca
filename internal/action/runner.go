// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package action runs cluster topology mutations (refresh, reconnect)
// through a single background consumer, so callers never need to lock
// around a topology swap.
package action

import (
	"runtime"

	"github.com/packetd/vkcore/logger"
)

// Action is a unit of work the Runner's single consumer executes.
type Action func()

// Runner serializes Actions behind one goroutine. Submitting never
// blocks the caller beyond handing the Action off; a panicking Action
// is recovered and logged, and the Runner keeps consuming.
type Runner struct {
	queue chan Action
	done  chan struct{}
}

// NewRunner starts the consumer goroutine and returns a Runner with
// the given queue depth.
func NewRunner(depth int) *Runner {
	if depth <= 0 {
		depth = 1
	}
	r := &Runner{
		queue: make(chan Action, depth),
		done:  make(chan struct{}),
	}
	go r.run()
	return r
}

// Submit enqueues an Action. It blocks if the queue is full; callers
// that need cooperative cancellation should select on their own
// context alongside a non-blocking attempt.
func (r *Runner) Submit(a Action) {
	select {
	case r.queue <- a:
	case <-r.done:
	}
}

// Close stops the consumer once it finishes any in-flight Action. It
// does not drain or execute actions still in the queue.
func (r *Runner) Close() {
	select {
	case <-r.done:
	default:
		close(r.done)
	}
}

func (r *Runner) run() {
	for {
		select {
		case a := <-r.queue:
			runAction(a)
		case <-r.done:
			return
		}
	}
}

func runAction(a Action) {
	defer handleCrash()
	a()
}

func handleCrash() {
	if rec := recover(); rec != nil {
		const size = 64 << 10
		stacktrace := make([]byte, size)
		stacktrace = stacktrace[:runtime.Stack(stacktrace, false)]
		logger.With(logger.String("subsystem", "action")).Errorf("recovered panic: %v\n%s", rec, stacktrace)
	}
}
