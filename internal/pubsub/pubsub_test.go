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

package pubsub

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegistryPublishFanOut(t *testing.T) {
	reg := New()

	const topic = "news"
	const listeners = 5

	queues := make([]Queue, listeners)
	for i := range queues {
		queues[i] = reg.Subscribe(topic, 4)
	}
	assert.Equal(t, listeners, reg.NumListeners(topic))

	n := reg.Publish(topic, "hello")
	assert.Equal(t, listeners, n)

	for _, q := range queues {
		msg, ok := q.PopTimeout(time.Second)
		assert.True(t, ok)
		assert.Equal(t, "hello", msg)
	}

	for _, q := range queues {
		reg.Unsubscribe(topic, q)
	}
	assert.False(t, reg.HasTopic(topic))
}

func TestRegistryPublishUnknownTopicIsNoop(t *testing.T) {
	reg := New()
	assert.Equal(t, 0, reg.Publish("nobody-listening", "x"))
}

func TestRegistryPushNeverDrops(t *testing.T) {
	reg := New()
	const topic = "backlog"

	q := reg.Subscribe(topic, 2)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			q.Push(i)
		}
	}()

	var got atomic.Int64
	for got.Load() < 10 {
		if _, ok := q.PopTimeout(time.Second); ok {
			got.Add(1)
		}
	}
	wg.Wait()

	assert.Equal(t, int64(10), got.Load())
}

func TestRegistryConcurrentSubscribers(t *testing.T) {
	reg := New()
	const topic = "concurrent"
	const workers = 10

	var wg sync.WaitGroup
	var total atomic.Int64
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := reg.Subscribe(topic, 10)
			defer reg.Unsubscribe(topic, q)

			for n := 0; n < 20; n++ {
				q.Push(i)
			}

			var count int
			for {
				_, ok := q.PopTimeout(time.Second)
				if !ok {
					break
				}
				count++
				if count == 20 {
					break
				}
			}
			total.Add(int64(count))
			assert.Equal(t, 20, count)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(200), total.Load())
	assert.False(t, reg.HasTopic(topic))
}
