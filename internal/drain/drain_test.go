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

package drain

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeCloser struct {
	closed atomic.Bool
}

func (f *fakeCloser) Close() error {
	f.closed.Store(true)
	return nil
}

func TestSetClosesOnceDrained(t *testing.T) {
	s := NewSet[string](200 * time.Millisecond)
	defer s.Close()

	var inFlight atomic.Int32
	inFlight.Store(2)
	c := &fakeCloser{}

	s.Retire("node-1", c, func() int { return int(inFlight.Load()) })
	assert.Equal(t, 1, s.Count())

	time.Sleep(80 * time.Millisecond)
	assert.False(t, c.closed.Load())

	inFlight.Store(0)
	assert.Eventually(t, func() bool { return c.closed.Load() }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, s.Count())
}

func TestSetClosesAfterGraceEvenIfBusy(t *testing.T) {
	s := NewSet[string](60 * time.Millisecond)
	defer s.Close()

	c := &fakeCloser{}
	s.Retire("node-1", c, func() int { return 1 })

	assert.Eventually(t, func() bool { return c.closed.Load() }, time.Second, 10*time.Millisecond)
}

func TestSetCancel(t *testing.T) {
	s := NewSet[string](time.Second)
	defer s.Close()

	c := &fakeCloser{}
	s.Retire("node-1", c, func() int { return 1 })
	s.Cancel("node-1")
	assert.Equal(t, 0, s.Count())
}
