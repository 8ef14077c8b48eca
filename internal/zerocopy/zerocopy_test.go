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

package zerocopy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuffer(t *testing.T) {
	buf := NewBuffer()
	assert.Equal(t, 0, buf.Len())

	buf.Write([]byte("hello "))
	buf.Write([]byte("world"))
	assert.Equal(t, "hello world", string(buf.Bytes()))

	buf.Advance(6)
	assert.Equal(t, "world", string(buf.Bytes()))
	assert.Equal(t, 5, buf.Len())
}

func TestBufferCompact(t *testing.T) {
	buf := NewBuffer()
	buf.Write([]byte("0123456789"))
	buf.Advance(8)

	buf.Compact()
	assert.Equal(t, "89", string(buf.Bytes()))

	buf.Write([]byte("AB"))
	assert.Equal(t, "89AB", string(buf.Bytes()))
}

func TestBufferAdvancePanics(t *testing.T) {
	buf := NewBuffer()
	buf.Write([]byte("abc"))
	assert.Panics(t, func() { buf.Advance(4) })
}
