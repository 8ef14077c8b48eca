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

package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC16KnownVectors(t *testing.T) {
	// Values taken from the Redis Cluster spec's worked example: the
	// key "123456789" hashes to 0x31C3 under CRC16-XMODEM.
	assert.Equal(t, uint16(0x31C3), crc16([]byte("123456789")))
}

func TestSlotIsBoundedAndDeterministic(t *testing.T) {
	s1 := Slot([]byte("foo"))
	s2 := Slot([]byte("foo"))
	assert.Equal(t, s1, s2)
	assert.Less(t, s1, uint16(NumSlots))
}

func TestSlotHashTagRoutesTogether(t *testing.T) {
	a := Slot([]byte("{user1000}.following"))
	b := Slot([]byte("{user1000}.followers"))
	assert.Equal(t, a, b, "keys sharing a hash tag must land on the same slot")
}

func TestHashTagExtraction(t *testing.T) {
	tag, ok := hashTag([]byte("{user1000}.following"))
	assert.True(t, ok)
	assert.Equal(t, "user1000", string(tag))

	_, ok = hashTag([]byte("no-braces-here"))
	assert.False(t, ok)

	_, ok = hashTag([]byte("{}empty-braces"))
	assert.False(t, ok, "empty hash tag {} falls back to hashing the whole key")

	tag, ok = hashTag([]byte("a{b}c{d}e"))
	assert.True(t, ok)
	assert.Equal(t, "b", string(tag), "only the first complete {...} counts")
}
