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

package splitio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReaderReadLine(t *testing.T) {
	r := NewReader([]byte("+OK\r\n$3\r\nabc\r\n"))

	line, ok := r.ReadLine()
	assert.True(t, ok)
	assert.Equal(t, "+OK", string(line))

	line, ok = r.ReadLine()
	assert.True(t, ok)
	assert.Equal(t, "$3", string(line))

	data, ok := r.ReadN(3)
	assert.True(t, ok)
	assert.Equal(t, "abc", string(data))

	line, ok = r.ReadLine()
	assert.True(t, ok)
	assert.Equal(t, "", string(line))

	assert.True(t, r.EOF())
}

func TestReaderIncompleteLineDoesNotAdvance(t *testing.T) {
	r := NewReader([]byte("+OK"))
	_, ok := r.ReadLine()
	assert.False(t, ok)
	assert.Equal(t, 0, r.Pos())
}

func TestReaderReadNShortDoesNotAdvance(t *testing.T) {
	r := NewReader([]byte("ab"))
	_, ok := r.ReadN(3)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Pos())

	data, ok := r.ReadN(2)
	assert.True(t, ok)
	assert.Equal(t, "ab", string(data))
}
