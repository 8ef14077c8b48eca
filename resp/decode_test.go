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

package resp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, s string) Token {
	t.Helper()
	tok, _, err := Parse([]byte(s))
	require.NoError(t, err)
	return tok
}

func TestDecodePrimitives(t *testing.T) {
	n, err := DecodeInt64(parseOne(t, ":7\r\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	f, err := DecodeFloat64(parseOne(t, ",2.5\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 2.5, f)

	b, err := DecodeBool(parseOne(t, "#t\r\n"))
	require.NoError(t, err)
	assert.True(t, b)

	s, err := DecodeString(parseOne(t, "$3\r\nfoo\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "foo", s)
}

func TestDecodeWrongKindFails(t *testing.T) {
	_, err := DecodeInt64(parseOne(t, "+OK\r\n"))
	assert.True(t, Is(err, KindDecodeError))
}

func TestDecodeOptional(t *testing.T) {
	v, present, err := DecodeOptional(parseOne(t, "$3\r\nfoo\r\n"), DecodeString)
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, "foo", v)

	v, present, err = DecodeOptional(parseOne(t, "_\r\n"), DecodeString)
	require.NoError(t, err)
	assert.False(t, present)
	assert.Equal(t, "", v)
}

func TestDecodeSequence(t *testing.T) {
	items, err := DecodeSequence(parseOne(t, "*3\r\n:1\r\n:2\r\n:3\r\n"), DecodeInt64)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, items)
}

func TestDecodeSequenceAutoWrapsSingleValue(t *testing.T) {
	items, err := DecodeSequence(parseOne(t, ":5\r\n"), DecodeInt64)
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, items)
}

func TestDecodeSet(t *testing.T) {
	set, err := DecodeSet(parseOne(t, "~2\r\n+a\r\n+b\r\n"), DecodeString)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"a": {}, "b": {}}, set)
}

func TestDecodeMapFromMapToken(t *testing.T) {
	m, err := DecodeMap(parseOne(t, "%2\r\n+a\r\n:1\r\n+b\r\n:2\r\n"), DecodeString, DecodeInt64)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"a": 1, "b": 2}, m)
}

func TestDecodeMapFromArrayPairs(t *testing.T) {
	m, err := DecodeMap(parseOne(t, "*4\r\n+a\r\n:1\r\n+b\r\n:2\r\n"), DecodeString, DecodeInt64)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"a": 1, "b": 2}, m)
}

func TestDecodeMapOddArrayFails(t *testing.T) {
	_, err := DecodeMap(parseOne(t, "*3\r\n+a\r\n:1\r\n+b\r\n"), DecodeString, DecodeInt64)
	assert.True(t, Is(err, KindDecodeError))
}

func TestDecodeRange(t *testing.T) {
	lo, hi, err := DecodeRange(parseOne(t, "*2\r\n:0\r\n:16383\r\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), lo)
	assert.Equal(t, int64(16383), hi)
}

func TestDecodeTupleWrongArityFails(t *testing.T) {
	_, err := DecodeTuple(parseOne(t, "*2\r\n:1\r\n:2\r\n"), 3)
	assert.True(t, Is(err, KindDecodeError))
}

func TestDecodeTupleExactArity(t *testing.T) {
	toks, err := DecodeTuple(parseOne(t, "*3\r\n+channel\r\n+payload\r\n:1\r\n"), 3)
	require.NoError(t, err)
	require.Len(t, toks, 3)

	channel, err := DecodeString(toks[0])
	require.NoError(t, err)
	assert.Equal(t, "channel", channel)
}
