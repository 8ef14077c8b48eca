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

// Package resp implements the RESP2/RESP3 wire protocol: a zero-copy
// token parser, a command encoder, and a decode-from-Token contract.
package resp

// Kind identifies a Token's RESP variant.
type Kind int

const (
	Null Kind = iota
	SimpleString
	SimpleError
	BulkString
	BulkError
	VerbatimString
	Number
	Double
	Boolean
	BigNumber
	Array
	Set
	Push
	Map
	Attribute
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case SimpleString:
		return "simpleString"
	case SimpleError:
		return "simpleError"
	case BulkString:
		return "bulkString"
	case BulkError:
		return "bulkError"
	case VerbatimString:
		return "verbatimString"
	case Number:
		return "number"
	case Double:
		return "double"
	case Boolean:
		return "boolean"
	case BigNumber:
		return "bigNumber"
	case Array:
		return "array"
	case Set:
		return "set"
	case Push:
		return "push"
	case Map:
		return "map"
	case Attribute:
		return "attribute"
	default:
		return "unknown"
	}
}

// IsAggregate reports whether k carries children rather than a scalar
// payload.
func (k Kind) IsAggregate() bool {
	switch k {
	case Array, Set, Push, Map, Attribute:
		return true
	default:
		return false
	}
}

// Token is a zero-copy view over one fully-parsed RESP value. Scalar
// variants carry their payload as a slice into the buffer Parse was
// given; aggregate variants carry only a count and the byte range
// covering their children, re-parsed lazily on iteration. A Token must
// not outlive the buffer it was parsed from.
type Token struct {
	Kind Kind

	// Raw is the payload for simpleString, simpleError, bulkString,
	// bulkError, verbatimString and bigNumber. For verbatimString the
	// 3-byte type tag and its separating ':' have already been split
	// off into VerbatimTag.
	Raw []byte

	VerbatimTag string

	Number  int64
	Double  float64
	Boolean bool

	// Count is the element count for array/set/push, or the entry
	// count for map/attribute (half the number of serialized values).
	Count int

	// children is the byte range covering exactly Count (or 2*Count
	// for map/attribute) consecutive RESP values, parsed lazily by
	// Iter. Empty for scalar tokens.
	children []byte
}

// IsNull reports whether the token is the null variant, covering
// RESP3's `_\r\n` as well as RESP2's `$-1\r\n` and `*-1\r\n`.
func (t Token) IsNull() bool { return t.Kind == Null }

// NumChildren returns the number of serialized values an aggregate
// token's child range covers (2*Count for map/attribute, Count
// otherwise). Zero for scalar tokens.
func (t Token) NumChildren() int {
	if !t.Kind.IsAggregate() {
		return 0
	}
	if t.Kind == Map || t.Kind == Attribute {
		return t.Count * 2
	}
	return t.Count
}

// ChildIter lazily re-parses an aggregate token's children one at a
// time from its byte range, without ever materializing the full slice.
type ChildIter struct {
	buf []byte
	pos int
	n   int
	i   int
}

// Iter returns an iterator over t's children. Calling Iter on a scalar
// token yields an iterator that immediately reports done.
func (t Token) Iter() *ChildIter {
	return &ChildIter{buf: t.children, n: t.NumChildren()}
}

// Next parses and returns the next child token. ok is false once every
// child has been consumed; err is non-nil if the child range does not
// contain a well-formed value (which should not happen for a Token
// produced by Parse, since Parse validates the full range up front).
func (it *ChildIter) Next() (tok Token, ok bool, err error) {
	if it.i >= it.n {
		return Token{}, false, nil
	}

	tok, n, err := parse(it.buf[it.pos:], 1)
	if err != nil {
		return Token{}, false, err
	}
	it.pos += n
	it.i++
	return tok, true, nil
}

// All drains the iterator into a slice. Provided for callers that need
// random access or a length up front; Iter is preferred when children
// are consumed once, in order.
func (t Token) All() ([]Token, error) {
	toks := make([]Token, 0, t.NumChildren())
	it := t.Iter()
	for {
		tok, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return toks, nil
		}
		toks = append(toks, tok)
	}
}
