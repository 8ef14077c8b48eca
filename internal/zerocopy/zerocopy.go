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

// Package zerocopy holds the inbound byte buffer a connection reads off
// its transport into, and the resp parser reads back out of, without an
// intermediate copy of already-buffered bytes.
package zerocopy

// Buffer accumulates bytes read off a transport and exposes the
// unconsumed tail as a slice view. Every slice returned by Bytes shares
// storage with the buffer: it is only valid until the next Write or
// Compact call, matching the lifetime of the RESP token views parsed
// out of it.
type Buffer interface {
	// Write appends a copy of p to the buffer; the caller may reuse p
	// afterwards.
	Write(p []byte)

	// Bytes returns the unconsumed tail of the buffer, from the last
	// Advance up to the most recent Write.
	Bytes() []byte

	// Advance marks the first n bytes of Bytes() as consumed. It
	// panics if n exceeds len(Bytes()).
	Advance(n int)

	// Compact discards the already-consumed prefix, sliding the
	// unconsumed tail to the front of the backing array. Call between
	// reads once Bytes() has shrunk enough that the backing array is
	// mostly dead weight.
	Compact()

	// Len returns len(Bytes()).
	Len() int
}

type buffer struct {
	b []byte // full backing slice; b[r:] is unconsumed
	r int
}

// NewBuffer returns an empty Buffer ready to serve as a connection's
// inbound read accumulator.
func NewBuffer() Buffer {
	return &buffer{}
}

// Write 实现 Buffer 接口
func (buf *buffer) Write(p []byte) {
	buf.b = append(buf.b, p...)
}

// Bytes 实现 Buffer 接口
func (buf *buffer) Bytes() []byte {
	return buf.b[buf.r:]
}

// Len 实现 Buffer 接口
func (buf *buffer) Len() int {
	return len(buf.b) - buf.r
}

// Advance 实现 Buffer 接口
func (buf *buffer) Advance(n int) {
	if n < 0 || buf.r+n > len(buf.b) {
		panic("zerocopy: Advance out of range")
	}
	buf.r += n
}

// Compact 实现 Buffer 接口
func (buf *buffer) Compact() {
	if buf.r == 0 {
		return
	}
	n := copy(buf.b, buf.b[buf.r:])
	buf.b = buf.b[:n]
	buf.r = 0
}
