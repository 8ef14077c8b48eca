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

// Package splitio reads CRLF-delimited lines and fixed-length runs out
// of an in-memory byte slice without copying, the way resp's parser
// needs to walk a RESP buffer.
package splitio

import "bytes"

// CharCRLF is the RESP framing terminator every line and bulk payload
// ends with.
var CharCRLF = []byte("\r\n")

// Reader reads lines and byte runs out of b starting at an internal
// cursor. Nothing is consumed unless the full line/run requested is
// present: callers use that to tell a genuinely malformed input apart
// from one that is merely incomplete.
type Reader struct {
	b   []byte
	pos int
}

// NewReader 创建并返回 *Reader 实例
func NewReader(b []byte) *Reader {
	return &Reader{b: b}
}

// ReadLine 尝试读取一行 CRLF 结尾的数据 不包含结尾的 CRLF
//
// 如果当前缓冲区内没有完整的 CRLF 则返回 ok=false 且不推进游标
func (r *Reader) ReadLine() (line []byte, ok bool) {
	idx := bytes.Index(r.b[r.pos:], CharCRLF)
	if idx == -1 {
		return nil, false
	}
	line = r.b[r.pos : r.pos+idx]
	r.pos += idx + len(CharCRLF)
	return line, true
}

// ReadN 尝试读取 n 字节原始数据 不足 n 字节时返回 ok=false 且不推进游标
func (r *Reader) ReadN(n int) (data []byte, ok bool) {
	if n < 0 {
		return nil, false
	}
	if r.pos+n > len(r.b) {
		return nil, false
	}
	data = r.b[r.pos : r.pos+n]
	r.pos += n
	return data, true
}

// Pos 返回已消费的字节数
func (r *Reader) Pos() int {
	return r.pos
}

// EOF 返回 Reader 是否已消费完全部数据
func (r *Reader) EOF() bool {
	return r.pos >= len(r.b)
}
