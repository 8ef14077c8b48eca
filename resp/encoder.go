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
	"strconv"

	"github.com/valyala/bytebufferpool"
)

// Encoder builds a command as a RESP2 array of bulk strings, the wire
// shape every command uses regardless of whether the session has
// negotiated RESP3. Element bytes are staged into a pooled buffer so
// the "*N\r\n" header, whose count isn't known until every argument
// has been written, can be prefixed once at Encode time.
type Encoder struct {
	items *bytebufferpool.ByteBuffer
	count int
}

// NewEncoder returns an Encoder ready to accept arguments.
func NewEncoder() *Encoder {
	return &Encoder{items: bytebufferpool.Get()}
}

// Release returns the Encoder's staging buffer to the pool. Callers
// must not use the Encoder afterward.
func (e *Encoder) Release() {
	bytebufferpool.Put(e.items)
	e.items = nil
}

func (e *Encoder) writeBulk(p []byte) {
	e.items.WriteString("$")
	e.items.WriteString(strconv.Itoa(len(p)))
	e.items.WriteString("\r\n")
	e.items.Write(p)
	e.items.WriteString("\r\n")
	e.count++
}

// Arg appends a raw byte-string argument.
func (e *Encoder) Arg(p []byte) *Encoder {
	e.writeBulk(p)
	return e
}

// ArgString appends a UTF-8 string argument.
func (e *Encoder) ArgString(s string) *Encoder {
	e.writeBulk([]byte(s))
	return e
}

// ArgInt appends a signed integer argument in its decimal form.
func (e *Encoder) ArgInt(v int64) *Encoder {
	e.writeBulk([]byte(strconv.FormatInt(v, 10)))
	return e
}

// ArgDouble appends a floating-point argument.
func (e *Encoder) ArgDouble(v float64) *Encoder {
	e.writeBulk([]byte(strconv.FormatFloat(v, 'g', -1, 64)))
	return e
}

// ArgBool appends a boolean argument encoded the way server commands
// expect it on the wire: "1"/"0".
func (e *Encoder) ArgBool(v bool) *Encoder {
	if v {
		return e.ArgString("1")
	}
	return e.ArgString("0")
}

// PureToken appends a literal keyword argument, e.g. LEN.
func (e *Encoder) PureToken(keyword string) *Encoder {
	return e.ArgString(keyword)
}

// TokenWithValue appends keyword followed by a typed value, and is
// omitted entirely (keyword included) when present is false. value is
// called to append the value's own argument(s) when present is true.
func (e *Encoder) TokenWithValue(keyword string, present bool, value func(e *Encoder)) *Encoder {
	if !present {
		return e
	}
	e.ArgString(keyword)
	value(e)
	return e
}

// OptionalArg appends value's arguments only when present is true.
func (e *Encoder) OptionalArg(present bool, value func(e *Encoder)) *Encoder {
	if present {
		value(e)
	}
	return e
}

// ArrayWithCount appends n followed by n elements, each produced by
// write. Used for server commands whose argument shape is "a count,
// then that many values" (e.g. a list of weights or members).
func (e *Encoder) ArrayWithCount(n int, write func(e *Encoder, i int)) *Encoder {
	e.ArgInt(int64(n))
	for i := 0; i < n; i++ {
		write(e, i)
	}
	return e
}

// Encode finalizes the command into a standalone byte slice: the
// "*N\r\n" array header followed by every buffered element.
func (e *Encoder) Encode() []byte {
	out := bytebufferpool.Get()
	defer bytebufferpool.Put(out)

	out.WriteString("*")
	out.WriteString(strconv.Itoa(e.count))
	out.WriteString("\r\n")
	out.Write(e.items.Bytes())

	result := make([]byte, out.Len())
	copy(result, out.Bytes())
	return result
}

// EncodeCommand is a convenience for the common case: a command name
// followed by plain byte-string arguments.
func EncodeCommand(name string, args ...[]byte) []byte {
	e := NewEncoder()
	defer e.Release()

	e.ArgString(name)
	for _, a := range args {
		e.Arg(a)
	}
	return e.Encode()
}
