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

package conn

import "github.com/packetd/vkcore/resp"

// FrameKind distinguishes how the pipeline handler dispatches the
// token that answers a pending Frame. SUBSCRIBE/UNSUBSCRIBE commands
// are deliberately absent here: their acks always arrive as pushes,
// which never consume a pending-queue slot, so the connection writes
// them directly (see Conn.WriteRaw) instead of queuing a Frame.
type FrameKind int

const (
	// Normal completes on the next non-push token: success unless the
	// token is a simpleError/bulkError, in which case it fails with
	// KindCommandError.
	Normal FrameKind = iota

	// Hello is the handshake frame; a failing reply additionally
	// closes the connection.
	Hello

	// MultiStart expects a "+OK" ack for the MULTI that opens a
	// transaction.
	MultiStart

	// QueuedMember expects a "+QUEUED" ack; its real result arrives
	// later, decomposed from the owning ExecEnd frame's array reply.
	QueuedMember

	// ExecEnd expects either an array reply (decomposed into each
	// sibling QueuedMember's Result) or an error reply (which aborts
	// every sibling with that error).
	ExecEnd
)

// Result is what a Frame's caller ultimately observes: either a parsed
// Token (Err == nil) or a terminal error.
type Result struct {
	Token resp.Token
	Err   error
}

// Frame is an in-flight request: its encoded bytes, a single-shot
// result sink, and enough bookkeeping for the pipeline to know how to
// interpret the reply that answers it.
type Frame struct {
	Kind    FrameKind
	Payload []byte

	// result delivers the frame's own completion (its ack, for
	// QueuedMember/MultiStart/ExecEnd; its final value otherwise).
	// Buffered with capacity 1 so the pipeline never blocks delivering
	// it.
	result chan Result

	// siblings is set on ExecEnd to the ordered QueuedMember frames of
	// the same transaction, so the EXEC array can be decomposed into
	// each member's true final result.
	siblings []*Frame

	// final is set on QueuedMember to the channel its real result
	// (decomposed from ExecEnd) is delivered on, distinct from result
	// which only carries the "+QUEUED" ack.
	final chan Result
}

// NewFrame builds a Normal command frame from encoded bytes.
func NewFrame(payload []byte) *Frame {
	return &Frame{Kind: Normal, Payload: payload, result: make(chan Result, 1)}
}

// NewHelloFrame builds the handshake frame.
func NewHelloFrame(payload []byte) *Frame {
	return &Frame{Kind: Hello, Payload: payload, result: make(chan Result, 1)}
}

// Wait blocks until the frame completes and returns its Result. It is
// safe to call at most once per frame; the caller that submitted the
// frame owns it.
func (f *Frame) Wait() Result {
	return <-f.result
}

// FinalWait blocks for a QueuedMember frame's true result (as opposed
// to its "+QUEUED" ack). Calling it on any other FrameKind waits on
// the same channel as Wait.
func (f *Frame) FinalWait() Result {
	if f.final == nil {
		return f.Wait()
	}
	return <-f.final
}

func (f *Frame) complete(r Result) {
	select {
	case f.result <- r:
	default:
	}
}

func (f *Frame) completeFinal(r Result) {
	ch := f.final
	if ch == nil {
		ch = f.result
	}
	select {
	case ch <- r:
	default:
	}
}

// NewTransaction builds the MULTI, member and EXEC frames for
// transaction(c1, ..., cN): emit MULTI, then each command, then EXEC.
// The returned member frames' FinalWait resolves once EXEC's array
// reply (or abort error) has been decomposed.
func NewTransaction(multi []byte, members [][]byte, exec []byte) (start *Frame, mids []*Frame, end *Frame) {
	start = &Frame{Kind: MultiStart, Payload: multi, result: make(chan Result, 1)}

	mids = make([]*Frame, len(members))
	for i, payload := range members {
		mids[i] = &Frame{
			Kind:    QueuedMember,
			Payload: payload,
			result:  make(chan Result, 1),
			final:   make(chan Result, 1),
		}
	}

	end = &Frame{Kind: ExecEnd, Payload: exec, result: make(chan Result, 1), siblings: mids}
	return start, mids, end
}
