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

import (
	"context"
	"io"
	"sync"

	"github.com/packetd/vkcore/internal/zerocopy"
	"github.com/packetd/vkcore/logger"
	"github.com/packetd/vkcore/resp"
)

// Transport is the bidirectional byte channel a Conn owns; TLS setup,
// DNS resolution and transport bring-up all happen before a Transport
// reaches here.
type Transport = io.ReadWriteCloser

// PushHandler routes inbound RESP3 push tokens to the subscription
// manager. Only tokens of kind resp.Push reach it; a RESP2 array is
// treated as an ordinary reply to the head of the pending queue,
// whatever its leading element.
type PushHandler interface {
	HandlePush(tok resp.Token) error
}

type readResult struct {
	data []byte
	err  error
}

type rawSend struct {
	payload []byte
	done    chan error
}

type killSignal struct {
	cancelled *Frame // non-nil when triggered by a post-submission cancellation
}

// Conn is the single point of serialization between callers and the
// transport: one event-loop goroutine owns the pending queue, the
// parser's input buffer, and every write.
type Conn struct {
	transport Transport
	pushes    PushHandler

	submit  chan *Frame
	rawSend chan rawSend
	kill    chan killSignal

	closed chan struct{}

	mut      sync.Mutex
	closeErr error

	hello *Frame
}

// New starts the connection's event loop and immediately submits the
// HELLO handshake frame; no other command is written to the wire
// ahead of it. pushes may be nil if the caller never subscribes.
func New(transport Transport, pushes PushHandler, helloPayload []byte) *Conn {
	c := &Conn{
		transport: transport,
		pushes:    pushes,
		submit:    make(chan *Frame),
		rawSend:   make(chan rawSend),
		kill:      make(chan killSignal, 1),
		closed:    make(chan struct{}),
	}
	go c.run()

	c.hello = NewHelloFrame(helloPayload)
	select {
	case c.submit <- c.hello:
	case <-c.closed:
	}
	return c
}

// Hello blocks until the HELLO handshake completes.
func (c *Conn) Hello() Result {
	return c.hello.Wait()
}

// Closed reports connection teardown.
func (c *Conn) Closed() <-chan struct{} {
	return c.closed
}

// Err returns the reason the connection closed, or nil while open.
func (c *Conn) Err() error {
	c.mut.Lock()
	defer c.mut.Unlock()
	return c.closeErr
}

func (c *Conn) errOrClosed() error {
	if err := c.Err(); err != nil {
		return err
	}
	return newError(KindConnectionClosed, "connection closed")
}

// Close tears the connection down from the caller's side: every
// pending frame fails with KindConnectionClosed.
func (c *Conn) Close() {
	select {
	case c.kill <- killSignal{}:
	case <-c.closed:
	}
}

// Submit writes f's payload and enqueues it on the pending queue, then
// waits for its ack (QueuedMember/MultiStart) or final result (Normal,
// Hello, ExecEnd). A pre-submission ctx cancellation fails with
// KindCancelled and leaves the connection healthy; a post-submission
// cancellation closes the connection, since in-order replies preclude
// skipping one caller's slot.
func (c *Conn) Submit(ctx context.Context, f *Frame) Result {
	select {
	case <-ctx.Done():
		return Result{Err: newError(KindCancelled, "cancelled before submission")}
	default:
	}

	select {
	case c.submit <- f:
	case <-ctx.Done():
		return Result{Err: newError(KindCancelled, "cancelled before submission")}
	case <-c.closed:
		return Result{Err: c.errOrClosed()}
	}

	select {
	case r := <-f.result:
		return r
	case <-ctx.Done():
		select {
		case c.kill <- killSignal{cancelled: f}:
		default:
		}
		return Result{Err: newError(KindCancelled, "cancelled")}
	case <-c.closed:
		return Result{Err: c.errOrClosed()}
	}
}

// WriteRaw writes payload directly to the wire without allocating a
// pending-queue slot. It is for commands whose replies always arrive
// as pushes — SUBSCRIBE/UNSUBSCRIBE and their pattern/shard variants —
// since pushes never consume a queue slot and the subscription state
// machine tracks their completion itself.
func (c *Conn) WriteRaw(ctx context.Context, payload []byte) error {
	done := make(chan error, 1)
	select {
	case c.rawSend <- rawSend{payload: payload, done: done}:
	case <-ctx.Done():
		return newError(KindCancelled, "cancelled before submission")
	case <-c.closed:
		return c.errOrClosed()
	}

	select {
	case err := <-done:
		return err
	case <-c.closed:
		return c.errOrClosed()
	}
}

// WriteDirect writes payload straight to the transport without the
// submit/rawSend channel handoff. It exists for a PushHandler reacting
// to a push it was just handed: HandlePush runs synchronously on the
// event-loop goroutine inside dispatch, so going back through
// WriteRaw's channel would have that goroutine wait on itself. Calling
// WriteDirect from any other goroutine races the transport; it is only
// safe from within HandlePush.
func (c *Conn) WriteDirect(payload []byte) error {
	_, err := c.transport.Write(payload)
	return err
}

func (c *Conn) run() {
	reads := make(chan readResult, 16)
	go c.readLoop(reads)

	var queue pendingQueue
	inbuf := zerocopy.NewBuffer()

	// submit and raw are nil while the HELLO reply is outstanding, so no
	// other command reaches the wire before the handshake completes.
	submit, raw := c.submit, c.rawSend

	for {
		select {
		case f := <-submit:
			if _, err := c.transport.Write(f.Payload); err != nil {
				werr := newError(KindConnectionClosed, "write failed: %v", err)
				f.complete(Result{Err: werr})
				f.completeFinal(Result{Err: werr})
				c.fail(werr, &queue)
				return
			}
			queue.push(f)
			if f.Kind == Hello {
				submit, raw = nil, nil
			}

		case rs := <-raw:
			_, err := c.transport.Write(rs.payload)
			rs.done <- err

		case k := <-c.kill:
			if k.cancelled != nil {
				c.fail(newError(KindConnectionClosedDueToCancellation, "connection closed due to cancellation"), &queue)
			} else {
				c.fail(newError(KindConnectionClosed, "closed by caller"), &queue)
			}
			return

		case r := <-reads:
			if r.err != nil {
				c.fail(newError(KindConnectionClosed, "read failed: %v", r.err), &queue)
				return
			}
			inbuf.Write(r.data)
			if err := c.drain(inbuf, &queue); err != nil {
				c.fail(err, &queue)
				return
			}
			inbuf.Compact()
			if submit == nil && queue.empty() {
				submit, raw = c.submit, c.rawSend
			}
		}
	}
}

func (c *Conn) fail(err error, queue *pendingQueue) {
	c.mut.Lock()
	if c.closeErr == nil {
		c.closeErr = err
	}
	c.mut.Unlock()

	logger.With(logger.String("subsystem", "conn"), logger.Err(err)).Warnf("connection closed")

	_ = c.transport.Close()
	close(c.closed)

	for _, f := range queue.drainAll() {
		f.complete(Result{Err: err})
		f.completeFinal(Result{Err: err})
	}
}

func (c *Conn) readLoop(ch chan<- readResult) {
	buf := make([]byte, 4096)
	for {
		n, err := c.transport.Read(buf)
		if n > 0 {
			cp := make([]byte, n)
			copy(cp, buf[:n])
			select {
			case ch <- readResult{data: cp}:
			case <-c.closed:
				return
			}
		}
		if err != nil {
			select {
			case ch <- readResult{err: err}:
			case <-c.closed:
			}
			return
		}
	}
}

// drain parses every complete token currently buffered and dispatches
// each in turn, leaving any trailing partial value for the next read.
func (c *Conn) drain(buf zerocopy.Buffer, queue *pendingQueue) error {
	for {
		tok, n, err := resp.Parse(buf.Bytes())
		if err != nil {
			if resp.Is(err, resp.KindNeedMoreData) {
				return nil
			}
			return err
		}
		buf.Advance(n)
		if err := c.dispatch(tok, queue); err != nil {
			return err
		}
	}
}

func (c *Conn) dispatch(tok resp.Token, queue *pendingQueue) error {
	if tok.Kind == resp.Push {
		if c.pushes == nil {
			return nil
		}
		if err := c.pushes.HandlePush(tok); err != nil {
			return newError(KindSubscriptionError, "%v", err)
		}
		return nil
	}

	head := queue.pop()
	if head == nil {
		return newError(KindUnsolicitedToken, "reply with no matching in-flight frame")
	}
	return c.complete(head, tok)
}

func (c *Conn) complete(head *Frame, tok resp.Token) error {
	switch head.Kind {
	case Normal, Hello:
		res := tokenToResult(tok)
		head.complete(res)
		if head.Kind == Hello && res.Err != nil {
			return newError(KindConnectionClosed, "hello failed: %v", res.Err)
		}
		return nil

	case MultiStart, QueuedMember:
		head.complete(tokenToResult(tok))
		return nil

	case ExecEnd:
		return c.completeExec(head, tok)

	default:
		return nil
	}
}

func (c *Conn) completeExec(end *Frame, tok resp.Token) error {
	if tok.Kind == resp.SimpleError || tok.Kind == resp.BulkError {
		abortErr := CommandError(string(tok.Raw))
		for _, m := range end.siblings {
			m.completeFinal(Result{Err: abortErr})
		}
		end.complete(Result{Err: abortErr})
		return nil
	}

	children, err := tok.All()
	if err != nil {
		return err
	}
	if len(children) != len(end.siblings) {
		abortErr := newError(KindCommandError, "EXEC array length %d does not match %d queued commands", len(children), len(end.siblings))
		for _, m := range end.siblings {
			m.completeFinal(Result{Err: abortErr})
		}
		end.complete(Result{Err: abortErr})
		return nil
	}

	for i, m := range end.siblings {
		m.completeFinal(tokenToResult(children[i]))
	}
	end.complete(Result{Token: tok})
	return nil
}

func tokenToResult(tok resp.Token) Result {
	if tok.Kind == resp.SimpleError || tok.Kind == resp.BulkError {
		return Result{Err: CommandError(string(tok.Raw))}
	}
	return Result{Token: tok}
}
