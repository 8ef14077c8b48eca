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
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/vkcore/resp"
)

// readCommand blocks until one full RESP array command has arrived on
// r and returns its decoded string arguments.
func readCommand(t *testing.T, r net.Conn) []string {
	t.Helper()

	var buf []byte
	tmp := make([]byte, 256)
	for {
		tok, _, err := resp.Parse(buf)
		if err == nil {
			args, aerr := resp.DecodeSequence(tok, resp.DecodeString)
			require.NoError(t, aerr)
			return args
		}
		require.True(t, resp.Is(err, resp.KindNeedMoreData), "unexpected parse error: %v", err)

		nn, rerr := r.Read(tmp)
		require.NoError(t, rerr)
		buf = append(buf, tmp[:nn]...)
	}
}

func serveHello(t *testing.T, server net.Conn) {
	t.Helper()
	args := readCommand(t, server)
	require.Equal(t, "HELLO", args[0])
	_, err := server.Write([]byte("+OK\r\n"))
	require.NoError(t, err)
}

func newTestConn(t *testing.T, serve func(t *testing.T, server net.Conn)) (*Conn, net.Conn) {
	t.Helper()

	client, server := net.Pipe()
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})

	go func() {
		serveHello(t, server)
		if serve != nil {
			serve(t, server)
		}
	}()

	c := New(client, nil, HelloPayload(HelloOptions{}))
	hello := c.Hello()
	require.NoError(t, hello.Err)
	return c, server
}

func TestConnGet(t *testing.T) {
	c, _ := newTestConn(t, func(t *testing.T, server net.Conn) {
		args := readCommand(t, server)
		assert.Equal(t, []string{"GET", "foo"}, args)
		_, err := server.Write([]byte("$3\r\nBar\r\n"))
		require.NoError(t, err)
	})

	r := c.Submit(context.Background(), NewFrame(resp.EncodeCommand("GET", []byte("foo"))))
	require.NoError(t, r.Err)
	s, err := resp.DecodeString(r.Token)
	require.NoError(t, err)
	assert.Equal(t, "Bar", s)
}

func TestConnBulkError(t *testing.T) {
	c, _ := newTestConn(t, func(t *testing.T, server net.Conn) {
		readCommand(t, server)
		_, err := server.Write([]byte("!10\r\nBulkError!\r\n"))
		require.NoError(t, err)
	})

	r := c.Submit(context.Background(), NewFrame(resp.EncodeCommand("GET", []byte("foo"))))
	require.Error(t, r.Err)
	assert.True(t, Is(r.Err, KindCommandError))
	assert.Contains(t, r.Err.Error(), "BulkError!")
}

func TestConnPipeliningInOrder(t *testing.T) {
	// The goroutines below reach Submit in scheduler order, so the server
	// answers in arrival order with the number carried in each key: a
	// caller gets i+1 only if replies are matched to frames in order.
	c, _ := newTestConn(t, func(t *testing.T, server net.Conn) {
		var replies string
		for i := 0; i < 3; i++ {
			args := readCommand(t, server)
			replies += ":" + strings.TrimPrefix(args[1], "counter") + "\r\n"
		}
		_, err := server.Write([]byte(replies))
		require.NoError(t, err)
	})

	frames := make([]*Frame, 3)
	for i := range frames {
		frames[i] = NewFrame(resp.EncodeCommand("INCR", []byte(fmt.Sprintf("counter%d", i+1))))
	}

	results := make(chan struct {
		i int
		r Result
	}, 3)
	for i, f := range frames {
		i, f := i, f
		go func() {
			r := c.Submit(context.Background(), f)
			results <- struct {
				i int
				r Result
			}{i, r}
		}()
	}

	got := make(map[int]int64)
	for i := 0; i < 3; i++ {
		res := <-results
		require.NoError(t, res.r.Err)
		got[res.i] = res.r.Token.Number
	}
	assert.Equal(t, int64(1), got[0])
	assert.Equal(t, int64(2), got[1])
	assert.Equal(t, int64(3), got[2])
}

func TestConnTransaction(t *testing.T) {
	c, _ := newTestConn(t, func(t *testing.T, server net.Conn) {
		assert.Equal(t, []string{"MULTI"}, readCommand(t, server))
		_, _ = server.Write([]byte("+OK\r\n"))

		assert.Equal(t, []string{"SET", "foo", "10"}, readCommand(t, server))
		_, _ = server.Write([]byte("+QUEUED\r\n"))

		assert.Equal(t, []string{"INCR", "foo"}, readCommand(t, server))
		_, _ = server.Write([]byte("+QUEUED\r\n"))

		assert.Equal(t, []string{"EXEC"}, readCommand(t, server))
		_, _ = server.Write([]byte("*2\r\n+OK\r\n:11\r\n"))
	})

	results, err := c.Transaction(context.Background(), [][]byte{
		resp.EncodeCommand("SET", []byte("foo"), []byte("10")),
		resp.EncodeCommand("INCR", []byte("foo")),
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.NoError(t, results[0].Err)
	assert.Equal(t, resp.SimpleString, results[0].Token.Kind)
	assert.Equal(t, "OK", string(results[0].Token.Raw))

	require.NoError(t, results[1].Err)
	assert.Equal(t, int64(11), results[1].Token.Number)
}

func TestConnExecAbort(t *testing.T) {
	c, _ := newTestConn(t, func(t *testing.T, server net.Conn) {
		readCommand(t, server)
		_, _ = server.Write([]byte("+OK\r\n"))

		readCommand(t, server)
		_, _ = server.Write([]byte("+QUEUED\r\n"))

		readCommand(t, server)
		_, _ = server.Write([]byte("-ERROR\r\n"))

		readCommand(t, server)
		_, _ = server.Write([]byte("-EXECABORT\r\n"))
	})

	_, err := c.Transaction(context.Background(), [][]byte{
		resp.EncodeCommand("SET", []byte("foo"), []byte("10")),
		resp.EncodeCommand("INCR", []byte("foo")),
	})
	require.Error(t, err)
	assert.True(t, Is(err, KindCommandError))
	assert.Contains(t, err.Error(), "EXECABORT")
}

func TestConnTransactionMemberFailureClosesConnection(t *testing.T) {
	c, _ := newTestConn(t, func(t *testing.T, server net.Conn) {
		assert.Equal(t, []string{"MULTI"}, readCommand(t, server))
		_, _ = server.Write([]byte("+OK\r\n"))
		_ = server.Close() // drop the connection before acking the first member
	})

	_, err := c.Transaction(context.Background(), [][]byte{
		resp.EncodeCommand("SET", []byte("foo"), []byte("10")),
	})
	require.Error(t, err)
	assert.False(t, Is(err, KindCommandError), "a broken connection must not read back as a normal command error")

	select {
	case <-c.Closed():
	case <-time.After(time.Second):
		t.Fatal("connection did not close after a transaction member failed to reach the wire")
	}
}

func TestConnUnsolicitedTokenClosesConnection(t *testing.T) {
	c, server := newTestConn(t, func(t *testing.T, server net.Conn) {
		_, _ = server.Write([]byte("$3\r\nBar\r\n"))
	})
	_ = server

	select {
	case <-c.Closed():
	case <-time.After(time.Second):
		t.Fatal("connection did not close on unsolicited token")
	}
	assert.True(t, Is(c.Err(), KindUnsolicitedToken))
}

func TestConnCancellationClosesConnection(t *testing.T) {
	// The fake server reads the GET command (so the event loop's write
	// unblocks and it returns to its select loop) but never replies,
	// simulating a request stuck in flight when the caller cancels.
	c, _ := newTestConn(t, func(t *testing.T, server net.Conn) {
		readCommand(t, server)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Result, 1)
	go func() {
		done <- c.Submit(ctx, NewFrame(resp.EncodeCommand("GET", []byte("foo"))))
	}()

	// Give the frame a moment to reach the pending queue before
	// cancelling, so this is a post-submission cancellation.
	time.Sleep(20 * time.Millisecond)
	cancel()

	r := <-done
	assert.True(t, Is(r.Err, KindCancelled))

	select {
	case <-c.Closed():
	case <-time.After(time.Second):
		t.Fatal("connection did not close after cancellation")
	}
	assert.True(t, Is(c.Err(), KindConnectionClosedDueToCancellation))

	r2 := c.Submit(context.Background(), NewFrame(resp.EncodeCommand("GET", []byte("bar"))))
	assert.True(t, Is(r2.Err, KindConnectionClosedDueToCancellation))
}

func TestConnPreSubmissionCancellationLeavesConnectionHealthy(t *testing.T) {
	c, server := newTestConn(t, func(t *testing.T, server net.Conn) {
		args := readCommand(t, server)
		assert.Equal(t, []string{"GET", "foo"}, args)
		_, _ = server.Write([]byte("$3\r\nBar\r\n"))
	})
	_ = server

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := c.Submit(ctx, NewFrame(resp.EncodeCommand("GET", []byte("nope"))))
	assert.True(t, Is(r.Err, KindCancelled))

	r2 := c.Submit(context.Background(), NewFrame(resp.EncodeCommand("GET", []byte("foo"))))
	require.NoError(t, r2.Err)
	assert.Equal(t, "Bar", string(r2.Token.Raw))
}
