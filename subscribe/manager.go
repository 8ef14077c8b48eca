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

package subscribe

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/packetd/vkcore/internal/pubsub"
	"github.com/packetd/vkcore/resp"
)

// Mode distinguishes the three subscribe families; each gets its own
// wire commands and its own Channel namespace, since "foo" as a
// literal channel, a pattern, and a shard channel are independent
// subscriptions.
type Mode int

const (
	ModeChannel Mode = iota
	ModePattern
	ModeShard
)

func (m Mode) commands() (subscribe, unsubscribe string) {
	switch m {
	case ModePattern:
		return "PSUBSCRIBE", "PUNSUBSCRIBE"
	case ModeShard:
		return "SSUBSCRIBE", "SUNSUBSCRIBE"
	default:
		return "SUBSCRIBE", "UNSUBSCRIBE"
	}
}

type topicKey struct {
	mode Mode
	name string
}

func topicString(mode Mode, name string) string {
	switch mode {
	case ModePattern:
		return "p:" + name
	case ModeShard:
		return "s:" + name
	default:
		return "c:" + name
	}
}

// Message is what a Subscription delivers for message/pmessage/smessage
// pushes. Pattern is only populated for a pattern subscription, where
// Channel is the concrete channel name the pattern matched (spec.md
// §4.5: "forward to pattern listeners, with effective channel set to
// the matched channel").
type Message struct {
	Mode    Mode
	Pattern string
	Channel string
	Payload []byte
}

// Invalidation is a RESP3 client-side-caching push: either a bounded
// set of invalidated keys, or FlushAll for the server's "forget
// everything" signal (a null payload).
type Invalidation struct {
	Keys     []string
	FlushAll bool
}

const invalidateTopic = "__invalidate__"

// Writer is what Manager needs to emit SUBSCRIBE/UNSUBSCRIBE commands
// a caller initiated from outside the connection's event-loop
// goroutine: *conn.Conn.WriteRaw has this exact signature.
type Writer interface {
	WriteRaw(ctx context.Context, payload []byte) error
}

// DirectWriter is what Manager needs to re-issue a command from
// *inside* HandlePush, which already runs on the connection's
// event-loop goroutine: going back through Writer's channel handshake
// there would have that goroutine wait on itself. *conn.Conn.WriteDirect
// has this signature.
type DirectWriter interface {
	WriteDirect(payload []byte) error
}

// Manager is the subscription state machine's connection-facing half:
// one Channel per (mode, name), a pubsub.Registry fanning messages out
// to listener queues, and the push decoding described in spec.md §4.5/§6.
// It implements conn.PushHandler.
type Manager struct {
	writer    Writer
	direct    DirectWriter
	queueSize int

	mut      sync.Mutex
	channels map[topicKey]*Channel
	registry *pubsub.Registry
}

// New returns a Manager. queueSize bounds each listener's per-call
// delivery queue; Push on a full queue blocks rather than drops (spec.md
// §4.5's "never drop" policy), so a small size only adds backpressure,
// never loss.
func New(writer Writer, direct DirectWriter, queueSize int) *Manager {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Manager{
		writer:    writer,
		direct:    direct,
		queueSize: queueSize,
		channels:  make(map[topicKey]*Channel),
		registry:  pubsub.New(),
	}
}

// Subscription is one caller's handle on a set of channels/patterns/
// shard-channels subscribed together. Its single Queue receives every
// message pushed to any of them, in server arrival order.
type Subscription struct {
	m     *Manager
	mode  Mode
	id    string
	names []string
	queue pubsub.Queue
}

// Receive blocks for the next message or ctx's cancellation/deadline.
func (s *Subscription) Receive(ctx context.Context) (Message, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}
		v, ok := s.queue.PopTimeout(100 * time.Millisecond)
		if ok {
			msg, _ := v.(Message)
			return msg, nil
		}
	}
}

// Close unsubscribes this listener from every channel it joined,
// coalescing the UNSUBSCRIBE wire command the way Subscribe coalesced
// the SUBSCRIBE: only the channel's last remaining listener departing
// actually emits one.
func (s *Subscription) Close(ctx context.Context) error {
	return s.m.close(ctx, s)
}

// Subscribe joins channels, coalescing a single SUBSCRIBE for whichever
// of them have no existing listener.
func (m *Manager) Subscribe(ctx context.Context, channels ...string) (*Subscription, error) {
	return m.join(ctx, ModeChannel, channels)
}

// PSubscribe joins glob patterns via PSUBSCRIBE.
func (m *Manager) PSubscribe(ctx context.Context, patterns ...string) (*Subscription, error) {
	return m.join(ctx, ModePattern, patterns)
}

// SSubscribe joins shard channels via SSUBSCRIBE.
func (m *Manager) SSubscribe(ctx context.Context, channels ...string) (*Subscription, error) {
	return m.join(ctx, ModeShard, channels)
}

func (m *Manager) join(ctx context.Context, mode Mode, names []string) (*Subscription, error) {
	if len(names) == 0 {
		return nil, newError("subscribe called with no channels")
	}

	id := uuid.New().String()
	q := pubsub.NewQueue(m.queueSize)

	m.mut.Lock()
	var toSend []string
	for _, name := range names {
		key := topicKey{mode, name}
		ch, ok := m.channels[key]
		if !ok {
			ch = NewChannel()
			m.channels[key] = ch
		}
		if act := ch.Add(id); act.Kind == Subscribe {
			toSend = append(toSend, name)
		}
		m.registry.Attach(topicString(mode, name), q)
	}
	m.mut.Unlock()

	if len(toSend) > 0 {
		cmd, _ := mode.commands()
		if err := m.writer.WriteRaw(ctx, resp.EncodeCommand(cmd, stringsToBytes(toSend)...)); err != nil {
			return nil, err
		}
	}

	return &Subscription{m: m, mode: mode, id: id, names: append([]string(nil), names...), queue: q}, nil
}

func (m *Manager) close(ctx context.Context, s *Subscription) error {
	m.mut.Lock()
	var toSend []string
	for _, name := range s.names {
		key := topicKey{s.mode, name}
		ch, ok := m.channels[key]
		if !ok {
			continue
		}
		if act := ch.Close(s.id); act.Kind == Unsubscribe {
			toSend = append(toSend, name)
		}
		m.registry.Unsubscribe(topicString(s.mode, name), s.queue)
	}
	m.mut.Unlock()

	s.queue.Close()

	if len(toSend) == 0 {
		return nil
	}
	_, cmd := s.mode.commands()
	return m.writer.WriteRaw(ctx, resp.EncodeCommand(cmd, stringsToBytes(toSend)...))
}

// Invalidations subscribes to RESP3 key-invalidation pushes, delivered
// independently of any SUBSCRIBE/UNSUBSCRIBE handshake (the server
// sends them unsolicited once client-side caching is enabled on the
// connection).
func (m *Manager) Invalidations(size int) pubsub.Queue {
	return m.registry.Subscribe(invalidateTopic, size)
}

func stringsToBytes(ss []string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}
