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

import "github.com/packetd/vkcore/resp"

// HandlePush decodes one inbound push token per spec.md §4.5/§6 and
// drives the matching Channel's state machine. It satisfies conn's
// PushHandler interface; conn.Conn calls it synchronously from its own
// event-loop goroutine while dispatching an inbound `>` token, and
// closes the connection on any non-nil return.
func (m *Manager) HandlePush(tok resp.Token) error {
	toks, err := tok.All()
	if err != nil {
		return newError("malformed push: %v", err)
	}
	if len(toks) == 0 {
		return newError("empty push array")
	}

	label, err := resp.DecodeString(toks[0])
	if err != nil {
		return newError("push leading element is not a string: %v", err)
	}

	switch label {
	case "subscribe":
		return m.handleAck(ModeChannel, toks)
	case "psubscribe":
		return m.handleAck(ModePattern, toks)
	case "ssubscribe":
		return m.handleAck(ModeShard, toks)

	case "unsubscribe":
		return m.handleClosedAck(ModeChannel, toks)
	case "punsubscribe":
		return m.handleClosedAck(ModePattern, toks)
	case "sunsubscribe":
		return m.handleClosedAck(ModeShard, toks)

	case "message":
		return m.handleMessage(ModeChannel, toks)
	case "pmessage":
		return m.handlePatternMessage(toks)
	case "smessage":
		return m.handleMessage(ModeShard, toks)

	case "invalidate":
		return m.handleInvalidate(toks)

	default:
		return newError("unrecognized push type %q", label)
	}
}

// handleAck processes a subscribe/psubscribe/ssubscribe ack:
// (label, channel, count).
func (m *Manager) handleAck(mode Mode, toks []resp.Token) error {
	if len(toks) != 3 {
		return newError("%s ack has arity %d, want 3", mode.ackLabel(), len(toks))
	}
	name, err := resp.DecodeString(toks[1])
	if err != nil {
		return newError("%s ack channel: %v", mode.ackLabel(), err)
	}

	m.mut.Lock()
	ch, ok := m.channels[topicKey{mode, name}]
	if !ok {
		m.mut.Unlock()
		return newError("%s ack for unknown channel %q", mode.ackLabel(), name)
	}
	act := ch.Added()
	m.mut.Unlock()

	return m.runAction(mode, name, act)
}

// handleClosedAck processes an unsubscribe/punsubscribe/sunsubscribe
// ack: (label, channel, count).
func (m *Manager) handleClosedAck(mode Mode, toks []resp.Token) error {
	if len(toks) != 3 {
		return newError("%s ack has arity %d, want 3", mode.unsubAckLabel(), len(toks))
	}
	name, err := resp.DecodeString(toks[1])
	if err != nil {
		return newError("%s ack channel: %v", mode.unsubAckLabel(), err)
	}

	m.mut.Lock()
	ch, ok := m.channels[topicKey{mode, name}]
	if !ok {
		m.mut.Unlock()
		return newError("%s ack for unknown channel %q", mode.unsubAckLabel(), name)
	}
	act := ch.Closed()
	if act.Kind == RemoveChannel {
		delete(m.channels, topicKey{mode, name})
	}
	m.mut.Unlock()

	return m.runAction(mode, name, act)
}

// runAction executes the side effect a Channel transition asked for.
// Subscribe/Unsubscribe here are re-issued from within HandlePush
// itself (an unsubscribe after departAfterAck, or a fresh
// resubscribe after Closed found queued listeners), so they must go
// through WriteDirect rather than Writer: the event loop that would
// service WriteRaw's channel handshake is this very goroutine.
func (m *Manager) runAction(mode Mode, name string, act Action) error {
	switch act.Kind {
	case Subscribe:
		cmd, _ := mode.commands()
		return m.direct.WriteDirect(resp.EncodeCommand(cmd, []byte(name)))
	case Unsubscribe:
		_, cmd := mode.commands()
		return m.direct.WriteDirect(resp.EncodeCommand(cmd, []byte(name)))
	default:
		return nil
	}
}

// handleMessage processes a message/smessage push: (label, channel,
// payload).
func (m *Manager) handleMessage(mode Mode, toks []resp.Token) error {
	if len(toks) != 3 {
		return newError("message has arity %d, want 3", len(toks))
	}
	name, err := resp.DecodeString(toks[1])
	if err != nil {
		return newError("message channel: %v", err)
	}
	payload, err := resp.DecodeBytes(toks[2])
	if err != nil {
		return newError("message payload: %v", err)
	}
	return m.forward(mode, name, Message{Mode: mode, Channel: name, Payload: payload})
}

// handlePatternMessage processes a pmessage push: (label, pattern,
// channel, payload); the effective channel is the matched channel, not
// the pattern.
func (m *Manager) handlePatternMessage(toks []resp.Token) error {
	if len(toks) != 4 {
		return newError("pmessage has arity %d, want 4", len(toks))
	}
	pattern, err := resp.DecodeString(toks[1])
	if err != nil {
		return newError("pmessage pattern: %v", err)
	}
	channel, err := resp.DecodeString(toks[2])
	if err != nil {
		return newError("pmessage channel: %v", err)
	}
	payload, err := resp.DecodeBytes(toks[3])
	if err != nil {
		return newError("pmessage payload: %v", err)
	}
	return m.forward(ModePattern, pattern, Message{Mode: ModePattern, Pattern: pattern, Channel: channel, Payload: payload})
}

func (m *Manager) forward(mode Mode, name string, msg Message) error {
	m.mut.Lock()
	ch, ok := m.channels[topicKey{mode, name}]
	if !ok {
		m.mut.Unlock()
		return newError("message for unknown channel %q", name)
	}
	act := ch.Message()
	m.mut.Unlock()

	if act.Kind == ForwardMessage {
		m.registry.Publish(topicString(mode, name), msg)
	}
	return nil
}

// handleInvalidate processes a RESP3 client-side-caching push:
// (label, keys) where keys is an array of invalidated keys, or null to
// mean "flush everything".
func (m *Manager) handleInvalidate(toks []resp.Token) error {
	if len(toks) != 2 {
		return newError("invalidate has arity %d, want 2", len(toks))
	}
	if toks[1].IsNull() {
		m.registry.Publish(invalidateTopic, Invalidation{FlushAll: true})
		return nil
	}
	keys, err := resp.DecodeSequence(toks[1], resp.DecodeString)
	if err != nil {
		return newError("invalidate keys: %v", err)
	}
	m.registry.Publish(invalidateTopic, Invalidation{Keys: keys})
	return nil
}

func (m Mode) ackLabel() string {
	switch m {
	case ModePattern:
		return "psubscribe"
	case ModeShard:
		return "ssubscribe"
	default:
		return "subscribe"
	}
}

func (m Mode) unsubAckLabel() string {
	switch m {
	case ModePattern:
		return "punsubscribe"
	case ModeShard:
		return "sunsubscribe"
	default:
		return "unsubscribe"
	}
}
