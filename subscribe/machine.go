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

// Package subscribe is the pub/sub subscription state machine and the
// push-decoding manager built on top of it: one Channel per literal
// channel, pattern or shard-channel name, coalescing SUBSCRIBE and
// UNSUBSCRIBE traffic so overlapping listeners only cost one wire
// command each way.
package subscribe

// State is a channel's position in its subscribe/unsubscribe
// lifecycle.
type State int

const (
	// Empty has no listeners and no subscription in flight.
	Empty State = iota
	// Subscribing has a SUBSCRIBE in flight, ack not yet observed.
	Subscribing
	// Active has an acknowledged subscription and at least one
	// listener (or a listener departing mid-flight, see Close).
	Active
	// Unsubscribing has an UNSUBSCRIBE in flight, ack not yet observed.
	Unsubscribing
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Subscribing:
		return "subscribing"
	case Active:
		return "active"
	case Unsubscribing:
		return "unsubscribing"
	default:
		return "unknown"
	}
}

// ActionKind is the instruction a Channel transition hands back to its
// caller: what wire traffic or delivery the caller must now perform.
type ActionKind int

const (
	DoNothing ActionKind = iota
	Subscribe
	Unsubscribe
	ForwardMessage
	RemoveChannel
)

// Action is the output half of the machine's (state, event) -> (state', action)
// pure function.
type Action struct {
	Kind ActionKind
	// Listeners is populated on ForwardMessage: every listener id
	// currently registered on the channel, for the caller to deliver
	// the message to.
	Listeners []string
}

// Channel is one channel/pattern/shard-channel's subscription state
// machine. It is a pure function of (state, event) -> (state',
// action): no I/O, no locking, fully testable by constructing one and
// feeding it events directly. A Manager wraps one per topic and
// serializes access to it under its own mutex.
type Channel struct {
	state     State
	listeners map[string]struct{}
	// pending holds listeners that called Add while an UNSUBSCRIBE was
	// already in flight; they rejoin once that unsubscribe's ack
	// arrives, which immediately issues a fresh SUBSCRIBE (spec.md
	// §4.5: "A new subscribe arriving while unsubscribing waits for
	// the unsubscribe-ack, then issues a fresh SUBSCRIBE").
	pending map[string]struct{}
	// departAfterAck is set when every listener closes while still in
	// Subscribing: the SUBSCRIBE is already in flight and cannot be
	// cancelled, so the channel waits for its ack before immediately
	// issuing the UNSUBSCRIBE.
	departAfterAck bool
}

// NewChannel returns a Channel in the Empty state.
func NewChannel() *Channel {
	return &Channel{
		listeners: make(map[string]struct{}),
		pending:   make(map[string]struct{}),
	}
}

// State reports the channel's current lifecycle state.
func (c *Channel) State() State { return c.state }

// NumListeners reports the number of active listeners (not counting
// ones queued in pending during an in-flight unsubscribe).
func (c *Channel) NumListeners() int { return len(c.listeners) }

func (c *Channel) snapshotListeners() []string {
	out := make([]string, 0, len(c.listeners))
	for id := range c.listeners {
		out = append(out, id)
	}
	return out
}

// Add registers listener on the channel. From Empty it starts a new
// subscription; from Subscribing/Active it joins the existing one at
// no extra wire cost; from Unsubscribing it is queued until the
// in-flight unsubscribe's ack arrives.
func (c *Channel) Add(listener string) Action {
	switch c.state {
	case Empty:
		c.listeners[listener] = struct{}{}
		c.state = Subscribing
		return Action{Kind: Subscribe}

	case Subscribing, Active:
		c.listeners[listener] = struct{}{}
		c.departAfterAck = false
		return Action{Kind: DoNothing}

	case Unsubscribing:
		c.pending[listener] = struct{}{}
		return Action{Kind: DoNothing}

	default:
		return Action{Kind: DoNothing}
	}
}

// Added reports that the server acknowledged the in-flight SUBSCRIBE.
// Duplicate acks (spec.md §9's open question on repeated ssubscribe
// acks) are idempotent no-ops from Active.
func (c *Channel) Added() Action {
	switch c.state {
	case Subscribing:
		c.state = Active
		if c.departAfterAck {
			c.departAfterAck = false
			c.state = Unsubscribing
			return Action{Kind: Unsubscribe}
		}
		return Action{Kind: DoNothing}

	case Active:
		return Action{Kind: DoNothing}

	default:
		return Action{Kind: DoNothing}
	}
}

// Message delivers a pushed message to every current listener. Per the
// state table, a message arriving while Subscribing (the ack has not
// landed yet) is a no-op: the table's cell for Subscribing×message is
// "buffer (doNothing)", not forward — a message push should not reach
// the wire before the server has acked the subscribe it belongs to, so
// there is nothing to act on here.
func (c *Channel) Message() Action {
	switch c.state {
	case Active, Unsubscribing:
		if len(c.listeners) == 0 {
			return Action{Kind: DoNothing}
		}
		return Action{Kind: ForwardMessage, Listeners: c.snapshotListeners()}

	default:
		return Action{Kind: DoNothing}
	}
}

// Close removes listener. If it was the channel's last listener while
// Active, this issues the UNSUBSCRIBE; while Subscribing it only marks
// the channel to depart once the pending SUBSCRIBE is acked.
func (c *Channel) Close(listener string) Action {
	delete(c.listeners, listener)
	delete(c.pending, listener)

	switch c.state {
	case Subscribing:
		if len(c.listeners) == 0 {
			c.departAfterAck = true
		}
		return Action{Kind: DoNothing}

	case Active:
		if len(c.listeners) == 0 {
			c.state = Unsubscribing
			return Action{Kind: Unsubscribe}
		}
		return Action{Kind: DoNothing}

	case Unsubscribing:
		return Action{Kind: DoNothing}

	default:
		return Action{Kind: DoNothing}
	}
}

// Closed reports that the server acknowledged the in-flight
// UNSUBSCRIBE. If listeners queued up via Add while the unsubscribe
// was in flight, this immediately issues a fresh SUBSCRIBE; otherwise
// the channel is torn down and the caller must forget it.
func (c *Channel) Closed() Action {
	if c.state != Unsubscribing {
		return Action{Kind: DoNothing}
	}

	if len(c.pending) > 0 {
		for id := range c.pending {
			c.listeners[id] = struct{}{}
		}
		c.pending = make(map[string]struct{})
		c.state = Subscribing
		return Action{Kind: Subscribe}
	}

	c.state = Empty
	return Action{Kind: RemoveChannel}
}
