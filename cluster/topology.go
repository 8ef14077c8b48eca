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

package cluster

import (
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/valyala/bytebufferpool"
)

// SlotRange is a closed [Lo, Hi] range of slots a shard owns.
type SlotRange struct {
	Lo, Hi uint16
}

// Shard is one primary plus its replicas, and the slot ranges it owns.
type Shard struct {
	ID       string
	Primary  string   // node id
	Replicas []string // node ids
	Slots    []SlotRange
}

// Topology is the read-mostly slot-to-node map and node inventory a
// cluster.Manager swaps atomically on refresh. Every field is set once
// at construction by ParseShards/ParseSlots and never mutated after,
// so concurrent readers need no lock once they hold a reference.
type Topology struct {
	slots  [NumSlots]string // node id owning each slot, "" if unassigned
	nodes  map[string]Node
	shards map[string]Shard
}

// NodeBySlot returns the node owning slot, or false if no shard claims
// it yet.
func (t *Topology) NodeBySlot(slot uint16) (Node, bool) {
	id := t.slots[slot]
	if id == "" {
		return Node{}, false
	}
	n, ok := t.nodes[id]
	return n, ok
}

// Node looks a node up by id.
func (t *Topology) Node(id string) (Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Shard looks a shard up by id.
func (t *Topology) Shard(id string) (Shard, bool) {
	s, ok := t.shards[id]
	return s, ok
}

// Nodes returns every node in the topology, primaries and replicas
// alike, in a deterministic order.
func (t *Topology) Nodes() []Node {
	out := make([]Node, 0, len(t.nodes))
	for _, n := range t.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// withMoved returns a copy of t with slot's owner updated to the node
// at endpoint, registering that node if the topology doesn't already
// know it. Used for MOVED redirection, which only corrects one slot
// rather than replacing the whole snapshot.
func (t *Topology) withMoved(slot uint16, endpoint string) *Topology {
	next := t.clone()

	id := endpoint
	if n, ok := next.nodeByEndpoint(endpoint); ok {
		id = n.ID
	} else {
		next.nodes[id] = Node{ID: id, Role: RolePrimary, Health: HealthOnline, Endpoint: endpoint}
	}
	next.slots[slot] = id
	return next
}

func (t *Topology) nodeByEndpoint(endpoint string) (Node, bool) {
	for _, n := range t.nodes {
		if n.Endpoint == endpoint {
			return n, true
		}
	}
	return Node{}, false
}

func (t *Topology) clone() *Topology {
	next := &Topology{
		nodes:  make(map[string]Node, len(t.nodes)),
		shards: make(map[string]Shard, len(t.shards)),
	}
	next.slots = t.slots
	for k, v := range t.nodes {
		next.nodes[k] = v
	}
	for k, v := range t.shards {
		next.shards[k] = v
	}
	return next
}

// Fingerprint is a 64-bit hash of the topology's canonical encoding
// (each shard's id, node ids and slot ranges, plus the node id owning
// every slot, so a withMoved patch changes it), grounded on packetd's
// internal/labels.Labels.Hash: xxhash over a buffer staged through
// bytebufferpool. Two topologies with the same fingerprint describe
// the same slot ownership, letting a refresh that changed nothing skip
// the atomic swap and the "topology changed" notification.
func (t *Topology) Fingerprint() uint64 {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	ids := make([]string, 0, len(t.shards))
	for id := range t.shards {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		sh := t.shards[id]
		buf.WriteString(sh.ID)
		buf.WriteByte(':')
		buf.WriteString(sh.Primary)
		for _, r := range sh.Replicas {
			buf.WriteByte(',')
			buf.WriteString(r)
		}
		for _, sr := range sh.Slots {
			buf.WriteByte('[')
			buf.WriteString(strconv.Itoa(int(sr.Lo)))
			buf.WriteByte('-')
			buf.WriteString(strconv.Itoa(int(sr.Hi)))
			buf.WriteByte(']')
		}
		buf.WriteByte(';')
	}

	for s := 0; s < NumSlots; s++ {
		if s == 0 || t.slots[s] != t.slots[s-1] {
			buf.WriteString(strconv.Itoa(s))
			buf.WriteByte('=')
			buf.WriteString(t.slots[s])
			buf.WriteByte(';')
		}
	}

	return xxhash.Sum64(buf.Bytes())
}
