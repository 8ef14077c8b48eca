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
	"fmt"

	"github.com/spf13/cast"

	"github.com/packetd/vkcore/resp"
)

// ParseShards builds a Topology from a CLUSTER SHARDS reply: an array
// of shards, each a map with "slots" (an array of integer ranges) and
// "nodes" (an array of node maps). Other fields absent on older servers
// are left zero-valued; a role or health that is absent or
// unrecognized fails per spec.md §6.
func ParseShards(tok resp.Token) (*Topology, error) {
	shardToks, err := tok.All()
	if err != nil {
		return nil, err
	}

	top := &Topology{
		nodes:  make(map[string]Node),
		shards: make(map[string]Shard),
	}

	for i, st := range shardToks {
		shard, nodes, err := parseShard(st, i)
		if err != nil {
			return nil, err
		}
		top.shards[shard.ID] = shard
		for _, n := range nodes {
			top.nodes[n.ID] = n
		}
		for _, sr := range shard.Slots {
			for s := sr.Lo; ; s++ {
				top.slots[s] = shard.Primary
				if s == sr.Hi {
					break
				}
			}
		}
	}

	if err := top.validatePrimaries(); err != nil {
		return nil, err
	}
	return top, nil
}

func parseShard(tok resp.Token, index int) (Shard, []Node, error) {
	fields, err := resp.DecodeMap(tok, resp.DecodeString, func(t resp.Token) (resp.Token, error) { return t, nil })
	if err != nil {
		return Shard{}, nil, err
	}

	shardID := fmt.Sprintf("shard-%d", index)

	slotsTok, ok := fields["slots"]
	if !ok {
		return Shard{}, nil, newError(KindSlotsTokenIsNotAnArray, "shard %d missing slots", index)
	}
	if slotsTok.Kind != resp.Array && slotsTok.Kind != resp.Set && slotsTok.Kind != resp.Push {
		return Shard{}, nil, newError(KindSlotsTokenIsNotAnArray, "shard %d slots is not an array", index)
	}
	slotToks, err := slotsTok.All()
	if err != nil {
		return Shard{}, nil, err
	}
	if len(slotToks)%2 != 0 {
		return Shard{}, nil, newError(KindSlotsTokenIsNotAnArray, "shard %d slots has odd element count", index)
	}
	var ranges []SlotRange
	for i := 0; i+1 < len(slotToks); i += 2 {
		lo, err := resp.DecodeInt64(slotToks[i])
		if err != nil {
			return Shard{}, nil, err
		}
		hi, err := resp.DecodeInt64(slotToks[i+1])
		if err != nil {
			return Shard{}, nil, err
		}
		ranges = append(ranges, SlotRange{Lo: uint16(lo), Hi: uint16(hi)})
	}

	nodesTok, ok := fields["nodes"]
	if !ok {
		return Shard{}, nil, newError(KindNodesTokenIsNotAnArray, "shard %d missing nodes", index)
	}
	if nodesTok.Kind != resp.Array && nodesTok.Kind != resp.Set && nodesTok.Kind != resp.Push {
		return Shard{}, nil, newError(KindNodesTokenIsNotAnArray, "shard %d nodes is not an array", index)
	}
	nodeToks, err := nodesTok.All()
	if err != nil {
		return Shard{}, nil, err
	}

	shard := Shard{ID: shardID, Slots: ranges}
	var nodes []Node
	for _, nt := range nodeToks {
		raw, err := resp.DecodeMap(nt, resp.DecodeString, decodeAny)
		if err != nil {
			return Shard{}, nil, err
		}
		node, err := nodeFromMap(raw, shardID)
		if err != nil {
			return Shard{}, nil, err
		}
		nodes = append(nodes, node)
		switch node.Role {
		case RolePrimary:
			shard.Primary = node.ID
		case RoleReplica:
			shard.Replicas = append(shard.Replicas, node.ID)
		}
	}
	return shard, nodes, nil
}

// decodeAny decodes any scalar token into a loosely typed value,
// suitable for spf13/cast coercion afterward, mirroring how packetd's
// common.Options stores arbitrary config values as `any`.
func decodeAny(t resp.Token) (any, error) {
	switch t.Kind {
	case resp.Number:
		return t.Number, nil
	case resp.Double:
		return t.Double, nil
	case resp.Boolean:
		return t.Boolean, nil
	case resp.Null:
		return nil, nil
	default:
		b, err := resp.DecodeBytes(t)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
}

// ParseSlots builds a Topology from the older CLUSTER SLOTS reply: an
// array of [lo, hi, primary-info, replica-info...] entries, used as a
// fallback against servers predating CLUSTER SHARDS.
func ParseSlots(tok resp.Token) (*Topology, error) {
	entries, err := tok.All()
	if err != nil {
		return nil, err
	}

	top := &Topology{
		nodes:  make(map[string]Node),
		shards: make(map[string]Shard),
	}

	for i, entry := range entries {
		toks, err := entry.All()
		if err != nil {
			return nil, err
		}
		if len(toks) < 3 {
			return nil, newError(KindSlotsTokenIsNotAnArray, "slots entry %d has arity %d, want >= 3", i, len(toks))
		}
		lo, err := resp.DecodeInt64(toks[0])
		if err != nil {
			return nil, err
		}
		hi, err := resp.DecodeInt64(toks[1])
		if err != nil {
			return nil, err
		}

		shardID := fmt.Sprintf("shard-%d", i)
		shard := Shard{ID: shardID, Slots: []SlotRange{{Lo: uint16(lo), Hi: uint16(hi)}}}

		for j, nt := range toks[2:] {
			fields, err := toks2Fields(nt)
			if err != nil {
				return nil, err
			}
			role := RolePrimary
			if j > 0 {
				role = RoleReplica
			}
			ip := cast.ToString(fields["ip"])
			port := cast.ToInt(fields["port"])
			id := cast.ToString(fields["id"])
			if id == "" {
				id = fmt.Sprintf("%s:%d", ip, port)
			}
			node := Node{
				ID:       id,
				Role:     role,
				Health:   HealthOnline,
				IP:       ip,
				Port:     port,
				Endpoint: fmt.Sprintf("%s:%d", ip, port),
				ShardID:  shardID,
			}
			top.nodes[node.ID] = node
			if role == RolePrimary {
				shard.Primary = node.ID
			} else {
				shard.Replicas = append(shard.Replicas, node.ID)
			}
		}

		top.shards[shardID] = shard
		for s := uint16(lo); ; s++ {
			top.slots[s] = shard.Primary
			if s == uint16(hi) {
				break
			}
		}
	}

	if err := top.validatePrimaries(); err != nil {
		return nil, err
	}
	return top, nil
}

// toks2Fields decodes a CLUSTER SLOTS node entry, positionally
// [ip, port, id, ...], into a name-keyed map so it can share coercion
// with the CLUSTER SHARDS path.
func toks2Fields(t resp.Token) (map[string]any, error) {
	toks, err := t.All()
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, 3)
	if len(toks) > 0 {
		v, _ := decodeAny(toks[0])
		out["ip"] = v
	}
	if len(toks) > 1 {
		v, _ := decodeAny(toks[1])
		out["port"] = v
	}
	if len(toks) > 2 {
		v, _ := decodeAny(toks[2])
		out["id"] = v
	}
	return out, nil
}

// validatePrimaries enforces the topology invariant that every slot
// has exactly one primary: every assigned slot must resolve to a node
// id recorded with RolePrimary. Unassigned slots are skipped.
func (t *Topology) validatePrimaries() error {
	for slot, id := range t.slots {
		if id == "" {
			continue
		}
		n, ok := t.nodes[id]
		if !ok || n.Role != RolePrimary {
			return newError(KindInvalidNodeRole, "slot %d owner %q is not a primary", slot, id)
		}
	}
	return nil
}
