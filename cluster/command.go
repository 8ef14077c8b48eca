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

// Key is a raw key byte string as it appears in a command's argument
// list, before hash-tag extraction.
type Key []byte

// Command is the minimal shape the cluster manager needs from a
// server command in order to route it: the keys it touches. The
// individual command catalog is out of this core's scope (spec.md
// §1), so callers hold commands as some concrete type of their own;
// Command lets a heterogeneous sequence of those be routed without
// making the key-bearing method generic over the command type
// (spec.md §9's "associated-type erasure" note) — a []Command slice
// works whether its elements are GET, MSET or a transaction member,
// as long as each exposes KeysAffected as a plain method.
type Command interface {
	// KeysAffected returns every key the command reads or writes, in
	// argument order. A command with no keys (e.g. PING) returns nil.
	KeysAffected() []Key
}

// RouteCommands extracts every key from cmds, in order, and validates
// they all map to the same slot via RouteMulti. It is the Command-based
// counterpart to RouteMulti for callers holding a heterogeneous pipeline
// or transaction rather than a flat key list.
func RouteCommands(cmds []Command) (uint16, error) {
	var keys [][]byte
	for _, c := range cmds {
		for _, k := range c.KeysAffected() {
			keys = append(keys, []byte(k))
		}
	}
	return RouteMulti(keys)
}
