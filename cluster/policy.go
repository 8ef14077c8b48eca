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

import "sync/atomic"

// Policy selects which node of a shard serves a read-only command.
// Writes always go to the shard's primary regardless of Policy (spec.md
// §4.6).
type Policy int

const (
	// PolicyPrimary always reads from the shard's primary.
	PolicyPrimary Policy = iota
	// PolicyCycleReplicas round-robins over the shard's replicas,
	// falling back to the primary if it has none.
	PolicyCycleReplicas
	// PolicyCycleAllNodes round-robins over the primary plus every
	// replica.
	PolicyCycleAllNodes
)

// Selector applies a Policy to a shard, keeping the round-robin
// counters a cycling policy needs across calls.
type Selector struct {
	policy  Policy
	counter atomic.Uint64
}

// NewSelector returns a Selector applying policy.
func NewSelector(policy Policy) *Selector {
	return &Selector{policy: policy}
}

// Pick returns the node id a read-only command against shard should
// use, per the Selector's Policy.
func (s *Selector) Pick(shard Shard) string {
	switch s.policy {
	case PolicyCycleReplicas:
		if len(shard.Replicas) == 0 {
			return shard.Primary
		}
		i := s.counter.Add(1) - 1
		return shard.Replicas[i%uint64(len(shard.Replicas))]

	case PolicyCycleAllNodes:
		all := append([]string{shard.Primary}, shard.Replicas...)
		i := s.counter.Add(1) - 1
		return all[i%uint64(len(all))]

	default:
		return shard.Primary
	}
}
