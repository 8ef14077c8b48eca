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

// ClientState is the {uninitialized, onePrimary(node), clusterView(topology)}
// variant from spec.md §3's Data Model, reduced to the part that
// decides which node pools the embedding application must run or
// retire. Like subscribe.Channel it is a pure function of its calls:
// no I/O, no locking, directly testable.
type ClientState int

const (
	Uninitialized ClientState = iota
	OnePrimary
	ClusterView
)

// BootstrapKind is what SetPrimary tells the caller to do.
type BootstrapKind int

const (
	DoNothing BootstrapKind = iota
	RunNode
	RunNodeAndFindReplicas
)

// BootstrapAction is SetPrimary's output.
type BootstrapAction struct {
	Kind     BootstrapKind
	Endpoint string
}

// ReplicaDiff is AddReplicas' output: the endpoints to start and the
// ones to retire so the running pool set matches the new replica list.
type ReplicaDiff struct {
	ToRun      []string
	ToShutdown []string
}

// StateMachine tracks ClientState and the currently-running replica
// set across SetPrimary/AddReplicas calls.
type StateMachine struct {
	state    ClientState
	primary  string
	replicas map[string]struct{}
}

// NewStateMachine returns a StateMachine in the Uninitialized state.
func NewStateMachine() *StateMachine {
	return &StateMachine{replicas: make(map[string]struct{})}
}

// State reports the current ClientState.
func (s *StateMachine) State() ClientState { return s.state }

// SetPrimary records endpoint as the shard/deployment primary. A
// redundant call with the same endpoint already recorded is a no-op
// (spec.md §4.6: "Redundant setPrimary with the same endpoint:
// doNothing"); otherwise it transitions to OnePrimary and tells the
// caller to start that node, optionally with replica discovery.
func (s *StateMachine) SetPrimary(endpoint string, discoverReplicas bool) BootstrapAction {
	if s.state != Uninitialized && s.primary == endpoint {
		return BootstrapAction{Kind: DoNothing}
	}
	s.primary = endpoint
	s.state = OnePrimary
	if discoverReplicas {
		return BootstrapAction{Kind: RunNodeAndFindReplicas, Endpoint: endpoint}
	}
	return BootstrapAction{Kind: RunNode, Endpoint: endpoint}
}

// AddReplicas transitions to ClusterView and diffs endpoints against
// the currently-running replica set, returning which pools the caller
// must start and which it may now retire.
func (s *StateMachine) AddReplicas(endpoints []string) ReplicaDiff {
	s.state = ClusterView

	want := make(map[string]struct{}, len(endpoints))
	var toRun []string
	for _, e := range endpoints {
		want[e] = struct{}{}
		if _, ok := s.replicas[e]; !ok {
			toRun = append(toRun, e)
		}
	}
	var toShutdown []string
	for e := range s.replicas {
		if _, ok := want[e]; !ok {
			toShutdown = append(toShutdown, e)
		}
	}
	s.replicas = want

	return ReplicaDiff{ToRun: toRun, ToShutdown: toShutdown}
}
