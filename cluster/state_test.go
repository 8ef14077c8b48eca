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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateMachineSetPrimaryFirstCall(t *testing.T) {
	sm := NewStateMachine()
	act := sm.SetPrimary("10.0.0.1:6379", false)
	assert.Equal(t, RunNode, act.Kind)
	assert.Equal(t, "10.0.0.1:6379", act.Endpoint)
	assert.Equal(t, OnePrimary, sm.State())
}

func TestStateMachineSetPrimaryWithReplicaDiscovery(t *testing.T) {
	sm := NewStateMachine()
	act := sm.SetPrimary("10.0.0.1:6379", true)
	assert.Equal(t, RunNodeAndFindReplicas, act.Kind)
}

func TestStateMachineRedundantSetPrimaryIsNoop(t *testing.T) {
	sm := NewStateMachine()
	sm.SetPrimary("10.0.0.1:6379", false)
	act := sm.SetPrimary("10.0.0.1:6379", false)
	assert.Equal(t, DoNothing, act.Kind)
}

func TestStateMachineAddReplicasDiffsRunningSet(t *testing.T) {
	sm := NewStateMachine()
	sm.SetPrimary("10.0.0.1:6379", true)

	diff := sm.AddReplicas([]string{"10.0.0.2:6379", "10.0.0.3:6379"})
	assert.ElementsMatch(t, []string{"10.0.0.2:6379", "10.0.0.3:6379"}, diff.ToRun)
	assert.Empty(t, diff.ToShutdown)
	assert.Equal(t, ClusterView, sm.State())

	diff = sm.AddReplicas([]string{"10.0.0.3:6379", "10.0.0.4:6379"})
	assert.Equal(t, []string{"10.0.0.4:6379"}, diff.ToRun)
	assert.Equal(t, []string{"10.0.0.2:6379"}, diff.ToShutdown)
}
