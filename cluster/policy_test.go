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

func TestSelectorPrimaryAlwaysPicksPrimary(t *testing.T) {
	sel := NewSelector(PolicyPrimary)
	shard := Shard{Primary: "p", Replicas: []string{"r1", "r2"}}
	for i := 0; i < 3; i++ {
		assert.Equal(t, "p", sel.Pick(shard))
	}
}

func TestSelectorCycleReplicasRoundRobins(t *testing.T) {
	sel := NewSelector(PolicyCycleReplicas)
	shard := Shard{Primary: "p", Replicas: []string{"r1", "r2"}}
	got := []string{sel.Pick(shard), sel.Pick(shard), sel.Pick(shard)}
	assert.Equal(t, []string{"r1", "r2", "r1"}, got)
}

func TestSelectorCycleReplicasFallsBackToPrimary(t *testing.T) {
	sel := NewSelector(PolicyCycleReplicas)
	shard := Shard{Primary: "p"}
	assert.Equal(t, "p", sel.Pick(shard))
}

func TestSelectorCycleAllNodesIncludesPrimary(t *testing.T) {
	sel := NewSelector(PolicyCycleAllNodes)
	shard := Shard{Primary: "p", Replicas: []string{"r1"}}
	got := []string{sel.Pick(shard), sel.Pick(shard), sel.Pick(shard)}
	assert.Equal(t, []string{"p", "r1", "p"}, got)
}
