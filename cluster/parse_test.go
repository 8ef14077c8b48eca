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
	"github.com/stretchr/testify/require"

	"github.com/packetd/vkcore/resp"
)

func mustParse(t *testing.T, wire string) resp.Token {
	t.Helper()
	tok, n, err := resp.Parse([]byte(wire))
	require.NoError(t, err)
	require.Equal(t, len(wire), n)
	return tok
}

func nodeMap(id, role, health, ip string, port int) string {
	return "%4\r\n" +
		"$2\r\nid\r\n$" + itoa(len(id)) + "\r\n" + id + "\r\n" +
		"$4\r\nrole\r\n$" + itoa(len(role)) + "\r\n" + role + "\r\n" +
		"$6\r\nhealth\r\n$" + itoa(len(health)) + "\r\n" + health + "\r\n" +
		"$2\r\nip\r\n$" + itoa(len(ip)) + "\r\n" + ip + "\r\n"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func TestParseShardsBuildsTopology(t *testing.T) {
	primary := nodeMap("node-1", "master", "online", "10.0.0.1", 6379)
	replica := nodeMap("node-2", "replica", "online", "10.0.0.2", 6379)

	wire := "*1\r\n" +
		"%2\r\n" +
		"$5\r\nslots\r\n*2\r\n:0\r\n:16383\r\n" +
		"$5\r\nnodes\r\n*2\r\n" + primary + replica

	top, err := ParseShards(mustParse(t, wire))
	require.NoError(t, err)

	n, ok := top.NodeBySlot(0)
	require.True(t, ok)
	assert.Equal(t, "node-1", n.ID)
	assert.Equal(t, RolePrimary, n.Role)

	n2, ok := top.Node("node-2")
	require.True(t, ok)
	assert.Equal(t, RoleReplica, n2.Role)

	sh, ok := top.Shard("shard-0")
	require.True(t, ok)
	assert.Equal(t, "node-1", sh.Primary)
	assert.Equal(t, []string{"node-2"}, sh.Replicas)
}

func TestParseShardsRejectsInvalidRole(t *testing.T) {
	bad := nodeMap("node-1", "bogus-role", "online", "10.0.0.1", 6379)
	wire := "*1\r\n" +
		"%2\r\n" +
		"$5\r\nslots\r\n*2\r\n:0\r\n:16383\r\n" +
		"$5\r\nnodes\r\n*1\r\n" + bad

	_, err := ParseShards(mustParse(t, wire))
	require.Error(t, err)
	assert.True(t, Is(err, KindInvalidNodeRole))
}

func TestParseShardsRejectsNonArraySlots(t *testing.T) {
	wire := "*1\r\n" +
		"%2\r\n" +
		"$5\r\nslots\r\n$2\r\nhi\r\n" +
		"$5\r\nnodes\r\n*0\r\n"

	_, err := ParseShards(mustParse(t, wire))
	require.Error(t, err)
	assert.True(t, Is(err, KindSlotsTokenIsNotAnArray))
}

func TestFingerprintStableAcrossEqualTopologies(t *testing.T) {
	primary := nodeMap("node-1", "master", "online", "10.0.0.1", 6379)
	wire := "*1\r\n" +
		"%2\r\n" +
		"$5\r\nslots\r\n*2\r\n:0\r\n:16383\r\n" +
		"$5\r\nnodes\r\n*1\r\n" + primary

	a, err := ParseShards(mustParse(t, wire))
	require.NoError(t, err)
	b, err := ParseShards(mustParse(t, wire))
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}
