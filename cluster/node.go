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

import "github.com/spf13/cast"

// Role is a node's position within its shard.
type Role string

const (
	RolePrimary Role = "primary"
	RoleReplica Role = "replica"
)

func parseRole(s string) (Role, error) {
	switch s {
	case "master":
		return RolePrimary, nil
	case "replica":
		return RoleReplica, nil
	default:
		return "", newError(KindInvalidNodeRole, "invalid node role %q", s)
	}
}

// Health is a node's last-known liveness as reported by CLUSTER SHARDS.
type Health string

const (
	HealthOnline  Health = "online"
	HealthLoading Health = "loading"
	HealthFailed  Health = "failed"
)

func parseHealth(s string) (Health, error) {
	switch Health(s) {
	case HealthOnline, HealthLoading, HealthFailed:
		return Health(s), nil
	default:
		return "", newError(KindInvalidNodeHealth, "invalid node health %q", s)
	}
}

// Node is one cluster member: a primary or a replica of some shard.
type Node struct {
	ID                string
	Role              Role
	Health            Health
	IP                string
	Hostname          string
	Port              int
	TLSPort           int
	Endpoint          string
	ShardID           string
	ReplicationOffset int64
}

// nodeFromMap coerces a CLUSTER SHARDS node map (decoded as loosely
// typed `any` values by resp.DecodeMap) into a typed Node, the way
// packetd's common.Options coerces config values with spf13/cast.
func nodeFromMap(m map[string]any, shardID string) (Node, error) {
	id, _ := cast.ToStringE(m["id"])
	roleStr, _ := cast.ToStringE(m["role"])
	healthStr, _ := cast.ToStringE(m["health"])

	role, err := parseRole(roleStr)
	if err != nil {
		return Node{}, err
	}
	health, err := parseHealth(healthStr)
	if err != nil {
		return Node{}, err
	}

	ip, _ := cast.ToStringE(m["ip"])
	hostname, _ := cast.ToStringE(m["hostname"])
	endpoint, _ := cast.ToStringE(m["endpoint"])
	port, _ := cast.ToIntE(m["port"])
	tlsPort, _ := cast.ToIntE(m["tls-port"])
	offset, _ := cast.ToInt64E(m["replication-offset"])

	if endpoint == "" {
		endpoint = ip
	}

	return Node{
		ID:                id,
		Role:              role,
		Health:            health,
		IP:                ip,
		Hostname:          hostname,
		Port:              port,
		TLSPort:           tlsPort,
		Endpoint:          endpoint,
		ShardID:           shardID,
		ReplicationOffset: offset,
	}, nil
}
