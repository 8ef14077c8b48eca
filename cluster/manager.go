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
	"context"
	"sync"
	"sync/atomic"

	"github.com/packetd/vkcore/internal/action"
	"github.com/packetd/vkcore/internal/drain"
	"github.com/packetd/vkcore/logger"
	"github.com/packetd/vkcore/resp"
)

// RefreshFunc issues CLUSTER SHARDS (or an equivalent) and returns the
// raw reply token for Manager to parse. Actually dialing and writing
// the command is the embedding application's job (spec.md §1: TLS/DNS/
// transport bring-up is out of scope); Manager only decides when to
// call it and what to do with the result.
type RefreshFunc func(ctx context.Context) (resp.Token, error)

// Pool is whatever the embedding application's per-node connection
// pool needs to expose for draining: the usual io.Closer, plus a count
// of outstanding requests so a retired pool isn't torn down from under
// in-flight commands.
type Pool interface {
	Close() error
	InFlight() int
}

// Manager owns the shared topology snapshot, the client bootstrap
// state machine, redirect bookkeeping and the background refresh
// action runner. One Manager serves one cluster-mode client.
type Manager struct {
	opt      Options
	selector *Selector
	state    *StateMachine
	refresh  RefreshFunc

	topology atomic.Pointer[Topology]

	runner  *action.Runner
	drainer *drain.Set[string]

	mut            sync.Mutex
	pools          map[string]Pool
	pendingRefresh bool
}

// NewManager returns a Manager with an empty topology. Call Bootstrap
// once a seed endpoint is known.
func NewManager(opt Options, refresh RefreshFunc) *Manager {
	m := &Manager{
		opt:      opt,
		selector: NewSelector(opt.ReadPolicy),
		state:    NewStateMachine(),
		refresh:  refresh,
		runner:   action.NewRunner(opt.ActionQueueDepth),
		drainer:  drain.NewSet[string](opt.DrainGrace),
		pools:    make(map[string]Pool),
	}
	m.topology.Store(&Topology{nodes: map[string]Node{}, shards: map[string]Shard{}})
	return m
}

// Close stops the background action runner and drain sweeper without
// closing any pool still attached.
func (m *Manager) Close() {
	m.runner.Close()
	m.drainer.Close()
}

// Bootstrap records endpoint as the seed node, per the ClientState
// machine's SetPrimary (spec.md §4.6). discoverReplicas distinguishes
// a single-node deployment (false) from cluster mode (true, where the
// caller should follow up with a CLUSTER SHARDS refresh).
func (m *Manager) Bootstrap(endpoint string, discoverReplicas bool) BootstrapAction {
	m.mut.Lock()
	defer m.mut.Unlock()
	return m.state.SetPrimary(endpoint, discoverReplicas)
}

// Attach registers pool as the live connection pool for endpoint, so a
// later topology refresh can retire it if the node drops out.
func (m *Manager) Attach(endpoint string, pool Pool) {
	m.mut.Lock()
	defer m.mut.Unlock()
	m.pools[endpoint] = pool
}

// Topology returns the current read-mostly snapshot. Safe to call from
// any goroutine; the returned pointer is never mutated in place.
func (m *Manager) Topology() *Topology {
	return m.topology.Load()
}

// RequestRefresh submits a refresh to the background action runner.
// A refresh already queued makes this a no-op (spec.md §4.7: "a MOVED
// storm enqueues at most one extra refresh").
func (m *Manager) RequestRefresh() {
	m.mut.Lock()
	if m.pendingRefresh {
		m.mut.Unlock()
		return
	}
	m.pendingRefresh = true
	m.mut.Unlock()

	m.runner.Submit(func() {
		m.mut.Lock()
		m.pendingRefresh = false
		m.mut.Unlock()

		log := logger.With(logger.String("subsystem", "cluster"))

		ctx := context.Background()
		tok, err := m.refresh(ctx)
		if err != nil {
			log.Warnf("refresh failed: %v", err)
			return
		}
		if _, err := m.applyShards(tok); err != nil {
			log.Warnf("refresh parse failed: %v", err)
		}
	})
}

// ApplyShards synchronously parses a CLUSTER SHARDS reply and swaps it
// in if its fingerprint differs from the current topology, returning
// the replica diff the caller must act on (start new replica pools,
// retire dropped ones). Unlike RequestRefresh this does not go through
// the action runner; it is for a caller that already has the reply in
// hand (e.g. the very first cluster discovery during Bootstrap).
func (m *Manager) ApplyShards(tok resp.Token) (ReplicaDiff, error) {
	return m.applyShards(tok)
}

func (m *Manager) applyShards(tok resp.Token) (ReplicaDiff, error) {
	next, err := ParseShards(tok)
	if err != nil {
		return ReplicaDiff{}, err
	}

	current := m.topology.Load()
	if current.Fingerprint() == next.Fingerprint() {
		return ReplicaDiff{}, nil
	}
	m.topology.Store(next)

	var endpoints []string
	for _, n := range next.Nodes() {
		if n.Role == RoleReplica {
			endpoints = append(endpoints, n.Endpoint)
		}
	}

	m.mut.Lock()
	diff := m.state.AddReplicas(endpoints)
	for _, endpoint := range diff.ToShutdown {
		if pool, ok := m.pools[endpoint]; ok {
			delete(m.pools, endpoint)
			m.drainer.Retire(endpoint, pool, pool.InFlight)
		}
	}
	m.mut.Unlock()

	return diff, nil
}

// Route resolves the node a command against key should target: the
// shard primary for a write, or the configured read Policy's pick for
// a read. It returns KindMoved-shaped guidance only indirectly — the
// caller discovers MOVED from the server's reply and calls HandleMoved.
func (m *Manager) Route(key []byte, forWrite bool) (Node, error) {
	top := m.topology.Load()
	slot := Slot(key)
	owner, ok := top.NodeBySlot(slot)
	if !ok {
		return Node{}, newError(KindUnknownSlot, "no known owner for slot %d", slot)
	}
	if forWrite {
		return owner, nil
	}

	shard, ok := top.Shard(owner.ShardID)
	if !ok {
		return owner, nil
	}
	id := m.selector.Pick(shard)
	if n, ok := top.Node(id); ok {
		return n, nil
	}
	return owner, nil
}

// RouteMulti validates that every key in keys maps to the same slot
// (spec.md §4.6: "Multi-key commands require all keys to map to the
// same slot; violations fail crossSlot") and returns that slot. Every
// offending key is collected, not just the first, via
// hashicorp/go-multierror.
func RouteMulti(keys [][]byte) (uint16, error) {
	if len(keys) == 0 {
		return 0, newError(KindCrossSlot, "no keys given")
	}
	want := Slot(keys[0])

	var errs []error
	for _, k := range keys[1:] {
		if s := Slot(k); s != want {
			errs = append(errs, newError(KindCrossSlot, "key %q maps to slot %d, want %d", k, s, want))
		}
	}
	if len(errs) > 0 {
		return 0, newMultiError(errs...)
	}
	return want, nil
}

// HandleMoved applies a MOVED redirection: the slot's owner changes
// permanently, so the topology is updated (and, for a node the
// topology didn't already know, registered) before the caller retries.
func (m *Manager) HandleMoved(redirect *Moved) {
	for {
		current := m.topology.Load()
		next := current.withMoved(redirect.Slot, redirect.Endpoint)
		if m.topology.CompareAndSwap(current, next) {
			logger.With(
				logger.String("subsystem", "cluster"),
				logger.Int("slot", int(redirect.Slot)),
				logger.String("endpoint", redirect.Endpoint),
			).Infof("slot owner moved")
			return
		}
	}
}

// Redirector counts the MOVED/ASK redirects one command follows and
// bounds them (spec.md §7: "after a bounded number of redirects (default 5)").
// The caller retries the command itself and hands each error it gets
// back to Step, which applies MOVED and reports when the bound is
// exceeded.
type Redirector struct {
	m     *Manager
	max   int
	asks  int
	moves int
}

// NewRedirector starts a bounded redirect sequence for one command.
func (m *Manager) NewRedirector() *Redirector {
	return &Redirector{m: m, max: m.opt.MaxRedirects}
}

// Step records one redirect observed for the in-flight command. It
// applies MOVED to the shared topology immediately (other commands
// benefit right away); ASK is one-shot and left unapplied. It reports
// an error once the bounded hop count is exhausted.
func (r *Redirector) Step(err error) error {
	switch e := err.(type) {
	case *Moved:
		r.moves++
		if r.moves+r.asks > r.max {
			return newError(KindRedirectsExhausted, "exceeded %d redirects handling MOVED %d %s", r.max, e.Slot, e.Endpoint)
		}
		r.m.HandleMoved(e)
		return nil

	case *Ask:
		r.asks++
		if r.moves+r.asks > r.max {
			return newError(KindRedirectsExhausted, "exceeded %d redirects handling ASK %d %s", r.max, e.Slot, e.Endpoint)
		}
		return nil

	default:
		return err
	}
}
