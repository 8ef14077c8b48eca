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

// Package cluster is the cluster-aware routing state machine: a
// slot-to-node topology kept as a read-mostly snapshot, CRC16 key
// routing, MOVED/ASK redirection, and replica/primary node selection
// policy. Transport bring-up for any given node is out of scope (see
// spec.md §1); this package routes and tracks topology, the embedding
// application dials.
package cluster

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Kind classifies the errors cluster routing and topology parsing can
// raise.
type Kind string

const (
	KindMoved                  Kind = "moved"
	KindAsk                    Kind = "ask"
	KindCrossSlot              Kind = "crossSlot"
	KindInvalidNodeRole        Kind = "invalidNodeRole"
	KindInvalidNodeHealth      Kind = "invalidNodeHealth"
	KindSlotsTokenIsNotAnArray Kind = "slotsTokenIsNotAnArray"
	KindNodesTokenIsNotAnArray Kind = "nodesTokenIsNotAnArray"
	KindRedirectsExhausted     Kind = "redirectsExhausted"
	KindUnknownSlot            Kind = "unknownSlot"
)

// Error carries a Kind alongside the wrapped message.
type Error struct {
	Kind Kind
	err  error
}

func (e *Error) Error() string { return e.err.Error() }
func (e *Error) Unwrap() error { return e.err }

func newError(kind Kind, format string, args ...any) error {
	format = "cluster: " + format
	return &Error{Kind: kind, err: errors.Errorf(format, args...)}
}

// Is reports whether err is a *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Moved is the redirection a server sends when it no longer owns slot:
// "-MOVED <slot> <endpoint>".
type Moved struct {
	Slot     uint16
	Endpoint string
}

func (m *Moved) Error() string {
	return newError(KindMoved, "slot %d moved to %s", m.Slot, m.Endpoint).Error()
}

// Ask is the one-shot redirection "-ASK <slot> <endpoint>": unlike
// Moved it must not update the topology, only retry once against
// Endpoint (after an ASKING command on that connection).
type Ask struct {
	Slot     uint16
	Endpoint string
}

func (a *Ask) Error() string {
	return newError(KindAsk, "slot %d ask-redirected to %s", a.Slot, a.Endpoint).Error()
}

// newMultiError aggregates independent failures — every offending key
// in a cross-slot multi-key command — the way packetd's controller/portpools.go
// aggregates port-bind failures with the same library. Redirect
// exhaustion is not aggregated: Redirector.Step returns a single error.
func newMultiError(errs ...error) error {
	var merr *multierror.Error
	for _, e := range errs {
		if e != nil {
			merr = multierror.Append(merr, e)
		}
	}
	return merr.ErrorOrNil()
}
