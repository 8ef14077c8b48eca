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

// Package conn is the single-connection, in-order request/response
// pipeline: callers submit encoded commands, the connection owns the
// transport and the pending-queue, and inbound tokens are demultiplexed
// back to whichever caller is waiting, or routed to pub/sub pushes.
package conn

import "github.com/pkg/errors"

// Kind classifies the errors the connection pipeline can raise.
type Kind string

const (
	KindUnsolicitedToken                  Kind = "unsolicitedToken"
	KindSubscriptionError                 Kind = "subscriptionError"
	KindCommandError                      Kind = "commandError"
	KindConnectionClosed                  Kind = "connectionClosed"
	KindConnectionClosedDueToCancellation Kind = "connectionClosedDueToCancellation"
	KindCancelled                         Kind = "cancelled"
)

// Error carries a Kind alongside the wrapped message.
type Error struct {
	Kind Kind
	err  error
}

func (e *Error) Error() string { return e.err.Error() }
func (e *Error) Unwrap() error { return e.err }

func newError(kind Kind, format string, args ...any) error {
	format = "conn: " + format
	return &Error{Kind: kind, err: errors.Errorf(format, args...)}
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// CommandError wraps a server-returned error token's text as a
// KindCommandError, the way the pipeline reports simpleError/bulkError
// replies to the caller.
func CommandError(msg string) error {
	return newError(KindCommandError, "%s", msg)
}
