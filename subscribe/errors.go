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

package subscribe

import "github.com/pkg/errors"

// Kind classifies the errors Manager.HandlePush can raise. Every one
// of them is, per spec.md §4.5, fatal to the connection: the caller
// (conn.Conn) closes the transport on any non-nil return from
// HandlePush.
type Kind string

const KindMalformedPush Kind = "subscriptionError"

// Error carries a Kind alongside the wrapped message.
type Error struct {
	Kind Kind
	err  error
}

func (e *Error) Error() string { return e.err.Error() }
func (e *Error) Unwrap() error { return e.err }

func newError(format string, args ...any) error {
	format = "subscribe: " + format
	return &Error{Kind: KindMalformedPush, err: errors.Errorf(format, args...)}
}

// Is reports whether err is a *Error raised by this package.
func Is(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
