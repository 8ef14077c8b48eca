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

package resp

import "github.com/pkg/errors"

// ErrorKind classifies the errors the parser and decoder contract can raise.
type ErrorKind string

const (
	KindNeedMoreData                  ErrorKind = "needMoreData"
	KindInvalidLeadingByte             ErrorKind = "invalidLeadingByte"
	KindCanNotParseInteger             ErrorKind = "canNotParseInteger"
	KindCanNotParseBigNumber           ErrorKind = "canNotParseBigNumber"
	KindCanNotParseDouble              ErrorKind = "canNotParseDouble"
	KindTooDeeplyNestedAggregatedTypes ErrorKind = "tooDeeplyNestedAggregatedTypes"
	KindDataMalformed                  ErrorKind = "dataMalformed"
	KindDecodeError                    ErrorKind = "decodeError"
)

// Error carries an ErrorKind alongside the wrapped message so callers can
// branch on failure class without parsing strings.
type Error struct {
	Kind ErrorKind
	err  error
}

func (e *Error) Error() string { return e.err.Error() }
func (e *Error) Unwrap() error { return e.err }

func newError(kind ErrorKind, format string, args ...any) error {
	format = "resp: " + format
	return &Error{Kind: kind, err: errors.Errorf(format, args...)}
}

// Is reports whether err is a *Error of the given ErrorKind.
func Is(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

var errNeedMoreData = newError(KindNeedMoreData, "need more data")
