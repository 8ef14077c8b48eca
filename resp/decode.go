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

// This file implements the "decode from Token" contract: primitives,
// optionals, ordered sequences, sets, key-value mappings, closed
// integer ranges and fixed-arity tuples, all built on top of Token and
// its ChildIter.

// DecodeInt64 decodes a number token.
func DecodeInt64(t Token) (int64, error) {
	if t.Kind != Number {
		return 0, newError(KindDecodeError, "expected number, got %s", t.Kind)
	}
	return t.Number, nil
}

// DecodeFloat64 decodes a double token.
func DecodeFloat64(t Token) (float64, error) {
	if t.Kind != Double {
		return 0, newError(KindDecodeError, "expected double, got %s", t.Kind)
	}
	return t.Double, nil
}

// DecodeBool decodes a boolean token.
func DecodeBool(t Token) (bool, error) {
	if t.Kind != Boolean {
		return false, newError(KindDecodeError, "expected boolean, got %s", t.Kind)
	}
	return t.Boolean, nil
}

// DecodeBytes decodes any byte-string-bearing token: simpleString,
// bulkString, verbatimString or bigNumber.
func DecodeBytes(t Token) ([]byte, error) {
	switch t.Kind {
	case SimpleString, BulkString, VerbatimString, BigNumber:
		return t.Raw, nil
	default:
		return nil, newError(KindDecodeError, "expected byte string, got %s", t.Kind)
	}
}

// DecodeString decodes any byte-string-bearing token as UTF-8 text.
func DecodeString(t Token) (string, error) {
	b, err := DecodeBytes(t)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeOptional decodes t with decode, unless t is null, in which
// case it reports present=false without invoking decode.
func DecodeOptional[T any](t Token, decode func(Token) (T, error)) (value T, present bool, err error) {
	if t.IsNull() {
		return value, false, nil
	}
	value, err = decode(t)
	if err != nil {
		return value, false, err
	}
	return value, true, nil
}

// DecodeSequence decodes an ordered sequence: array, push or set
// tokens decode element-by-element with decode; any other non-null,
// non-aggregate token is treated as a single value and auto-wrapped
// into a one-element slice.
func DecodeSequence[T any](t Token, decode func(Token) (T, error)) ([]T, error) {
	switch t.Kind {
	case Array, Push, Set:
		toks, err := t.All()
		if err != nil {
			return nil, err
		}
		out := make([]T, 0, len(toks))
		for _, child := range toks {
			v, derr := decode(child)
			if derr != nil {
				return nil, derr
			}
			out = append(out, v)
		}
		return out, nil

	case Map, Attribute:
		return nil, newError(KindDecodeError, "expected sequence, got %s", t.Kind)

	default:
		v, err := decode(t)
		if err != nil {
			return nil, err
		}
		return []T{v}, nil
	}
}

// DecodeSet decodes a set (or array/push treated as one) into a Go set.
func DecodeSet[T comparable](t Token, decode func(Token) (T, error)) (map[T]struct{}, error) {
	items, err := DecodeSequence(t, decode)
	if err != nil {
		return nil, err
	}
	out := make(map[T]struct{}, len(items))
	for _, v := range items {
		out[v] = struct{}{}
	}
	return out, nil
}

// DecodeMap decodes a map/attribute token, or an array/push token
// whose elements are interpreted as alternating key/value pairs.
func DecodeMap[K comparable, V any](t Token, decodeKey func(Token) (K, error), decodeValue func(Token) (V, error)) (map[K]V, error) {
	switch t.Kind {
	case Map, Attribute:
		toks, err := t.All()
		if err != nil {
			return nil, err
		}
		out := make(map[K]V, len(toks)/2)
		for i := 0; i+1 < len(toks); i += 2 {
			k, kerr := decodeKey(toks[i])
			if kerr != nil {
				return nil, kerr
			}
			v, verr := decodeValue(toks[i+1])
			if verr != nil {
				return nil, verr
			}
			out[k] = v
		}
		return out, nil

	case Array, Push:
		toks, err := t.All()
		if err != nil {
			return nil, err
		}
		if len(toks)%2 != 0 {
			return nil, newError(KindDecodeError, "array has odd element count %d for map decode", len(toks))
		}
		out := make(map[K]V, len(toks)/2)
		for i := 0; i+1 < len(toks); i += 2 {
			k, kerr := decodeKey(toks[i])
			if kerr != nil {
				return nil, kerr
			}
			v, verr := decodeValue(toks[i+1])
			if verr != nil {
				return nil, verr
			}
			out[k] = v
		}
		return out, nil

	default:
		return nil, newError(KindDecodeError, "expected map, got %s", t.Kind)
	}
}

// DecodeRange decodes a 2-element integer array as a closed range
// [lo, hi].
func DecodeRange(t Token) (lo, hi int64, err error) {
	toks, terr := decodeTupleTokens(t, 2)
	if terr != nil {
		return 0, 0, terr
	}
	lo, err = DecodeInt64(toks[0])
	if err != nil {
		return 0, 0, err
	}
	hi, err = DecodeInt64(toks[1])
	if err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}

// DecodeTuple validates that t is an array/push/set of exactly arity
// elements and returns them for positional decoding. Fewer or extra
// elements fail with KindDecodeError.
func DecodeTuple(t Token, arity int) ([]Token, error) {
	return decodeTupleTokens(t, arity)
}

func decodeTupleTokens(t Token, arity int) ([]Token, error) {
	switch t.Kind {
	case Array, Push, Set:
	default:
		return nil, newError(KindDecodeError, "expected tuple, got %s", t.Kind)
	}

	toks, err := t.All()
	if err != nil {
		return nil, err
	}
	if len(toks) != arity {
		return nil, newError(KindDecodeError, "expected tuple of arity %d, got %d", arity, len(toks))
	}
	return toks, nil
}
