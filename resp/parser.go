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

import (
	"bytes"
	"regexp"
	"strconv"

	"github.com/packetd/vkcore/internal/splitio"
)

// MaxDepth bounds aggregate nesting. 100 nested empty arrays parse; a
// 101st level raises KindTooDeeplyNestedAggregatedTypes.
const MaxDepth = 100

var bigNumberPattern = regexp.MustCompile(`^-?[0-9]+$`)

// Parse consumes exactly one RESP value from the head of b and returns
// it along with the number of bytes consumed. If b does not yet
// contain a complete value, it returns KindNeedMoreData and consumes
// nothing, so the caller can retry once more bytes arrive.
func Parse(b []byte) (Token, int, error) {
	return parse(b, 1)
}

func parse(b []byte, depth int) (Token, int, error) {
	if len(b) == 0 {
		return Token{}, 0, errNeedMoreData
	}

	switch b[0] {
	case '+':
		return parseLine(b, SimpleString)
	case '-':
		return parseLine(b, SimpleError)
	case ':':
		return parseNumber(b)
	case ',':
		return parseDouble(b)
	case '#':
		return parseBoolean(b)
	case '(':
		return parseBigNumber(b)
	case '$':
		return parseBulk(b, BulkString)
	case '!':
		return parseBulk(b, BulkError)
	case '=':
		return parseVerbatim(b)
	case '_':
		return parseNull(b)
	case '*':
		return parseAggregate(b, depth, Array, 1)
	case '~':
		return parseAggregate(b, depth, Set, 1)
	case '>':
		return parseAggregate(b, depth, Push, 1)
	case '%':
		return parseAggregate(b, depth, Map, 2)
	case '|':
		return parseAggregate(b, depth, Attribute, 2)
	default:
		return Token{}, 0, newError(KindInvalidLeadingByte, "invalid leading byte %q", b[0])
	}
}

// parseLine reads a sigil-prefixed line up to CRLF and returns its
// payload as Raw, with no further validation. The line itself is read
// through splitio.Reader, the same cursor-advancing-only-on-success
// scanner the connection's own inbound framing uses.
func parseLine(b []byte, kind Kind) (Token, int, error) {
	r := splitio.NewReader(b[1:])
	line, ok := r.ReadLine()
	if !ok {
		return Token{}, 0, errNeedMoreData
	}
	return Token{Kind: kind, Raw: line}, 1 + r.Pos(), nil
}

// readLengthLine reads a sigil-prefixed decimal length/count field.
func readLengthLine(b []byte) (n int64, consumed int, err error) {
	r := splitio.NewReader(b[1:])
	line, ok := r.ReadLine()
	if !ok {
		return 0, 0, errNeedMoreData
	}
	v, perr := strconv.ParseInt(string(line), 10, 64)
	if perr != nil {
		return 0, 0, newError(KindCanNotParseInteger, "cannot parse length %q", line)
	}
	return v, 1 + r.Pos(), nil
}

func parseNumber(b []byte) (Token, int, error) {
	tok, n, err := parseLine(b, Number)
	if err != nil {
		return Token{}, 0, err
	}
	if len(tok.Raw) == 0 || tok.Raw[0] == '+' {
		return Token{}, 0, newError(KindCanNotParseInteger, "cannot parse integer %q", tok.Raw)
	}
	v, perr := strconv.ParseInt(string(tok.Raw), 10, 64)
	if perr != nil {
		return Token{}, 0, newError(KindCanNotParseInteger, "cannot parse integer %q", tok.Raw)
	}
	tok.Number = v
	return tok, n, nil
}

func parseDouble(b []byte) (Token, int, error) {
	tok, n, err := parseLine(b, Double)
	if err != nil {
		return Token{}, 0, err
	}
	v, perr := strconv.ParseFloat(string(tok.Raw), 64)
	if perr != nil {
		return Token{}, 0, newError(KindCanNotParseDouble, "cannot parse double %q", tok.Raw)
	}
	tok.Double = v
	return tok, n, nil
}

func parseBoolean(b []byte) (Token, int, error) {
	tok, n, err := parseLine(b, Boolean)
	if err != nil {
		return Token{}, 0, err
	}
	switch string(tok.Raw) {
	case "t":
		tok.Boolean = true
	case "f":
		tok.Boolean = false
	default:
		return Token{}, 0, newError(KindDataMalformed, "invalid boolean %q", tok.Raw)
	}
	return tok, n, nil
}

func parseBigNumber(b []byte) (Token, int, error) {
	tok, n, err := parseLine(b, BigNumber)
	if err != nil {
		return Token{}, 0, err
	}
	if !bigNumberPattern.Match(tok.Raw) {
		return Token{}, 0, newError(KindCanNotParseBigNumber, "invalid big number %q", tok.Raw)
	}
	return tok, n, nil
}

func parseNull(b []byte) (Token, int, error) {
	if len(b) < 3 {
		return Token{}, 0, errNeedMoreData
	}
	if b[1] != '\r' || b[2] != '\n' {
		return Token{}, 0, newError(KindDataMalformed, "malformed null")
	}
	return Token{Kind: Null}, 3, nil
}

func parseBulk(b []byte, kind Kind) (Token, int, error) {
	n, headerLen, err := readLengthLine(b)
	if err != nil {
		return Token{}, 0, err
	}
	if n == -1 {
		return Token{Kind: Null}, headerLen, nil
	}
	if n < 0 {
		return Token{}, 0, newError(KindDataMalformed, "negative bulk length %d", n)
	}

	r := splitio.NewReader(b[headerLen:])
	payload, ok := r.ReadN(int(n))
	if !ok {
		return Token{}, 0, errNeedMoreData
	}
	terminator, ok := r.ReadN(len(splitio.CharCRLF))
	if !ok {
		return Token{}, 0, errNeedMoreData
	}
	if !bytes.Equal(terminator, splitio.CharCRLF) {
		return Token{}, 0, newError(KindDataMalformed, "bulk value missing CRLF terminator")
	}
	return Token{Kind: kind, Raw: payload}, headerLen + r.Pos(), nil
}

func parseVerbatim(b []byte) (Token, int, error) {
	tok, n, err := parseBulk(b, VerbatimString)
	if err != nil {
		return Token{}, 0, err
	}
	if tok.Kind == Null {
		return tok, n, nil
	}
	if len(tok.Raw) < 4 || tok.Raw[3] != ':' {
		return Token{}, 0, newError(KindDataMalformed, "verbatim string missing type tag")
	}
	tok.VerbatimTag = string(tok.Raw[:3])
	tok.Raw = tok.Raw[4:]
	return tok, n, nil
}

// parseAggregate parses array/set/push (arity 1) or map/attribute
// (arity 2, since each entry is a key/value pair). It does not
// materialize children: it walks past each one with parse, discarding
// the result, purely to discover where the aggregate's byte range
// ends.
func parseAggregate(b []byte, depth int, kind Kind, arity int) (Token, int, error) {
	if depth > MaxDepth {
		return Token{}, 0, newError(KindTooDeeplyNestedAggregatedTypes, "nesting exceeds limit of %d", MaxDepth)
	}

	count, headerLen, err := readLengthLine(b)
	if err != nil {
		return Token{}, 0, err
	}
	if count == -1 {
		return Token{Kind: Null}, headerLen, nil
	}
	if count < 0 {
		return Token{}, 0, newError(KindDataMalformed, "negative count %d", count)
	}

	pos := headerLen
	total := int(count) * arity
	for i := 0; i < total; i++ {
		_, n, cerr := parse(b[pos:], depth+1)
		if cerr != nil {
			return Token{}, 0, cerr
		}
		pos += n
	}

	return Token{
		Kind:     kind,
		Count:    int(count),
		children: b[headerLen:pos],
	}, pos, nil
}
