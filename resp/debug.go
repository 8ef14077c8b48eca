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
	"fmt"
	"strings"
)

const redacted = "***"

// DebugString renders t for logs. Bulk-string, verbatim-string and
// big-number payloads are redacted since they may carry user data;
// structural information (kind, counts, integers, booleans) is kept.
func (t Token) DebugString() string {
	var sb strings.Builder
	t.writeDebug(&sb)
	return sb.String()
}

func (t Token) writeDebug(sb *strings.Builder) {
	switch t.Kind {
	case Null:
		sb.WriteString("null")

	case SimpleString:
		fmt.Fprintf(sb, "simpleString(%s)", t.Raw)

	case SimpleError:
		fmt.Fprintf(sb, "simpleError(%s)", t.Raw)

	case BulkString:
		fmt.Fprintf(sb, "bulkString(%s)", redacted)

	case BulkError:
		fmt.Fprintf(sb, "bulkError(%s)", redacted)

	case VerbatimString:
		fmt.Fprintf(sb, "verbatimString(%s:%s)", t.VerbatimTag, redacted)

	case Number:
		fmt.Fprintf(sb, "number(%d)", t.Number)

	case Double:
		fmt.Fprintf(sb, "double(%v)", t.Double)

	case Boolean:
		fmt.Fprintf(sb, "boolean(%t)", t.Boolean)

	case BigNumber:
		fmt.Fprintf(sb, "bigNumber(%s)", redacted)

	case Array, Set, Push, Map, Attribute:
		fmt.Fprintf(sb, "%s(count=%d)[", t.Kind, t.Count)
		toks, err := t.All()
		if err != nil {
			sb.WriteString("!decodeError]")
			return
		}
		for i, child := range toks {
			if i > 0 {
				sb.WriteString(", ")
			}
			child.writeDebug(sb)
		}
		sb.WriteString("]")

	default:
		sb.WriteString("unknown")
	}
}
