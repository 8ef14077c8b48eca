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

import "bytes"

// NumSlots is the fixed number of logical cluster key-space partitions
// (spec.md's "one of 16384 logical partitions").
const NumSlots = 16384

// crc16Table is the CRC16-XMODEM lookup table (polynomial 0x1021,
// initial value 0), computed once at package init rather than typed
// out by hand. This is the wire protocol's fixed hashing algorithm,
// not a place to swap in any other hash from the dependency set.
var crc16Table = buildCRC16Table()

func buildCRC16Table() [256]uint16 {
	var t [256]uint16
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for j := 0; j < 8; j++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
		t[i] = crc
	}
	return t
}

func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc = (crc << 8) ^ crc16Table[byte(crc>>8)^b]
	}
	return crc
}

// Slot computes the cluster slot a key maps to: CRC16-XMODEM over the
// key (or, when present, the substring wrapped in the key's first
// "{...}" hash tag) modulo NumSlots.
func Slot(key []byte) uint16 {
	if tag, ok := hashTag(key); ok {
		key = tag
	}
	return crc16(key) % NumSlots
}

// hashTag extracts the bytes between the first '{' and the first
// subsequent '}' in key, when that substring is non-empty. A missing
// closing brace, or an empty "{}" tag, means no hash tag applies and
// the caller should hash the whole key.
func hashTag(key []byte) ([]byte, bool) {
	start := bytes.IndexByte(key, '{')
	if start == -1 {
		return nil, false
	}
	rest := key[start+1:]
	end := bytes.IndexByte(rest, '}')
	if end <= 0 {
		return nil, false
	}
	return rest[:end], true
}
