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

package conn

import "github.com/packetd/vkcore/resp"

// HelloOptions configures the HELLO handshake every connection opens
// with before any user command is allowed to flow.
type HelloOptions struct {
	Username string
	Password string
	SetName  string
}

// HelloPayload encodes "HELLO 3", optionally followed by AUTH and
// SETNAME, as the RESP2 array every command (including the handshake
// itself) is sent as.
func HelloPayload(opt HelloOptions) []byte {
	e := resp.NewEncoder()
	defer e.Release()

	e.ArgString("HELLO").ArgString("3")
	e.OptionalArg(opt.Username != "" || opt.Password != "", func(e *resp.Encoder) {
		e.ArgString("AUTH").ArgString(opt.Username).ArgString(opt.Password)
	})
	e.OptionalArg(opt.SetName != "", func(e *resp.Encoder) {
		e.ArgString("SETNAME").ArgString(opt.SetName)
	})
	return e.Encode()
}
