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

import (
	"context"

	"github.com/packetd/vkcore/resp"
)

// Transaction runs MULTI, each of members in order, then EXEC, and
// returns one Result per member decomposed from EXEC's array reply.
// If a queued member's ack comes back as an error, that command is
// recorded and enqueueing continues; EXEC itself will reply with an
// error token, which aborts every member with that same error.
func (c *Conn) Transaction(ctx context.Context, members [][]byte) ([]Result, error) {
	multi := resp.EncodeCommand("MULTI")
	exec := resp.EncodeCommand("EXEC")
	start, mids, end := NewTransaction(multi, members, exec)

	if r := c.Submit(ctx, start); r.Err != nil {
		return nil, r.Err
	}

	for _, m := range mids {
		r := c.Submit(ctx, m)
		if r.Err != nil && !Is(r.Err, KindCommandError) {
			// Unlike a "+QUEUED" ack replaced by a server -ERROR
			// (KindCommandError — the spec's "record and continue,
			// EXEC governs the outcome" case), this error means the
			// member never reached the wire at all (a pre-submission
			// cancellation) or the connection is already tearing down.
			// MULTI already succeeded and is live server-side, and
			// there is no safe way left to balance it with EXEC:
			// another caller's unrelated command on this shared
			// connection would otherwise read its own "+QUEUED" ack
			// back as an ordinary success. Force the connection closed
			// so nothing can land inside the dangling transaction.
			c.Close()
			return nil, r.Err
		}
	}

	if r := c.Submit(ctx, end); r.Err != nil {
		if !Is(r.Err, KindCommandError) {
			c.Close()
		}
		return nil, r.Err
	}

	results := make([]Result, len(mids))
	for i, m := range mids {
		results[i] = m.FinalWait()
	}
	return results, nil
}
