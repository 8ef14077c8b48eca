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

import (
	"time"

	"github.com/spf13/cast"
)

// RawOptions is loosely-typed programmatic configuration, the way
// packetd's common.Options holds config values coerced on read with
// spf13/cast. It is not the user-facing config-file parsing spec.md
// excludes: callers build it with Go literals, not a parsed file.
type RawOptions map[string]any

func (o RawOptions) getInt(k string, def int) int {
	if v, err := cast.ToIntE(o[k]); err == nil {
		return v
	}
	return def
}

func (o RawOptions) getDuration(k string, def time.Duration) time.Duration {
	if v, err := cast.ToDurationE(o[k]); err == nil {
		return v
	}
	return def
}

// Options is the typed configuration a Manager is built from.
type Options struct {
	// ReadPolicy selects which node of a shard serves a read-only
	// command; writes always target the primary.
	ReadPolicy Policy
	// MaxRedirects bounds how many MOVED/ASK hops a single command
	// follows before failing with KindRedirectsExhausted (spec.md §7:
	// "after a bounded number of redirects (default 5)").
	MaxRedirects int
	// DrainGrace bounds how long a retired node's connection pool is
	// kept alive waiting for its outstanding requests before being
	// closed unconditionally.
	DrainGrace time.Duration
	// ActionQueueDepth sizes the Action Runner's queue (spec.md §2's
	// "minimal single-consumer queue").
	ActionQueueDepth int
}

// DefaultOptions returns Options with spec.md's stated defaults.
func DefaultOptions() Options {
	return Options{
		ReadPolicy:       PolicyPrimary,
		MaxRedirects:     5,
		DrainGrace:       30 * time.Second,
		ActionQueueDepth: 4,
	}
}

// FromRaw overlays non-zero fields from raw onto DefaultOptions,
// coercing loosely-typed input the way packetd's common.Options does.
func FromRaw(raw RawOptions) Options {
	opt := DefaultOptions()
	if v := raw.getInt("maxRedirects", 0); v > 0 {
		opt.MaxRedirects = v
	}
	if v := raw.getDuration("drainGrace", 0); v > 0 {
		opt.DrainGrace = v
	}
	if v := raw.getInt("actionQueueDepth", 0); v > 0 {
		opt.ActionQueueDepth = v
	}
	if v, err := cast.ToIntE(raw["readPolicy"]); err == nil {
		opt.ReadPolicy = Policy(v)
	}
	return opt
}
