// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import "time"

// Clock stamps new messages. The indirection keeps controller tests
// deterministic without patching the global clock.
type Clock interface {
	// Now returns the current wall time formatted for display, e.g. "3:04 PM".
	Now() string
}

// timestampLayout matches what the backend uses for history timestamps.
const timestampLayout = "3:04 PM"

type systemClock struct{}

func (systemClock) Now() string { return time.Now().Format(timestampLayout) }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// FixedClock always returns the same timestamp.
type FixedClock string

func (f FixedClock) Now() string { return string(f) }
