// Copyright (c) 2025 headerchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package clock provides the injectable wall-clock collaborator the
// chain engine consults when checking header timestamps (spec §4.4
// "check_timestamp"), so tests can pin "now" instead of racing the
// system clock. The checkpoint bootstrap path takes its time as a plain
// argument and does not use this package.
package clock

import "time"

// Clock supplies the current wall-clock time.
type Clock interface {
	Now() time.Time
}

// System is the production Clock, backed by time.Now.
type System struct{}

// Now returns the current system time.
func (System) Now() time.Time { return time.Now() }

// Fixed is a test Clock that always returns the same instant.
type Fixed time.Time

// Now returns the fixed instant.
func (f Fixed) Now() time.Time { return time.Time(f) }
