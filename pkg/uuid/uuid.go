// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package uuid generates the time-ordered identifiers of scheduled jobs,
// digest runs and probe requests. Version 7 values sort by creation time, so
// log lines of one job read in order.
package uuid

import "github.com/google/uuid"

// New returns a UUIDv7 string. It panics only when the system entropy source fails.
func New() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Valid reports whether s parses as a UUID of any version.
func Valid(s string) bool {
	return uuid.Validate(s) == nil
}
