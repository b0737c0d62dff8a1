// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxkey defines typed context keys used by the dispatcher and jobs.
//
// # Safety
//
// It is used to store and retrieve per-update values (user identity, update or
// run ID, logger). Using a private, unexported type for keys prevents
// collisions with third-party packages that might also use context for storage.
package ctxkey

// key is an unexported type used for context keys to ensure type safety.
type key string

const (
	// KeyUpdateID is the context key for the correlation ID of one inbound update or job run.
	KeyUpdateID key = "update_id"

	// KeyUserID is the context key for the chat user identity being served.
	KeyUserID key = "user_id"

	// KeyRequestID is the context key for the correlation ID of a health probe request.
	KeyRequestID key = "request_id"

	// KeyLogger is the context key for the per-update [*log/slog.Logger].
	KeyLogger key = "logger"
)
