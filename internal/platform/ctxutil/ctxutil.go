// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/newswizard/internal/platform/ctxkey"
)

// # Update Tracing

// WithUpdateID returns a new context with the provided update or run ID attached.
func WithUpdateID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyUpdateID, id)
}

// GetUpdateID retrieves the update ID from the context.
// Returns an empty string if not found.
func GetUpdateID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyUpdateID).(string)
	return id
}

// WithRequestID returns a new context carrying the HTTP request correlation ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID retrieves the HTTP request correlation ID from the context.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}

// # Identity

// WithUserID returns a new context carrying the chat user identity.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ctxkey.KeyUserID, userID)
}

// GetUserID retrieves the chat user identity from the context.
// The boolean is false when no identity was attached.
func GetUserID(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(ctxkey.KeyUserID).(int64)
	return userID, ok
}
