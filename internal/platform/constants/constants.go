// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire bot.

It defines default timeouts, schedule parameters and cross-cutting keys that are
shared between different layers of the system.

Categories:

  - Server Timing: Timeouts for the health server and shutdown.
  - Digest: Recurrence interval and indicator period.
  - Storage: Redis prefixes and table names for session blobs.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "newswizard"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading a health request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out a health response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// DefaultIdleTimeout is how long an idle keep-alive probe connection stays open.
	DefaultIdleTimeout = 60 * time.Second

	// ReadinessCheckTimeout bounds each dependency ping of the readiness probe.
	ReadinessCheckTimeout = 3 * time.Second

	// GlobalRequestTimeout bounds a single storage statement.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight work to complete during shutdown.
	ShutdownTimeout = 30 * time.Second

	// PollTimeout is the long-polling window for Bot API updates, in seconds.
	PollTimeout = 60
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderContentType   = "Content-Type"
)

// # Digest

const (
	// DigestInterval is the fixed period between two firings of a daily job.
	// It is a duration, never a recomputation of the next local fire time.
	DigestInterval = 24 * time.Hour

	// IndicatorPeriod is how often the "recording voice" chat action is refreshed.
	IndicatorPeriod = 5 * time.Second

	// ChannelPacing is the minimum gap between reading two channels.
	ChannelPacing = 2 * time.Second

	// ChannelHistoryBatch is the page size when reading a channel history.
	ChannelHistoryBatch = 100
)

// # Logging Keys

const (
	FieldUserID   = "user_id"
	FieldUpdateID = "update_id"
	FieldPhase    = "phase"
	FieldJobID    = "job_id"
	FieldRunID    = "run_id"
	FieldCode     = "code"
	FieldError    = "error"
)

// # Storage

const (
	// SessionFileExt is the filename suffix of a file-backed session blob.
	SessionFileExt = ".session"

	// SchemaAuth is the postgres schema holding session blobs.
	SchemaAuth = "auth"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixSession = "auth:session:"
)
