// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"

	"github.com/taibuivan/newswizard/internal/platform/apperr"
)

// BlobStorage defines the durable storage contract for credential session blobs.
//
// # Keying
//
// Blobs are keyed by the chat user id. A blob is opaque to the storage layer;
// the provider adapter produces and consumes it.
//
// # Implementations
//
//   - [FileBlobStorage]: one file per user under a directory (default).
//   - [RedisBlobStorage]: one key per user.
//   - [PostgresBlobStorage]: one row per user in auth.credential_sessions.
//   - [SealedBlobStorage]: encrypts the blobs of any of the above.
type BlobStorage interface {
	// Load returns the stored blob of a user.
	//
	// Returns [apperr.NotFound] if the user never persisted a session.
	Load(ctx context.Context, userID int64) ([]byte, error)

	// Save replaces the stored blob of a user atomically.
	Save(ctx context.Context, userID int64, blob []byte) error

	// Delete removes the stored blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, userID int64) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}

// IsSessionNotFound reports whether err means no blob is stored for the user.
func IsSessionNotFound(err error) bool {
	return apperr.HasCode(err, apperr.CodeNotFound)
}

func errSessionNotFound() error {
	return apperr.NotFound("Session")
}
