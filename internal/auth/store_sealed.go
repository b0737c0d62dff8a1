// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"

	"github.com/taibuivan/newswizard/internal/platform/apperr"
	"github.com/taibuivan/newswizard/internal/platform/sec"
)

// SealedBlobStorage encrypts blobs before they reach the wrapped storage.
// A sealed blob is bound to its user id and cannot be swapped between users.
type SealedBlobStorage struct {
	next   BlobStorage
	sealer *sec.Sealer
}

// NewSealedBlobStorage wraps next with sealer.
func NewSealedBlobStorage(next BlobStorage, sealer *sec.Sealer) *SealedBlobStorage {
	return &SealedBlobStorage{next: next, sealer: sealer}
}

func (storage *SealedBlobStorage) Load(ctx context.Context, userID int64) ([]byte, error) {
	sealed, err := storage.next.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	blob, err := storage.sealer.Open(userID, sealed)
	if err != nil {
		return nil, apperr.Storage("open sealed session", err)
	}
	return blob, nil
}

func (storage *SealedBlobStorage) Save(ctx context.Context, userID int64, blob []byte) error {
	sealed, err := storage.sealer.Seal(userID, blob)
	if err != nil {
		return apperr.Storage("seal session", err)
	}
	return storage.next.Save(ctx, userID, sealed)
}

func (storage *SealedBlobStorage) Delete(ctx context.Context, userID int64) error {
	return storage.next.Delete(ctx, userID)
}

func (storage *SealedBlobStorage) Ping(ctx context.Context) error {
	return storage.next.Ping(ctx)
}
