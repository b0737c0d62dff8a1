// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/newswizard/internal/platform/apperr"
	"github.com/taibuivan/newswizard/internal/platform/constants"
)

// RedisBlobStorage implements BlobStorage using Redis.
type RedisBlobStorage struct {
	client *redis.Client
}

// NewRedisBlobStorage creates a new Redis-backed BlobStorage.
func NewRedisBlobStorage(client *redis.Client) *RedisBlobStorage {
	return &RedisBlobStorage{client: client}
}

func sessionKey(userID int64) string {
	return constants.RedisPrefixSession + strconv.FormatInt(userID, 10)
}

/*
Load retrieves the blob of a user.

Description: Returns apperr.NotFound if the key is absent.

Parameters:
  - ctx: context.Context
  - userID: int64

Returns:
  - []byte: Stored blob
  - error: apperr.NotFound or connectivity errors
*/
func (repository *RedisBlobStorage) Load(ctx context.Context, userID int64) ([]byte, error) {
	blob, err := repository.client.Get(ctx, sessionKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errSessionNotFound()
		}
		return nil, apperr.Storage("load session from redis", err)
	}
	return blob, nil
}

// Save stores the blob without expiry. SET replaces the value atomically.
func (repository *RedisBlobStorage) Save(ctx context.Context, userID int64, blob []byte) error {
	if err := repository.client.Set(ctx, sessionKey(userID), blob, 0).Err(); err != nil {
		return apperr.Storage("save session to redis", err)
	}
	return nil
}

// Delete removes the key of a user.
func (repository *RedisBlobStorage) Delete(ctx context.Context, userID int64) error {
	if err := repository.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return apperr.Storage("delete session from redis", err)
	}
	return nil
}

// Ping checks connectivity.
func (repository *RedisBlobStorage) Ping(ctx context.Context) error {
	if err := repository.client.Ping(ctx).Err(); err != nil {
		return apperr.Storage("ping redis", err)
	}
	return nil
}
