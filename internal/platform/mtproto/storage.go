// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mtproto

import (
	"context"
	"sync"

	"github.com/gotd/td/session"
)

// memoryStorage is the session.Storage handed to the MTProto client.
//
// The client rewrites its session whenever keys or data centers change. Those
// writes stay in memory; a blob reaches durable storage only through
// [Session.Persist], after a successful authorization.
type memoryStorage struct {
	mu   sync.Mutex
	data []byte
}

func newMemoryStorage(initial []byte) *memoryStorage {
	return &memoryStorage{data: append([]byte(nil), initial...)}
}

// LoadSession implements session.Storage.
func (s *memoryStorage) LoadSession(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.data) == 0 {
		return nil, session.ErrNotFound
	}
	return append([]byte(nil), s.data...), nil
}

// StoreSession implements session.Storage.
func (s *memoryStorage) StoreSession(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = append([]byte(nil), data...)
	return nil
}

func (s *memoryStorage) snapshot() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.data...)
}
