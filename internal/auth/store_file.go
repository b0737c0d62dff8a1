// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/taibuivan/newswizard/internal/platform/apperr"
	"github.com/taibuivan/newswizard/internal/platform/constants"
)

// FileBlobStorage implements BlobStorage with one file per user.
type FileBlobStorage struct {
	dir string
}

// NewFileBlobStorage creates the directory if needed and returns the storage.
func NewFileBlobStorage(dir string) (*FileBlobStorage, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, apperr.Storage("create session directory", err)
	}
	return &FileBlobStorage{dir: dir}, nil
}

// Path returns the file holding the blob of a user.
func (storage *FileBlobStorage) Path(userID int64) string {
	return filepath.Join(storage.dir, strconv.FormatInt(userID, 10)+constants.SessionFileExt)
}

/*
Load reads the blob of a user.

Returns:
  - []byte: Stored blob
  - error: apperr.NotFound when the file does not exist, apperr.Storage otherwise
*/
func (storage *FileBlobStorage) Load(_ context.Context, userID int64) ([]byte, error) {
	blob, err := os.ReadFile(storage.Path(userID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errSessionNotFound()
		}
		return nil, apperr.Storage("read session file", err)
	}
	return blob, nil
}

/*
Save writes the blob through a temporary file renamed over the target.

Description: Readers never observe a partially written blob.
*/
func (storage *FileBlobStorage) Save(_ context.Context, userID int64, blob []byte) error {
	target := storage.Path(userID)

	tmp, err := os.CreateTemp(storage.dir, filepath.Base(target)+".*.tmp")
	if err != nil {
		return apperr.Storage("create temporary session file", err)
	}
	tmpName := tmp.Name()

	// Remove the temporary file on any failure below.
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(blob); err != nil {
		_ = tmp.Close()
		return apperr.Storage("write session file", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return apperr.Storage("sync session file", err)
	}
	if err := tmp.Close(); err != nil {
		return apperr.Storage("close session file", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return apperr.Storage("chmod session file", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return apperr.Storage("rename session file", err)
	}

	committed = true
	return nil
}

// Delete removes the file of a user.
func (storage *FileBlobStorage) Delete(_ context.Context, userID int64) error {
	if err := os.Remove(storage.Path(userID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperr.Storage("delete session file", err)
	}
	return nil
}

// Ping checks that the directory is still there.
func (storage *FileBlobStorage) Ping(_ context.Context) error {
	info, err := os.Stat(storage.dir)
	if err != nil {
		return apperr.Storage("stat session directory", err)
	}
	if !info.IsDir() {
		return apperr.Storage("stat session directory", fmt.Errorf("%s is not a directory", storage.dir))
	}
	return nil
}
