// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package sec protects credential session blobs at rest.

A linked account session is a bearer credential: anyone holding the blob can act
as the user. When a SESSION_SECRET is configured every blob is sealed before it
reaches durable storage.

Architecture:

  - Key Derivation: HKDF-SHA256 turns the operator secret into a 256-bit key.
  - Cipher: XChaCha20-Poly1305 (random 24-byte nonce per blob, authenticated).
  - Format: version byte || nonce || ciphertext.
*/
package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// blobVersion prefixes every sealed blob so the format can evolve.
const blobVersion byte = 1

// keyInfo binds derived keys to this use.
const keyInfo = "newswizard/session-blob/v1"

var (
	// ErrMalformedBlob is returned when a sealed blob is truncated or has an unknown version.
	ErrMalformedBlob = errors.New("sec: malformed sealed blob")
)

// Sealer encrypts and authenticates session blobs with a key derived from a secret.
type Sealer struct {
	key []byte
}

// NewSealer derives the blob key from secret.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("sec: empty secret")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("sec: derive key: %w", err)
	}

	return &Sealer{key: key}, nil
}

// Seal encrypts plaintext. The user id is bound as associated data so a blob
// copied to another user's slot fails to open.
func (s *Sealer) Seal(userID int64, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("sec: init cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize(), 1+aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("sec: nonce: %w", err)
	}

	out := append([]byte{blobVersion}, nonce...)
	return aead.Seal(out, nonce, plaintext, associatedData(userID)), nil
}

// Open authenticates and decrypts a blob produced by [Sealer.Seal].
func (s *Sealer) Open(userID int64, blob []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("sec: init cipher: %w", err)
	}

	if len(blob) < 1+aead.NonceSize()+aead.Overhead() || blob[0] != blobVersion {
		return nil, ErrMalformedBlob
	}

	nonce := blob[1 : 1+aead.NonceSize()]
	plaintext, err := aead.Open(nil, nonce, blob[1+aead.NonceSize():], associatedData(userID))
	if err != nil {
		return nil, fmt.Errorf("sec: open blob: %w", err)
	}

	return plaintext, nil
}

func associatedData(userID int64) []byte {
	return []byte(fmt.Sprintf("user:%d", userID))
}
