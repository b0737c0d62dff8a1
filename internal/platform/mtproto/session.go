// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mtproto links a chat user's own Telegram account through MTProto.

Architecture:

  - Factory: Opens one client per user, seeded from the stored session blob.
  - Session: Implements auth.CredentialSession over the gotd auth flow.
  - Channels: Reads recent posts of the account's broadcast channels for the digest.

A client lives in a background goroutine started by [Factory.Open] and stopped
by [Session.Close].
*/
package mtproto

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gotd/td/telegram"
	tgauth "github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"

	"github.com/taibuivan/newswizard/internal/auth"
	"github.com/taibuivan/newswizard/internal/platform/constants"
)

// ErrClosed is returned by calls on a session whose connection has ended.
// It matches [auth.ErrSessionClosed].
var ErrClosed = fmt.Errorf("mtproto: connection closed: %w", auth.ErrSessionClosed)

// # Factory

// Factory implements auth.SessionFactory.
type Factory struct {
	appID   int
	appHash string
	blobs   auth.BlobStorage
	logger  *slog.Logger
}

// NewFactory creates a factory for the given API credentials and blob storage.
func NewFactory(appID int, appHash string, blobs auth.BlobStorage, logger *slog.Logger) *Factory {
	return &Factory{appID: appID, appHash: appHash, blobs: blobs, logger: logger}
}

/*
Open connects a client for the user.

Description: A stored blob seeds the client; a missing blob starts a fresh,
unauthorized session. Open returns once the connection is ready.

Parameters:
  - ctx: context.Context (bounds the connection setup only)
  - userID: int64

Returns:
  - auth.CredentialSession: A connected *Session
  - error: Storage failures or the connection error
*/
func (f *Factory) Open(ctx context.Context, userID int64) (auth.CredentialSession, error) {
	blob, err := f.blobs.Load(ctx, userID)
	if err != nil && !auth.IsSessionNotFound(err) {
		return nil, fmt.Errorf("mtproto: load session: %w", err)
	}

	storage := newMemoryStorage(blob)
	client := telegram.NewClient(f.appID, f.appHash, telegram.Options{
		SessionStorage: storage,
	})

	runCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		userID:  userID,
		client:  client,
		storage: storage,
		blobs:   f.blobs,
		cancel:  cancel,
		done:    make(chan struct{}),
		logger:  f.logger.With(slog.Int64(constants.FieldUserID, userID)),
	}

	ready := make(chan struct{})
	go func() {
		defer close(s.done)
		s.runErr = client.Run(runCtx, func(ctx context.Context) error {
			close(ready)
			<-ctx.Done()
			return ctx.Err()
		})
		if s.runErr != nil && !errors.Is(s.runErr, context.Canceled) {
			s.logger.Warn("mtproto_connection_ended", slog.Any("error", s.runErr))
		}
	}()

	select {
	case <-ready:
		s.logger.Info("mtproto_connected", slog.Bool("stored_session", len(blob) > 0))
		return s, nil
	case <-s.done:
		cancel()
		return nil, fmt.Errorf("mtproto: connect: %w", s.runErr)
	case <-ctx.Done():
		cancel()
		<-s.done
		return nil, ctx.Err()
	}
}

// # Session

// Session implements auth.CredentialSession with a gotd client.
type Session struct {
	userID  int64
	client  *telegram.Client
	storage *memoryStorage
	blobs   auth.BlobStorage
	logger  *slog.Logger

	cancel    context.CancelFunc
	done      chan struct{}
	runErr    error
	closeOnce sync.Once
}

// loginToken is what [Session.RequestLoginCode] hands back to the core.
type loginToken struct {
	phone string
	hash  string
}

func (s *Session) alive() error {
	select {
	case <-s.done:
		return ErrClosed
	default:
		return nil
	}
}

// IsAuthorized asks the server whether the session is signed in.
func (s *Session) IsAuthorized(ctx context.Context) (bool, error) {
	if err := s.alive(); err != nil {
		return false, err
	}

	status, err := s.client.Auth().Status(ctx)
	if err != nil {
		return false, fmt.Errorf("mtproto: auth status: %w", err)
	}
	return status.Authorized, nil
}

// RequestLoginCode sends a login code to the phone's Telegram apps.
func (s *Session) RequestLoginCode(ctx context.Context, phone string) (auth.LoginToken, error) {
	if err := s.alive(); err != nil {
		return nil, err
	}

	sent, err := s.client.Auth().SendCode(ctx, phone, tgauth.SendCodeOptions{})
	if err != nil {
		return nil, err
	}

	code, ok := sent.(*tg.AuthSentCode)
	if !ok {
		return nil, fmt.Errorf("mtproto: unexpected sent code type %T", sent)
	}

	return loginToken{phone: phone, hash: code.PhoneCodeHash}, nil
}

// SubmitCode signs in. Accounts with a cloud password yield
// [*auth.SecondFactorRequiredError] carrying the password hint.
func (s *Session) SubmitCode(ctx context.Context, token auth.LoginToken, code string) error {
	if err := s.alive(); err != nil {
		return err
	}

	login, ok := token.(loginToken)
	if !ok {
		return fmt.Errorf("mtproto: foreign login token %T", token)
	}

	_, err := s.client.Auth().SignIn(ctx, login.phone, code, login.hash)
	if err == nil {
		return nil
	}
	if !errors.Is(err, tgauth.ErrPasswordAuthNeeded) {
		return err
	}

	challenge := auth.PasswordChallenge{}
	password, pwErr := s.client.API().AccountGetPassword(ctx)
	if pwErr != nil {
		s.logger.Warn("mtproto_password_hint_unavailable", slog.Any("error", pwErr))
	} else {
		challenge.Token = password
		challenge.Hint, _ = password.GetHint()
	}

	return &auth.SecondFactorRequiredError{Challenge: challenge}
}

// SubmitSecondFactor completes sign in with the cloud password.
func (s *Session) SubmitSecondFactor(ctx context.Context, _ auth.PasswordChallenge, secret string) error {
	if err := s.alive(); err != nil {
		return err
	}

	_, err := s.client.Auth().Password(ctx, secret)
	return err
}

// Persist copies the client's current session into durable storage.
func (s *Session) Persist(ctx context.Context) error {
	blob := s.storage.snapshot()
	if len(blob) == 0 {
		return errors.New("mtproto: no session data to persist")
	}

	if err := s.blobs.Save(ctx, s.userID, blob); err != nil {
		return fmt.Errorf("mtproto: persist session: %w", err)
	}
	s.logger.Info("mtproto_session_persisted", slog.Int("bytes", len(blob)))
	return nil
}

// Forget deletes the stored blob of the user.
func (s *Session) Forget(ctx context.Context) error {
	if err := s.blobs.Delete(ctx, s.userID); err != nil {
		return fmt.Errorf("mtproto: forget session: %w", err)
	}
	return nil
}

// Close stops the client and waits for its goroutine.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
	})
	return nil
}
