// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
)

// ErrSessionClosed is returned by a [CredentialSession] whose connection has
// ended. The session cannot recover; it must be closed and opened again.
var ErrSessionClosed = errors.New("auth: credential session closed")

// # Opaque Handshake Tokens

// LoginToken is the handle returned when a login code is requested and
// required to submit that code. The core never inspects it.
type LoginToken any

// PasswordChallenge is the second-factor challenge returned by a code
// submission on an account with a cloud password.
type PasswordChallenge struct {
	// Token is passed back unchanged when the secret is submitted.
	Token any
	// Hint is the provider's human-readable password hint. It may be empty.
	Hint string
}

// SecondFactorRequiredError is returned by [CredentialSession.SubmitCode]
// when the code was accepted but the account also needs its password.
type SecondFactorRequiredError struct {
	Challenge PasswordChallenge
}

func (e *SecondFactorRequiredError) Error() string {
	return "second factor required"
}

// AsSecondFactorRequired extracts the challenge from err's chain.
func AsSecondFactorRequired(err error) (*SecondFactorRequiredError, bool) {
	var target *SecondFactorRequiredError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// # Collaborator Contracts

// CredentialSession is a login handshake against the external account provider.
//
// # Concurrency
//
// A session is owned by exactly one [Machine]. Callers serialise access through
// [Entry.Acquire]; implementations do not need to be safe for concurrent use.
type CredentialSession interface {
	// IsAuthorized reports whether the session can act on behalf of the account.
	IsAuthorized(ctx context.Context) (bool, error)

	// RequestLoginCode asks the provider to deliver a login code to the phone.
	RequestLoginCode(ctx context.Context, phone string) (LoginToken, error)

	// SubmitCode signs in with the delivered code. Accounts with a cloud
	// password yield a [*SecondFactorRequiredError].
	SubmitCode(ctx context.Context, token LoginToken, code string) error

	// SubmitSecondFactor completes sign in with the account password.
	SubmitSecondFactor(ctx context.Context, challenge PasswordChallenge, secret string) error

	// Persist writes the session to durable storage, keyed by its user id.
	Persist(ctx context.Context) error

	// Forget removes the durable record of the session. Forgetting a session
	// that was never persisted is not an error.
	Forget(ctx context.Context) error

	// Close releases the connection held by the session.
	Close() error
}

// SessionFactory opens the credential session of a user, loading it from
// durable storage when a stored blob exists and starting a fresh one otherwise.
type SessionFactory interface {
	Open(ctx context.Context, userID int64) (CredentialSession, error)
}

// CodeExtractor pulls the bare numeric login code out of free-form user text.
type CodeExtractor interface {
	ExtractCode(ctx context.Context, text string) (string, error)
}

// CodeExtractorFunc adapts a plain function to [CodeExtractor].
type CodeExtractorFunc func(ctx context.Context, text string) (string, error)

// ExtractCode calls f.
func (f CodeExtractorFunc) ExtractCode(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}
