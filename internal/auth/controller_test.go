// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/taibuivan/newswizard/internal/auth"
	"github.com/taibuivan/newswizard/internal/platform/apperr"
)

// # Fakes

type fakeSession struct {
	userID  int64
	storage auth.BlobStorage

	authorized bool
	password   string
	hint       string

	checkErr   error
	requestErr error
	submitErr  error
	persistErr error

	phones  []string
	codes   []string
	secrets []string
	forgets int
	closed  bool
}

func (s *fakeSession) IsAuthorized(context.Context) (bool, error) {
	return s.authorized, s.checkErr
}

func (s *fakeSession) RequestLoginCode(_ context.Context, phone string) (auth.LoginToken, error) {
	s.phones = append(s.phones, phone)
	if s.requestErr != nil {
		return nil, s.requestErr
	}
	return "hash-" + phone, nil
}

func (s *fakeSession) SubmitCode(_ context.Context, token auth.LoginToken, code string) error {
	s.codes = append(s.codes, code)
	if token == nil {
		return errors.New("missing token")
	}
	if s.submitErr != nil {
		return s.submitErr
	}
	if s.password != "" {
		return &auth.SecondFactorRequiredError{Challenge: auth.PasswordChallenge{Token: "srp", Hint: s.hint}}
	}
	s.authorized = true
	return nil
}

func (s *fakeSession) SubmitSecondFactor(_ context.Context, challenge auth.PasswordChallenge, secret string) error {
	s.secrets = append(s.secrets, secret)
	if challenge.Token != "srp" {
		return errors.New("challenge lost")
	}
	if secret != s.password {
		return errors.New("PASSWORD_HASH_INVALID")
	}
	s.authorized = true
	return nil
}

func (s *fakeSession) Persist(ctx context.Context) error {
	if s.persistErr != nil {
		return s.persistErr
	}
	return s.storage.Save(ctx, s.userID, []byte("session"))
}

func (s *fakeSession) Forget(ctx context.Context) error {
	s.forgets++
	return s.storage.Delete(ctx, s.userID)
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

// fakeFactory hands out session first, then replacement (when set) on every
// later open.
type fakeFactory struct {
	session     *fakeSession
	replacement *fakeSession
	opened      int
}

func (f *fakeFactory) Open(_ context.Context, userID int64) (auth.CredentialSession, error) {
	f.opened++
	session := f.session
	if f.opened > 1 && f.replacement != nil {
		session = f.replacement
	}
	session.userID = userID
	return session, nil
}

// fakeTexts renders "<key>:{}" so assertions can see both key and value.
type fakeTexts struct{}

func (fakeTexts) Text(_ language.Tag, key string) string {
	if key == auth.KeyHintNotAvailable {
		return "no hint"
	}
	return key + ":{}"
}

var digitsOnly = auth.CodeExtractorFunc(func(_ context.Context, text string) (string, error) {
	code := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, text)
	if code == "" {
		return "", errors.New("no code in text")
	}
	return code, nil
})

type harness struct {
	ctx        context.Context
	controller *auth.Controller
	session    *fakeSession
	factory    *fakeFactory
	storage    *auth.FileBlobStorage
	machine    *auth.Machine
	prefs      auth.Preferences
}

const testUser int64 = 4242

func newHarness(t *testing.T, session *fakeSession) *harness {
	t.Helper()

	storage, err := auth.NewFileBlobStorage(t.TempDir())
	require.NoError(t, err)
	session.storage = storage

	factory := &fakeFactory{session: session}
	store := auth.NewStore(nil)
	entry, prefs := store.GetOrCreate(testUser, "en")

	return &harness{
		ctx:        context.Background(),
		controller: auth.NewController(factory, digitsOnly, fakeTexts{}),
		session:    session,
		factory:    factory,
		storage:    storage,
		machine:    entry.Machine(),
		prefs:      prefs,
	}
}

func (h *harness) advance(t *testing.T, text string) (auth.Reply, error) {
	t.Helper()
	return h.controller.Advance(h.ctx, testUser, h.machine, h.prefs, text)
}

// # Tests

/*
TestController_HappyPath drives phone then code to Authorized and checks the durable record.
*/
func TestController_HappyPath(t *testing.T) {
	h := newHarness(t, &fakeSession{})

	reply, err := h.controller.Begin(h.ctx, testUser, h.machine, h.prefs)
	require.NoError(t, err)
	assert.Equal(t, auth.KeyAwaitingPhone, reply.Key)
	assert.Equal(t, auth.PhaseAwaitingPhoneNumber, h.machine.Phase())

	reply, err = h.advance(t, "  +1 650-253-0000 ")
	require.NoError(t, err)
	assert.True(t, reply.Handled)
	assert.Equal(t, auth.KeyAwaitingCode, reply.Key)
	assert.Equal(t, []string{"+16502530000"}, h.session.phones)
	assert.Equal(t, auth.PhaseAwaitingCode, h.machine.Phase())

	reply, err = h.advance(t, "my code is 1 2 3 4 5")
	require.NoError(t, err)
	assert.True(t, reply.Authorized)
	assert.Equal(t, auth.KeyAuthorized, reply.Key)
	assert.Equal(t, []string{"12345"}, h.session.codes)
	assert.Equal(t, auth.PhaseAuthorized, h.machine.Phase())

	blob, err := h.storage.Load(h.ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, []byte("session"), blob)
	assert.Equal(t, 1, h.factory.opened)
}

/*
TestController_BeginAlreadyAuthorized skips the handshake for a stored, valid session.
*/
func TestController_BeginAlreadyAuthorized(t *testing.T) {
	h := newHarness(t, &fakeSession{authorized: true})

	reply, err := h.controller.Begin(h.ctx, testUser, h.machine, h.prefs)

	require.NoError(t, err)
	assert.True(t, reply.Authorized)
	assert.Equal(t, auth.KeyAlreadyAuthorized, reply.Key)
	assert.Equal(t, auth.PhaseAuthorized, h.machine.Phase())
	assert.Empty(t, h.session.phones)
}

/*
TestController_SecondFactor covers the password step with and without a provider hint.
*/
func TestController_SecondFactor(t *testing.T) {
	tests := []struct {
		name     string
		hint     string
		wantText string
	}{
		{"with_hint", "first pet", auth.KeySecondFactorRequired + ":first pet"},
		{"hint_fallback", "", auth.KeySecondFactorRequired + ":no hint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, &fakeSession{password: "hunter2", hint: tt.hint})

			_, err := h.controller.Begin(h.ctx, testUser, h.machine, h.prefs)
			require.NoError(t, err)
			_, err = h.advance(t, "+15550001111")
			require.NoError(t, err)

			reply, err := h.advance(t, "12345")
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, reply.Text)
			assert.False(t, reply.Authorized)
			assert.Equal(t, auth.PhaseAwaitingSecondFactor, h.machine.Phase())

			reply, err = h.advance(t, "hunter2")
			require.NoError(t, err)
			assert.True(t, reply.Authorized)
			assert.Equal(t, auth.KeySecondFactorSuccess, reply.Key)
			assert.Equal(t, auth.PhaseAuthorized, h.machine.Phase())

			_, err = h.storage.Load(h.ctx, testUser)
			assert.NoError(t, err)
		})
	}
}

/*
TestController_WrongSecondFactor aborts to Idle and surfaces the provider text.
*/
func TestController_WrongSecondFactor(t *testing.T) {
	h := newHarness(t, &fakeSession{password: "hunter2", hint: "pet"})

	_, err := h.controller.Begin(h.ctx, testUser, h.machine, h.prefs)
	require.NoError(t, err)
	_, err = h.advance(t, "+15550001111")
	require.NoError(t, err)
	_, err = h.advance(t, "12345")
	require.NoError(t, err)

	reply, err := h.advance(t, "wrong")

	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeProvider))
	assert.Equal(t, auth.KeySecondFactorFailed+":PASSWORD_HASH_INVALID", reply.Text)
	assert.Equal(t, auth.PhaseIdle, h.machine.Phase())
	assert.False(t, h.machine.Snapshot().HasChallenge)

	_, err = h.storage.Load(h.ctx, testUser)
	assert.True(t, auth.IsSessionNotFound(err), "nothing is persisted on failure")
}

/*
TestController_SignInFailureAborts returns to Idle when the provider rejects the code.
*/
func TestController_SignInFailureAborts(t *testing.T) {
	h := newHarness(t, &fakeSession{submitErr: errors.New("PHONE_CODE_INVALID")})

	_, err := h.controller.Begin(h.ctx, testUser, h.machine, h.prefs)
	require.NoError(t, err)
	_, err = h.advance(t, "+15550001111")
	require.NoError(t, err)

	reply, err := h.advance(t, "00000")

	require.Error(t, err)
	assert.Equal(t, "PHONE_CODE_INVALID", err.Error())
	assert.True(t, reply.Handled)
	assert.Equal(t, auth.KeySignInFailed+":PHONE_CODE_INVALID", reply.Text)
	assert.Equal(t, auth.PhaseIdle, h.machine.Phase())
}

/*
TestController_UnreadableCodeKeepsWaiting lets the user resend the code.
*/
func TestController_UnreadableCodeKeepsWaiting(t *testing.T) {
	h := newHarness(t, &fakeSession{})

	_, err := h.controller.Begin(h.ctx, testUser, h.machine, h.prefs)
	require.NoError(t, err)
	_, err = h.advance(t, "+15550001111")
	require.NoError(t, err)

	reply, err := h.advance(t, "no digits here")
	require.Error(t, err)
	assert.Equal(t, auth.KeyCodeUnreadable, reply.Key)
	assert.Equal(t, auth.PhaseAwaitingCode, h.machine.Phase())
	assert.Empty(t, h.session.codes)

	reply, err = h.advance(t, "54321")
	require.NoError(t, err)
	assert.True(t, reply.Authorized)
}

/*
TestController_CodeRequestFailure aborts when the provider refuses the phone number.
*/
func TestController_CodeRequestFailure(t *testing.T) {
	h := newHarness(t, &fakeSession{requestErr: errors.New("PHONE_NUMBER_INVALID")})

	_, err := h.controller.Begin(h.ctx, testUser, h.machine, h.prefs)
	require.NoError(t, err)

	reply, err := h.advance(t, "not a phone")

	require.Error(t, err)
	assert.Equal(t, auth.KeyCodeRequestFailed+":PHONE_NUMBER_INVALID", reply.Text)
	assert.Equal(t, auth.PhaseIdle, h.machine.Phase())
}

/*
TestController_PersistFailure keeps the live authorization but fails the request.
*/
func TestController_PersistFailure(t *testing.T) {
	h := newHarness(t, &fakeSession{persistErr: errors.New("disk full")})

	_, err := h.controller.Begin(h.ctx, testUser, h.machine, h.prefs)
	require.NoError(t, err)
	_, err = h.advance(t, "+15550001111")
	require.NoError(t, err)

	reply, err := h.advance(t, "12345")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, auth.KeyPersistFailed, reply.Key)
	assert.True(t, reply.Authorized)
	assert.Equal(t, auth.PhaseAuthorized, h.machine.Phase())
}

/*
TestController_AdvanceIgnoresOutsideHandshake leaves idle and authorized users alone.
*/
func TestController_AdvanceIgnoresOutsideHandshake(t *testing.T) {
	h := newHarness(t, &fakeSession{})

	reply, err := h.advance(t, "hello")
	require.NoError(t, err)
	assert.False(t, reply.Handled)
	assert.Equal(t, 0, h.factory.opened)

	h.session.authorized = true
	_, err = h.controller.Begin(h.ctx, testUser, h.machine, h.prefs)
	require.NoError(t, err)

	reply, err = h.advance(t, "12345")
	require.NoError(t, err)
	assert.False(t, reply.Handled)
	assert.Empty(t, h.session.codes)
}

/*
TestController_BeginRestartsHandshake drops a pending code when /auth is sent again.
*/
func TestController_BeginRestartsHandshake(t *testing.T) {
	h := newHarness(t, &fakeSession{})

	_, err := h.controller.Begin(h.ctx, testUser, h.machine, h.prefs)
	require.NoError(t, err)
	_, err = h.advance(t, "+15550001111")
	require.NoError(t, err)

	reply, err := h.controller.Begin(h.ctx, testUser, h.machine, h.prefs)

	require.NoError(t, err)
	assert.Equal(t, auth.KeyAwaitingPhone, reply.Key)
	assert.Equal(t, auth.PhaseAwaitingPhoneNumber, h.machine.Phase())
	assert.False(t, h.machine.Snapshot().HasToken)
	assert.Equal(t, 1, h.factory.opened, "the session is reused")
}

/*
TestController_ProviderCheckFailure keeps the phase when the status check fails.
*/
func TestController_ProviderCheckFailure(t *testing.T) {
	h := newHarness(t, &fakeSession{})

	_, err := h.controller.Begin(h.ctx, testUser, h.machine, h.prefs)
	require.NoError(t, err)

	h.session.checkErr = errors.New("FLOOD_WAIT_5")
	_, err = h.advance(t, "+15550001111")

	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeProvider))
	assert.Equal(t, auth.PhaseAwaitingPhoneNumber, h.machine.Phase())
}

/*
TestController_BeginReopensClosedSession replaces a session whose connection ended.
*/
func TestController_BeginReopensClosedSession(t *testing.T) {
	h := newHarness(t, &fakeSession{authorized: true})

	_, err := h.controller.Begin(h.ctx, testUser, h.machine, h.prefs)
	require.NoError(t, err)

	h.session.checkErr = fmt.Errorf("mtproto: connection closed: %w", auth.ErrSessionClosed)
	h.factory.replacement = &fakeSession{authorized: true, storage: h.storage}

	for range 3 {
		reply, err := h.controller.Begin(h.ctx, testUser, h.machine, h.prefs)
		require.NoError(t, err)
		assert.Equal(t, auth.KeyAlreadyAuthorized, reply.Key)
		assert.Equal(t, auth.PhaseAuthorized, h.machine.Phase())
	}

	assert.True(t, h.session.closed)
	assert.Equal(t, 2, h.factory.opened, "the replacement is reused once healthy")
	assert.Same(t, h.factory.replacement, h.machine.Session())
}

/*
TestController_AdvanceOnClosedSession aborts a handshake bound to a dead connection.
*/
func TestController_AdvanceOnClosedSession(t *testing.T) {
	h := newHarness(t, &fakeSession{})

	_, err := h.controller.Begin(h.ctx, testUser, h.machine, h.prefs)
	require.NoError(t, err)

	h.session.checkErr = auth.ErrSessionClosed
	reply, err := h.advance(t, "+16502530000")

	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeProvider))
	assert.True(t, reply.Handled)
	assert.Equal(t, auth.KeyConnectionLost, reply.Key)
	assert.Equal(t, auth.PhaseIdle, h.machine.Phase())
	assert.Nil(t, h.machine.Session())
	assert.True(t, h.session.closed)
	assert.Empty(t, h.session.phones)
}

/*
TestController_BeginForgetsRevokedSession drops a stored blob that no longer authorizes.
*/
func TestController_BeginForgetsRevokedSession(t *testing.T) {
	h := newHarness(t, &fakeSession{})
	require.NoError(t, h.storage.Save(h.ctx, testUser, []byte("revoked")))

	reply, err := h.controller.Begin(h.ctx, testUser, h.machine, h.prefs)
	require.NoError(t, err)
	assert.Equal(t, auth.KeyAwaitingPhone, reply.Key)
	assert.Equal(t, 1, h.session.forgets)

	_, err = h.storage.Load(h.ctx, testUser)
	assert.True(t, auth.IsSessionNotFound(err))
}

/*
TestController_BeginKeepsAuthorizedRecord never forgets a session that authorizes.
*/
func TestController_BeginKeepsAuthorizedRecord(t *testing.T) {
	h := newHarness(t, &fakeSession{authorized: true})
	require.NoError(t, h.storage.Save(h.ctx, testUser, []byte("valid")))

	_, err := h.controller.Begin(h.ctx, testUser, h.machine, h.prefs)
	require.NoError(t, err)

	assert.Zero(t, h.session.forgets)
	blob, err := h.storage.Load(h.ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, []byte("valid"), blob)
}
