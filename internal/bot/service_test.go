// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package bot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/taibuivan/newswizard/internal/auth"
	"github.com/taibuivan/newswizard/internal/scheduler"
)

// # Fakes

type sent struct {
	kind string
	text string
}

type recordingMessenger struct {
	mu       sync.Mutex
	messages []sent
	actions  atomic.Int32
	textErr  error
}

func (m *recordingMessenger) add(kind, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, sent{kind: kind, text: text})
	return nil
}

func (m *recordingMessenger) SendText(_ context.Context, _ int64, text string) error {
	if m.textErr != nil {
		return m.textErr
	}
	return m.add("text", text)
}

func (m *recordingMessenger) SendHTML(_ context.Context, _ int64, text string) error {
	return m.add("html", text)
}

func (m *recordingMessenger) SendVoice(_ context.Context, _ int64, path string) error {
	return m.add("voice", filepath.Base(path))
}

func (m *recordingMessenger) SendRecordingVoice(context.Context, int64) error {
	m.actions.Add(1)
	return nil
}

func (m *recordingMessenger) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		out = append(out, msg.text)
	}
	return out
}

type stubSession struct {
	authorized bool
}

func (s *stubSession) IsAuthorized(context.Context) (bool, error) { return s.authorized, nil }
func (s *stubSession) RequestLoginCode(context.Context, string) (auth.LoginToken, error) {
	return "hash", nil
}
func (s *stubSession) SubmitCode(context.Context, auth.LoginToken, string) error {
	s.authorized = true
	return nil
}
func (s *stubSession) SubmitSecondFactor(context.Context, auth.PasswordChallenge, string) error {
	return nil
}
func (s *stubSession) Persist(context.Context) error { return nil }
func (s *stubSession) Forget(context.Context) error  { return nil }
func (s *stubSession) Close() error                  { return nil }

type stubFactory struct{ session *stubSession }

func (f stubFactory) Open(context.Context, int64) (auth.CredentialSession, error) {
	return f.session, nil
}

type keyTexts struct{}

func (keyTexts) Text(_ language.Tag, key string) string { return key }

// fileProducer writes a small audio file and waits long enough for the
// recording indicator to tick.
type fileProducer struct {
	dir   string
	runs  atomic.Int32
	err   error
	delay time.Duration
}

func (p *fileProducer) Produce(context.Context, auth.CredentialSession, int64) (string, error) {
	p.runs.Add(1)
	time.Sleep(p.delay)
	if p.err != nil {
		return "", p.err
	}
	path := filepath.Join(p.dir, "2026-03-14_audio_podcast.mp3")
	return path, os.WriteFile(path, []byte("mp3"), 0o600)
}

type fixture struct {
	service   *Service
	store     *auth.Store
	session   *stubSession
	messenger *recordingMessenger
	producer  *fileProducer
	sched     *scheduler.Scheduler
}

func newFixture(t *testing.T, authorized bool, opts ...scheduler.Option) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	session := &stubSession{authorized: authorized}
	store := auth.NewStore(nil)
	extract := auth.CodeExtractorFunc(func(_ context.Context, text string) (string, error) { return text, nil })
	controller := auth.NewController(stubFactory{session: session}, extract, keyTexts{})
	messenger := &recordingMessenger{}
	producer := &fileProducer{dir: t.TempDir(), delay: 20 * time.Millisecond}
	sched := scheduler.New(append([]scheduler.Option{scheduler.WithLogger(logger)}, opts...)...)

	service := NewService(store, controller, producer, sched, messenger, keyTexts{}, logger)
	service.indicatorPeriod = 5 * time.Millisecond

	return &fixture{
		service:   service,
		store:     store,
		session:   session,
		messenger: messenger,
		producer:  producer,
		sched:     sched,
	}
}

func command(userID int64, name string) Update {
	return Update{UserID: userID, ChatID: userID, LanguageCode: "en", Text: "/" + name, Command: name}
}

func text(userID int64, body string) Update {
	return Update{UserID: userID, ChatID: userID, Text: body}
}

// # Tests

/*
TestService_StaticCommands answers start and help with their HTML texts.
*/
func TestService_StaticCommands(t *testing.T) {
	f := newFixture(t, false)

	f.service.Handle(context.Background(), command(1, CommandStart))
	f.service.Handle(context.Background(), command(1, CommandHelp))

	assert.Equal(t, []sent{{"html", KeyWelcome}, {"html", KeyHelp}}, f.messenger.messages)
}

/*
TestService_TextIgnoredOutsideHandshake drops text from unknown and idle users.
*/
func TestService_TextIgnoredOutsideHandshake(t *testing.T) {
	f := newFixture(t, false)

	f.service.Handle(context.Background(), text(1, "hello"))
	assert.Equal(t, 0, f.store.Len(), "unknown users are not created by text")

	f.service.Handle(context.Background(), command(1, CommandStart))
	f.service.Handle(context.Background(), text(1, "hello"))
	assert.Equal(t, []string{KeyWelcome}, f.messenger.texts())
}

/*
TestService_AuthHandshake links an account through auth, phone and code messages.
*/
func TestService_AuthHandshake(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	f.service.Handle(ctx, command(1, CommandAuth))
	f.service.Handle(ctx, text(1, "+15550001111"))
	f.service.Handle(ctx, text(1, "12345"))

	assert.Equal(t, []string{auth.KeyAwaitingPhone, auth.KeyAwaitingCode, auth.KeyAuthorized}, f.messenger.texts())

	entry, _, ok := f.store.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, auth.PhaseAuthorized, entry.Machine().Phase())
}

/*
TestService_GetNewsUnauthorized prompts for a phone number and schedules nothing.
*/
func TestService_GetNewsUnauthorized(t *testing.T) {
	f := newFixture(t, false)

	f.service.Handle(context.Background(), command(1, CommandGetNews))

	assert.Equal(t, []string{auth.KeyAwaitingPhone}, f.messenger.texts())
	assert.Equal(t, int32(0), f.producer.runs.Load())
	entry, _, _ := f.store.Lookup(1)
	assert.Empty(t, entry.Jobs())
}

/*
TestService_GetNewsDeliversAndSchedules sends the digest, removes the audio and stacks daily jobs.
*/
func TestService_GetNewsDeliversAndSchedules(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(t, true)

	f.service.Handle(ctx, command(1, CommandGetNews))

	assert.Equal(t, []sent{
		{"text", auth.KeyAlreadyAuthorized},
		{"html", KeyDigestStart},
		{"html", KeyDigestEnd},
		{"voice", "2026-03-14_audio_podcast.mp3"},
		{"text", KeyDigestScheduled},
	}, f.messenger.messages)
	assert.Greater(t, f.messenger.actions.Load(), int32(0), "recording indicator ran")

	_, err := os.Stat(filepath.Join(f.producer.dir, "2026-03-14_audio_podcast.mp3"))
	assert.True(t, errors.Is(err, os.ErrNotExist), "audio removed after sending")

	// The indicator stops with the run.
	settled := f.messenger.actions.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, settled, f.messenger.actions.Load())

	f.service.Handle(ctx, command(1, CommandGetNews))

	entry, _, _ := f.store.Lookup(1)
	jobs := entry.Jobs()
	require.Len(t, jobs, 2, "a second getnews adds a second job")
	assert.NotEqual(t, jobs[0].ID(), jobs[1].ID())

	cancel()
	f.sched.Wait()
}

/*
TestService_DigestFailureStopsBeforeScheduling reports the failure and schedules nothing.
*/
func TestService_DigestFailureStopsBeforeScheduling(t *testing.T) {
	f := newFixture(t, true)
	f.producer.err = errors.New("no posts")

	f.service.Handle(context.Background(), command(1, CommandGetNews))

	assert.Contains(t, f.messenger.texts(), KeyDigestFailed)
	assert.NotContains(t, f.messenger.texts(), KeyDigestScheduled)
	entry, _, _ := f.store.Lookup(1)
	assert.Empty(t, entry.Jobs())
}

/*
TestService_ScheduledFiringRunsDigest re-runs authentication and delivery on each firing.
*/
func TestService_ScheduledFiringRunsDigest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fire := time.Date(2026, time.March, 14, 9, 0, 0, 0, scheduler.DefaultLocation)
	f := newFixture(t, true,
		scheduler.WithClock(func() time.Time { return fire.Add(-10 * time.Millisecond) }),
		scheduler.WithInterval(50*time.Millisecond),
	)
	f.producer.delay = 0

	f.service.Handle(ctx, command(1, CommandGetNews))

	require.Eventually(t, func() bool { return f.producer.runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	f.sched.Wait()
}

/*
TestService_ScheduledFiringDuringHandshake skips the digest while the user is linking.
*/
func TestService_ScheduledFiringDuringHandshake(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	f.service.Handle(ctx, command(1, CommandAuth))
	entry, prefs, _ := f.store.Lookup(1)

	err := f.service.dailyDigest(entry, 1)(ctx, prefs)

	assert.ErrorIs(t, err, ErrHandshakeInProgress)
	assert.Equal(t, auth.PhaseAwaitingPhoneNumber, entry.Machine().Phase())
	assert.Equal(t, int32(0), f.producer.runs.Load())
}

/*
TestService_NoticeSendFailureIsLogged keeps the digest error when the notice cannot be sent.
*/
func TestService_NoticeSendFailureIsLogged(t *testing.T) {
	tests := []struct {
		name       string
		authorized bool
		setup      func(f *fixture)
		wantErr    error
		wantKey    string
	}{
		{
			name:    "handshake_in_progress",
			setup:   func(f *fixture) { f.service.Handle(context.Background(), command(1, CommandAuth)) },
			wantErr: ErrHandshakeInProgress,
			wantKey: KeyDigestNoAccount,
		},
		{
			name:       "produce_failed",
			authorized: true,
			setup: func(f *fixture) {
				f.service.Handle(context.Background(), command(1, CommandStart))
				f.producer.err = errNoPosts
			},
			wantErr: errNoPosts,
			wantKey: KeyDigestFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.authorized)
			tt.setup(f)

			var buf bytes.Buffer
			f.service.logger = slog.New(slog.NewJSONHandler(&buf, nil))
			f.messenger.textErr = errors.New("chat not found")
			entry, prefs, ok := f.store.Lookup(1)
			require.True(t, ok)

			err := f.service.dailyDigest(entry, 1)(context.Background(), prefs)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, buf.String(), `"msg":"digest_notice_send_failed"`)
			assert.Contains(t, buf.String(), tt.wantKey)
			assert.Contains(t, buf.String(), "chat not found")
		})
	}
}

var errNoPosts = errors.New("no posts")
