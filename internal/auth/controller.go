// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/language"

	"github.com/taibuivan/newswizard/internal/platform/apperr"
	"github.com/taibuivan/newswizard/internal/platform/constants"
	"github.com/taibuivan/newswizard/internal/platform/ctxutil"
)

// # Reply Keys

// Message table keys used by the handshake. Templates may contain a single
// "{}" placeholder.
const (
	KeyAlreadyAuthorized    = "authentication.authorized"
	KeyAwaitingPhone        = "authentication.awaiting_phone"
	KeyAwaitingCode         = "handshake.awaiting_code"
	KeyAuthorized           = "handshake.authorized"
	KeySecondFactorRequired = "handshake.second_factor_required"
	KeyHintNotAvailable     = "handshake.hint_not_available"
	KeySecondFactorSuccess  = "handshake.second_factor_success"
	KeyCodeRequestFailed    = "handshake.code_request_failed"
	KeyCodeUnreadable       = "handshake.code_unreadable"
	KeySignInFailed         = "handshake.sign_in_failed"
	KeySecondFactorFailed   = "handshake.second_factor_failed"
	KeyPersistFailed        = "handshake.persist_failed"
	KeyConnectionLost       = "handshake.connection_lost"
)

// Localizer resolves a message table key for a language.
// Unknown keys must yield a fixed default rather than fail.
type Localizer interface {
	Text(lang language.Tag, key string) string
}

// Reply is the outcome of one controller step.
type Reply struct {
	// Key is the message table key the text was produced from.
	Key string
	// Text is the localized message to send, empty when nothing is sent.
	Text string
	// Handled is true when the inbound text was consumed by the handshake.
	Handled bool
	// Authorized is true when the machine ended the step in [PhaseAuthorized].
	Authorized bool
}

type handshakeStep struct {
	phase Phase
	run   func(ctx context.Context, log *slog.Logger, m *Machine, prefs Preferences, text string) (Reply, error)
}

// # Controller

// Controller decides, from the current phase and one line of user text, the
// provider call to issue, the next phase and the reply.
//
// It holds no per-user state. Callers pass the machine of a user they hold
// through [Entry.Acquire].
type Controller struct {
	sessions  SessionFactory
	extractor CodeExtractor
	texts     Localizer
	steps     []handshakeStep
}

// NewController wires the controller with its collaborators.
func NewController(sessions SessionFactory, extractor CodeExtractor, texts Localizer) *Controller {
	c := &Controller{
		sessions:  sessions,
		extractor: extractor,
		texts:     texts,
	}

	// First match wins, evaluated in this order.
	c.steps = []handshakeStep{
		{phase: PhaseAwaitingPhoneNumber, run: c.submitPhoneNumber},
		{phase: PhaseAwaitingCode, run: c.submitCode},
		{phase: PhaseAwaitingSecondFactor, run: c.submitSecondFactor},
	}

	return c
}

/*
Begin enters the handshake for a user that is idle or not yet known to be authorized.

Description: Opens (or reuses) the user's credential session, loading it from durable
storage when present. A reused session whose connection has ended is closed and
opened again. An authorized session short-circuits to [PhaseAuthorized]; otherwise
its durable record is forgotten and the machine waits for a phone number. Calling
Begin during a handshake restarts it.

Parameters:
  - ctx: context.Context
  - userID: int64
  - m: *Machine (held through Entry.Acquire)
  - prefs: Preferences

Returns:
  - Reply: Authorized is true when no handshake is needed
  - error: Storage failures opening the session, provider failures checking it
*/
func (c *Controller) Begin(ctx context.Context, userID int64, m *Machine, prefs Preferences) (Reply, error) {
	log := ctxutil.GetLogger(ctx).With(slog.Int64(constants.FieldUserID, userID))

	if m.session != nil {
		authorized, err := m.session.IsAuthorized(ctx)
		if !errors.Is(err, ErrSessionClosed) {
			return c.begin(ctx, log, m, prefs, authorized, err)
		}
		c.discard(log, m)
	}

	session, err := c.sessions.Open(ctx, userID)
	if err != nil {
		return Reply{}, fmt.Errorf("auth: open credential session: %w", err)
	}
	m.attach(session)
	log.Info("credential_session_opened")

	authorized, err := m.session.IsAuthorized(ctx)
	return c.begin(ctx, log, m, prefs, authorized, err)
}

// begin finishes [Controller.Begin] from the status check of the attached session.
func (c *Controller) begin(ctx context.Context, log *slog.Logger, m *Machine, prefs Preferences, authorized bool, err error) (Reply, error) {
	if err != nil {
		return Reply{}, apperr.Provider(err)
	}

	if authorized {
		if err := m.authorize(); err != nil {
			return Reply{}, err
		}
		log.Info("handshake_skipped_already_authorized")
		return c.reply(prefs, KeyAlreadyAuthorized, ""), nil
	}

	// A stored session that no longer authorizes (revoked elsewhere) is dropped.
	if err := m.session.Forget(ctx); err != nil {
		log.Warn("credential_session_forget_failed", slog.Any("error", err))
	}

	if err := m.awaitPhoneNumber(); err != nil {
		return Reply{}, err
	}
	log.Info("handshake_started", slog.String(constants.FieldPhase, m.phase.String()))

	return c.reply(prefs, KeyAwaitingPhone, ""), nil
}

/*
Advance feeds one inbound line of text to the handshake.

Description: Outside an awaiting phase the text is not consumed. A provider error
during code or second-factor submission aborts the handshake (back to Idle), is
surfaced verbatim in the reply and is returned to the caller.

Parameters:
  - ctx: context.Context
  - userID: int64
  - m: *Machine (held through Entry.Acquire)
  - prefs: Preferences
  - text: string (unvalidated user input)

Returns:
  - Reply: Text to send back, Handled=false when the text was ignored
  - error: Provider or storage failures of this step
*/
func (c *Controller) Advance(ctx context.Context, userID int64, m *Machine, prefs Preferences, text string) (Reply, error) {
	if !m.phase.IsAwaiting() {
		return Reply{}, nil
	}

	log := ctxutil.GetLogger(ctx).With(
		slog.Int64(constants.FieldUserID, userID),
		slog.String(constants.FieldPhase, m.phase.String()),
	)

	if m.session == nil {
		m.abort()
		return Reply{}, apperr.Internal(errors.New("auth: awaiting phase without a credential session"))
	}

	authorized, err := m.session.IsAuthorized(ctx)
	if errors.Is(err, ErrSessionClosed) {
		// The pending handshake died with the connection; the user restarts it.
		c.discard(log, m)
		return c.handled(c.reply(prefs, KeyConnectionLost, "")), apperr.Provider(err)
	}
	if err != nil {
		return Reply{}, apperr.Provider(err)
	}
	if authorized {
		if err := m.authorize(); err != nil {
			return Reply{}, err
		}
		return c.handled(c.reply(prefs, KeyAuthorized, "")), nil
	}

	for _, step := range c.steps {
		if m.phase == step.phase {
			reply, err := step.run(ctx, log, m, prefs, text)
			return c.handled(reply), err
		}
	}

	return Reply{}, nil
}

// discard closes and detaches a session whose connection has ended.
func (c *Controller) discard(log *slog.Logger, m *Machine) {
	if err := m.detach().Close(); err != nil {
		log.Warn("credential_session_close_failed", slog.Any("error", err))
	}
	log.Warn("credential_session_discarded", slog.String(constants.FieldPhase, m.phase.String()))
}

// # Steps

func (c *Controller) submitPhoneNumber(ctx context.Context, log *slog.Logger, m *Machine, prefs Preferences, text string) (Reply, error) {
	phone := NormalizePhoneNumber(text)

	token, err := m.session.RequestLoginCode(ctx, phone)
	if err != nil {
		m.abort()
		log.Warn("handshake_code_request_failed", slog.Any("error", err))
		return c.reply(prefs, KeyCodeRequestFailed, err.Error()), apperr.Provider(err)
	}

	if err := m.awaitCode(phone, token); err != nil {
		return Reply{}, err
	}
	log.Info("handshake_code_requested")

	return c.reply(prefs, KeyAwaitingCode, ""), nil
}

func (c *Controller) submitCode(ctx context.Context, log *slog.Logger, m *Machine, prefs Preferences, text string) (Reply, error) {
	code, err := c.extractor.ExtractCode(ctx, text)
	if err != nil {
		// The code is still pending; the user may send it again.
		log.Warn("handshake_code_extraction_failed", slog.Any("error", err))
		return c.reply(prefs, KeyCodeUnreadable, ""), apperr.Provider(err)
	}
	code = strings.TrimSpace(code)

	err = m.session.SubmitCode(ctx, m.loginToken, code)
	if err == nil {
		if err := m.authorize(); err != nil {
			return Reply{}, err
		}
		log.Info("handshake_authorized")
		return c.persist(ctx, log, m, prefs, KeyAuthorized)
	}

	if required, ok := AsSecondFactorRequired(err); ok {
		challenge := required.Challenge
		if strings.TrimSpace(challenge.Hint) == "" {
			challenge.Hint = c.texts.Text(prefs.Language, KeyHintNotAvailable)
		}
		if err := m.awaitSecondFactor(code, challenge); err != nil {
			return Reply{}, err
		}
		log.Info("handshake_second_factor_required")
		return c.reply(prefs, KeySecondFactorRequired, challenge.Hint), nil
	}

	m.abort()
	log.Warn("handshake_sign_in_failed", slog.Any("error", err))
	return c.reply(prefs, KeySignInFailed, err.Error()), apperr.Provider(err)
}

func (c *Controller) submitSecondFactor(ctx context.Context, log *slog.Logger, m *Machine, prefs Preferences, text string) (Reply, error) {
	if m.challenge == nil {
		m.abort()
		return Reply{}, apperr.Internal(errors.New("auth: second factor phase without a challenge"))
	}

	if err := m.session.SubmitSecondFactor(ctx, *m.challenge, text); err != nil {
		m.abort()
		log.Warn("handshake_second_factor_failed", slog.Any("error", err))
		return c.reply(prefs, KeySecondFactorFailed, err.Error()), apperr.Provider(err)
	}

	if err := m.authorize(); err != nil {
		return Reply{}, err
	}
	log.Info("handshake_authorized", slog.Bool("second_factor", true))

	return c.persist(ctx, log, m, prefs, KeySecondFactorSuccess)
}

// persist stores an authorized session. A failure does not undo the
// authorization of the live session; it fails the current request.
func (c *Controller) persist(ctx context.Context, log *slog.Logger, m *Machine, prefs Preferences, successKey string) (Reply, error) {
	if err := m.session.Persist(ctx); err != nil {
		log.Error("credential_session_persist_failed", slog.Any("error", err))
		reply := c.reply(prefs, KeyPersistFailed, "")
		reply.Authorized = true
		return reply, fmt.Errorf("auth: persist credential session: %w", err)
	}

	return c.reply(prefs, successKey, ""), nil
}

// # Replies

func (c *Controller) reply(prefs Preferences, key, value string) Reply {
	text := strings.Replace(c.texts.Text(prefs.Language, key), "{}", value, 1)
	return Reply{
		Key:        key,
		Text:       text,
		Authorized: key == KeyAlreadyAuthorized || key == KeyAuthorized || key == KeySecondFactorSuccess,
	}
}

func (c *Controller) handled(reply Reply) Reply {
	reply.Handled = true
	return reply
}
