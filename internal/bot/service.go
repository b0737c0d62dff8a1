// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/taibuivan/newswizard/internal/auth"
	"github.com/taibuivan/newswizard/internal/digest"
	"github.com/taibuivan/newswizard/internal/platform/constants"
	"github.com/taibuivan/newswizard/internal/platform/ctxutil"
	"github.com/taibuivan/newswizard/internal/scheduler"
)

// ErrHandshakeInProgress is returned by a scheduled firing that finds the user
// in the middle of linking an account.
var ErrHandshakeInProgress = errors.New("bot: handshake in progress")

// ErrNotAuthorized is returned by a scheduled firing for an unlinked account.
var ErrNotAuthorized = errors.New("bot: account not authorized")

// Service implements [Handler] for the News Wizard bot.
type Service struct {
	store      *auth.Store
	controller *auth.Controller
	producer   digest.Producer
	scheduler  *scheduler.Scheduler
	messenger  Messenger
	texts      auth.Localizer
	logger     *slog.Logger

	// indicatorPeriod is how often the recording indicator is refreshed.
	indicatorPeriod time.Duration
}

// NewService wires the bot service.
func NewService(
	store *auth.Store,
	controller *auth.Controller,
	producer digest.Producer,
	sched *scheduler.Scheduler,
	messenger Messenger,
	texts auth.Localizer,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:           store,
		controller:      controller,
		producer:        producer,
		scheduler:       sched,
		messenger:       messenger,
		texts:           texts,
		logger:          logger,
		indicatorPeriod: constants.IndicatorPeriod,
	}
}

/*
Handle processes one inbound update.

Description: Commands create the user's store entry on first contact. Plain
text only reaches the handshake for a known user whose machine awaits input;
everything else is ignored. Scheduled jobs started here live as long as ctx.

Parameters:
  - ctx: context.Context (process lifetime)
  - update: Update
*/
func (s *Service) Handle(ctx context.Context, update Update) {
	log := s.logger.With(
		slog.Int64(constants.FieldUserID, update.UserID),
		slog.Int(constants.FieldUpdateID, update.UpdateID),
	)
	ctx = ctxutil.WithLogger(ctx, log)
	ctx = ctxutil.WithUserID(ctx, update.UserID)
	ctx = ctxutil.WithUpdateID(ctx, strconv.Itoa(update.UpdateID))

	var err error
	switch update.Command {
	case CommandStart:
		err = s.sendStatic(ctx, update, KeyWelcome)
	case CommandHelp:
		err = s.sendStatic(ctx, update, KeyHelp)
	case CommandAuth:
		log.Info("command_auth", slog.String("username", update.Username))
		err = s.handleAuth(ctx, update)
	case CommandGetNews:
		log.Info("command_getnews", slog.String("username", update.Username))
		err = s.handleGetNews(ctx, update)
	default:
		err = s.handleText(ctx, update)
	}

	if err != nil {
		log.Error("update_failed", slog.String("command", update.Command), slog.Any("error", err))
	}
}

func (s *Service) sendStatic(ctx context.Context, update Update, key string) error {
	_, prefs := s.store.GetOrCreate(update.UserID, update.LanguageCode)
	return s.messenger.SendHTML(ctx, update.ChatID, s.texts.Text(prefs.Language, key))
}

// # Handshake

func (s *Service) handleAuth(ctx context.Context, update Update) error {
	entry, prefs := s.store.GetOrCreate(update.UserID, update.LanguageCode)
	if err := entry.Acquire(ctx); err != nil {
		return err
	}
	defer entry.Release()

	reply, err := s.controller.Begin(ctx, update.UserID, entry.Machine(), prefs)
	if sendErr := s.sendReply(ctx, update.ChatID, reply); sendErr != nil && err == nil {
		err = sendErr
	}
	return err
}

func (s *Service) handleText(ctx context.Context, update Update) error {
	entry, prefs, ok := s.store.Lookup(update.UserID)
	if !ok {
		return nil
	}

	if err := entry.Acquire(ctx); err != nil {
		return err
	}
	defer entry.Release()

	if !entry.Machine().Phase().IsAwaiting() {
		return nil
	}

	reply, err := s.controller.Advance(ctx, update.UserID, entry.Machine(), prefs, update.Text)
	if sendErr := s.sendReply(ctx, update.ChatID, reply); sendErr != nil && err == nil {
		err = sendErr
	}
	return err
}

func (s *Service) sendReply(ctx context.Context, chatID int64, reply auth.Reply) error {
	if reply.Text == "" {
		return nil
	}
	return s.messenger.SendText(ctx, chatID, reply.Text)
}

// # Digest

/*
handleGetNews authenticates the user, delivers a digest now and schedules the
daily digest.

Description: An unlinked user gets the handshake prompt and nothing is
scheduled. Every successful call adds another daily job for the user; earlier
jobs keep running.
*/
func (s *Service) handleGetNews(ctx context.Context, update Update) error {
	entry, prefs := s.store.GetOrCreate(update.UserID, update.LanguageCode)
	if err := entry.Acquire(ctx); err != nil {
		return err
	}

	reply, err := s.controller.Begin(ctx, update.UserID, entry.Machine(), prefs)
	if sendErr := s.sendReply(ctx, update.ChatID, reply); sendErr != nil && err == nil {
		err = sendErr
	}
	if err != nil || !reply.Authorized {
		entry.Release()
		return err
	}

	err = s.deliverDigest(ctx, update.ChatID, update.UserID, entry.Machine().Session(), prefs)
	entry.Release()
	if err != nil {
		return err
	}

	job := s.scheduler.ScheduleDaily(ctx, update.UserID, prefs, s.dailyDigest(entry, update.ChatID))
	entry.AddJob(job)
	ctxutil.GetLogger(ctx).Info("digest_daily_scheduled",
		slog.String(constants.FieldJobID, job.ID()),
		slog.Int("jobs", len(entry.Jobs())),
	)

	return s.messenger.SendText(ctx, update.ChatID, s.texts.Text(prefs.Language, KeyDigestScheduled))
}

// dailyDigest is the closure run on every scheduled firing for one user.
func (s *Service) dailyDigest(entry *auth.Entry, chatID int64) scheduler.JobFunc {
	return func(ctx context.Context, prefs auth.Preferences) error {
		ctx = ctxutil.WithLogger(ctx, s.logger.With(slog.Int64(constants.FieldUserID, entry.UserID())))
		ctx = ctxutil.WithUserID(ctx, entry.UserID())

		if err := entry.Acquire(ctx); err != nil {
			return err
		}
		defer entry.Release()

		m := entry.Machine()
		if m.Phase().IsAwaiting() {
			s.sendNotice(ctx, chatID, prefs, KeyDigestNoAccount)
			return ErrHandshakeInProgress
		}

		// Begin re-checks the stored session; only a prompt to re-link is sent.
		reply, err := s.controller.Begin(ctx, entry.UserID(), m, prefs)
		if err != nil {
			return err
		}
		if !reply.Authorized {
			if err := s.sendReply(ctx, chatID, reply); err != nil {
				return err
			}
			return ErrNotAuthorized
		}

		return s.deliverDigest(ctx, chatID, entry.UserID(), m.Session(), prefs)
	}
}

/*
deliverDigest produces the digest and sends it as a voice message.

Description: A recording indicator is refreshed while the digest is produced
and is stopped on every exit path. The audio file is removed after sending.
*/
func (s *Service) deliverDigest(ctx context.Context, chatID, userID int64, session auth.CredentialSession, prefs auth.Preferences) error {
	log := ctxutil.GetLogger(ctx)

	if err := s.messenger.SendHTML(ctx, chatID, s.texts.Text(prefs.Language, KeyDigestStart)); err != nil {
		return fmt.Errorf("bot: send digest start: %w", err)
	}

	stop := s.startIndicator(ctx, chatID)
	defer stop()

	path, err := s.producer.Produce(ctx, session, userID)
	if err != nil {
		s.sendNotice(ctx, chatID, prefs, KeyDigestFailed)
		return fmt.Errorf("bot: produce digest: %w", err)
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			log.Warn("digest_audio_cleanup_failed", slog.String("path", path), slog.Any("error", rmErr))
		}
	}()

	if err := s.messenger.SendHTML(ctx, chatID, s.texts.Text(prefs.Language, KeyDigestEnd)); err != nil {
		return fmt.Errorf("bot: send digest end: %w", err)
	}
	if err := s.messenger.SendVoice(ctx, chatID, path); err != nil {
		return fmt.Errorf("bot: send digest voice: %w", err)
	}

	log.Info("digest_delivered", slog.String("path", path))
	return nil
}

// sendNotice tells the user why a digest did not arrive. The digest error
// stays the one reported, so a failed send is only logged.
func (s *Service) sendNotice(ctx context.Context, chatID int64, prefs auth.Preferences, key string) {
	if err := s.messenger.SendText(ctx, chatID, s.texts.Text(prefs.Language, key)); err != nil {
		ctxutil.GetLogger(ctx).Warn("digest_notice_send_failed",
			slog.String("key", key),
			slog.Any("error", err),
		)
	}
}

// startIndicator refreshes the recording indicator until the returned func is
// called. The func waits for the indicator goroutine to exit.
func (s *Service) startIndicator(ctx context.Context, chatID int64) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(s.indicatorPeriod)
		defer ticker.Stop()

		for {
			if err := s.messenger.SendRecordingVoice(ctx, chatID); err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
