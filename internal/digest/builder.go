// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/taibuivan/newswizard/internal/auth"
	"github.com/taibuivan/newswizard/internal/platform/constants"
	"github.com/taibuivan/newswizard/pkg/slug"
	"github.com/taibuivan/newswizard/pkg/uuid"
)

const (
	updatesFile    = "updates.txt"
	summarizedFile = "updates_summarized.txt"
	textExt        = ".txt"
	audioSuffix    = "_audio_podcast.mp3"
)

// ErrNotReadable is returned when the session cannot read channel content.
var ErrNotReadable = errors.New("digest: session cannot read channels")

// ErrNoContent is returned when no channel published anything in the window.
var ErrNoContent = errors.New("digest: no posts in the lookback window")

// Config holds the knobs of a [Builder].
type Config struct {
	// TmpDir is the root of the per-user work directories.
	TmpDir string
	// Lookback is how far back posts are read.
	Lookback time.Duration
	// Pacing is the minimum gap between two channel reads.
	Pacing time.Duration
	// Location stamps the updates header and the audio file date.
	Location *time.Location
	// Now replaces time.Now.
	Now func() time.Time
}

// Builder implements [Producer].
type Builder struct {
	cfg        Config
	summarizer Summarizer
	speech     Synthesizer
	logger     *slog.Logger
}

// NewBuilder fills unset config values with defaults and returns the builder.
func NewBuilder(cfg Config, summarizer Summarizer, speech Synthesizer, logger *slog.Logger) *Builder {
	if cfg.TmpDir == "" {
		cfg.TmpDir = "tmp"
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 9 * time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Builder{cfg: cfg, summarizer: summarizer, speech: speech, logger: logger}
}

/*
Produce runs one digest for a user.

Description: Lists the account's broadcast channels, buffers the posts of the
lookback window into one text file per channel, appends each channel summary to
updates.txt under a timestamp header, condenses updates.txt into a script and
synthesises it. All text files are removed before returning.

Parameters:
  - ctx: context.Context
  - session: auth.CredentialSession (authorized; must also implement Reader)
  - userID: int64

Returns:
  - string: Path of the MP3 file
  - error: Reader, summarizer, synthesizer or file system failures
*/
func (b *Builder) Produce(ctx context.Context, session auth.CredentialSession, userID int64) (string, error) {
	reader, ok := session.(Reader)
	if !ok {
		return "", ErrNotReadable
	}

	log := b.logger.With(
		slog.Int64(constants.FieldUserID, userID),
		slog.String(constants.FieldRunID, uuid.New()),
	)

	dir := filepath.Join(b.cfg.TmpDir, strconv.FormatInt(userID, 10))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("digest: create work directory: %w", err)
	}
	defer b.removeText(log, dir)

	started := b.cfg.Now()

	files, err := b.collect(ctx, log, reader, dir, started.Add(-b.cfg.Lookback))
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", ErrNoContent
	}

	updates, err := b.writeUpdates(ctx, log, dir, files, started)
	if err != nil {
		return "", err
	}

	script, err := b.summarizer.SummarizeDigest(ctx, updates)
	if err != nil {
		return "", fmt.Errorf("digest: summarize updates: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, summarizedFile), []byte(script+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("digest: write summary: %w", err)
	}

	audio := filepath.Join(dir, started.In(b.cfg.Location).Format(time.DateOnly)+audioSuffix)
	if err := b.synthesize(ctx, audio, script); err != nil {
		return "", err
	}

	log.Info("digest_produced",
		slog.String("path", audio),
		slog.Int("channels", len(files)),
		slog.Duration("elapsed", b.cfg.Now().Sub(started)),
	)
	return audio, nil
}

// collect writes one file per channel with posts and returns their paths.
// Channels without posts in the window produce no file.
func (b *Builder) collect(ctx context.Context, log *slog.Logger, reader Reader, dir string, since time.Time) ([]string, error) {
	channels, err := reader.Channels(ctx)
	if err != nil {
		return nil, fmt.Errorf("digest: list channels: %w", err)
	}

	limiter := rate.NewLimiter(rate.Every(b.cfg.Pacing), 1)
	used := make(map[string]struct{}, len(channels))
	var files []string

	for _, channel := range channels {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		posts, err := reader.Posts(ctx, channel, since)
		if err != nil {
			return nil, fmt.Errorf("digest: read channel %q: %w", channel.Title, err)
		}
		if len(posts) == 0 {
			log.Debug("digest_channel_empty", slog.String("channel", channel.Title))
			continue
		}

		id := strconv.FormatInt(channel.ID, 10)
		name := slug.FileName(channel.Title, "channel_"+id)
		if _, taken := used[name]; taken || name+textExt == updatesFile || name+textExt == summarizedFile {
			name += "_" + id
		}
		used[name] = struct{}{}

		path := filepath.Join(dir, name+textExt)
		if err := os.WriteFile(path, []byte(formatPosts(channel.Title, posts)), 0o600); err != nil {
			return nil, fmt.Errorf("digest: write channel file: %w", err)
		}
		files = append(files, path)
		log.Info("digest_channel_read", slog.String("channel", channel.Title), slog.Int("posts", len(posts)))
	}

	return files, nil
}

func formatPosts(source string, posts []Post) string {
	var sb strings.Builder
	for _, post := range posts {
		fmt.Fprintf(&sb, "Source: %s\nStart of post:\n%s\nEnd of post.\n\n***\n\n", source, post.Text)
	}
	return sb.String()
}

// writeUpdates appends every channel summary to updates.txt and returns its content.
func (b *Builder) writeUpdates(ctx context.Context, log *slog.Logger, dir string, files []string, at time.Time) (string, error) {
	path := filepath.Join(dir, updatesFile)
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return "", fmt.Errorf("digest: open updates: %w", err)
	}
	defer out.Close()

	if _, err := fmt.Fprintf(out, "\nUpdates generated at: %s\n", at.In(b.cfg.Location).Format("2006-01-02 15:04:05 -07:00")); err != nil {
		return "", fmt.Errorf("digest: write updates: %w", err)
	}

	for _, file := range files {
		posts, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("digest: read channel file: %w", err)
		}

		summary, err := b.summarizer.SummarizeChannel(ctx, string(posts))
		if err != nil {
			return "", fmt.Errorf("digest: summarize %s: %w", filepath.Base(file), err)
		}

		if _, err := fmt.Fprintf(out, "\n%s\n", summary); err != nil {
			return "", fmt.Errorf("digest: write updates: %w", err)
		}
		log.Debug("digest_channel_summarized", slog.String("file", filepath.Base(file)))
	}

	if _, err := fmt.Fprint(out, "\nEnd of updates\n"); err != nil {
		return "", fmt.Errorf("digest: write updates: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("digest: close updates: %w", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("digest: read updates: %w", err)
	}
	return string(content), nil
}

func (b *Builder) synthesize(ctx context.Context, path, script string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("digest: create audio file: %w", err)
	}

	if err := b.speech.Synthesize(ctx, script, file); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return fmt.Errorf("digest: synthesize: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("digest: close audio file: %w", err)
	}
	return nil
}

// removeText deletes every text file left in dir.
func (b *Builder) removeText(log *slog.Logger, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Warn("digest_cleanup_failed", slog.Any("error", err))
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != textExt {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			log.Warn("digest_cleanup_failed", slog.String("file", entry.Name()), slog.Any("error", err))
		}
	}
}
