// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package digest turns a linked account's channel posts into an audio digest.

Architecture:

  - Reader: Broadcast channels and their recent posts, read through the session.
  - Builder: Buffers posts per channel, summarises each, then the whole, and
    synthesises the script as MP3 under the user's temporary directory.
  - Summarizer / Synthesizer: Language model and speech collaborators.

Work files live in <tmp>/<user id>/ and are removed when a run ends.
*/
package digest

import (
	"context"
	"io"
	"time"

	"github.com/taibuivan/newswizard/internal/auth"
)

// Channel identifies a broadcast channel of the linked account.
type Channel struct {
	ID         int64
	AccessHash int64
	Title      string
}

// Post is one text message of a channel.
type Post struct {
	Date time.Time
	Text string
}

// Reader reads channel content through an authorized credential session.
type Reader interface {
	Channels(ctx context.Context) ([]Channel, error)
	Posts(ctx context.Context, channel Channel, since time.Time) ([]Post, error)
}

// Summarizer condenses text with a language model.
type Summarizer interface {
	SummarizeChannel(ctx context.Context, posts string) (string, error)
	SummarizeDigest(ctx context.Context, updates string) (string, error)
}

// Synthesizer renders a script as speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, w io.Writer) error
}

// Producer creates the audio artifact of one digest run.
//
// The session must report itself authorized when Produce is called. The
// returned path is owned by the caller, who removes it after delivery.
type Producer interface {
	Produce(ctx context.Context, session auth.CredentialSession, userID int64) (string, error)
}
