// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package bot routes chat updates to the account-linking core and the digest.

Architecture:

  - Dispatcher: One FIFO mailbox per user; a user's updates never overlap.
  - Service: Commands (start, help, auth, getnews) and handshake text routing.
  - Messenger: Outbound transport implemented by the chat platform adapter.
*/
package bot

import "context"

// Commands recognised at the transport boundary.
const (
	CommandStart   = "start"
	CommandHelp    = "help"
	CommandAuth    = "auth"
	CommandGetNews = "getnews"
)

// Message table keys used outside the handshake.
const (
	KeyWelcome         = "commands.welcome"
	KeyHelp            = "commands.help"
	KeyDigestStart     = "digest.start_message"
	KeyDigestEnd       = "digest.end_message"
	KeyDigestFailed    = "digest.failed"
	KeyDigestScheduled = "digest.scheduled"
	KeyDigestNoAccount = "digest.not_authorized"
)

// Update is one inbound chat message.
type Update struct {
	UpdateID     int
	UserID       int64
	ChatID       int64
	Username     string
	LanguageCode string
	Text         string
	// Command is the command name without the slash, empty for plain text.
	Command string
}

// Messenger sends replies to a chat.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendHTML(ctx context.Context, chatID int64, text string) error
	SendVoice(ctx context.Context, chatID int64, path string) error
	SendRecordingVoice(ctx context.Context, chatID int64) error
}

// Handler processes one update.
type Handler interface {
	Handle(ctx context.Context, update Update)
}

// HandlerFunc adapts a plain function to [Handler].
type HandlerFunc func(ctx context.Context, update Update)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, update Update) { f(ctx, update) }
